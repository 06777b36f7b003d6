package analysis

import (
	"context"
	"fmt"

	"github.com/edp1096/toy-loadflow/pkg/network"
)

type Analysis interface {
	Setup(net *network.Network) error
	Execute(ctx context.Context) error
	GetResults() map[string][]float64
}

type BaseAnalysis struct {
	Network *network.Network
	Config  Config
	results map[string][]float64 // key: quantity name, value: result
}

func NewBaseAnalysis(cfg Config) *BaseAnalysis {
	return &BaseAnalysis{Config: cfg, results: make(map[string][]float64)}
}

func (a *BaseAnalysis) StoreResult(name string, value float64) {
	a.results[name] = append(a.results[name], value)
}

func (a *BaseAnalysis) resetResults() {
	a.results = make(map[string][]float64)
}

func (a *BaseAnalysis) GetResults() map[string][]float64 {
	return a.results
}

func busKey(quantity, id string) string { return fmt.Sprintf("%s(%s)", quantity, id) }
