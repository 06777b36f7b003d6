package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/edp1096/toy-loadflow/internal/metrics"
	"github.com/edp1096/toy-loadflow/pkg/analysis"
	"github.com/edp1096/toy-loadflow/pkg/matrix"
	"github.com/edp1096/toy-loadflow/pkg/netlist"
	"github.com/edp1096/toy-loadflow/pkg/network"
	"github.com/edp1096/toy-loadflow/pkg/util"
)

var (
	tolerance = flag.Float64("tol", 0, "convergence tolerance on the largest mismatch (p.u.)")
	maxIter   = flag.Int("maxiter", 0, "maximum Newton-Raphson iterations")
	solver    = flag.String("solver", "", "linear solver: sparse or dense")
	workers   = flag.Int("workers", 0, "goroutines evaluating the equations")
	timeout   = flag.Duration("timeout", 0, "abort the solve after this duration")
	verbose   = flag.Bool("v", false, "log every iteration")
	jsonLog   = flag.Bool("json", false, "log as JSON")
)

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if *jsonLog {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// applyFlags overrides the case file solver settings with the flags given
// on the command line.
func applyFlags(cfg *analysis.Config) error {
	var err error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "tol":
			cfg.Tolerance = *tolerance
		case "maxiter":
			cfg.MaxIterations = *maxIter
		case "solver":
			var kind matrix.Kind
			if kind, err = matrix.ParseKind(*solver); err == nil {
				cfg.LinearSolver = kind
			}
		case "workers":
			cfg.Workers = *workers
		case "timeout":
			cfg.Timeout = *timeout
		}
	})
	if err != nil {
		return err
	}
	return cfg.Validate()
}

func printReport(net *network.Network, rep *analysis.Report) {
	fmt.Println("\nLoad Flow Results:")
	fmt.Println("==================")
	fmt.Printf("Status: %s after %d iterations (max mismatch %s)\n",
		rep.Status, rep.Iterations, util.FormatMagnitude(rep.Diagnostic.MaxResidual))
	if rep.Status != analysis.Converged {
		fmt.Printf("Worst equation: %s\n", rep.Diagnostic.OffendingEquation)
		if rep.Diagnostic.Reason != "" {
			fmt.Printf("Reason: %s\n", rep.Diagnostic.Reason)
		}
	}

	fmt.Println("\nBus Voltages:")
	fmt.Println("Bus         Type   Voltage                       Angle         P injection     Q injection")
	fmt.Println("------------------------------------------------------------------------------------------")
	for i, b := range rep.Buses {
		if !b.InService {
			continue
		}
		bus := net.Buses()[i]
		fmt.Printf("%-11s %-6s %-29s %s  %s  %s\n",
			b.ID, b.Type,
			util.FormatVoltage(b.V, bus.NominalV),
			util.FormatAngle(b.Phi),
			util.FormatPower(b.P, false),
			util.FormatPower(b.Q, true))
	}

	fmt.Println("\nBranch Flows:")
	fmt.Println("Branch      P1              Q1              I1        P2              Q2              I2        Losses")
	fmt.Println("---------------------------------------------------------------------------------------------------------")
	for _, br := range rep.Branches {
		fmt.Printf("%-11s %s %s %s  %s %s %s  %s\n",
			br.ID,
			util.FormatPower(br.P1, false), util.FormatPower(br.Q1, true), util.FormatMagnitude(br.I1),
			util.FormatPower(br.P2, false), util.FormatPower(br.Q2, true), util.FormatMagnitude(br.I2),
			util.FormatPower(br.Losses(), false))
	}

	fmt.Println("\nTotals:")
	fmt.Printf("  Generation: %s\n", util.FormatPower(rep.TotalGeneration, false))
	fmt.Printf("  Load:       %s\n", util.FormatPower(rep.TotalLoad, false))
	fmt.Printf("  Losses:     %s\n", util.FormatPower(rep.TotalLosses, false))
	fmt.Printf("  Slack:      %s %s\n", util.FormatPower(rep.SlackP, false), util.FormatPower(rep.SlackQ, true))
	if len(rep.Disconnected) > 0 {
		fmt.Printf("  Out of service buses: %v\n", rep.Disconnected)
	}
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: loadflow [flags] <case.yaml>\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	logger := newLogger()

	c, err := netlist.ParseFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("Error parsing case: %v", err)
	}
	if err := applyFlags(&c.Solver); err != nil {
		log.Fatalf("Error in solver settings: %v", err)
	}

	lf, err := analysis.NewLoadFlow(c.Solver,
		analysis.WithLogger(logger),
		analysis.WithMetrics(metrics.DefaultRegistry()))
	if err != nil {
		log.Fatalf("Analysis creation failed: %v", err)
	}
	if err := lf.Setup(c.Network); err != nil {
		log.Fatalf("Analysis setup failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	if err := lf.Execute(ctx); err != nil {
		log.Fatalf("Analysis execution failed: %v", err)
	}
	logger.Debug("load flow done", "case", c.Network.Name, "elapsed", time.Since(start))

	rep := lf.Report()
	printReport(c.Network, rep)
	if rep.Status != analysis.Converged {
		stop()
		os.Exit(1)
	}
}
