/*
main.go - Batch evaluation CLI

PURPOSE:
  Evaluates a schedule definition file and prints NPV, produced volume
  and IRR per scenario. Deterministic scenarios print one row per rate; probabilistic
  ones print the mean and P10/P50/P90 per rate instead of every
  realization unless -all is given.

USAGE:
  evaluate [flags] schedule.yaml

FLAGS:
  -rates     Comma separated discount rates (overrides the definition)
  -freq      Basis of rates and IRR: A, M or D (overrides the definition)
  -periods   Comma separated period filter
  -scenario  Only evaluate this scenario
  -example   Evaluate a bundled example instead of a file
  -all       Print every realization
  -json      Print the full result as JSON
  -log-level Log level for engine warnings (default: LOG_LEVEL or warn)

OUTPUT:
  Tables go to stdout, logs to stderr.

SEE ALSO:
  - factory/schedule.go: definition format
  - generic/evaluate.go: Evaluate
*/
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"

	"github.com/warp/forecast-engine/factory"
	"github.com/warp/forecast-engine/generic"
	"github.com/warp/forecast-engine/logger"
)

type cliFlags struct {
	rates    string
	freq     string
	periods  string
	scenario string
	example  string
	all      bool
	json     bool
	logLevel string
}

func main() {
	var f cliFlags
	flag.StringVar(&f.rates, "rates", "", "comma separated discount rates")
	flag.StringVar(&f.freq, "freq", "", "basis of rates and IRR (A, M, D)")
	flag.StringVar(&f.periods, "periods", "", "comma separated period filter")
	flag.StringVar(&f.scenario, "scenario", "", "only evaluate this scenario")
	flag.StringVar(&f.example, "example", "", "evaluate a bundled example")
	flag.BoolVar(&f.all, "all", false, "print every realization")
	flag.BoolVar(&f.json, "json", false, "print the result as JSON")
	flag.StringVar(&f.logLevel, "log-level", envOr("LOG_LEVEL", "warn"), "log level")
	flag.Parse()

	log := logger.New(logger.Config{Level: f.logLevel, Pretty: true, Output: os.Stderr})

	if err := run(f, flag.Args(), log, os.Stdout); err != nil {
		log.Error().Err(err).Msg("evaluation failed")
		os.Exit(1)
	}
}

func run(f cliFlags, args []string, log zerolog.Logger, out io.Writer) error {
	data, format, err := readDefinition(f, args)
	if err != nil {
		return err
	}

	fac := factory.NewScheduleFactory(factory.WithLogger(log))
	schedule, def, err := fac.Load(data, format)
	if err != nil {
		return err
	}
	if f.scenario != "" {
		sc, ok := schedule.Scenario(f.scenario)
		if !ok {
			return fmt.Errorf("scenario %q not in %v", f.scenario, schedule.ScenarioNames())
		}
		schedule.Scenarios = []*generic.Scenario{sc}
	}

	opts, err := options(f, def)
	if err != nil {
		return err
	}
	result, err := generic.Evaluate(schedule, opts)
	if err != nil {
		return err
	}

	if f.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return printResult(out, result, opts, f.all)
}

func readDefinition(f cliFlags, args []string) ([]byte, generic.DefinitionFormat, error) {
	if f.example != "" {
		ex, err := factory.ExampleByID(f.example)
		if err != nil {
			return nil, "", err
		}
		return ex.Definition, generic.FormatYAML, nil
	}
	if len(args) != 1 {
		return nil, "", fmt.Errorf("usage: evaluate [flags] schedule.yaml")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, "", err
	}
	return data, factory.DetectFormat(args[0]), nil
}

func options(f cliFlags, def *factory.ScheduleDef) (generic.EvaluateOptions, error) {
	var opts generic.EvaluateOptions
	if def.Evaluate != nil {
		opts = *def.Evaluate
	}
	if f.rates != "" {
		opts.Rates = nil
		for _, s := range splitList(f.rates) {
			r, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return opts, fmt.Errorf("rate %q: %w", s, err)
			}
			opts.Rates = append(opts.Rates, r)
		}
	}
	if len(opts.Rates) == 0 {
		opts.Rates = []float64{0.1}
	}
	if f.freq != "" {
		freq, err := generic.ParseFreq(f.freq)
		if err != nil {
			return opts, err
		}
		opts.Freq = freq
	}
	if f.periods != "" {
		opts.Periods = splitList(f.periods)
	}
	return opts, nil
}

// =============================================================================
// OUTPUT
// =============================================================================

func printResult(out io.Writer, res *generic.ScheduleResult, opts generic.EvaluateOptions, all bool) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	freq := opts.Freq.OrDefault(generic.FreqAnnual)

	fmt.Fprintf(w, "schedule %s, rates per %s\n", res.Schedule, freq)
	for _, sc := range res.Scenarios {
		fmt.Fprintf(w, "\nscenario %s (%d realizations, output %s)\n", sc.Name, sc.Iterations, sc.FreqOutput)

		if sc.Summary != nil && !all {
			fmt.Fprintln(w, "rate\tmean\tP90\tP50\tP10\t")
			for _, s := range sc.Summary {
				fmt.Fprintf(w, "%.4f\t%.2f\t%.2f\t%.2f\t%.2f\t\n", s.Rate, s.Mean, s.P90, s.P50, s.P10)
			}
		} else {
			fmt.Fprintln(w, "iteration\trate\tperiod rate\tNPV\t")
			for _, row := range sc.NPV {
				fmt.Fprintf(w, "%d\t%.4f\t%.6f\t%s\t\n", row.Iteration, row.Rate, row.PeriodRate, row.NPV.StringFixed(2))
			}
		}

		for _, fluid := range generic.VolumeColumns {
			if totals, ok := sc.Volumes[fluid]; ok && len(totals) > 0 {
				fmt.Fprintf(w, "%s volume (mean)\t%.1f\t\n", fluid, floats.Sum(totals)/float64(len(totals)))
			}
		}

		fmt.Fprintln(w, "iteration\tIRR\t")
		for i, row := range sc.IRR {
			if !all && i >= 10 {
				fmt.Fprintf(w, "...\t%d more\t\n", len(sc.IRR)-i)
				break
			}
			irr := "n/a"
			if row.IRR != nil {
				irr = fmt.Sprintf("%.4f", *row.IRR)
			}
			fmt.Fprintf(w, "%d\t%s\t\n", row.Iteration, irr)
		}

		if len(sc.Failed) > 0 {
			fmt.Fprintf(w, "failed periods: %s\n", strings.Join(sc.Failed, ", "))
		}
		for _, warn := range sc.Warnings {
			fmt.Fprintf(w, "warning: %s\n", warn)
		}
	}
	return w.Flush()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
