package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cottand/qinfer/explain"
	"github.com/cottand/qinfer/internal/config"
	"github.com/cottand/qinfer/internal/log"
	"github.com/cottand/qinfer/problem"
	"github.com/cottand/qinfer/qinfer"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var SolveCmd = &cobra.Command{
	Use:          "solve file.yaml",
	Short:        "Infer the qualifiers of a problem",
	RunE:         runSolve,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
}

// ErrUnsatisfiable is returned by solve when the problem has no solution, so that the
// process exits with a non-zero status
var ErrUnsatisfiable = errors.New("the problem is unsatisfiable")

const bannerEnd = "/**********************************************************/"

var (
	solutionsBanner   = color.New(color.FgGreen, color.Bold)
	explanationBanner = color.New(color.FgRed, color.Bold)
	statisticsBanner  = color.New(color.FgCyan, color.Bold)
)

var (
	backendName     *string
	jobs            *int
	configPath      *string
	logLevel        *string
	writeSolutions  *string
	writeStatistics *string
	noAppend        *bool
	noExplain       *bool
)

func init() {
	flags := SolveCmd.Flags()
	backendName = flags.StringP("backend", "b", "", fmt.Sprintf("backend to solve with, one of %v", qinfer.Backends()))
	jobs = flags.IntP("jobs", "j", 0, "goroutines encoding constraints, 0 for one per CPU")
	configPath = flags.StringP("config", "c", "", "configuration file, by default the closest "+config.FileName)
	logLevel = flags.StringP("log-level", "l", "", "log level: debug, info, warn or error")
	writeSolutions = flags.String("write-solutions", "", "also write the solutions to this file")
	writeStatistics = flags.String("write-statistics", "", "also write the statistics to this file")
	noAppend = flags.Bool("no-append", false, "overwrite the files written to instead of appending to them")
	noExplain = flags.Bool("no-explain", false, "do not explain unsatisfiable problems")
}

// settings merges the configuration file with the flags set on cmd
func settings(cmd *cobra.Command, target string) (config.Config, error) {
	var cfg config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, _, err = config.Discover(filepath.Dir(target))
	}
	if err != nil {
		return config.Config{}, fmt.Errorf("could not load configuration: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend = *backendName
	}
	if flags.Changed("jobs") {
		cfg.Jobs = *jobs
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = *logLevel
	}
	if flags.Changed("write-solutions") {
		cfg.Output.Solutions = *writeSolutions
	}
	if flags.Changed("write-statistics") {
		cfg.Output.Statistics = *writeStatistics
	}
	if flags.Changed("no-append") {
		cfg.Output.NoAppend = *noAppend
	}
	if flags.Changed("no-explain") {
		cfg.Explain = !*noExplain
	}
	return cfg, nil
}

func runSolve(cmd *cobra.Command, args []string) error {
	target, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("could not get absolute path of target: %w", err)
	}
	cfg, err := settings(cmd, target)
	if err != nil {
		return err
	}
	return solve(cmd, target, cfg)
}

func solve(cmd *cobra.Command, target string, cfg config.Config) error {
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return err
	}
	log.SetLevel(level)
	log.EnableSections(cfg.Log.Sections...)

	p, err := problem.Load(os.DirFS(filepath.Dir(target)), filepath.Base(target))
	if err != nil {
		return fmt.Errorf("could not load problem: %w", err)
	}
	outcome, err := qinfer.Run(cmd.Context(), p.Problem, qinfer.Options{
		Backend: cfg.Backend,
		Jobs:    cfg.Jobs,
		Explain: cfg.Explain,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	result := outcome.Result
	if result.Satisfiable {
		solutions := explain.Solutions(result.Solutions, p.Slots.Len())
		printSection(out, solutionsBanner, "Solutions", solutions)
		if err := writeSection(cfg.Output.Solutions, cfg.Output.NoAppend, "Solutions", solutions); err != nil {
			return err
		}
	} else if cfg.Explain {
		if errors.Is(outcome.ExplainErr, explain.ErrUnsupported) {
			_, _ = fmt.Fprintln(out, "The backend you used doesn't support explanation feature!")
		} else {
			printSection(out, explanationBanner, "Explanation", outcome.Explanation)
		}
	}

	statistics := explain.Statistics(result.Stats)
	printSection(out, statisticsBanner, "Statistics", statistics)
	if err := writeSection(cfg.Output.Statistics, cfg.Output.NoAppend, "Statistics", statistics); err != nil {
		return err
	}

	if !result.Satisfiable {
		return ErrUnsatisfiable
	}
	return nil
}

func banner(title string) string {
	return "/***********************" + title + strings.Repeat("*", max(0, 35-len(title))) + "/"
}

func printSection(out io.Writer, c *color.Color, title, body string) {
	_, _ = c.Fprintln(out, banner(title))
	_, _ = fmt.Fprintln(out, body)
	_, _ = c.Fprintln(out, bannerEnd)
}

// writeSection appends a section to the file at path, or overwrites it when noAppend is set.
// Nothing is written when path is empty
func writeSection(path string, noAppend bool, title, body string) error {
	if path == "" {
		return nil
	}
	mode := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if noAppend {
		mode = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	}
	f, err := os.OpenFile(path, mode, 0o644)
	if err != nil {
		return fmt.Errorf("could not open %s: %w", path, err)
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, "%s\n%s\n%s\n", banner(title), body, bannerEnd); err != nil {
		return fmt.Errorf("could not write to %s: %w", path, err)
	}
	return nil
}
