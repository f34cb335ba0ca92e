package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ccsim/pkg/config"
	dberr "ccsim/pkg/error"
	"ccsim/pkg/logging"
	"ccsim/pkg/schedule"
	"ccsim/pkg/scheduler"
	"ccsim/pkg/server"
	"ccsim/pkg/ui"
)

// Configuration holds command-line flags. Flags left at their zero value do
// not override the config file.
type Configuration struct {
	ConfigPath    string
	Algorithm     string
	Sequence      string
	BatchFile     string
	AbortedPolicy string
	LogLevel      string
	Port          int
	Serve         bool
	TUI           bool
	PrintConfig   bool
	NoRestart     bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	flags, err := parseArguments(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 2
	}

	if flags.PrintConfig {
		out, err := cfg.Marshal()
		if err != nil {
			fmt.Fprintf(stderr, "config: %v\n", err)
			return 1
		}
		stdout.Write(out)
		return 0
	}

	if flags.TUI {
		// The terminal belongs to the UI; a log line would tear the frame.
		logging.Discard()
	} else if err := logging.Init(cfg.Logging); err != nil {
		fmt.Fprintf(stderr, "logging: %v\n", err)
		return 1
	}
	defer logging.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case flags.Serve:
		showBanner(stderr)
		return serve(ctx, cfg, stderr)
	case flags.BatchFile != "":
		return runBatch(ctx, cfg, flags.BatchFile, stdin, stdout, stderr)
	case flags.Sequence != "":
		return runOnce(cfg, flags.Sequence, stdout, stderr)
	default:
		return startInteractiveMode(cfg, stderr)
	}
}

// parseArguments processes command-line flags
func parseArguments(args []string, stderr io.Writer) (Configuration, error) {
	var c Configuration

	fs := flag.NewFlagSet("ccsim", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&c.ConfigPath, "config", "", "YAML configuration file")
	fs.StringVar(&c.Algorithm, "algo", "", "Protocol: twophase or occ (default from config)")
	fs.StringVar(&c.Sequence, "seq", "", "Operation sequence to schedule once, e.g. R1(A)W2(A)C1C2")
	fs.StringVar(&c.BatchFile, "batch", "", "File with one sequence per line ('-' for stdin)")
	fs.StringVar(&c.AbortedPolicy, "aborted", "", "Aborted work in output: omit or flag")
	fs.StringVar(&c.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.IntVar(&c.Port, "port", 0, "HTTP port for -serve")
	fs.BoolVar(&c.Serve, "serve", false, "Run the HTTP API")
	fs.BoolVar(&c.TUI, "tui", false, "Run the terminal UI")
	fs.BoolVar(&c.PrintConfig, "print-config", false, "Print the effective configuration and exit")
	fs.BoolVar(&c.NoRestart, "no-restart", false, "Do not replay aborted transactions")

	if err := fs.Parse(args); err != nil {
		return c, err
	}

	// A bare argument is a sequence: ccsim 'R1(A)C1'
	if c.Sequence == "" && fs.NArg() > 0 {
		c.Sequence = strings.Join(fs.Args(), "")
	}
	if c.TUI && (c.Sequence != "" || c.BatchFile != "" || c.Serve) {
		err := errors.New("-tui cannot be combined with -seq, -batch or -serve")
		fmt.Fprintln(stderr, err)
		return c, err
	}
	if c.Sequence == "" && c.BatchFile == "" && !c.Serve && !c.PrintConfig {
		c.TUI = true
	}
	return c, nil
}

// loadConfig applies flags over the config file over the defaults.
func loadConfig(flags Configuration) (*config.Config, error) {
	cfg := config.Default()
	if flags.ConfigPath != "" {
		loaded, err := config.Load(flags.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if flags.Algorithm != "" {
		cfg.Algorithm = flags.Algorithm
	}
	if flags.AbortedPolicy != "" {
		policy, err := schedule.ParseAbortedPolicy(flags.AbortedPolicy)
		if err != nil {
			return nil, err
		}
		cfg.Simulation.AbortedPolicy = policy
	}
	if flags.LogLevel != "" {
		cfg.Logging.Level = logging.ParseLevel(flags.LogLevel)
	}
	if flags.Port != 0 {
		cfg.Server.Port = flags.Port
	}
	if flags.NoRestart {
		cfg.Simulation.RestartAborted = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func showBanner(w io.Writer) {
	banner := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#7C3AED")).
		Foreground(lipgloss.Color("#7C3AED")).
		Bold(true).
		Padding(0, 2).
		Render("ccsim · two-phase locking & optimistic concurrency control")

	fmt.Fprintln(w, banner)
}

func runOnce(cfg *config.Config, seq string, stdout, stderr io.Writer) int {
	result, err := scheduler.Simulate(seq, cfg.DefaultAlgorithm(), cfg.Simulation)
	if err != nil {
		printError(stderr, err)
		return 1
	}

	fmt.Fprintln(stdout, result.Output)
	for _, a := range result.Aborts {
		fmt.Fprintf(stderr, "aborted %s (incarnation %d): %s\n", a.TxID, a.Incarnation, a.Message)
	}
	for _, d := range result.Diagnostics {
		fmt.Fprintf(stderr, "note: %s\n", d)
	}
	return 0
}

func runBatch(ctx context.Context, cfg *config.Config, path string, stdin io.Reader, stdout, stderr io.Writer) int {
	inputs, err := readSequences(path, stdin)
	if err != nil {
		fmt.Fprintf(stderr, "batch: %v\n", err)
		return 1
	}

	outcomes, err := scheduler.RunBatch(ctx, inputs, cfg.DefaultAlgorithm(), cfg.Simulation, cfg.Batch.Parallelism)
	if err != nil {
		fmt.Fprintf(stderr, "batch: %v\n", err)
		return 1
	}

	failed := 0
	for i, o := range outcomes {
		if o.Err != nil {
			failed++
			fmt.Fprintf(stdout, "%d\terror\t%s\n", i+1, o.Err)
			continue
		}
		fmt.Fprintf(stdout, "%d\tok\t%s\n", i+1, o.Result.Output)
	}

	logging.Info("batch finished", "sequences", len(outcomes), "failed", failed)
	if failed > 0 {
		return 1
	}
	return 0
}

// readSequences returns the non-empty, non-comment lines of path.
func readSequences(path string, stdin io.Reader) ([]string, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var inputs []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		inputs = append(inputs, line)
	}
	return inputs, scanner.Err()
}

func serve(ctx context.Context, cfg *config.Config, stderr io.Writer) int {
	srv := server.New(cfg)
	if err := srv.ListenAndServe(ctx); err != nil {
		fmt.Fprintf(stderr, "server: %v\n", err)
		return 1
	}
	return 0
}

// startInteractiveMode launches the Bubble Tea UI
func startInteractiveMode(cfg *config.Config, stderr io.Writer) int {
	model := ui.NewModel(cfg.DefaultAlgorithm(), cfg.Simulation)

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
	)

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(stderr, "error running program: %v\n", err)
		return 1
	}
	return 0
}

func printError(w io.Writer, err error) {
	var dbErr *dberr.DBError
	if errors.As(err, &dbErr) && dbErr.Hint != "" {
		fmt.Fprintf(w, "%v\nhint: %s\n", err, dbErr.Hint)
		return
	}
	fmt.Fprintln(w, err)
}
