// gradefetch exports GitHub Classroom autograding results to CSV.
//
// Usage:
//
//	gradefetch                              interactive browser (TTY only)
//	gradefetch classrooms
//	gradefetch assignments -classroom 123
//	gradefetch fetch -assignment 456 [-mode latest|deadline|late] ...
//	gradefetch version
//
// Scores come from the autograder steps of each student's workflow runs.
// Deadline modes pick the first run after a deadline; late grading awards
// penalised credit for improvements between two deadlines.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"time"

	"golang.org/x/term"

	"github.com/dkoosis/gradefetch/internal/app"
	"github.com/dkoosis/gradefetch/internal/config"
	"github.com/dkoosis/gradefetch/internal/github"
	"github.com/dkoosis/gradefetch/internal/logging"
	"github.com/dkoosis/gradefetch/internal/tui"
	"github.com/dkoosis/gradefetch/internal/version"
	"github.com/dkoosis/gradefetch/pkg/fetch"
	"github.com/dkoosis/gradefetch/pkg/grading"
	"github.com/dkoosis/gradefetch/pkg/render"
	"github.com/dkoosis/gradefetch/pkg/report"
)

const (
	exitOK    = 0
	exitFatal = 1
	exitUsage = 2
)

const usage = `usage:
  gradefetch                                  interactive mode (requires a terminal)
  gradefetch classrooms                       list classrooms
  gradefetch assignments -classroom ID        list assignments of a classroom
  gradefetch fetch -assignment ID [flags]     export results to CSV
  gradefetch version                          print version
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	c := &cli{stdin: stdin, stdout: stdout, stderr: stderr, loader: config.NewLoader(), now: time.Now}
	return c.run(ctx, args)
}

type cli struct {
	stdin          io.Reader
	stdout, stderr io.Writer
	loader         config.Loader
	now            func() time.Time
}

func (c *cli) run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		if !isTTYWriter(c.stdout) {
			fmt.Fprint(c.stderr, usage)
			return exitUsage
		}
		return c.runInteractive(ctx)
	}
	switch args[0] {
	case "classrooms":
		return c.runClassrooms(ctx, args[1:])
	case "assignments":
		return c.runAssignments(ctx, args[1:])
	case "fetch":
		return c.runFetch(ctx, args[1:])
	case "version", "-version", "--version":
		fmt.Fprintln(c.stdout, version.String())
		return exitOK
	case "help", "-h", "-help", "--help":
		fmt.Fprint(c.stdout, usage)
		return exitOK
	default:
		fmt.Fprintf(c.stderr, "gradefetch: unknown command %q\n%s", args[0], usage)
		return exitUsage
	}
}

// commonFlags are accepted by every subcommand.
type commonFlags struct {
	concurrency int
	out         string
	summary     string
	debug       bool
}

func (f *commonFlags) register(fs *flag.FlagSet) {
	fs.IntVar(&f.concurrency, "concurrency", fetch.DefaultConcurrency, "students fetched in parallel")
	fs.StringVar(&f.out, "out", config.DefaultOutputDir, "directory for the CSV export")
	fs.StringVar(&f.summary, "summary", config.DefaultSummary, "summary format: terminal, llm, json, none")
	fs.BoolVar(&f.debug, "debug", false, "debug logging")
}

// cliFlags reports which common flags were set explicitly.
func (f *commonFlags) cliFlags(fs *flag.FlagSet) config.CliFlags {
	cf := config.CliFlags{Concurrency: f.concurrency, OutputDir: f.out, Summary: f.summary, Debug: f.debug}
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "concurrency":
			cf.ConcurrencySet = true
		case "out":
			cf.OutputDirSet = true
		case "summary":
			cf.SummarySet = true
		case "debug":
			cf.DebugSet = true
		}
	})
	return cf
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("gradefetch "+name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// setup resolves configuration and builds the service.
func (c *cli) setup(flags config.CliFlags, logOpts logging.Options) (*app.Service, config.Config, func() error, error) {
	noop := func() error { return nil }
	cfg, err := c.loader.Resolve(flags)
	if err != nil {
		return nil, cfg, noop, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, cfg, noop, fmt.Errorf("invalid configuration:\n%w", err)
	}

	logOpts.Debug = cfg.Debug
	logger, closeLog, err := logging.New(logOpts)
	if err != nil {
		return nil, cfg, noop, err
	}
	logger.Debug("configuration resolved", "file", cfg.FilePath, "concurrency", cfg.Concurrency, "concurrency_source", cfg.ConcurrencySource, "api", cfg.APIURL)

	client := github.New(github.Options{
		BaseURL:   cfg.APIURL,
		Token:     cfg.Token,
		RateLimit: cfg.RateLimit,
		Burst:     cfg.Concurrency,
		Logger:    logger.With("component", "github"),
	})
	svc := app.NewGitHub(client, cfg.Event, app.Settings{
		WorkflowPath: cfg.WorkflowPath,
		OutputDir:    cfg.OutputDir,
		Concurrency:  cfg.Concurrency,
	}, logger)
	return svc, cfg, closeLog, nil
}

func (c *cli) runInteractive(ctx context.Context) int {
	svc, _, closeLog, err := c.setup(config.CliFlags{}, logging.Options{ToFile: true})
	defer closeLog()
	if err != nil {
		fmt.Fprintf(c.stderr, "gradefetch: %v\n", err)
		return exitFatal
	}
	final, err := tui.Run(ctx, svc)
	if err != nil {
		fmt.Fprintf(c.stderr, "gradefetch: %v\n", err)
		return exitFatal
	}
	if err := final.Err(); err != nil {
		fmt.Fprintf(c.stderr, "gradefetch: %v\n", err)
		return exitFatal
	}
	if path := final.Outcome().CSVPath; path != "" {
		fmt.Fprintf(c.stdout, "Results saved to %s\n", path)
	}
	return exitOK
}

func (c *cli) runClassrooms(ctx context.Context, args []string) int {
	fs := newFlagSet("classrooms", c.stderr)
	var common commonFlags
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	svc, _, closeLog, err := c.setup(common.cliFlags(fs), logging.Options{Writer: c.stderr})
	defer closeLog()
	if err != nil {
		return c.fail(err)
	}
	classrooms, err := svc.Classrooms(ctx)
	if err != nil {
		return c.fail(err)
	}
	for _, cl := range classrooms {
		archived := ""
		if cl.Archived {
			archived = "  (archived)"
		}
		fmt.Fprintf(c.stdout, "%-10d %s%s\n", cl.ID, cl.Name, archived)
	}
	return exitOK
}

func (c *cli) runAssignments(ctx context.Context, args []string) int {
	fs := newFlagSet("assignments", c.stderr)
	var common commonFlags
	common.register(fs)
	classroom := fs.Int64("classroom", 0, "classroom id (see `gradefetch classrooms`)")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if *classroom <= 0 {
		fmt.Fprintln(c.stderr, "gradefetch assignments: -classroom is required")
		return exitUsage
	}
	svc, _, closeLog, err := c.setup(common.cliFlags(fs), logging.Options{Writer: c.stderr})
	defer closeLog()
	if err != nil {
		return c.fail(err)
	}
	assignments, err := svc.Assignments(ctx, *classroom)
	if err != nil {
		return c.fail(err)
	}
	for _, a := range assignments {
		deadline := "no deadline"
		if a.Deadline != nil {
			deadline = a.Deadline.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(c.stdout, "%-10d %-40s %-22s %d accepted\n", a.ID, a.Title, deadline, a.Accepted)
	}
	return exitOK
}

func (c *cli) runFetch(ctx context.Context, args []string) int {
	fs := newFlagSet("fetch", c.stderr)
	var common commonFlags
	common.register(fs)
	assignmentID := fs.Int64("assignment", 0, "assignment id (see `gradefetch assignments`)")
	mode := fs.String("mode", "latest", "run selection: latest, deadline, late")
	deadline := fs.String("deadline", "", "deadline (UTC, YYYY-MM-DD HH:MM[:SS]); required for deadline and late modes")
	lateDeadline := fs.String("late-deadline", "", "late deadline (UTC); required for late mode")
	penalty := fs.String("penalty", "0", "late penalty percentage, 0-100")
	students := fs.String("students", "", "only grade usernames matching this glob, e.g. 'team-*'")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if *assignmentID <= 0 {
		fmt.Fprintln(c.stderr, "gradefetch fetch: -assignment is required")
		return exitUsage
	}
	policy, err := parsePolicy(*mode, *deadline, *lateDeadline, *penalty)
	if err != nil {
		fmt.Fprintf(c.stderr, "gradefetch fetch: %v\n", err)
		return exitUsage
	}

	svc, cfg, closeLog, err := c.setup(common.cliFlags(fs), logging.Options{Writer: c.stderr})
	defer closeLog()
	if err != nil {
		return c.fail(err)
	}

	assignment, err := svc.Assignment(ctx, *assignmentID)
	if err != nil {
		return c.fail(err)
	}

	out, err := svc.Fetch(ctx, app.Request{
		Assignment: assignment,
		Policy:     policy,
		Students:   *students,
		Progress: func(p fetch.Progress) {
			status := "ok"
			if p.Err != nil {
				status = p.Err.Error()
			}
			fmt.Fprintf(c.stderr, "[%d/%d] %s: %s\n", p.Done, p.Total, p.Username, status)
		},
	})
	if out.CSVPath != "" {
		fmt.Fprintf(c.stderr, "wrote %s\n", out.CSVPath)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(c.stderr, "gradefetch: cancelled; unstarted students are marked cancelled")
			return exitFatal
		}
		return c.fail(err)
	}

	if cfg.Summary != "none" {
		theme := render.DefaultTheme()
		if !isTTYWriter(c.stdout) || os.Getenv("NO_COLOR") != "" {
			theme = render.MonoTheme()
		}
		width, _ := termSize(c.stdout)
		r, err := render.ByName(cfg.Summary, theme, width)
		if err != nil {
			return c.fail(err)
		}
		fmt.Fprint(c.stdout, r.Render(report.Build(report.Input{
			Title:       firstNonEmpty(assignment.Title, strconv.FormatInt(assignment.ID, 10)),
			Policy:      out.Policy,
			Definitions: out.Definitions,
			Results:     out.Results,
			Stats:       out.Stats,
			Now:         c.now(),
		})))
	}
	return exitOK
}

// parsePolicy builds the deadline policy from fetch flags.
func parsePolicy(mode, deadline, late, penalty string) (grading.DeadlinePolicy, error) {
	m, err := grading.ParseMode(mode)
	if err != nil {
		return grading.DeadlinePolicy{}, err
	}
	if m == grading.ModeLatest {
		return grading.Latest(), nil
	}
	if deadline == "" {
		return grading.DeadlinePolicy{}, fmt.Errorf("-deadline is required for mode %s", m)
	}
	d, err := grading.ParseDeadline(deadline)
	if err != nil {
		return grading.DeadlinePolicy{}, err
	}
	if m == grading.ModeAfterDeadline {
		return grading.AfterDeadline(d), nil
	}
	if late == "" {
		return grading.DeadlinePolicy{}, errors.New("-late-deadline is required for mode late")
	}
	l, err := grading.ParseDeadline(late)
	if err != nil {
		return grading.DeadlinePolicy{}, err
	}
	p, err := grading.ParsePenalty(penalty)
	if err != nil {
		return grading.DeadlinePolicy{}, err
	}
	return grading.LateGrading(d, l, p)
}

func (c *cli) fail(err error) int {
	fmt.Fprintf(c.stderr, "gradefetch: %v\n", err)
	return exitFatal
}

// isTTYWriter reports whether w is a terminal.
func isTTYWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// termSize returns the terminal dimensions for w, defaulting to 80x24.
func termSize(w io.Writer) (width, height int) {
	width, height = 80, 24
	if f, ok := w.(*os.File); ok {
		if tw, th, err := term.GetSize(int(f.Fd())); err == nil {
			if tw > 0 {
				width = tw
			}
			if th > 0 {
				height = th
			}
		}
	}
	return width, height
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
