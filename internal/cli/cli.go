// Package cli parses pbuild's command-line surface with the standard
// library flag package, in the same FlagSet-plus-custom-Usage style the
// rest of this codebase's tooling uses.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"
)

// ExitError carries a process exit code alongside its message, so main can
// map any returned error to the right os.Exit call without string-matching.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string { return e.Message }

// NewExitError is a convenience constructor for a formatted ExitError.
func NewExitError(code int, format string, args ...any) *ExitError {
	return &ExitError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Options is the parsed command line.
type Options struct {
	// Roots are the project files or directories to build, in the order
	// given. Empty means "the default project in the current directory".
	Roots []string

	Dry     bool
	Force   bool
	Watch   bool
	Verbose bool
	Quiet   bool

	// LogFormat is either "text" or "json", selecting the slog.Handler the
	// entrypoint installs.
	LogFormat string

	// ListOnly prints the discovered build order without compiling
	// anything.
	ListOnly bool

	// Viz requests a reference-graph rendering instead of a build.
	Viz bool
	// VizDeep requests the DOT format (for external rendering) rather
	// than the default text tree.
	VizDeep bool

	// WatchDebounce overrides the watcher's default coalescing window.
	// Zero means use the watcher's built-in default.
	WatchDebounce time.Duration
}

// repeatableFlag collects every occurrence of a flag.Value-based flag, so
// -p can be passed more than once.
type repeatableFlag []string

func (r *repeatableFlag) String() string { return strings.Join(*r, ",") }

func (r *repeatableFlag) Set(value string) error {
	*r = append(*r, value)
	return nil
}

// vizFlag is a flag.Value for -viz that distinguishes "absent" from
// "present with no value", matching the documented --viz[=deep] syntax. It
// implements IsBoolFlag so the flag package accepts a bare -viz without
// consuming the next argument as its value, the same way -verbose or -quiet
// would, while still accepting an explicit -viz=deep or -viz=tree.
type vizFlag struct {
	set   bool
	value string
}

func (v *vizFlag) String() string { return v.value }

func (v *vizFlag) Set(value string) error {
	v.set = true
	v.value = value
	return nil
}

func (v *vizFlag) IsBoolFlag() bool { return true }

// Parse parses args (excluding the program name) into Options. Usage text
// is written to out. A returned error is always suitable to print directly
// to the user without a stack trace.
func Parse(program string, args []string, out io.Writer) (*Options, error) {
	flags := flag.NewFlagSet(program, flag.ContinueOnError)
	flags.SetOutput(out)
	flags.Usage = func() {
		fmt.Fprintf(flags.Output(), `Usage:
   %s [flags] [project ...]

A project is a configuration file or a directory containing one
(tsconfig.json by default). With no project given, pbuild looks for one
in the current directory.

Flags:
`, program)
		flags.PrintDefaults()
	}

	var projects repeatableFlag
	flags.Var(&projects, "p", "Project file or directory to build (repeatable)")
	flags.Var(&projects, "project", "Alias of -p")

	opts := &Options{}
	flags.BoolVar(&opts.Dry, "d", false, "Report what would be built without compiling or writing anything")
	flags.BoolVar(&opts.Dry, "dry", false, "Alias of -d")
	flags.BoolVar(&opts.Force, "f", false, "Rebuild every reachable project regardless of up-to-date status")
	flags.BoolVar(&opts.Force, "force", false, "Alias of -f")
	flags.BoolVar(&opts.Watch, "w", false, "Remain resident and rebuild on filesystem changes")
	flags.BoolVar(&opts.Watch, "watch", false, "Alias of -w")
	flags.BoolVar(&opts.Verbose, "verbose", false, "Emit debug-level logging")
	flags.BoolVar(&opts.Quiet, "quiet", false, "Suppress all but warning and error logging")
	flags.BoolVar(&opts.ListOnly, "list-only", false, "Print the discovered build order and exit without compiling")
	viz := &vizFlag{}
	flags.Var(viz, "viz", `Render the reference graph instead of building; --viz=deep emits Graphviz DOT, --viz alone (or any other value) emits a text tree`)
	debounce := flags.Duration("watch-debounce", 0, "Coalescing window for --watch filesystem events (default 100ms)")
	logFormat := flags.String("log-format", "text", `Log output format, "text" or "json"`)

	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	if opts.Verbose && opts.Quiet {
		return nil, errors.New("-verbose and -quiet are mutually exclusive")
	}

	switch *logFormat {
	case "text", "json":
		opts.LogFormat = *logFormat
	default:
		return nil, fmt.Errorf("invalid -log-format %q: must be \"text\" or \"json\"", *logFormat)
	}

	opts.Roots = append([]string(nil), []string(projects)...)
	opts.Roots = append(opts.Roots, flags.Args()...)

	if viz.set {
		opts.Viz = true
		opts.VizDeep = viz.value == "deep"
	}
	opts.WatchDebounce = *debounce

	if opts.Viz && opts.Watch {
		return nil, errors.New("-viz and -watch are mutually exclusive")
	}

	return opts, nil
}
