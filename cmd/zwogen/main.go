package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/claude/zwogen/internal/workout"
	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

// Version is set at build time via -ldflags.
var Version = "dev"

const defaultWidth = 80

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

const usageLine = "zwogen [-a <author>] [-d <description>] [-n <name>] (-i <inputfile> | -w <workout>) -o <outputfile>"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	author      string
	description string
	name        string
	input       string
	workout     string
	output      string
	force       bool
	tokens      bool
	verbose     bool
	help        bool
	version     bool
}

// run is main without the process exit, writing the document to stdout when
// the output is "-" and every message to stderr.
func run(args []string, stdout, stderr io.Writer) int {
	var opts options
	flags := pflag.NewFlagSet("zwogen", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVarP(&opts.author, "author", "a", "", "Workout author")
	flags.StringVarP(&opts.description, "description", "d", "", "Workout description (defaults to the workout text)")
	flags.StringVarP(&opts.name, "name", "n", "", "Workout name (required unless the input file has a name header)")
	flags.StringVarP(&opts.input, "input", "i", "", "Read the workout from a file")
	flags.StringVarP(&opts.workout, "workout", "w", "", "Workout given inline, e.g. '3*(1m@300w+1m@100w)|250w'")
	flags.StringVarP(&opts.output, "output", "o", "", "Output .zwo file, or - for stdout")
	flags.BoolVarP(&opts.force, "force", "f", false, "Overwrite an existing output file")
	flags.BoolVar(&opts.tokens, "tokens", false, "Print the token stream before compiling")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Print the compiled stages")
	flags.BoolVarP(&opts.help, "help", "h", false, "Show this help")
	flags.BoolVar(&opts.version, "version", false, "Print version and exit")
	flags.SortFlags = false
	flags.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s\n\nFlags:\n", usageLine)
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	ui := newReporter(stderr)
	if opts.help {
		fmt.Fprintf(stdout, "Usage: %s\n\nFlags:\n", usageLine)
		flags.SetOutput(stdout)
		flags.PrintDefaults()
		return exitOK
	}
	if opts.version {
		fmt.Fprintln(stdout, "zwogen", Version)
		return exitOK
	}
	if flags.NArg() > 0 {
		return ui.usage(fmt.Sprintf("Unexpected argument '%s'.", flags.Arg(0)))
	}

	if opts.output == "" {
		return ui.usage("No output file given.")
	}
	if (opts.workout != "") == (opts.input != "") {
		return ui.usage("Either a workout or an input file must be specified.")
	}

	text := opts.workout
	meta := workout.Metadata{Author: opts.author, Name: opts.name, Description: opts.description}
	if opts.input != "" {
		src, err := readInput(opts.input)
		switch {
		case errors.Is(err, workout.ErrEmptySource):
			return ui.usage("Workout specification must not be empty.")
		case errors.Is(err, os.ErrNotExist):
			return ui.usage(fmt.Sprintf("Input file '%s' does not exist.", opts.input))
		case err != nil:
			return ui.usage(fmt.Sprintf("Cannot read input file '%s'.", opts.input))
		}
		text = src.Text
		meta = mergeMetadata(meta, src.Meta)
	}
	if strings.TrimSpace(text) == "" {
		return ui.usage("Workout specification must not be empty.")
	}
	if strings.TrimSpace(meta.Name) == "" {
		return ui.usage("A name for the workout must be specified.")
	}

	if opts.tokens {
		tokens, err := workout.Tokenize(text)
		if err == nil {
			ui.tokens("Tokens:", tokens)
		}
	}

	res, err := workout.Compile(text, meta)
	if err != nil {
		ui.compileError(err)
		return exitFailure
	}

	if opts.verbose {
		for i, s := range res.Workout.Stages() {
			fmt.Fprintf(stderr, "%4d  %s\n", i+1, s)
		}
	}

	if err := writeOutput(opts.output, res.Document, opts.force, stdout); err != nil {
		ui.error(err.Error())
		return exitFailure
	}

	fmt.Fprintf(stderr, "Total time of the workout is %s h.\n", workout.FormatDuration(res.TotalSeconds))
	if res.ZeroDuration {
		ui.warn("the workout has a total duration of zero seconds")
	}
	return exitOK
}

// readInput loads a workout file. "-" reads standard input.
func readInput(path string) (workout.Source, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return workout.Source{}, err
		}
		return workout.ParseSource(data)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return workout.Source{}, err
	}
	return workout.ParseSource(data)
}

// mergeMetadata fills fields not given on the command line from the file header.
func mergeMetadata(flags, header workout.Metadata) workout.Metadata {
	if flags.Author == "" {
		flags.Author = header.Author
	}
	if flags.Name == "" {
		flags.Name = header.Name
	}
	if flags.Description == "" {
		flags.Description = header.Description
	}
	return flags
}

// writeOutput writes the document to path, or to stdout for "-". An
// existing file is only replaced when force is set.
func writeOutput(path, doc string, force bool, stdout io.Writer) error {
	if path == "-" {
		_, err := io.WriteString(stdout, doc)
		return err
	}

	flag := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if force {
		flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(path, flag, 0o644)
	if errors.Is(err, os.ErrExist) {
		return fmt.Errorf("output file '%s' already exists (use -f to overwrite)", path)
	}
	if err != nil {
		return fmt.Errorf("cannot write output file: %w", err)
	}
	if _, err := io.WriteString(f, doc); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// reporter renders messages on stderr, styled when stderr is a terminal.
type reporter struct {
	w         io.Writer
	width     int
	errStyle  lipgloss.Style
	warnStyle lipgloss.Style
	dimStyle  lipgloss.Style
}

func newReporter(w io.Writer) *reporter {
	r := lipgloss.NewRenderer(w)
	return &reporter{
		w:         w,
		width:     terminalWidth(w, defaultWidth),
		errStyle:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		warnStyle: r.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
		dimStyle:  r.NewStyle().Faint(true),
	}
}

func (u *reporter) usage(msg string) int {
	u.error(msg)
	fmt.Fprintf(u.w, "Usage: %s\n", usageLine)
	return exitUsage
}

func (u *reporter) error(msg string) {
	fmt.Fprintf(u.w, "%s %s\n", u.errStyle.Render("error:"), msg)
}

func (u *reporter) warn(msg string) {
	fmt.Fprintf(u.w, "%s %s\n", u.warnStyle.Render("warning:"), msg)
}

// compileError reports a pipeline error with its kind and, for parse
// errors, the tokens left when the error was detected.
func (u *reporter) compileError(err error) {
	msg := err.Error()
	if kind := workout.ErrorKind(err); kind != "" {
		msg = kind + " error: " + msg
	}
	u.error(msg)
	if tokens := workout.RemainingTokens(err); len(tokens) > 0 {
		u.tokens("Remaining input:", tokens)
	}
}

func (u *reporter) tokens(label string, tokens []workout.Token) {
	fmt.Fprintln(u.w, label)
	wrapped := wordwrap.String(workout.Notation(tokens), u.width-2)
	for _, line := range strings.Split(wrapped, "\n") {
		fmt.Fprintf(u.w, "  %s\n", u.dimStyle.Render(line))
	}
}

func terminalWidth(w io.Writer, fallback int) int {
	f, ok := w.(*os.File)
	if !ok {
		return fallback
	}
	fd := int(f.Fd())
	if term.IsTerminal(fd) {
		if width, _, err := term.GetSize(fd); err == nil && width > 0 {
			return width
		}
	}
	return fallback
}
