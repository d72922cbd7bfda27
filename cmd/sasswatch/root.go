package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dkoosis/sasswatch/internal/compiler"
	"github.com/dkoosis/sasswatch/internal/config"
	"github.com/dkoosis/sasswatch/internal/console"
	"github.com/dkoosis/sasswatch/internal/proc"
	"github.com/dkoosis/sasswatch/internal/sassdirs"
	"github.com/dkoosis/sasswatch/internal/version"
	"github.com/dkoosis/sasswatch/internal/watchloop"
)

// Process exit codes.
const (
	exitOK             = watchloop.ExitOK
	exitFailure        = watchloop.ExitFailure
	exitNoDirectories  = -2
	exitStartupFailure = watchloop.ExitStartupFailure
	exitNoValidDirs    = -4
	exitBadOptions     = -5
)

// exitError carries a process exit code out of the cobra command.
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit code %d", e.code) }
func (e *exitError) ExitCode() int { return e.code }

type exitCoder interface {
	ExitCode() int
}

// run executes the CLI and returns the process exit code, so tests can
// drive it without os.Exit.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := newRootCmd(ctx, stdin, stdout, stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	if err == nil {
		return exitOK
	}
	var ec exitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	// Flag parsing and configuration problems.
	msg := strings.Join(strings.Fields(err.Error()), " ")
	fmt.Fprintln(stderr, "ERROR: "+msg)
	fmt.Fprintln(stderr, "Run 'sasswatch --help' for usage.")
	return exitBadOptions
}

func newRootCmd(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var (
		flags       config.CliFlags
		showVersion bool
	)

	cmd := &cobra.Command{
		Use:   "sasswatch [flags] input:output ...",
		Short: version.Description,
		Long: version.CLIName + "\n\n" +
			"Directory operands are \"path/to/sass/folder:path/to/output/folder\" pairs.\n" +
			"Stack roots given with --sterling-stack are scanned for <root>/*/sass folders\n" +
			"written to <root>/*/public/style.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Fprintln(stdout, version.Summary())
				return nil
			}
			flags.Operands = args
			fs := cmd.Flags()
			flags.PrettyPrintSet = fs.Changed("pretty-print")
			flags.KeepMapsSet = fs.Changed("keepmaps")
			flags.NoColorSet = fs.Changed("no-color")
			flags.DebugSet = fs.Changed("debug")

			opts, err := config.Resolve(flags)
			if err != nil {
				return err
			}
			con := console.New(console.Options{Out: stdout, Err: stderr, NoColor: opts.NoColor, Debug: opts.Debug})
			if opts.ConfigFile != "" {
				con.Debugf("using configuration file %s", opts.ConfigFile)
			}
			if code := execute(ctx, cmd, opts, con, stdin); code != exitOK {
				return &exitError{code: code}
			}
			return nil
		},
	}
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	fs := cmd.Flags()
	fs.BoolVarP(&flags.Watch, "watch", "w", false, "Monitor the sass output files and run css tools when modified")
	fs.BoolVarP(&flags.Immediate, "immediate", "i", false, "Run sass and the post-processor immediately on startup; all detected files are updated")
	fs.BoolVarP(&flags.Generate, "generate-dart", "g", false, "Print the dart-sass command line for the directories and exit")
	fs.BoolVarP(&flags.PrettyPrint, "pretty-print", "p", false, "Write expanded (not minified) css")
	fs.BoolVarP(&flags.KeepMaps, "keepmaps", "m", false, "Generate source maps and keep them through post-processing")
	fs.StringArrayVarP(&flags.StackDirs, "sterling-stack", "s", nil, "Root directory of a stack; sass folders are detected automatically (repeatable)")
	fs.StringVar(&flags.ConfigFile, "config", "", "Path to a "+config.FileName+" file")
	fs.BoolVar(&flags.NoColor, "no-color", false, "Disable colored output")
	fs.BoolVar(&flags.Debug, "debug", false, "Print debug messages")
	fs.BoolVarP(&showVersion, "version", "v", false, "Display version number and exit")

	return cmd
}

// execute runs the selected mode and returns the exit code.
func execute(ctx context.Context, cmd *cobra.Command, opts config.Options, con *console.Console, stdin io.Reader) int {
	if len(opts.Operands) == 0 && len(opts.StackDirs) == 0 {
		_ = cmd.Help()
		con.Errorf("No Directories were given.")
		con.Infof("You must provide one or more sass input:output directories to operate on, either as a command line argument or through the --sterling-stack option argument.")
		return exitNoDirectories
	}

	set := sassdirs.Build(opts.Operands, opts.StackDirs, con)
	if set.Len() == 0 {
		con.Errorf("Quitting because no valid sass directories were specified")
		return exitNoValidDirs
	}

	switch {
	case opts.Generate:
		inv := compiler.NewInvocation(opts, opts.Watch, set.CompilerArgs())
		inv.NoStopOnError = false
		con.Infof("%s", proc.CommandLine(inv.Binary, inv.Flags()))
		con.Println(strings.TrimSpace(set.QuotedList()))
		return exitOK

	case opts.Watch || opts.Immediate:
		code := exitOK
		if opts.Immediate && !watchloop.RunImmediate(ctx, opts, set, con) {
			code = exitFailure
		}
		if opts.Watch {
			code = watchloop.New(opts, set, con, stdin).Run(ctx)
		}
		return code

	default:
		_ = cmd.Help()
		con.Warnf("No commands were specified.  Exiting.")
		return exitOK
	}
}
