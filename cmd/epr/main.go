package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"epr/common"
	"epr/config"
	"epr/misc"
	"epr/state"
)

// initializeAppContext prepares application context before command execution but
// after command line has been parsed
func initializeAppContext(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	var err error

	if cmd.NArg() == 0 {
		// nothing to do, just return
		return ctx, nil
	}

	env := state.EnvFromContext(ctx)

	configFile := cmd.String("config")
	if env.Cfg, err = config.LoadConfiguration(configFile); err != nil {
		return ctx, fmt.Errorf("unable to prepare configuration: %w", err)
	}
	if cmd.Bool("debug") {
		if env.Rpt, err = env.Cfg.Reporting.Prepare(); err != nil {
			return ctx, fmt.Errorf("unable to prepare debug reporter: %w", err)
		}
		if len(configFile) > 0 {
			if data, err := config.Dump(env.Cfg); err == nil {
				env.Rpt.StoreData(fmt.Sprintf("config/%s", filepath.Base(configFile)), data)
			}
		}
	}
	if env.Log, err = env.Cfg.Logging.Prepare(env.Rpt); err != nil {
		return ctx, fmt.Errorf("unable to prepare logs: %w", err)
	}
	env.RedirectStdLog()

	env.Log.Debug("Program started", zap.Strings("args", os.Args), zap.String("ver", misc.GetVersion()), zap.String("runtime", runtime.Version()), zap.String("hash", misc.GetGitHash()))

	if env.Rpt != nil {
		env.Log.Info("Creating debug report", zap.String("location", env.Rpt.Name()))
	}
	if len(configFile) == 0 && env.Log != nil {
		env.Log.Debug("Using defaults (no configuration file)")
	}
	return ctx, nil
}

func destroyAppContext(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)

	// database goes into the report, so it has to be released first
	if er := env.Close(); er != nil {
		err = multierr.Append(err, fmt.Errorf("unable to close reader database: %w", er))
	}

	if env.Log != nil {
		env.Log.Debug("Program ended", zap.Duration("elapsed", env.Uptime()), zap.Strings("parsed args", cmd.Args().Slice()))
	}

	// close logging
	env.RestoreStdLog()

	// log is synced now and result can be used in report if necessary, errors
	// must be reported directly to stderr from now on
	if env.Rpt != nil {
		if er := env.Rpt.Close(); er != nil {
			err = multierr.Append(err, fmt.Errorf("unable to close debug report: %w", er))
		}
	}
	// reporting is closed now - remove empty panic file if any
	if env.Cfg != nil && len(env.Cfg.Logging.FileLogger.Destination) > 0 {
		debug.SetCrashOutput(nil, debug.CrashOptions{})
		fname := filepath.Join(filepath.Dir(env.Cfg.Logging.FileLogger.Destination), misc.GetAppName()+"-panic.log")
		if fi, er := os.Stat(fname); er == nil && fi.Size() == 0 {
			if er := os.Remove(fname); er != nil {
				err = multierr.Append(err, fmt.Errorf("unable to remove empty panic log file '%s': %w", fname, er))
			}
		}
	}
	return
}

// Errors from subcommands are regular errors, logged once here instead of
// going through cli.Exit.
var errWasHandled bool

// this is called before appContext is destroyed, so we have a chance to
// properly log any error from subcommand
func exitErrHandler(ctx context.Context, _ *cli.Command, err error) {

	env := state.EnvFromContext(ctx)

	if env.Log != nil {
		env.Log.Error("Program ended with error", zap.Error(err))
		errWasHandled = true
	}
}

func usageErrorHandler(_ context.Context, _ *cli.Command, err error, _ bool) error {
	// do nothing special, error is reported either by exitErrHandler or on
	// exit directly to stderr.
	return err
}

func subcommandNotFoundHandler(ctx context.Context, _ *cli.Command, name string) {
	state.EnvFromContext(ctx).Log.Warn("Unknown command, nothing to do", zap.String("command", name))
}

const bookHelp = `
FILE:
    path to EPUB file, its name (without extension) identifies the book for
    stored reading progress
`

func main() {

	// allow graceful shutdown on interrupt, navigation in flight is canceled
	ctx, stop := signal.NotifyContext(state.ContextWithEnv(context.Background()), os.Interrupt, syscall.SIGTERM)

	app := &cli.Command{
		Name:            misc.GetAppName(),
		Usage:           "reading core for EPUB books",
		Version:         misc.GetVersion() + " (" + runtime.Version() + ") : " + misc.GetGitHash(),
		HideHelpCommand: true,
		Before:          initializeAppContext,
		After:           destroyAppContext,
		OnUsageError:    usageErrorHandler,
		ExitErrHandler:  exitErrHandler,
		CommandNotFound: subcommandNotFoundHandler,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, DefaultText: "", Usage: "load configuration from `FILE` (YAML)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "changes program behavior to help troubleshooting, produces report archive"},
		},
		Commands: []*cli.Command{
			{
				Name:               "info",
				Usage:              "Shows book metadata using configured template",
				OnUsageError:       usageErrorHandler,
				Action:             runInfo,
				ArgsUsage:          "FILE",
				CustomHelpTemplate: cli.CommandHelpTemplate + bookHelp,
			},
			{
				Name:               "toc",
				Usage:              "Shows table of contents",
				OnUsageError:       usageErrorHandler,
				Action:             runTOC,
				ArgsUsage:          "FILE",
				CustomHelpTemplate: cli.CommandHelpTemplate + bookHelp,
			},
			{
				Name:               "spine",
				Usage:              "Shows reading order",
				OnUsageError:       usageErrorHandler,
				Action:             runSpine,
				ArgsUsage:          "FILE",
				CustomHelpTemplate: cli.CommandHelpTemplate + bookHelp,
			},
			{
				Name:               "manifest",
				Usage:              "Lists resources declared by the book",
				OnUsageError:       usageErrorHandler,
				Action:             runManifest,
				ArgsUsage:          "FILE",
				CustomHelpTemplate: cli.CommandHelpTemplate + bookHelp,
			},
			{
				Name:         "read",
				Usage:        "Outputs sanitized chapter and records reading progress",
				OnUsageError: usageErrorHandler,
				Action:       runRead,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "idref", Usage: "chapter spine `ID`"},
					&cli.StringFlag{Name: "href", Usage: "chapter `HREF` relative to package document, fragment allowed"},
					&cli.BoolFlag{Name: "resume", Usage: "continue from stored position (default when no chapter is requested)"},
					&cli.BoolFlag{Name: "next", Usage: "move to chapter following stored position"},
					&cli.BoolFlag{Name: "prev", Usage: "move to chapter preceding stored position"},
					&cli.FloatFlag{Name: "scroll", Usage: "record scroll `OFFSET` within chapter"},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "write chapter to `PATH` instead of STDOUT"},
				},
				ArgsUsage:          "FILE",
				CustomHelpTemplate: cli.CommandHelpTemplate + bookHelp,
			},
			{
				Name:         "progress",
				Usage:        "Shows stored reading progress",
				OnUsageError: usageErrorHandler,
				Action:       runProgress,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "clear", Usage: "forget stored position"},
				},
				ArgsUsage:          "FILE",
				CustomHelpTemplate: cli.CommandHelpTemplate + bookHelp,
			},
			{
				Name:         "settings",
				Usage:        "Shows or updates reader settings",
				OnUsageError: usageErrorHandler,
				Action:       runSettings,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "font-size", Usage: "font size in points (14..32)"},
					&cli.StringFlag{Name: "theme", Usage: "color `THEME` (" + strings.Join(common.ThemeNames(), ", ") + ")"},
					&cli.FloatFlag{Name: "line-height", Usage: "line height (1.2..2.4)"},
					&cli.StringFlag{Name: "font-family", Usage: "CSS font `FAMILY`"},
					&cli.StringFlag{Name: "align", Usage: "text `ALIGNMENT` (" + strings.Join(common.TextAlignNames(), ", ") + ")"},
					&cli.BoolFlag{Name: "reset", Usage: "restore configured defaults"},
				},
			},
			{
				Name:  "dumpconfig",
				Usage: "Dumps either default or actual configuration (YAML)",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "default", Usage: "output default embedded configuration"},
				},
				OnUsageError: usageErrorHandler,
				Action:       outputConfiguration,
				ArgsUsage:    "DESTINATION",
				CustomHelpTemplate: fmt.Sprintf(`%s

DESTINATION:
    file name to write configuration to, if absent - STDOUT

Produces file with actual "active" configuration values wich is composition of
default values and values specified in configuration file. To see default
configuration embedded into the program use --default flag.
`, cli.CommandHelpTemplate),
			},
		},
	}

	var err error
	// NOTE: os.Exit is called at the end of main to set exit code, make sure
	// there are no other deffered functions after that
	defer func() {
		stop()
		if err != nil {
			// It may happen that log is either not set yet (argument parsing) or already closed,
			// report errors to stderr directly
			if !errWasHandled {
				fmt.Fprintf(os.Stderr, "Program ended with error: %v\n", err)
			}
			os.Exit(1)
		}
	}()
	err = app.Run(ctx, os.Args)
}

func outputConfiguration(ctx context.Context, cmd *cli.Command) error {

	env := state.EnvFromContext(ctx)
	if cmd.Args().Len() > 1 {
		env.Log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	fname := cmd.Args().Get(0)

	var (
		err   error
		data  []byte
		state string
	)

	out := os.Stdout
	if len(fname) > 0 {
		out, err = os.Create(fname)
		if err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", fname, err)
		}
		defer out.Close()

	}

	if cmd.Bool("default") {
		state = "default"
		data, err = config.Prepare()
	} else {
		state = "actual"
		data, err = config.Dump(env.Cfg)
	}
	if err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}

	if len(fname) == 0 {
		fname = "STDOUT"
	}
	env.Log.Debug("Outputing configuration", zap.String("state", state), zap.String("file", fname))

	_, err = out.Write(data)
	if err != nil {
		return fmt.Errorf("unable to write configuration: %w", err)
	}
	return nil
}
