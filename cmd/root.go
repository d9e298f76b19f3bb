package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/auth-fusion/authfusion/config"
	"github.com/auth-fusion/authfusion/internal/shell"
	"github.com/auth-fusion/authfusion/util/conf"
	"github.com/auth-fusion/authfusion/util/logging"
)

const envPrefix = "AUTHFUSION_"

var (
	appName  = "authfusion"
	appUsage = `Replay a captured, privileged HTTP request with a low-privileged
bearer token and classify whether the server enforced authorization.`
	rootApp = &cli.App{
		Name:            appName,
		Usage:           appUsage,
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "set the log level. Options: debug, info, warn, error, panic, fatal.",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "set the log format. Options: production, development.",
				EnvVars: []string{"LOG_FORMAT"},
			},
			&cli.PathFlag{
				Name:    "config",
				Usage:   "load configuration from a .json or .env file.",
				EnvVars: []string{"AUTHFUSION_CONFIG"},
			},
		},
		Before: func(ctx *cli.Context) error {
			// create the logger
			log, err := logging.New(appName, ctx.String("log-level"), ctx.String("log-format"))
			if err != nil {
				return err
			}

			// inject logger into cli context
			ctx.Context = logging.ContextWithLogger(ctx.Context, log)

			// parse config using defaults, file and env
			cfg, err := parseConfig(ctx, log, nil)
			if err != nil {
				return err
			}

			// inject the config into the cli context
			ctx.Context = conf.ContextWithConfig(ctx.Context, cfg)

			return nil
		},
		After: func(ctx *cli.Context) error {
			log, err := logging.LoggerFromContext(ctx.Context)
			if err != nil {
				return err
			}

			log.Sync()

			return nil
		},
	}
)

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:               "version",
		Usage:              "print the version",
		DisableDefaultText: true,
	}
}

type ExecuteParams struct {
	Version  string
	Compiled time.Time
}

func Execute(params ExecuteParams) {
	rootApp.Version = params.Version
	rootApp.Compiled = params.Compiled

	os.Exit(run(context.Background(), os.Args))
}

// run executes the app and returns the process exit code.
func run(ctx context.Context, args []string) int {
	err := rootApp.RunContext(ctx, args)

	// if app exited without error, return
	if err == nil {
		return exitOK
	}

	// anything that is not an explicit exit is a failure
	if !shell.IsExitError(err) {
		err = shell.Exit(exitFailure, err)
	}

	var exitErr *shell.ExitError
	if errors.As(err, &exitErr) && exitErr.Err != nil {
		fmt.Fprintf(rootApp.ErrWriter, "error: %s\n", exitErr.Err)
		if exitErr.ExitCode == exitFailure {
			sentry.CaptureException(exitErr.Err)
			sentry.Flush(2 * time.Second)
		}
	}

	return shell.ExitCode(err)
}

// parseConfig layers defaults, the config file, AUTHFUSION_ env vars and,
// if cliMap is set, the command's flags.
func parseConfig(ctx *cli.Context, log *zap.Logger, cliMap map[string]string) (config.Config, error) {
	opts := conf.ParseOptions{
		Defaults:  config.DefaultConfig,
		EnvPrefix: envPrefix,
		FileName:  ctx.Path("config"),
		Log:       log,
	}

	if cliMap != nil {
		opts.Cli = ctx
		opts.CliMap = cliMap
	}

	return conf.Parse[config.Config](opts)
}
