package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/auth-fusion/authfusion/app"
	"github.com/auth-fusion/authfusion/app/standalone"
	"github.com/auth-fusion/authfusion/config"
	"github.com/auth-fusion/authfusion/internal/server"
	"github.com/auth-fusion/authfusion/internal/shell"
	"github.com/auth-fusion/authfusion/util/conf"
)

var (
	serveCmdDescription = `The serve command starts a http server exposing the scan
pipeline. POST /scan accepts a JSON document holding the
raw request, the attacker token and the target host, and
responds with the JSON report. GET /health reports the
number of scans in flight.

Requests must carry the api-key header matching auth.key
(AUTHFUSION_AUTH__KEY). The key may only be left empty when
listening on a loopback host.

Concurrent scans are bounded by execution.max_concurrent.
The command blocks until it receives SIGINT or SIGTERM.`
	serveCmd = &cli.Command{
		Name:        "serve",
		Usage:       "Start the scan http api.",
		Description: serveCmdDescription,
		Action:      serveAction,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "host",
				Aliases:  []string{"H"},
				Usage:    "The host to listen on.",
				Value:    "localhost",
				Category: "http",
				EnvVars:  []string{"HTTP_HOST"},
			},
			&cli.IntFlag{
				Name:     "port",
				Aliases:  []string{"P"},
				Usage:    "The port to listen on.",
				Value:    8080,
				Category: "http",
				EnvVars:  []string{"HTTP_PORT"},
			},
			&cli.BoolFlag{
				Name:     "h2c",
				Usage:    "Enable HTTP/2 cleartext upgrade.",
				Value:    false,
				Category: "http",
				EnvVars:  []string{"HTTP_H2C"},
			},
		},
	}
)

func serveAction(ctx *cli.Context) error {
	appConfig, err := conf.GetConfigFromContext[config.Config](ctx.Context)
	if err != nil {
		return err
	}

	cfg := standalone.Config{
		HttpConfig: server.HttpConfig{
			Host: ctx.String("host"),
			Port: ctx.Int("port"),
			H2c:  ctx.Bool("h2c"),
		},
		AuthKey: appConfig.Auth.Key,
	}
	if err := cfg.Validate(); err != nil {
		return shell.Exit(exitFailure, err)
	}

	app, err := app.New(ctx)
	if err != nil {
		return err
	}

	return app.Run(ctx.Context, standalone.Module(cfg))
}

func init() {
	rootApp.Commands = append(rootApp.Commands, serveCmd)
}
