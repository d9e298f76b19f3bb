package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/auth-fusion/authfusion/app"
	"github.com/auth-fusion/authfusion/app/lambda"
	"github.com/auth-fusion/authfusion/util/conf"
	"github.com/auth-fusion/authfusion/util/logging"
)

var (
	lambdaCmdDescription = `The lambda command serves the scan api as an AWS Lambda
runtime interface client. API Gateway (v1, v2) and ALB proxy
events are translated into requests on the same routes the
serve command exposes.

The command will start the AWS runtime interface client and
blocks indefinitely, processing incoming AWS Lambda events.`
	lambdaCmd = &cli.Command{
		Name:        "lambda",
		Usage:       "Serve the scan api to AWS Lambda events.",
		Description: lambdaCmdDescription,
		Action:      lambdaAction,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "lambda-proxy-source",
				Usage:    "the source of the AWS Lambda event. Options: API_GW_V1, API_GW_V2, ALB.",
				Value:    "API_GW_V2",
				EnvVars:  []string{"LAMBDA_PROXY_SOURCE"},
				Category: "lambda",
			},
		},
	}
)

func lambdaAction(ctx *cli.Context) error {
	log, err := logging.LoggerFromContext(ctx.Context)
	if err != nil {
		return err
	}

	app, err := app.New(ctx)
	if err != nil {
		return err
	}

	cfg, err := conf.Parse[lambda.Config](conf.ParseOptions{
		EnvPrefix: envPrefix,
		Log:       log,
		Cli:       ctx,
	})
	if err != nil {
		return err
	}

	log.Info("starting AWS Lambda handler")

	return app.Run(ctx.Context, lambda.Module(cfg))
}

func init() {
	rootApp.Commands = append(rootApp.Commands, lambdaCmd)
}
