package cmd

import (
	"os"

	"github.com/urfave/cli/v2"

	"github.com/auth-fusion/authfusion/util/logging"
)

var (
	runCmdDescription = `The run command detects the execution environment from the
environment variables and starts the scan api, so one
container image runs both on AWS Lambda and standalone.

If the AWS_LAMBDA_RUNTIME_API environment variable is set,
authfusion starts the AWS Lambda runtime handler, matching
the behaviour of the lambda command.

Otherwise, authfusion starts the standalone http server.`
	runCmd = &cli.Command{
		Name:        "run",
		Usage:       "Detect the execution environment and start the scan api.",
		Description: runCmdDescription,
		Action:      runAction,
		Flags:       []cli.Flag{},
	}
)

func runAction(ctx *cli.Context) error {
	log, err := logging.LoggerFromContext(ctx.Context)
	if err != nil {
		return err
	}

	if isAWSLambda() {
		log.Info("detected AWS Lambda environment")
		return lambdaAction(ctx)
	}

	log.Info("detected standalone environment")
	return serveAction(ctx)
}

func isAWSLambda() bool {
	env, ok := os.LookupEnv("AWS_LAMBDA_RUNTIME_API")
	return ok && env != ""
}

func init() {
	runCmd.Flags = append(runCmd.Flags, serveCmd.Flags...)
	runCmd.Flags = append(runCmd.Flags, lambdaCmd.Flags...)

	rootApp.Commands = append(rootApp.Commands, runCmd)
}
