package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/auth-fusion/authfusion/internal/pipeline"
	"github.com/auth-fusion/authfusion/internal/rawhttp"
	"github.com/auth-fusion/authfusion/internal/replay"
	"github.com/auth-fusion/authfusion/internal/report"
	"github.com/auth-fusion/authfusion/internal/shell"
	"github.com/auth-fusion/authfusion/internal/verdict"
	"github.com/auth-fusion/authfusion/util/logging"
)

// Process exit codes of the scan command.
const (
	exitOK           = 0
	exitVulnerable   = 1
	exitFailure      = 2
	exitInconclusive = 3
)

var (
	scanCmdDescription = `The scan command reads a raw HTTP request captured by an
intercepting proxy, replaces its bearer token with the
attacker token, replays it against the target host and
reports whether the server enforced authorization.

Exit codes: 0 not vulnerable, 1 vulnerable, 2 failure,
3 inconclusive.`
	scanCmd = &cli.Command{
		Name:        "scan",
		Usage:       "Replay a captured request with a low-privileged token.",
		Description: scanCmdDescription,
		Action:      scanAction,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "attacker-token",
				Aliases:  []string{"t"},
				Usage:    "the low-privileged bearer token to replay the request with.",
				Required: true,
				Category: "scan",
				EnvVars:  []string{"AUTHFUSION_ATTACKER_TOKEN"},
			},
			&cli.StringFlag{
				Name:     "target-host",
				Aliases:  []string{"H"},
				Usage:    "host or host:port to replay the request against.",
				Required: true,
				Category: "scan",
			},
			&cli.StringFlag{
				Name:     "request-file",
				Aliases:  []string{"r"},
				Usage:    "file holding the raw HTTP request. Use - to read stdin.",
				Required: true,
				Category: "scan",
			},
			&cli.BoolFlag{
				Name:     "https",
				Usage:    "replay over https.",
				Value:    true,
				Category: "scan",
			},
			&cli.BoolFlag{
				Name:     "no-https",
				Usage:    "replay over plain http.",
				Category: "scan",
			},
			&cli.StringFlag{
				Name:     "proxy",
				Aliases:  []string{"x"},
				Usage:    "route the replay through a http, https, socks5 or socks5h proxy.",
				Category: "scan",
			},
			&cli.BoolFlag{
				Name:     "baseline",
				Usage:    "also replay the unmodified request and compare.",
				Category: "scan",
			},
			&cli.BoolFlag{
				Name:     "strict-length",
				Usage:    "fail on bodies shorter than Content-Length and truncate longer ones.",
				Category: "scan",
			},
			&cli.DurationFlag{
				Name:     "timeout",
				Usage:    "timeout for the whole replay.",
				Value:    replay.DefaultTimeout,
				Category: "transport",
			},
			&cli.BoolFlag{
				Name:     "insecure",
				Usage:    "skip TLS certificate verification.",
				Value:    true,
				Category: "transport",
			},
			&cli.Int64Flag{
				Name:     "max-body-size",
				Usage:    "maximum response body bytes kept for analysis.",
				Value:    replay.DefaultMaxBodySize,
				Category: "transport",
			},
			&cli.StringFlag{
				Name:     "output",
				Aliases:  []string{"o"},
				Usage:    "report format. Options: text, json, yaml.",
				Value:    string(report.FormatText),
				Category: "output",
			},
			&cli.BoolFlag{
				Name:     "no-color",
				Usage:    "disable colors in text reports.",
				Category: "output",
			},
			&cli.IntFlag{
				Name:     "body-preview",
				Usage:    "response body bytes shown in reports.",
				Value:    report.DefaultBodyPreview,
				Category: "output",
			},
		},
	}
)

// scanCliMap maps scan flags onto config keys.
var scanCliMap = map[string]string{
	"timeout":       "replay.timeout",
	"insecure":      "replay.insecure",
	"max-body-size": "replay.max_body_size",
}

func scanAction(ctx *cli.Context) error {
	log := logging.LoggerFromContextOrNop(ctx.Context).Named("scan")

	cfg, err := parseConfig(ctx, log, scanCliMap)
	if err != nil {
		return err
	}

	format, err := report.ParseFormat(ctx.String("output"))
	if err != nil {
		return shell.Exit(exitFailure, err)
	}

	in, err := scanInput(ctx)
	if err != nil {
		return shell.Exit(exitFailure, err)
	}

	writer := &report.Writer{
		Out:         ctx.App.Writer,
		Format:      format,
		NoColor:     ctx.Bool("no-color") || color.NoColor,
		BodyPreview: ctx.Int("body-preview"),
	}

	p := pipeline.New(pipeline.Params{
		Config: cfg.Pipeline(),
		Log:    log,
	})

	res := p.Report(p.Run(ctx.Context, in), writer)

	log.Debug("scan finished", zap.String("run_id", res.RunID()), zap.Stringer("stage", res.Stage()))

	return exitFor(res)
}

// scanInput validates the scan flags and reads the request file.
func scanInput(ctx *cli.Context) (pipeline.Input, error) {
	token := ctx.String("attacker-token")
	if strings.TrimSpace(token) == "" {
		return pipeline.Input{}, errors.New("attacker token must not be empty")
	}

	host := strings.TrimSuffix(strings.TrimSpace(ctx.String("target-host")), "/")
	if host == "" {
		return pipeline.Input{}, errors.New("target host must not be empty")
	}

	raw, err := readRequest(ctx.App.Reader, ctx.String("request-file"))
	if err != nil {
		return pipeline.Input{}, err
	}

	policy := rawhttp.LengthPreserve
	if ctx.Bool("strict-length") {
		policy = rawhttp.LengthStrict
	}

	return pipeline.Input{
		Raw:        raw,
		Credential: token,
		Target: replay.Target{
			Host:  host,
			HTTPS: ctx.Bool("https") && !ctx.Bool("no-https"),
			Proxy: ctx.String("proxy"),
		},
		Baseline:     ctx.Bool("baseline"),
		LengthPolicy: policy,
	}, nil
}

func readRequest(stdin io.Reader, name string) ([]byte, error) {
	if name == "-" {
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read request from stdin: %w", err)
		}
		return raw, nil
	}

	info, err := os.Stat(name)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("request file not found: %s", name)
	case err != nil:
		return nil, fmt.Errorf("failed to read request file: %w", err)
	case info.IsDir():
		return nil, fmt.Errorf("request file is a directory: %s", name)
	}

	raw, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read request file: %w", err)
	}

	return raw, nil
}

// exitFor maps a terminal pipeline result onto the process exit code.
func exitFor(res pipeline.Result) error {
	if failed, ok := res.(*pipeline.Failed); ok {
		return shell.Exit(exitFailure, failed)
	}

	v, _ := pipeline.VerdictOf(res)
	switch v.Outcome() {
	case verdict.NotVulnerable:
		return nil
	case verdict.Vulnerable:
		return shell.NewExitError(exitVulnerable)
	default:
		return shell.NewExitError(exitInconclusive)
	}
}

func init() {
	rootApp.Commands = append(rootApp.Commands, scanCmd)
}
