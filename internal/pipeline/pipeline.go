package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/auth-fusion/authfusion/internal/rawhttp"
	"github.com/auth-fusion/authfusion/internal/replay"
	"github.com/auth-fusion/authfusion/internal/substitute"
	"github.com/auth-fusion/authfusion/internal/verdict"
)

var ErrEmptyRequest = errors.New("raw request is empty")

// Input is one (victim request, attacker credential) pair.
type Input struct {
	// Raw is the request exactly as copied from an intercepting proxy.
	Raw []byte

	// Credential is the attacker's bearer token.
	Credential string

	// Target is where the request is replayed.
	Target replay.Target

	// Baseline additionally replays the unmodified victim request.
	Baseline bool

	// LengthPolicy decides how Content-Length mismatches are parsed.
	LengthPolicy rawhttp.LengthPolicy
}

// Validate checks the input fields that do not require parsing.
func (in Input) Validate() error {
	if len(in.Raw) == 0 {
		return ErrEmptyRequest
	}
	if strings.TrimSpace(in.Credential) == "" {
		return substitute.ErrEmptyCredential
	}
	return in.Target.Validate()
}

// Replayer sends a request to a target.
type Replayer interface {
	Do(ctx context.Context, req *rawhttp.Request, target replay.Target) *replay.Response
}

// Reporter renders a terminal result.
type Reporter interface {
	Report(res Result) error
}

type Config struct {
	// Replay is the transport configuration.
	Replay replay.Config `conf:"replay"`

	// Analyzer tunes the verdict heuristics.
	Analyzer verdict.Config `conf:"analyzer"`
}

// Pipeline runs parse, substitute, replay and analyze for one input at a
// time. It holds no state between runs.
type Pipeline struct {
	replayer Replayer
	analyzer verdict.Config
	log      *zap.Logger
}

type Params struct {
	// Config is the pipeline configuration.
	Config Config

	// Replayer overrides the transport. If nil, a replay.Client built from
	// Config.Replay is used.
	Replayer Replayer

	// Log is the logger to use for the pipeline.
	Log *zap.Logger
}

func New(params Params) *Pipeline {
	log := params.Log
	if log == nil {
		log = zap.NewNop()
	}

	replayer := params.Replayer
	if replayer == nil {
		replayer = replay.NewClient(replay.ClientParams{
			Config: params.Config.Replay,
			Log:    log,
		})
	}

	return &Pipeline{
		replayer: replayer,
		analyzer: params.Config.Analyzer,
		log:      log.Named("pipeline"),
	}
}

// Run takes in through PARSED, SUBSTITUTED, REPLAYED and ANALYZED. It returns
// the *Analyzed result, or a *Failed result for the first stage that failed.
func (p *Pipeline) Run(ctx context.Context, in Input) Result {
	id := uuid.NewString()
	log := p.log.With(zap.String("run_id", id))

	fail := func(at Stage, err error, last Result) Result {
		log.Debug("run failed", zap.Stringer("stage", at), zap.Error(err))
		return &Failed{ID: id, At: at, Err: err, Last: last}
	}

	if err := in.Validate(); err != nil {
		return fail(StageParsed, err, nil)
	}

	req, err := rawhttp.ParseWithOptions(in.Raw, rawhttp.ParseOptions{LengthPolicy: in.LengthPolicy})
	if err != nil {
		return fail(StageParsed, err, nil)
	}
	parsed := &Parsed{ID: id, Target: in.Target, Request: req}

	log.Debug("request parsed",
		zap.String("method", req.Method),
		zap.String("path", req.Path()),
		zap.Int("headers", len(req.Headers)),
		zap.Int("body_size", len(req.Body)),
		zap.Bool("length_mismatch", req.LengthMismatch()),
	)

	sub, err := substitute.Substitute(req, in.Credential)
	if err != nil {
		return fail(StageSubstituted, err, parsed)
	}
	substituted := &Substituted{Parsed: *parsed, Substitution: sub}

	log.Debug("credential substituted",
		zap.Bool("had_auth_header", sub.HadOriginalAuthHeader),
		zap.Int("replaced", sub.Replaced),
	)

	replayed := &Replayed{
		Substituted: *substituted,
		Response:    p.replayer.Do(ctx, sub.Request, in.Target),
	}
	if in.Baseline {
		replayed.Baseline = p.replayer.Do(ctx, req, in.Target)
	}

	analyzed := &Analyzed{
		Replayed: *replayed,
		Verdict:  verdict.Analyze(replayed.Response, replayed.Baseline, p.analyzer),
	}

	log.Debug("response analyzed",
		zap.String("outcome", string(analyzed.Verdict.Outcome())),
		zap.String("rule", string(analyzed.Verdict.Rule())),
		zap.Float64("score", analyzed.Verdict.Score()),
	)

	return analyzed
}

// Report hands res to r. An analyzed result becomes *Reported; a failed one
// is reported and returned as is. A reporter error fails the run.
func (p *Pipeline) Report(res Result, r Reporter) Result {
	switch res := res.(type) {
	case *Analyzed:
		if err := r.Report(res); err != nil {
			return &Failed{ID: res.ID, At: StageReported, Err: err, Last: res}
		}
		return &Reported{Analyzed: *res}
	case *Failed:
		if err := r.Report(res); err != nil {
			p.log.Debug("failed to report failure", zap.String("run_id", res.ID), zap.Error(err))
		}
		return res
	default:
		return &Failed{ID: res.RunID(), At: StageReported, Err: errors.New("run did not reach analysis"), Last: res}
	}
}
