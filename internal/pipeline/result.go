package pipeline

import (
	"fmt"

	"github.com/auth-fusion/authfusion/internal/rawhttp"
	"github.com/auth-fusion/authfusion/internal/replay"
	"github.com/auth-fusion/authfusion/internal/substitute"
	"github.com/auth-fusion/authfusion/internal/verdict"
)

// Stage is a pipeline state. Stages only move forward; any failure moves to
// StageFailed.
type Stage int

const (
	StageParsed Stage = iota + 1
	StageSubstituted
	StageReplayed
	StageAnalyzed
	StageReported
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageParsed:
		return "PARSED"
	case StageSubstituted:
		return "SUBSTITUTED"
	case StageReplayed:
		return "REPLAYED"
	case StageAnalyzed:
		return "ANALYZED"
	case StageReported:
		return "REPORTED"
	case StageFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// Result is the value a pipeline run ends in. It is one of *Parsed,
// *Substituted, *Replayed, *Analyzed, *Reported or *Failed.
type Result interface {
	Stage() Stage
	RunID() string

	sealed()
}

// Parsed holds the request as captured.
type Parsed struct {
	ID      string
	Target  replay.Target
	Request *rawhttp.Request
}

// Substituted adds the request carrying the attacker credential.
type Substituted struct {
	Parsed
	Substitution substitute.Result
}

// Replayed adds the response to the attacker request and, when requested,
// the response to the unmodified victim request.
type Replayed struct {
	Substituted
	Response *replay.Response
	Baseline *replay.Response
}

// Analyzed adds the verdict.
type Analyzed struct {
	Replayed
	Verdict verdict.Verdict
}

// Reported marks an analyzed result that was handed to a reporter.
type Reported struct {
	Analyzed
}

// Failed is the terminal state of a run that could not complete. At is the
// stage that failed and Last the last stage that succeeded, or nil.
type Failed struct {
	ID   string
	At   Stage
	Err  error
	Last Result
}

func (r *Parsed) Stage() Stage      { return StageParsed }
func (r *Substituted) Stage() Stage { return StageSubstituted }
func (r *Replayed) Stage() Stage    { return StageReplayed }
func (r *Analyzed) Stage() Stage    { return StageAnalyzed }
func (r *Reported) Stage() Stage    { return StageReported }
func (r *Failed) Stage() Stage      { return StageFailed }

func (r *Parsed) RunID() string { return r.ID }
func (r *Failed) RunID() string { return r.ID }

func (r *Parsed) sealed() {}
func (r *Failed) sealed() {}

func (r *Failed) Error() string {
	return fmt.Sprintf("%s failed: %v", r.At, r.Err)
}

func (r *Failed) Unwrap() error {
	return r.Err
}

// VerdictOf returns the verdict carried by res, if any.
func VerdictOf(res Result) (verdict.Verdict, bool) {
	switch r := res.(type) {
	case *Analyzed:
		return r.Verdict, true
	case *Reported:
		return r.Verdict, true
	default:
		return verdict.Verdict{}, false
	}
}
