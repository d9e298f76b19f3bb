package verdict

import (
	"encoding/json"
	"slices"
)

// Outcome is the classification of a replay.
type Outcome string

const (
	Vulnerable    Outcome = "VULNERABLE"
	NotVulnerable Outcome = "NOT_VULNERABLE"
	Inconclusive  Outcome = "INCONCLUSIVE"
)

// Rule identifies the heuristic that decided a verdict.
type Rule string

const (
	// RuleDenied fires on 401 and 403.
	RuleDenied Rule = "1"

	// RuleDataReturned fires on 2xx responses carrying real data.
	RuleDataReturned Rule = "2"

	// RuleEmptyOrTemplate fires on 2xx responses that look empty or denied.
	RuleEmptyOrTemplate Rule = "3"

	// RuleOtherStatus fires on every other status code.
	RuleOtherStatus Rule = "4"

	// RuleTransport fires when no HTTP response was obtained.
	RuleTransport Rule = "transport"
)

// Summary is the evidence kept about one response.
type Summary struct {
	StatusCode int `json:"status_code" yaml:"status_code"`
	BodySize   int `json:"body_size" yaml:"body_size"`
}

// Verdict is the immutable result of an analysis.
type Verdict struct {
	outcome  Outcome
	rule     Rule
	score    float64
	reasons  []string
	expected Summary
	observed Summary
}

func (v Verdict) Outcome() Outcome { return v.outcome }
func (v Verdict) Rule() Rule       { return v.rule }

// Score is the evidence of vulnerability in [0, 1].
func (v Verdict) Score() float64 { return v.score }

// Reasons returns the matched heuristics in evaluation order.
func (v Verdict) Reasons() []string { return slices.Clone(v.reasons) }

// Expected summarizes the response that a correctly enforced endpoint
// returns: the victim baseline when one was fetched, otherwise a 403.
func (v Verdict) Expected() Summary { return v.expected }

// Observed summarizes the response to the attacker request.
func (v Verdict) Observed() Summary { return v.observed }

type document struct {
	Outcome  Outcome  `json:"outcome" yaml:"outcome"`
	Rule     Rule     `json:"rule" yaml:"rule"`
	Score    float64  `json:"score" yaml:"score"`
	Reasons  []string `json:"reasons" yaml:"reasons"`
	Expected Summary  `json:"expected" yaml:"expected"`
	Observed Summary  `json:"observed" yaml:"observed"`
}

func (v Verdict) document() document {
	reasons := v.Reasons()
	if reasons == nil {
		reasons = []string{}
	}
	return document{
		Outcome:  v.outcome,
		Rule:     v.rule,
		Score:    v.score,
		Reasons:  reasons,
		Expected: v.expected,
		Observed: v.observed,
	}
}

func (v Verdict) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.document())
}

// MarshalYAML implements yaml.Marshaler.
func (v Verdict) MarshalYAML() (any, error) {
	return v.document(), nil
}
