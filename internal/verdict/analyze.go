package verdict

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/auth-fusion/authfusion/internal/replay"
)

const (
	baseScore       = 0.6
	structuredBonus = 0.2
	baselineBonus   = 0.2
	ambiguousScore  = 0.3
	otherScore      = 0.2
	notFoundScore   = 0.1
)

// Analyze classifies the response to the attacker request. baseline is the
// response to the unmodified victim request and may be nil.
//
// The rules are evaluated in order and the first decisive one wins:
//
//  1. 401 or 403: NOT_VULNERABLE.
//  2. 2xx with a body that carries data: VULNERABLE.
//  3. 2xx with an empty, hollow or denial-looking body: INCONCLUSIVE.
//  4. any other status: INCONCLUSIVE.
//
// A transport failure is always INCONCLUSIVE.
func Analyze(observed, baseline *replay.Response, config Config) Verdict {
	config = config.withDefaults()

	v := Verdict{
		expected: expectedSummary(baseline),
		observed: summarize(observed),
	}

	if baseline != nil && baseline.Failed() {
		v.reasons = append(v.reasons, fmt.Sprintf(
			"baseline replay failed (%s): %s", baseline.Failure.Kind, baseline.Failure.Message(),
		))
	}

	if observed == nil || observed.Failed() {
		reason := "no response was obtained"
		if observed != nil {
			reason = fmt.Sprintf("transport failure (%s): %s", observed.Failure.Kind, observed.Failure.Message())
		}
		return v.decide(Inconclusive, RuleTransport, 0, reason)
	}

	code := observed.StatusCode
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return v.decide(NotVulnerable, RuleDenied, 0,
			fmt.Sprintf("HTTP %d: the server rejected the attacker credential", code))
	case code >= 200 && code < 300:
		return v.success(observed, baseline, config)
	case code == http.StatusNotFound:
		return v.decide(Inconclusive, RuleOtherStatus, notFoundScore,
			"HTTP 404: resource not found, the endpoint may not exist for this target")
	default:
		return v.decide(Inconclusive, RuleOtherStatus, otherScore,
			fmt.Sprintf("HTTP %d: %s, manual review required", code, statusClass(code)))
	}
}

func (v Verdict) success(observed, baseline *replay.Response, config Config) Verdict {
	code := observed.StatusCode
	body := bytes.TrimSpace(observed.Body)

	if len(body) < config.MinBodySize {
		return v.decide(Inconclusive, RuleEmptyOrTemplate, ambiguousScore,
			fmt.Sprintf("HTTP %d with an empty or trivial body (%d bytes)", code, len(body)))
	}

	doc, isJSON := decodeJSON(body)
	if isJSON && hollow(doc) {
		return v.decide(Inconclusive, RuleEmptyOrTemplate, ambiguousScore,
			fmt.Sprintf("HTTP %d with a JSON body that carries no data", code))
	}
	if isJSON && errorDocument(doc) {
		return v.decide(Inconclusive, RuleEmptyOrTemplate, ambiguousScore,
			fmt.Sprintf("HTTP %d with a JSON error document", code))
	}
	if marker, ok := matchMarker(body, config.Markers); ok {
		return v.decide(Inconclusive, RuleEmptyOrTemplate, ambiguousScore,
			fmt.Sprintf("HTTP %d with a body matching denial marker %q", code, marker))
	}
	if size, ok := matchTemplate(len(body), config.Templates, config.TemplateTolerance); ok {
		return v.decide(Inconclusive, RuleEmptyOrTemplate, ambiguousScore,
			fmt.Sprintf("HTTP %d with a body of %d bytes, within %d bytes of a %d-byte denied template",
				code, len(body), config.TemplateTolerance, size))
	}

	score := baseScore
	reasons := []string{
		fmt.Sprintf("HTTP %d with a %d-byte body and no denial marker", code, len(observed.Body)),
	}

	if structured(observed.ContentType(), isJSON) {
		score += structuredBonus
		reasons = append(reasons, "body is structured data")
	}

	if baseline != nil && !baseline.Failed() {
		if similar(observed.Body, baseline.Body, config.SimilarityThreshold) {
			score += baselineBonus
			reasons = append(reasons, "body matches the victim baseline response")
		} else {
			reasons = append(reasons, "body differs from the victim baseline response")
		}
	}

	return v.decide(Vulnerable, RuleDataReturned, min(score, 1), reasons...)
}

func (v Verdict) decide(outcome Outcome, rule Rule, score float64, reasons ...string) Verdict {
	v.outcome = outcome
	v.rule = rule
	v.score = score
	v.reasons = append(v.reasons, reasons...)
	return v
}

func summarize(resp *replay.Response) Summary {
	if resp == nil || resp.Failed() {
		return Summary{}
	}
	return Summary{StatusCode: resp.StatusCode, BodySize: resp.BodySize()}
}

func expectedSummary(baseline *replay.Response) Summary {
	if baseline == nil || baseline.Failed() {
		return Summary{StatusCode: http.StatusForbidden}
	}
	return summarize(baseline)
}

func statusClass(code int) string {
	switch {
	case code < 200:
		return "informational response"
	case code < 400:
		return "redirect"
	case code < 500:
		return "client error"
	default:
		return "server error"
	}
}
