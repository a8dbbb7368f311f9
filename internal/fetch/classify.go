package fetch

import (
	"strings"
)

// Outcome is the gateway's classification of a raw HTTP response.
type Outcome string

// Response classifications.
const (
	OutcomeOK        Outcome = "ok"
	OutcomeChallenge Outcome = "challenge"
	OutcomeTransient Outcome = "transient"
	OutcomePermanent Outcome = "permanent"
)

// Markers that only appear on Cloudflare challenge interstitials. Plain
// analytics beacons also live under /cdn-cgi/, so /cdn-cgi/ alone is not
// sufficient evidence.
var strongChallengeMarkers = []string{
	"challenge-platform",
	"cf-chl",
	"__cf_chl",
	"jschl",
	"turnstile",
	"cf-turnstile",
}

// Classify buckets a response by status code and body signature.
func Classify(status int, body string) Outcome {
	if looksLikeChallenge(status, body) {
		return OutcomeChallenge
	}
	switch {
	case status >= 200 && status < 400:
		return OutcomeOK
	case status == 408, status == 425, status == 429, status >= 500:
		return OutcomeTransient
	default:
		return OutcomePermanent
	}
}

func looksLikeChallenge(status int, body string) bool {
	if status == 403 || status == 503 {
		return true
	}
	t := strings.ToLower(body)
	if strings.Contains(t, "/cdn-cgi/") {
		for _, m := range strongChallengeMarkers {
			if strings.Contains(t, m) {
				return true
			}
		}
	}
	if strings.Contains(t, "just a moment") && strings.Contains(t, "checking your browser") {
		return true
	}
	if strings.Contains(t, "attention required") && strings.Contains(t, "cloudflare") {
		return true
	}
	return false
}
