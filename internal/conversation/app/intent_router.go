package app

import (
	"fmt"
	"regexp"
	"strings"
)

// Intent is the classified purpose of an inbound message.
type Intent string

const (
	IntentInsuranceCard    Intent = "insurance_card"
	IntentPolicyExpiration Intent = "policy_expiration"
	IntentHelpOrOther      Intent = "help_or_other"
	IntentMenu             Intent = "menu"
)

// Routing is the classifier verdict for one inbound body.
type Routing struct {
	Intent     Intent
	Confidence float64
	Reason     string
}

// confidenceThreshold is the minimum winning score; below it the router
// falls back to showing the menu.
const confidenceThreshold = 0.8

// commandIntents maps exact (normalized) command words to intents with full
// confidence.
var commandIntents = map[string]Intent{
	"menu":     IntentMenu,
	"cancel":   IntentMenu,
	"restart":  IntentMenu,
	"help":     IntentHelpOrOther,
	"card":     IntentInsuranceCard,
	"expiring": IntentPolicyExpiration,
}

// Strong patterns score 1.0 and short-circuit; weak patterns score 0.85 and
// do not (the last weak match wins, matching the shipped scoring behavior).
var (
	strongCardPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)insurance\s+card`),
		regexp.MustCompile(`(?i)id\s+card`),
		regexp.MustCompile(`(?i)proof\s+of\s+insurance`),
	}
	weakCardPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(my|the|our)\s+(insurance\s+)?card\b`),
		regexp.MustCompile(`(?i)\bcard\b.{0,30}(insurance|auto|vehicle|car|truck)`),
		regexp.MustCompile(`(?i)(insurance|auto|vehicle|car|truck).{0,30}\bcard\b`),
	}
	strongExpirationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)policy\s+expir`),
		regexp.MustCompile(`(?i)policy\s+expiration`),
		regexp.MustCompile(`(?i)renewal\s+date`),
	}
	weakExpirationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(expire|expiration|renew|renewal)\b`),
	}
)

// helpKeywords route "talk to a human / service change" asks to the
// unsupported-notice branch when present as substrings.
var helpKeywords = []string{
	"agent", "human", "representative", "change", "add", "remove",
	"address", "vehicle", "driver", "billing", "claim",
}

// NormalizeBody trims, lowercases, and collapses internal whitespace.
func NormalizeBody(body string) string {
	return strings.Join(strings.Fields(strings.ToLower(body)), " ")
}

// RouteIntent classifies a free-text inbound body. Pure and deterministic:
// no clock, no storage, no side effects.
func RouteIntent(body string) Routing {
	normalized := NormalizeBody(body)

	if intent, ok := commandIntents[normalized]; ok {
		return Routing{
			Intent:     intent,
			Confidence: 1.0,
			Reason:     "command_word: " + normalized,
		}
	}

	// Candidate order matters: the first of equally scored intents wins.
	candidates := []struct {
		intent Intent
		score  float64
	}{
		{IntentInsuranceCard, scorePatterns(normalized, strongCardPatterns, weakCardPatterns)},
		{IntentPolicyExpiration, scorePatterns(normalized, strongExpirationPatterns, weakExpirationPatterns)},
		{IntentHelpOrOther, scoreHelpOrOther(normalized)},
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.score > best.score {
			best = c
		}
	}

	if best.score >= confidenceThreshold {
		return Routing{
			Intent:     best.intent,
			Confidence: best.score,
			Reason:     fmt.Sprintf("keyword_match: %v", best.score),
		}
	}

	return Routing{
		Intent:     IntentMenu,
		Confidence: 0.0,
		Reason:     "no_match: showing_menu",
	}
}

func scorePatterns(normalized string, strong, weak []*regexp.Regexp) float64 {
	for _, p := range strong {
		if p.MatchString(normalized) {
			return 1.0
		}
	}

	score := 0.0
	for _, p := range weak {
		if p.MatchString(normalized) {
			score = 0.85
		}
	}
	return score
}

func scoreHelpOrOther(normalized string) float64 {
	for _, keyword := range helpKeywords {
		if strings.Contains(normalized, keyword) {
			return 0.9
		}
	}
	return 0.0
}
