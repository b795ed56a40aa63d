package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeBody(t *testing.T) {
	assert.Equal(t, "stop", NormalizeBody("  STOP  "))
	assert.Equal(t, "need my card", NormalizeBody("Need\tMY   card\n"))
	assert.Equal(t, "", NormalizeBody("   \n\t "))
}

func TestRouteIntent_CommandWords(t *testing.T) {
	tests := []struct {
		body   string
		intent Intent
	}{
		{"MENU", IntentMenu},
		{"cancel", IntentMenu},
		{"Restart", IntentMenu},
		{"help", IntentHelpOrOther},
		{"CARD", IntentInsuranceCard},
		{"  expiring ", IntentPolicyExpiration},
	}
	for _, tc := range tests {
		t.Run(tc.body, func(t *testing.T) {
			routing := RouteIntent(tc.body)
			assert.Equal(t, tc.intent, routing.Intent)
			assert.Equal(t, 1.0, routing.Confidence)
			assert.Contains(t, routing.Reason, "command_word")
		})
	}
}

func TestRouteIntent_StrongPatterns(t *testing.T) {
	tests := []struct {
		body   string
		intent Intent
	}{
		{"I need my insurance card", IntentInsuranceCard},
		{"send me my ID card please", IntentInsuranceCard},
		{"need proof of insurance for the DMV", IntentInsuranceCard},
		{"when does my policy expire?", IntentPolicyExpiration},
		{"what is my renewal date", IntentPolicyExpiration},
	}
	for _, tc := range tests {
		t.Run(tc.body, func(t *testing.T) {
			routing := RouteIntent(tc.body)
			assert.Equal(t, tc.intent, routing.Intent)
			assert.Equal(t, 1.0, routing.Confidence)
		})
	}
}

func TestRouteIntent_WeakPatterns(t *testing.T) {
	routing := RouteIntent("can you send the card for my truck")
	assert.Equal(t, IntentInsuranceCard, routing.Intent)
	assert.Equal(t, 0.85, routing.Confidence)

	routing = RouteIntent("does it renew soon")
	assert.Equal(t, IntentPolicyExpiration, routing.Intent)
	assert.Equal(t, 0.85, routing.Confidence)
}

func TestRouteIntent_HelpKeywords(t *testing.T) {
	tests := []string{
		"I want to talk to an agent",
		"can a human call me",
		"need to change my address",
		"I have a billing question",
		"filing a claim",
	}
	for _, body := range tests {
		t.Run(body, func(t *testing.T) {
			routing := RouteIntent(body)
			assert.Equal(t, IntentHelpOrOther, routing.Intent)
			assert.Equal(t, 0.9, routing.Confidence)
		})
	}
}

func TestRouteIntent_StrongBeatsHelpKeyword(t *testing.T) {
	// "vehicle" is a help keyword but the strong card pattern scores higher.
	routing := RouteIntent("insurance card for my vehicle")
	assert.Equal(t, IntentInsuranceCard, routing.Intent)
	assert.Equal(t, 1.0, routing.Confidence)
}

func TestRouteIntent_TieGoesToFirstCandidate(t *testing.T) {
	// Both strong card and strong expiration match; card is evaluated first
	// and a tie never displaces the current best.
	routing := RouteIntent("insurance card and policy expiration")
	assert.Equal(t, IntentInsuranceCard, routing.Intent)
	assert.Equal(t, 1.0, routing.Confidence)
}

func TestRouteIntent_NoMatchFallsBackToMenu(t *testing.T) {
	routing := RouteIntent("hello there")
	assert.Equal(t, IntentMenu, routing.Intent)
	assert.Equal(t, 0.0, routing.Confidence)
	assert.Equal(t, "no_match: showing_menu", routing.Reason)
}
