package app

import (
	"fmt"
	"strings"

	"github.com/covertext/smsflow/internal/conversation/domain"
)

// Reply template catalog. All user-visible text lives here; the state machine
// only picks templates and fills in options.
const (
	TemplateGlobalMenu = "Welcome to CoverText! \U0001F4CB\n\n" +
		"Reply with:\n" +
		"• CARD - Get your insurance card\n" +
		"• EXPIRING - Check policy expiration dates\n" +
		"• HELP - Show this menu again\n\n" +
		"What can I help you with today?"

	TemplateGlobalMenuShort = "Reply: CARD, EXPIRING, or HELP"

	TemplateGlobalUnsupported = "I'm not sure how to help with that request. " +
		"For assistance with other matters, please contact your agency directly.\n\n" +
		"Reply MENU to see available options."

	TemplateCardVehicleMenu = "Select which vehicle's insurance card you need:\n\n%s\n\n" +
		"Reply with the number, or MENU to go back."

	TemplateExpirePolicyMenu = "Select which policy you'd like to check:\n\n%s\n\n" +
		"Reply with the number, or MENU to go back."

	TemplateCardDelivery = "Attached is your insurance card for your %s. Reply MENU for more options."

	TemplateExpireDelivery = "Your policy for %s expires on %s. Reply MENU for more options."

	TemplateInvalidSelection = "Invalid selection. Please reply with a valid number or MENU to return to the main menu."

	TemplateAccountNotFound = "We couldn't find your account. Please contact your agency."

	TemplateNoAutoPolicies = "No auto policies found on your account. Please contact your agency."

	TemplateNoPolicies = "No policies found on your account. Please contact your agency."

	TemplateStopConfirm = "You have been unsubscribed and will no longer receive messages from this number. " +
		"Reply START to re-subscribe."

	TemplateStartConfirm = "You have been re-subscribed to messages from this number. " +
		"Reply MENU to see available options."

	TemplateHelp = "CoverText self-service: reply CARD for your insurance card, " +
		"EXPIRING for policy expiration dates, or MENU for all options. Reply STOP to unsubscribe."

	TemplateOptedOutBlockNotice = "You previously opted out of messages from this number. " +
		"Reply START to re-subscribe."

	TemplateRateLimited = "You've sent quite a few messages in the last hour. " +
		"Please wait a bit and try again, or contact your agency directly."
)

// Template names recorded in menu_sent audit events.
const (
	templateNameGlobalMenu      = "global.menu"
	templateNameGlobalMenuShort = "global.menu_short"
)

// expirationDateLayout renders dates like "January 02, 2026".
const expirationDateLayout = "January 02, 2006"

// renderOptionsMenu builds the numbered selection menu from stored options.
func renderOptionsMenu(format string, options []domain.MenuOption) string {
	lines := make([]string, 0, len(options))
	for _, opt := range options {
		lines = append(lines, fmt.Sprintf("%s. %s", opt.Key, opt.Label))
	}
	return fmt.Sprintf(format, strings.Join(lines, "\n"))
}
