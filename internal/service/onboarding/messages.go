package onboarding

import (
	"fmt"
	"strings"

	"github.com/goalreminder/goal-reminder/internal/service/timezone"
)

const (
	msgWelcome   = "Welcome to Goal Reminder! Each day at 7 AM, we'll remind you of your most important goal. What's your first name? (so we can personalize this experience)"
	msgTextStart = "To begin your daily goal reminders, text 'START.' Let's get you on track to achieving your goals!"

	msgAskName       = "What's your first name?"
	msgAskGoal       = "What's a goal you'd love to focus on right now? (Feel free to keep it simple!)"
	msgAskMotivation = "What's driving you to achieve this? (Your 'why' can be a personal reason, a dream, or something else inspiring.)"

	msgTimezoneUnknown = "I couldn't recognize that timezone. Please try again with something like 'Pacific Time', 'Eastern Time', or just tell me your city (e.g., 'New York' or 'Los Angeles')."

	msgCanceledLocally = "We've canceled your subscription. You can always text RESTART to come back!"
	msgRestart         = "Welcome back! Let's set up your goals again. What's your first name?"
	msgAllSet          = "All set! 🎯 Your reminders are live. Text CANCEL anytime to stop reminders or RESTART to reset your goals."

	msgCancelScheduled = "Your subscription has been canceled and will end at the end of your current billing period. We'll miss you! Text START anytime to resubscribe."
	msgCancelFailed    = "Sorry, we had trouble canceling your subscription. Please try again or contact support if the problem persists."
	msgNoSubscription  = "We couldn't find an active subscription. If you think this is an error, please contact support."

	// MsgTechnicalDifficulties is the only reply a caller sees when handling fails.
	MsgTechnicalDifficulties = "Sorry, we're having technical difficulties. Please try again in a few minutes."
)

func helpMenu(supportEmail string) string {
	return fmt.Sprintf("Need help? You can:\n1. Email us at %s\n2. Text START to begin again\n3. Text CANCEL to cancel your subscription\n\nA support agent will get back to you within 24 hours.", supportEmail)
}

func nameReply(name string) string {
	return fmt.Sprintf("Great to meet you, %s! 🎉 %s", name, msgAskGoal)
}

func goalReply(name string) string {
	return fmt.Sprintf("That's a powerful goal, %s! We're here to help you stay on track! 🌟\n\n%s", name, msgAskMotivation)
}

func motivationReply(name string) string {
	return fmt.Sprintf("What a great reason to stay motivated, %s! This will be your fuel when things get tough. 💪\n\nTo make sure we send reminders at the right time, could you share your timezone? (e.g., Pacific Time or Eastern Time)", name)
}

func trialStarted(checkoutURL string) string {
	return fmt.Sprintf("Awesome! Your 7-day free trial has started, keep a look out for your first reminder tomorrow at 7 AM. 🎉\n\nIf you'd like to subscribe now to make sure you don't miss a day, click here: %s\n\nIt's just $19.99/year (5 cents a day to reach your goal).\n\nCancel anytime by texting CANCEL.", checkoutURL)
}

func timezoneSuggestions(zones []string) string {
	var b strings.Builder
	b.WriteString("I couldn't quite understand that timezone. Did you mean one of these?\n")
	for _, z := range zones {
		b.WriteString("- ")
		b.WriteString(timezone.City(z))
		b.WriteString("\n")
	}
	b.WriteString("\nPlease try again with one of these options, or try entering your city name.")
	return b.String()
}
