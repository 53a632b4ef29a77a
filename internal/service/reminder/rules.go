package reminder

import (
	"fmt"
	"time"

	"github.com/goalreminder/goal-reminder/internal/domain"
)

type Kind string

const (
	KindMorning     Kind = "morning"
	KindTrialUpsell Kind = "trial_upsell"
	KindTrialEnding Kind = "trial_ending"
	KindTrialEnded  Kind = "trial_ended"
	KindWinBack     Kind = "win_back"
)

const (
	morningHour   = 7
	lifecycleHour = 12
	// windowMinutes is the debounce window at the top of the trigger hour.
	windowMinutes = 15
	trialDays     = 7
)

// lifecycleRule is a checkout-bearing message sent to trial users on a fixed
// tenure day.
type lifecycleRule struct {
	kind    Kind
	day     int
	promo   bool
	message func(name, url string) string
}

var lifecycleRules = []lifecycleRule{
	{
		kind: KindTrialUpsell,
		day:  4,
		message: func(_, url string) string {
			return fmt.Sprintf("Feeling motivated to reach your goal? For just 5 cents per day, you can keep these texts coming for the next year. Sign up here: %s", url)
		},
	},
	{
		kind: KindTrialEnding,
		day:  6,
		message: func(name, url string) string {
			return fmt.Sprintf("Hi %s! Your 7-day trial ends tomorrow. We hope these daily reminders have helped you stay focused on your goal! To continue receiving reminders, join here: %s", name, url)
		},
	},
	{
		kind: KindTrialEnded,
		day:  7,
		message: func(name, url string) string {
			return fmt.Sprintf("Hi %s! We've enjoyed helping you reach your goal this week. To continue receiving your personalized daily reminders: %s", name, url)
		},
	},
	{
		kind:  KindWinBack,
		day:   10,
		promo: true,
		message: func(name, url string) string {
			return fmt.Sprintf("Hey %s! Ready to continue your journey? Your personalized reminders are available for less than the price of a coffee per month. Keep going strong here: %s", name, url)
		},
	},
}

func ruleFor(kind Kind) (lifecycleRule, bool) {
	for _, r := range lifecycleRules {
		if r.kind == kind {
			return r, true
		}
	}
	return lifecycleRule{}, false
}

func inWindow(local time.Time, hour int) bool {
	return local.Hour() == hour && local.Minute() < windowMinutes
}

// DueKinds lists every message kind that fires for the user at this local
// time. More than one kind can be due in the same tick.
func DueKinds(u *domain.User, local time.Time, days int) []Kind {
	var due []Kind

	if inWindow(local, morningHour) {
		switch {
		case u.HasStatus(domain.SubscriptionStatusActive):
			due = append(due, KindMorning)
		case u.HasStatus(domain.SubscriptionStatusTrial) && days <= trialDays:
			due = append(due, KindMorning)
		}
	}

	if inWindow(local, lifecycleHour) && u.HasStatus(domain.SubscriptionStatusTrial) {
		for _, r := range lifecycleRules {
			if days == r.day {
				due = append(due, r.kind)
			}
		}
	}

	return due
}
