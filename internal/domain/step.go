package domain

type Step string

const (
	StepStart    Step = "start"
	StepName     Step = "name"
	StepGoal     Step = "goal"
	StepWhy      Step = "why"
	StepTimezone Step = "timezone"
	StepComplete Step = "complete"
)

// DeriveStep computes the onboarding step from the stored fields alone, so
// replaying a message after a crash always lands on the same step.
func DeriveStep(u *User) Step {
	switch {
	case u == nil:
		return StepStart
	case !isSet(u.Name):
		return StepName
	case !isSet(u.Goal):
		return StepGoal
	case !isSet(u.Motivation):
		return StepWhy
	case !isSet(u.TimeZone):
		return StepTimezone
	default:
		return StepComplete
	}
}
