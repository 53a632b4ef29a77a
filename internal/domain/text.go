package domain

// TextKind selects the reformatting prompt for a free-text onboarding answer.
type TextKind string

const (
	TextKindGoal       TextKind = "goal"
	TextKindMotivation TextKind = "motivation"
)
