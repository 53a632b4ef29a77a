// Package textgen provides the text generators used by onboarding and the
// reminder scheduler.
package textgen

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/goalreminder/goal-reminder/internal/domain"
	"github.com/goalreminder/goal-reminder/internal/ports"
)

// Template is the deterministic generator. It never fails.
type Template struct{}

func NewTemplate() *Template {
	return &Template{}
}

func (Template) Reformat(_ context.Context, text string, _ domain.TextKind) (string, error) {
	return strings.TrimSpace(text), nil
}

func (Template) MorningReminder(_ context.Context, name, goal, motivation string) (string, error) {
	return MorningFallback(name, goal, motivation), nil
}

func MorningFallback(name, goal, motivation string) string {
	return fmt.Sprintf("Morning, %s! 🌅 Time to work on your goal: %s. Remember your motivation: %s!", name, goal, motivation)
}

// Fallback tries the primary generator and answers from the secondary one when
// it errors or returns nothing.
type Fallback struct {
	primary   ports.TextGenerator
	secondary ports.TextGenerator
	log       *zap.Logger
}

func NewFallback(primary, secondary ports.TextGenerator, log *zap.Logger) *Fallback {
	if secondary == nil {
		secondary = NewTemplate()
	}
	return &Fallback{primary: primary, secondary: secondary, log: log}
}

// New returns the generator selected by the feature flag: the remote one
// guarded by the template, or the template alone.
func New(remote ports.TextGenerator, aiEnabled bool, log *zap.Logger) ports.TextGenerator {
	if !aiEnabled || remote == nil {
		return NewTemplate()
	}
	return NewFallback(remote, NewTemplate(), log)
}

func (f *Fallback) Reformat(ctx context.Context, text string, kind domain.TextKind) (string, error) {
	if f.primary != nil {
		out, err := f.primary.Reformat(ctx, text, kind)
		if err == nil && strings.TrimSpace(out) != "" {
			return out, nil
		}
		f.log.Warn("Reformat fell back to template", zap.String("kind", string(kind)), zap.Error(err))
	}
	return f.secondary.Reformat(ctx, text, kind)
}

func (f *Fallback) MorningReminder(ctx context.Context, name, goal, motivation string) (string, error) {
	if f.primary != nil {
		out, err := f.primary.MorningReminder(ctx, name, goal, motivation)
		if err == nil && strings.TrimSpace(out) != "" {
			return out, nil
		}
		f.log.Warn("Morning reminder fell back to template", zap.String("name", name), zap.Error(err))
	}
	return f.secondary.MorningReminder(ctx, name, goal, motivation)
}
