// Package timezone maps free-text user input onto IANA zone names.
package timezone

import (
	"context"
	"strings"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"

	"github.com/goalreminder/goal-reminder/internal/ports"
)

const (
	unknownZone    = "UNKNOWN"
	maxSuggestions = 4
)

type alias struct {
	key  string
	zone string
}

// aliases is ordered so suggestions come back in a stable order.
var aliases = []alias{
	{"eastern time", "America/New_York"},
	{"et", "America/New_York"},
	{"est", "America/New_York"},
	{"edt", "America/New_York"},
	{"central time", "America/Chicago"},
	{"ct", "America/Chicago"},
	{"cst", "America/Chicago"},
	{"cdt", "America/Chicago"},
	{"mountain time", "America/Denver"},
	{"mt", "America/Denver"},
	{"mst", "America/Denver"},
	{"mdt", "America/Denver"},
	{"pacific time", "America/Los_Angeles"},
	{"pt", "America/Los_Angeles"},
	{"pst", "America/Los_Angeles"},
	{"pdt", "America/Los_Angeles"},
}

var aliasIndex = func() map[string]string {
	m := make(map[string]string, len(aliases))
	for _, a := range aliases {
		m[a.key] = a.zone
	}
	return m
}()

// Resolver implements ports.TimezoneResolver. The interpreter is optional;
// without it only aliases and canonical names resolve.
type Resolver struct {
	interpreter ports.ZoneInterpreter
	log         *zap.Logger
}

func NewResolver(interpreter ports.ZoneInterpreter, log *zap.Logger) *Resolver {
	return &Resolver{interpreter: interpreter, log: log}
}

// Resolve tries the alias table, then the input as a canonical zone name, then
// the external interpreter. Interpreter answers are validated before use.
func (r *Resolver) Resolve(ctx context.Context, input string) (string, bool) {
	trimmed := strings.TrimSpace(input)
	if zone, ok := aliasIndex[strings.ToLower(trimmed)]; ok {
		return zone, true
	}
	if IsValidZone(trimmed) {
		return trimmed, true
	}
	if r.interpreter == nil || trimmed == "" {
		return "", false
	}

	answer, err := r.interpreter.InterpretTimezone(ctx, trimmed)
	if err != nil {
		r.log.Warn("Timezone interpretation failed", zap.String("input", trimmed), zap.Error(err))
		return "", false
	}
	answer = strings.TrimSpace(answer)
	if answer == unknownZone || !IsValidZone(answer) {
		r.log.Info("Timezone not recognized", zap.String("input", trimmed), zap.String("answer", answer))
		return "", false
	}
	return answer, true
}

// Suggest returns the distinct zones whose alias contains the normalized
// input, at most four.
func (r *Resolver) Suggest(input string) []string {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return nil
	}

	var out []string
	seen := make(map[string]bool)
	for _, a := range aliases {
		if !strings.Contains(a.key, normalized) || seen[a.zone] {
			continue
		}
		seen[a.zone] = true
		out = append(out, a.zone)
		if len(out) == maxSuggestions {
			break
		}
	}
	return out
}

// IsValidZone reports whether name is a loadable IANA zone. "" and "Local"
// are rejected since LoadLocation accepts them as UTC and the host zone.
func IsValidZone(name string) bool {
	if name == "" || name == "Local" {
		return false
	}
	_, err := time.LoadLocation(name)
	return err == nil
}

// City renders "America/Los_Angeles" as "Los Angeles".
func City(zone string) string {
	if i := strings.LastIndex(zone, "/"); i >= 0 {
		zone = zone[i+1:]
	}
	return strings.ReplaceAll(zone, "_", " ")
}
