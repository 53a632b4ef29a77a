package domain

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const DefaultRegion = "US"

// NormalizePhone validates raw input and returns the canonical key: E.164
// digits with country code and no leading '+'.
func NormalizePhone(raw, region string) (string, error) {
	if region == "" {
		region = DefaultRegion
	}
	num, err := phonenumbers.Parse(strings.TrimSpace(raw), region)
	if err != nil {
		return "", ErrInvalidPhone
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", ErrInvalidPhone
	}
	return strings.TrimPrefix(phonenumbers.Format(num, phonenumbers.E164), "+"), nil
}

// CanonicalPhone is the lenient variant used for inbound carrier addresses,
// which are already E.164. Unparseable input falls back to its digits with a
// North American country code.
func CanonicalPhone(raw string) string {
	if p, err := NormalizePhone(raw, DefaultRegion); err == nil {
		return p
	}
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits != "" && !strings.HasPrefix(digits, "1") && len(digits) == 10 {
		digits = "1" + digits
	}
	return digits
}

// E164 renders a canonical key as a dialable address.
func E164(phone string) string {
	if strings.HasPrefix(phone, "+") {
		return phone
	}
	return "+" + phone
}
