package domain

import (
	"errors"
	"testing"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		raw    string
		region string
		want   string
	}{
		{"+1 650-253-0000", "", "16502530000"},
		{"(650) 253-0000", "US", "16502530000"},
		{"+44 20 7031 3000", "US", "442070313000"},
		{"020 7031 3000", "GB", "442070313000"},
	}
	for _, tc := range tests {
		got, err := NormalizePhone(tc.raw, tc.region)
		if err != nil {
			t.Errorf("NormalizePhone(%q): unexpected error %v", tc.raw, err)
			continue
		}
		if got != tc.want {
			t.Errorf("NormalizePhone(%q) = %q; want %q", tc.raw, got, tc.want)
		}
	}

	for _, raw := range []string{"", "abc", "123"} {
		if _, err := NormalizePhone(raw, "US"); !errors.Is(err, ErrInvalidPhone) {
			t.Errorf("NormalizePhone(%q): expected ErrInvalidPhone, got %v", raw, err)
		}
	}
}

func TestCanonicalPhone(t *testing.T) {
	tests := map[string]string{
		"+16502530000":  "16502530000",
		"+15551234567":  "15551234567",
		"555-123-4567":  "15551234567",
		"+442070313000": "442070313000",
	}
	for raw, want := range tests {
		if got := CanonicalPhone(raw); got != want {
			t.Errorf("CanonicalPhone(%q) = %q; want %q", raw, got, want)
		}
	}
}

func TestE164(t *testing.T) {
	if E164("16502530000") != "+16502530000" {
		t.Error("expected + prefix")
	}
	if E164("+16502530000") != "+16502530000" {
		t.Error("expected unchanged")
	}
}
