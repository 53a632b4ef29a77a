package notification

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"sort"
	"strings"
)

// ValidateTwilioSignature checks the X-Twilio-Signature header of an inbound
// webhook: base64(HMAC-SHA1(authToken, url + sorted key/value pairs)).
func ValidateTwilioSignature(authToken, fullURL string, params map[string]string, signature string) bool {
	if authToken == "" || signature == "" {
		return false
	}
	expected := computeTwilioSignature(authToken, fullURL, params)
	return hmac.Equal([]byte(expected), []byte(signature))
}

func computeTwilioSignature(authToken, fullURL string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(fullURL)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(params[k])
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
