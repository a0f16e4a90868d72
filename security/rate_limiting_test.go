package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSuspiciousUserAgent(t *testing.T) {
	cases := []struct {
		ua         string
		suspicious bool
	}{
		{"Mozilla/5.0 (X11; Linux x86_64)", false},
		{"Googlebot/2.1", true},
		{"python-scraper/1.0", true},
		{"SpiderMonkey", true},
		{"curl/8.0.1", false},
		{"", false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.suspicious, isSuspiciousUserAgent(tc.ua), "ua=%q", tc.ua)
	}
}
