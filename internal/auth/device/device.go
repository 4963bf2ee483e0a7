// Package device turns raw User-Agent strings into short display names
// recorded on login sessions ("Chrome on Mac OS X").
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

const unknownDevice = "Unknown Device"

// ParseUserAgent produces a human-readable device summary from a User-Agent
// header. Version numbers are dropped on purpose: the summary identifies the
// device class, not the exact build.
func ParseUserAgent(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return unknownDevice
	}

	ua := useragent.New(raw)
	browser, _ := ua.Browser()
	os := ua.OS()

	if browser == "" {
		browser = "Unknown Browser"
	}
	if os == "" {
		if platform := ua.Platform(); platform != "" {
			os = platform
		} else {
			os = "Unknown OS"
		}
	}

	return strings.TrimSpace(browser + " on " + os)
}
