package metadata

import (
	"strings"

	"github.com/mssola/useragent"
)

const unknownDevice = "Unknown Device"

// ParseUserAgent renders a short "<browser> on <os>" label for logs. Bots are
// labelled as such.
func ParseUserAgent(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return unknownDevice
	}
	ua := useragent.New(raw)
	browser, _ := ua.Browser()
	if ua.Bot() {
		return "Bot " + browser
	}
	if browser == "" {
		browser = "Unknown Browser"
	}
	os := ua.OS()
	if os == "" {
		os = ua.Platform()
	}
	if os == "" {
		os = "Unknown OS"
	}
	return browser + " on " + os
}
