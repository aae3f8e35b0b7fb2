package utils

import (
	"strings"

	ua "github.com/mssola/user_agent"
)

// BookingChannel classifies where a booking request came from
type BookingChannel struct {
	Channel  string `json:"channel"`  // web, mobile, bot, unknown
	OS       string `json:"os"`       // Android 14, Windows 10, etc.
	Browser  string `json:"browser"`  // Chrome, Safari, etc.
	Platform string `json:"platform"` // android, ios, windows, mac, linux
}

// ClassifyUserAgent parses a User-Agent header into a booking channel for
// audit logging. An empty header classifies as unknown, never an error.
func ClassifyUserAgent(userAgent string) BookingChannel {
	if userAgent == "" {
		return BookingChannel{Channel: "unknown", OS: "Unknown", Browser: "Unknown", Platform: "unknown"}
	}

	parser := ua.New(userAgent)

	channel := "web"
	if parser.Bot() {
		channel = "bot"
	} else if parser.Mobile() {
		channel = "mobile"
	}

	browser, _ := parser.Browser()
	if browser == "" {
		browser = "Unknown"
	}

	return BookingChannel{
		Channel:  channel,
		OS:       osString(parser),
		Browser:  browser,
		Platform: platform(parser),
	}
}

func osString(parser *ua.UserAgent) string {
	info := parser.OSInfo()
	if info.Name == "" {
		return "Unknown"
	}
	if info.Version != "" {
		return info.Name + " " + info.Version
	}
	return info.Name
}

func platform(parser *ua.UserAgent) string {
	name := strings.ToLower(parser.OSInfo().Name)
	switch {
	case strings.Contains(name, "android"):
		return "android"
	case strings.Contains(name, "ios"), strings.Contains(name, "iphone"):
		return "ios"
	case strings.Contains(name, "windows"):
		return "windows"
	case strings.Contains(name, "mac"):
		return "mac"
	case strings.Contains(name, "linux"), strings.Contains(name, "ubuntu"):
		return "linux"
	default:
		return "unknown"
	}
}
