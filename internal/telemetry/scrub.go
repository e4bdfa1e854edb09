package telemetry

import "regexp"

var (
	// user:password@ in URLs and DSNs
	credentialPattern = regexp.MustCompile(`([a-zA-Z][a-zA-Z0-9+.-]*://)[^/\s:@]+(:[^/\s@]*)?@`)
	emailPattern      = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	ipv4Pattern       = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
)

// ScrubMessage removes credentials, e-mail addresses and IPv4 addresses from msg
func ScrubMessage(msg string) string {
	msg = credentialPattern.ReplaceAllString(msg, "${1}[redacted]@")
	msg = emailPattern.ReplaceAllString(msg, "[email]")
	return ipv4Pattern.ReplaceAllString(msg, "[ip]")
}
