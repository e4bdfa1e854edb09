package logger

import (
	"regexp"
	"strings"
)

const redactedValue = "[REDACTED]"

// sensitivePatterns match credentials embedded in free-form strings
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(bearer\s+)([A-Za-z0-9\-._~+/]+=*)`),
	regexp.MustCompile(`(?i)((?:password|passwd|secret|token)[\s:=]+)([^;,\s&]{3,})`),
	regexp.MustCompile(`(?i)((?:session|csrf|console_panel_session)=)([^;,\s]{5,})`),
	// bcrypt hashes showing up in traced SQL
	regexp.MustCompile(`()(\$2[aby]\$\d{2}\$[./A-Za-z0-9]{53})`),
}

// sensitiveKeys mark field names whose values are never logged
var sensitiveKeys = []string{
	"password", "passwd", "secret", "token", "cookie", "authorization", "csrf", "password_hash",
}

// RedactSensitiveData masks credentials found in s
func RedactSensitiveData(s string) string {
	if s == "" {
		return s
	}
	for _, pattern := range sensitivePatterns {
		s = pattern.ReplaceAllString(s, "${1}"+redactedValue)
	}
	return s
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, k := range sensitiveKeys {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
