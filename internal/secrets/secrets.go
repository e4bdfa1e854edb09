// Package secrets resolves credentials given in the configuration.
//
// A credential is either a literal, a string with ${VAR} or ${VAR:-default}
// references to the environment, or the contents of a file such as a
// Docker or Kubernetes secret mount. Secret values are never logged.
package secrets

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// maxFileSize limits secret file reads. Secrets are tokens and passwords.
const maxFileSize = 64 * 1024

// WarnFunc receives non-fatal findings such as a world-readable secret file
type WarnFunc func(msg, path string)

// ExpandString replaces ${VAR} and ${VAR:-default} references with values
// from the environment. A referenced variable that is unset and has no
// default is an error.
func ExpandString(s string) (string, error) {
	if s == "" {
		return "", nil
	}

	var missing []string
	expanded := os.Expand(s, func(key string) string {
		name, fallback, hasFallback := strings.Cut(key, ":-")
		if v := os.Getenv(name); v != "" {
			return v
		}
		if hasFallback {
			return fallback
		}
		missing = append(missing, name)
		return ""
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("missing required environment variable(s): %s", strings.Join(missing, ", "))
	}
	return expanded, nil
}

// ReadFile reads a secret from path with trailing newlines trimmed. warn,
// when set, is told about files readable by group or others.
func ReadFile(path string, warn WarnFunc) (string, error) {
	if path == "" {
		return "", fmt.Errorf("secret file path is empty")
	}
	clean := filepath.Clean(path)

	info, err := os.Stat(clean)
	switch {
	case os.IsNotExist(err):
		return "", fmt.Errorf("secret file not found: %s", clean)
	case err != nil:
		return "", fmt.Errorf("failed to stat secret file %s: %w", clean, err)
	case !info.Mode().IsRegular():
		return "", fmt.Errorf("secret path is not a regular file: %s", clean)
	case info.Size() > maxFileSize:
		return "", fmt.Errorf("secret file too large (max %d bytes): %s", maxFileSize, clean)
	}

	if warn != nil && permissive(info.Mode()) {
		warn("secret file is readable by group or others", clean)
	}

	data, err := os.ReadFile(clean)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file %s: %w", clean, err)
	}
	secret := strings.TrimRight(string(data), "\r\n")
	if secret == "" {
		return "", fmt.Errorf("secret file is empty: %s", clean)
	}
	return secret, nil
}

func permissive(mode fs.FileMode) bool {
	return mode.Perm()&0o077 != 0
}

// Resolve returns the secret from filePath when set, otherwise value with
// environment references expanded.
func Resolve(filePath, value string, warn WarnFunc) (string, error) {
	if filePath != "" {
		return ReadFile(filePath, warn)
	}
	return ExpandString(value)
}
