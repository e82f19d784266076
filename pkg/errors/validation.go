package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// maxCrateNameLength mirrors the limit crates.io enforces on publish.
const maxCrateNameLength = 64

// crateNameRegex matches valid crates.io crate names.
var crateNameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)

// ValidateCrateName validates a crate name before it is interpolated into
// API paths or cache keys.
func ValidateCrateName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidCrate, "crate name cannot be empty")
	}
	if len(name) > maxCrateNameLength {
		return New(ErrCodeInvalidCrate, "crate name too long (max %d characters)", maxCrateNameLength)
	}
	if !crateNameRegex.MatchString(name) {
		return New(ErrCodeInvalidCrate, "invalid crate name: %q", name)
	}
	return nil
}

// ValidateUsername validates an owner login passed to invite or remove.
//
// Team logins have the form "github:org:team", so colons are allowed;
// whitespace, control characters and slashes are not.
func ValidateUsername(login string) error {
	if login == "" {
		return New(ErrCodeInvalidUsername, "username cannot be empty")
	}
	if len(login) > 256 {
		return New(ErrCodeInvalidUsername, "username too long (max 256 characters)")
	}
	for _, r := range login {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidUsername, "username contains invalid characters")
		}
	}
	if strings.ContainsAny(login, "/\\") {
		return New(ErrCodeInvalidUsername, "username cannot contain path separators")
	}
	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}
