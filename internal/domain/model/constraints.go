package model

import "regexp"

var invalidUsernameChars = regexp.MustCompile(`[^A-Za-z0-9_]`)

// IsValidUsername is the strict check: 1-16 characters of [A-Za-z0-9_].
func IsValidUsername(name string) bool {
	return name != "" && len(name) <= MaxUsernameLength && !invalidUsernameChars.MatchString(name)
}

// IsValidUsernameLenient only enforces the length limit.
func IsValidUsernameLenient(name string) bool {
	return name != "" && len(name) <= MaxUsernameLength
}
