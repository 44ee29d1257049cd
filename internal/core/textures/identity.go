package textures

import (
	"regexp"
	"strings"
)

// IdentityType is the syntactic classification of an identity string.
type IdentityType int

const (
	IdentityInvalid IdentityType = iota
	IdentityUUID
	IdentityUsername
)

var (
	uuidPattern     = regexp.MustCompile(`^[0-9a-fA-F-]{32,36}$`)
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,16}$`)
)

// Classify reports whether id is a UUID (dashes optional), a username, or
// invalid. It does not check that the identity exists.
func Classify(id string) IdentityType {
	switch {
	case uuidPattern.MatchString(id):
		return IdentityUUID
	case usernamePattern.MatchString(id):
		return IdentityUsername
	default:
		return IdentityInvalid
	}
}

// Valid reports whether id is a UUID or a username.
func Valid(id string) bool {
	return Classify(id) != IdentityInvalid
}

// Normalize returns the form used for upstream lookups: UUIDs lose their
// dashes and are lowercased, usernames pass through unchanged.
func Normalize(id string) string {
	if Classify(id) == IdentityUUID {
		return strings.ToLower(strings.ReplaceAll(id, "-", ""))
	}
	return id
}

// CacheKey returns the freshness store key. Usernames are lowercased since
// the upstream lookup ignores case.
func CacheKey(id string) string {
	if Classify(id) == IdentityUsername {
		return strings.ToLower(id)
	}
	return Normalize(id)
}
