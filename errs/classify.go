package errs

import (
	"errors"
	"net"
	"strings"
)

// Friendly fixed messages for known backend error classes.
const (
	MsgNotFound      = "No data found"
	MsgAlreadyExists = "This item already exists"
	MsgNoSchema      = "Database table not found. Please set up the database first."
	MsgNoPermission  = "Permission denied. Please check your authentication."
	MsgAuthExpired   = "Authentication error. Please log in again."
	MsgNetwork       = "Network error. Please check your connection."
)

// Classify inspects known backend error codes and substrings and returns
// a friendlier fixed message for recognized classes.
func Classify(raw any) (string, bool) {
	remote := asRemote(raw)
	if remote != nil {
		switch remote.Code {
		case "PGRST116":
			return MsgNotFound, true
		case "23505":
			return MsgAlreadyExists, true
		case "42P01":
			return MsgNoSchema, true
		case "42501":
			return MsgNoPermission, true
		}
	}

	msg := Normalize(raw, "")
	if msg == "" {
		return "", false
	}
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "JWT") || strings.Contains(lower, "auth"):
		return MsgAuthExpired, true
	case strings.Contains(lower, "fetch") || strings.Contains(lower, "network") ||
		strings.Contains(lower, "connection refused") || strings.Contains(lower, "no such host"):
		return MsgNetwork, true
	}
	if err, ok := raw.(error); ok {
		var netErr net.Error
		if errors.As(err, &netErr) {
			return MsgNetwork, true
		}
	}
	return "", false
}

// IsConflict reports whether the payload is a uniqueness violation.
func IsConflict(raw any) bool {
	if remote := asRemote(raw); remote != nil && remote.Code == "23505" {
		return true
	}
	return strings.Contains(strings.ToLower(Normalize(raw, "")), "unique constraint")
}

// IsMissingRelation reports whether the payload means the expected schema
// does not exist. This is the class that demotes the app to fallback mode.
func IsMissingRelation(raw any) bool {
	remote := asRemote(raw)
	if remote != nil && remote.Code == "42P01" {
		return true
	}
	msg := strings.ToLower(Normalize(raw, ""))
	return strings.Contains(msg, "does not exist") && strings.Contains(msg, "relation") ||
		strings.Contains(msg, "no such table")
}

func asRemote(raw any) *Remote {
	switch v := raw.(type) {
	case *Remote:
		return v
	case Remote:
		return &v
	case error:
		var remote *Remote
		if errors.As(v, &remote) {
			return remote
		}
	}
	return nil
}
