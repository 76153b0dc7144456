package platform

import (
	"errors"
	"strings"
)

// ErrLockHeld indicates another process already owns the resource lock.
var ErrLockHeld = errors.New("resource is locked by another process")

// ErrLockUnsupported indicates the current platform has no lock backend implementation.
var ErrLockUnsupported = errors.New("resource lock unsupported")

// ResourceLock represents an acquired advisory lock. The OS drops it when the
// owning process exits.
type ResourceLock interface {
	Release() error
}

// AcquireLock takes an exclusive per-user lock on resource (for example a
// serial device path) within the appID namespace.
func AcquireLock(appID, resource string) (ResourceLock, error) {
	return acquireLock(
		normalizeLockComponent(appID, "app"),
		normalizeLockComponent(resource, "default"),
	)
}

func normalizeLockComponent(raw, fallback string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}

	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	normalized := strings.Trim(b.String(), "_-.")
	if normalized == "" {
		return fallback
	}

	return normalized
}
