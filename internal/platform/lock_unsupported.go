//go:build !unix

package platform

import (
	"fmt"
	"runtime"
)

func acquireLock(_, _ string) (ResourceLock, error) {
	return nil, fmt.Errorf("%w on %s", ErrLockUnsupported, runtime.GOOS)
}
