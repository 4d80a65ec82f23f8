//go:build windows

package annotate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"unsafe"
)

const (
	lockfileExclusiveLock                 = 2
	lockfileFailImmediately               = 1
	errLockViolation        syscall.Errno = 0x21
)

var (
	modkernel32      = syscall.NewLazyDLL("kernel32.dll")
	procLockFileEx   = modkernel32.NewProc("LockFileEx")
	procUnlockFileEx = modkernel32.NewProc("UnlockFileEx")
)

// acquireLock takes a non-blocking exclusive LockFileEx lock on the lock file
// under stateDir, creating both if needed. It returns ErrLocked when another
// process holds the lock. The lock file stays in stateDir between runs.
func acquireLock(stateDir string) (release func(), err error) {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("annotate lock: create state dir: %w", err)
	}
	path := filepath.Join(stateDir, lockFilename)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("annotate lock: open %s: %w", path, err)
	}
	h := syscall.Handle(f.Fd())
	var ol syscall.Overlapped
	r1, _, callErr := procLockFileEx.Call(uintptr(h), lockfileExclusiveLock|lockfileFailImmediately, 0, 1, 0, uintptr(unsafe.Pointer(&ol)))
	if r1 == 0 {
		_ = f.Close()
		if errors.Is(callErr, errLockViolation) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("annotate lock: LockFileEx: %w", callErr)
	}
	return func() {
		var ol syscall.Overlapped
		_, _, _ = procUnlockFileEx.Call(uintptr(h), 0, 1, 0, uintptr(unsafe.Pointer(&ol)))
		_ = f.Close()
	}, nil
}
