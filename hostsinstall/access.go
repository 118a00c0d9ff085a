package hostsinstall

import (
	"errors"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// checkPrivilege fails early, before anything is staged
func checkPrivilege(target string) error {
	dir := filepath.Dir(target)
	if err := canWrite(dir); err != nil {
		return accessError(dir, err)
	}
	if err := canWrite(target); err != nil && !errors.Is(err, unix.ENOENT) {
		return accessError(target, err)
	}
	return nil
}

// canWrite checks with the effective ids
func canWrite(path string) error {
	return unix.Faccessat(unix.AT_FDCWD, path, unix.W_OK, unix.AT_EACCESS)
}

// accessError ...
func accessError(path string, err error) error {
	if errors.Is(err, unix.EACCES) || errors.Is(err, unix.EPERM) || errors.Is(err, unix.EROFS) {
		return &PermissionError{Path: path, Err: err}
	}
	return &WriteError{Op: "access", Path: path, Err: err}
}

// lockDir takes a non-blocking exclusive flock on dir
func lockDir(dir string) (func(), error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, &WriteError{Op: "lock", Path: dir, Err: err}
	}
	fd := int(f.Fd())
	if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, &WriteError{Op: "lock", Path: dir, Err: ErrBusy}
		}
		return nil, &WriteError{Op: "lock", Path: dir, Err: err}
	}
	return func() {
		_ = unix.Flock(fd, unix.LOCK_UN)
		f.Close()
	}, nil
}
