package hostsinstall

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

const _labelXattr = "security.selinux"

// fileMeta is what the replacement inherits from the current target
type fileMeta struct {
	exists bool
	mode   os.FileMode
	uid    int
	gid    int
}

// statTarget ...
func statTarget(path string, mode os.FileMode) (fileMeta, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		if errors.Is(err, unix.ENOENT) {
			return fileMeta{mode: mode, uid: -1, gid: -1}, nil
		}
		return fileMeta{}, err
	}
	return fileMeta{
		exists: true,
		mode:   os.FileMode(st.Mode & 0o777),
		uid:    int(st.Uid),
		gid:    int(st.Gid),
	}, nil
}

// writeAtomic stages data next to dest and renames it into place
func writeAtomic(ctx context.Context, dest string, data []byte, meta fileMeta) error {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".hosts-*")
	if err != nil {
		return &WriteError{Op: "create", Path: dest, Err: err}
	}
	tmpPath := tmp.Name()
	fail := func(op string, err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return &WriteError{Op: op, Path: dest, Err: err}
	}

	if _, err := tmp.Write(data); err != nil {
		return fail("write", err)
	}
	if err := tmp.Chmod(meta.mode); err != nil {
		return fail("chmod", err)
	}
	if meta.exists {
		if err := tmp.Chown(meta.uid, meta.gid); err != nil {
			return fail("chown", err)
		}
		copyLabel(dest, tmp)
	}
	if err := tmp.Sync(); err != nil {
		return fail("sync", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return &WriteError{Op: "close", Path: dest, Err: err}
	}

	// last point to back out, the target is still untouched
	if err := ctx.Err(); err != nil {
		_ = os.Remove(tmpPath)
		return &WriteError{Op: "rename", Path: dest, Err: err}
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return &WriteError{Op: "rename", Path: dest, Err: err}
	}
	if err := syncDir(dir); err != nil {
		debug("sync dir", "dir", dir, "error", err)
	}
	return nil
}

// copyLabel carries the selinux context over, best-effort
func copyLabel(from string, to *os.File) {
	sz, err := unix.Getxattr(from, _labelXattr, nil)
	if err != nil || sz <= 0 {
		return
	}
	buf := make([]byte, sz)
	sz, err = unix.Getxattr(from, _labelXattr, buf)
	if err != nil {
		return
	}
	if err := unix.Fsetxattr(int(to.Fd()), _labelXattr, buf[:sz], 0); err != nil {
		warn("unable to keep selinux label", "path", from, "error", err)
	}
}

// syncDir persists the rename
func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
