// package hostsinstall replaces the system hosts file and flushes the resolver cache
package hostsinstall

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"paepcke.de/updatehosts/hostscheck"
)

// defaults
const (
	DefaultTarget = "/etc/hosts"
	DefaultMode   = os.FileMode(0o644)
)

var errNotVerified = errors.New("content has not been verified")

// Options ...
type Options struct {
	Target   string      // file to replace, DefaultTarget if empty
	Mode     os.FileMode // mode for a new target, DefaultMode if zero
	Reloader Reloader    // cache flush, Systemctl for NetworkManager if nil
}

// Installer ...
type Installer struct {
	target   string
	mode     os.FileMode
	reloader Reloader
}

// Installed describes a completed replacement
type Installed struct {
	Path    string
	Bytes   int
	Flushed bool // resolver cache flush succeeded
}

// New ...
func New(opts Options) *Installer {
	in := &Installer{
		target:   opts.Target,
		mode:     opts.Mode,
		reloader: opts.Reloader,
	}
	if in.target == "" {
		in.target = DefaultTarget
	}
	if in.mode == 0 {
		in.mode = DefaultMode
	}
	if in.reloader == nil {
		in.reloader = Systemctl{Command: DefaultCommand, Service: DefaultService}
	}
	return in
}

// Target ...
func (in *Installer) Target() string { return in.target }

// Install writes v atomically onto the target and triggers the cache flush.
// A *ServiceReloadError comes with a non-nil *Installed, the file is in place.
func (in *Installer) Install(ctx context.Context, v *hostscheck.Verified) (*Installed, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if v == nil {
		return nil, &WriteError{Op: "input", Path: in.target, Err: errNotVerified}
	}

	// a symlinked target is updated through the link
	path, err := resolveTarget(in.target)
	if err != nil {
		return nil, &WriteError{Op: "resolve", Path: in.target, Err: err}
	}
	dir := filepath.Dir(path)

	// privilege
	if err := checkPrivilege(path); err != nil {
		return nil, err
	}

	// one run at a time
	unlock, err := lockDir(dir)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// replace
	meta, err := statTarget(path, in.mode)
	if err != nil {
		return nil, &WriteError{Op: "stat", Path: path, Err: err}
	}
	data := v.Data()
	if err := writeAtomic(ctx, path, data, meta); err != nil {
		return nil, err
	}
	info("installed", "path", path, "bytes", len(data), "origin", v.Origin())
	res := &Installed{Path: in.target, Bytes: len(data)}

	// flush
	if err := in.reloader.Reload(ctx); err != nil {
		return res, &ServiceReloadError{Service: reloaderName(in.reloader), Err: err}
	}
	res.Flushed = true
	info("resolver cache flushed", "service", reloaderName(in.reloader))
	return res, nil
}

// Current returns the installed table, read through a symlinked target
func (in *Installer) Current() ([]byte, error) { return os.ReadFile(in.target) }

// resolveTarget follows symlinks, a missing target stays as given
func resolveTarget(target string) (string, error) {
	path, err := filepath.EvalSymlinks(target)
	if errors.Is(err, fs.ErrNotExist) {
		return target, nil
	}
	return path, err
}

// reloaderName ...
func reloaderName(r Reloader) string {
	if s, ok := r.(fmt.Stringer); ok {
		return s.String()
	}
	return "resolver"
}
