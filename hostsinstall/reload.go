package hostsinstall

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

// defaults for the cache flush
const (
	DefaultCommand = "/usr/bin/systemctl"
	DefaultService = "NetworkManager.service"
	_reloadTimeout = 30 * time.Second
)

// Reloader flushes the resolver cache after the table changed
type Reloader interface {
	Reload(ctx context.Context) error
}

// ReloaderFunc ...
type ReloaderFunc func(ctx context.Context) error

// Reload ...
func (f ReloaderFunc) Reload(ctx context.Context) error { return f(ctx) }

// NopReloader leaves the cache alone
type NopReloader struct{}

// Reload ...
func (NopReloader) Reload(context.Context) error { return nil }

// String ...
func (NopReloader) String() string { return "none" }

// Systemctl restarts a systemd unit
type Systemctl struct {
	Command string
	Service string
	Timeout time.Duration
}

// Reload runs "systemctl restart <service>"
func (s Systemctl) Reload(ctx context.Context) error {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = _reloadTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	debug("restart", "command", s.Command, "service", s.Service)
	out, err := exec.CommandContext(ctx, s.Command, "restart", s.Service).CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return errors.New(err.Error() + " [" + msg + "]")
		}
		return err
	}
	return nil
}

// String ...
func (s Systemctl) String() string { return s.Service }
