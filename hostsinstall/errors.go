package hostsinstall

import "errors"

// ErrBusy is returned while another run holds the install lock
var ErrBusy = errors.New("another update is in progress")

// PermissionError means the process may not write the target
type PermissionError struct {
	Path string
	Err  error
}

func (e *PermissionError) Error() string {
	return "no write permission for [" + e.Path + "], re-run with elevated privileges (sudo) [" + e.Err.Error() + "]"
}

func (e *PermissionError) Unwrap() error { return e.Err }

// WriteError is any i/o fault while staging or replacing, the target keeps its prior content
type WriteError struct {
	Op   string
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return "write [" + e.Path + "] [" + e.Op + "] [" + e.Err.Error() + "]"
}

func (e *WriteError) Unwrap() error { return e.Err }

// ServiceReloadError means the file is installed but the cache flush failed
type ServiceReloadError struct {
	Service string
	Err     error
}

func (e *ServiceReloadError) Error() string {
	return "restart [" + e.Service + "] failed, flush the resolver cache manually [" + e.Err.Error() + "]"
}

func (e *ServiceReloadError) Unwrap() error { return e.Err }
