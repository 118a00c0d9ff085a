package hostsfetch

import (
	"strconv"
)

// FetchError reports an unreachable endpoint, a non-2xx status, a timeout or an unusable body
type FetchError struct {
	URL    string
	Status int // http status, 0 if no response
	Err    error
}

func (e *FetchError) Error() string {
	msg := "fetch [" + e.URL + "]"
	if e.Status != 0 {
		msg += " [status " + strconv.Itoa(e.Status) + "]"
	}
	if e.Err != nil {
		msg += " [" + e.Err.Error() + "]"
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Err }

// NotFoundError reports a local path that is missing, not a regular file or unreadable
type NotFoundError struct {
	Path string
	Err  error
}

func (e *NotFoundError) Error() string {
	msg := "hosts file [" + e.Path + "] not found or unreadable"
	if e.Err != nil {
		msg += " [" + e.Err.Error() + "]"
	}
	return msg
}

func (e *NotFoundError) Unwrap() error { return e.Err }
