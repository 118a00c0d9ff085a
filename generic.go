package updatehosts

import "github.com/charmbracelet/log"

// const
const (
	_app   = "[updatehosts] "
	_empty = ""
)

// info ...
func info(msg string, kv ...any) { log.Info(_app+msg, kv...) }

// warn ...
func warn(msg string, kv ...any) { log.Warn(_app+msg, kv...) }

// debug ...
func debug(msg string, kv ...any) { log.Debug(_app+msg, kv...) }

// errOut ...
func errOut(msg string, err error) { log.Error(_app+msg, "error", err) }

// pad ...
func pad(in string, l int) string {
	for len(in) < l {
		in = in + " "
	}
	return in
}
