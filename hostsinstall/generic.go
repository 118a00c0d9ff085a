package hostsinstall

import "github.com/charmbracelet/log"

const _app = "[hostsinstall] "

// info ...
func info(msg string, kv ...any) { log.Info(_app+msg, kv...) }

// warn ...
func warn(msg string, kv ...any) { log.Warn(_app+msg, kv...) }

// debug ...
func debug(msg string, kv ...any) { log.Debug(_app+msg, kv...) }
