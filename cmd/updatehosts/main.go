// package main ...
package main

// import ...
import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"paepcke.de/updatehosts"
	"paepcke.de/updatehosts/hostscheck"
	"paepcke.de/updatehosts/hostsinstall"
)

// const shortcuts
const (
	// DEFAULTS  [convinient build time defaults]
	_APPNAME         = "UPDATEHOSTS"
	_VERSION         = "v0.1.0"
	_DEFAULT_URL     = updatehosts.DefaultURL
	_DEFAULT_TARGET  = hostsinstall.DefaultTarget
	_DEFAULT_SERVICE = hostsinstall.DefaultService
	_DEFAULT_TIMEOUT = 30 * time.Second
	_DEFAULT_MINSIZE = hostscheck.DefaultMinSize

	// ENV VAR NAMES
	_ENV_URL          = _APPNAME + "_URL"
	_ENV_TARGET       = _APPNAME + "_TARGET"
	_ENV_SERVICE      = _APPNAME + "_SERVICE"
	_ENV_TIMEOUT      = _APPNAME + "_TIMEOUT"
	_ENV_MINSIZE      = _APPNAME + "_MINSIZE"
	_ENV_CHECKSUM     = _APPNAME + "_CHECKSUM"
	_ENV_CHECKSUM_URL = _APPNAME + "_CHECKSUM_URL"
	_ENV_DEBUG        = _APPNAME + "_DEBUG"
	_ENV_ENVFILE      = _APPNAME + "_ENVFILE"
)

var errTooManyArgs = errors.New("more than one hosts file given")

// options from the commandline
type options struct {
	yes      bool
	noReload bool
	force    bool
	version  bool
	help     bool
	file     string
}

// main ..
func main() {
	os.Exit(run(os.Args[1:], os.Stdin))
}

// run ...
func run(args []string, stdin io.Reader) int {
	// commandline
	opts, err := parseArgs(args)
	if err != nil {
		out("[error] " + err.Error())
		syntax()
		return updatehosts.ExitFailure
	}
	switch {
	case opts.help:
		syntax()
		return updatehosts.ExitOK
	case opts.version:
		out("updatehosts " + _VERSION)
		return updatehosts.ExitOK
	}

	// env file first, it never overrides the environment
	if file, ok := syscall.Getenv(_ENV_ENVFILE); ok && file != "" {
		if err := godotenv.Load(file); err != nil {
			log.Warn("unable to load env file", "path", file, "error", err)
		}
	}
	if _, ok := syscall.Getenv(_ENV_DEBUG); ok {
		log.SetLevel(log.DebugLevel)
	}

	// config
	cfg, err := configFromEnv(syscall.Getenv)
	if err != nil {
		out("[error] " + err.Error())
		return updatehosts.ExitFailure
	}
	cfg.HostsFile = opts.file
	cfg.AssumeYes = opts.yes
	cfg.Force = opts.force
	if opts.noReload {
		cfg.Reloader = hostsinstall.NopReloader{}
	}
	cfg.Confirm = newPrompt(stdin, os.Stdout)

	// interrupt cancels, the target stays untouched until the final rename
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res := updatehosts.Run(ctx, cfg)
	switch {
	case res.UpToDate:
	case res.Degraded:
		out("hosts file updated, flush the resolver cache manually")
	case res.State == updatehosts.Done:
		out("hosts file updated")
	}
	return updatehosts.ExitCode(res.Err)
}

// parseArgs ...
func parseArgs(args []string) (options, error) {
	var opts options
	for _, arg := range args {
		switch arg {
		case "-y", "--yes":
			opts.yes = true
		case "--no-reload":
			opts.noReload = true
		case "-f", "--force":
			opts.force = true
		case "-v", "--version":
			opts.version = true
		case "-h", "--help":
			opts.help = true
		default:
			if strings.HasPrefix(arg, "-") && arg != "-" {
				return opts, errors.New("unknown option [" + arg + "]")
			}
			if opts.file != "" {
				return opts, errTooManyArgs
			}
			opts.file = arg
		}
	}
	return opts, nil
}

// configFromEnv ...
func configFromEnv(getenv func(string) (string, bool)) (*updatehosts.Config, error) {
	cfg := &updatehosts.Config{
		URL:       _DEFAULT_URL,
		Target:    _DEFAULT_TARGET,
		Timeout:   _DEFAULT_TIMEOUT,
		MinSize:   _DEFAULT_MINSIZE,
		UserAgent: "updatehosts/" + _VERSION,
	}
	service := _DEFAULT_SERVICE

	// ask env about source, target and service
	if env, ok := getenv(_ENV_URL); ok && env != "" {
		cfg.URL = env
	}
	if env, ok := getenv(_ENV_TARGET); ok && env != "" {
		cfg.Target = env
	}
	if env, ok := getenv(_ENV_SERVICE); ok && env != "" {
		service = env
	}
	if env, ok := getenv(_ENV_CHECKSUM); ok {
		cfg.Checksum = env
	}
	if env, ok := getenv(_ENV_CHECKSUM_URL); ok {
		cfg.ChecksumURL = env
	}

	// ask env about bounds
	if env, ok := getenv(_ENV_TIMEOUT); ok && env != "" {
		d, err := time.ParseDuration(env)
		if err != nil || d <= 0 {
			return nil, errors.New("invalid " + _ENV_TIMEOUT + " [" + env + "] [want a positive duration, eg. 30s]")
		}
		cfg.Timeout = d
	}
	if env, ok := getenv(_ENV_MINSIZE); ok && env != "" {
		n, err := strconv.Atoi(env)
		if err != nil || n <= 0 {
			return nil, errors.New("invalid " + _ENV_MINSIZE + " [" + env + "] [want a positive number of bytes]")
		}
		cfg.MinSize = n
	}

	cfg.Reloader = hostsinstall.Systemctl{Command: hostsinstall.DefaultCommand, Service: service}
	return cfg, nil
}

// reYes accepts y and yes in any case
var reYes = regexp.MustCompile(`(?i)^y(es)?$`)

// isYes ...
func isYes(answer string) bool { return reYes.MatchString(strings.TrimSpace(answer)) }

// prompt asks on the terminal
type prompt struct {
	in  *bufio.Reader
	out io.Writer
}

// newPrompt ...
func newPrompt(in io.Reader, w io.Writer) *prompt {
	return &prompt{in: bufio.NewReader(in), out: w}
}

// Confirm reads one line, EOF and anything but y/yes is no
func (p *prompt) Confirm(ctx context.Context, question string) (bool, error) {
	io.WriteString(p.out, question)
	answer := make(chan string, 1)
	go func() {
		line, _ := p.in.ReadString('\n')
		answer <- line
	}()
	select {
	case <-ctx.Done():
		io.WriteString(p.out, "\n")
		return false, ctx.Err()
	case line := <-answer:
		return isYes(line), nil
	}
}

// syntax ...
func syntax() {
	out("syntax : updatehosts [-y|--yes] [-f|--force] [--no-reload] [hosts-file]")
	out("example: sudo updatehosts")
	out("example: sudo updatehosts --no-reload ./hosts.zst")
	out("")
	out("options")
	out("-y, --yes      do not ask, install after verification")
	out("-f, --force    install even if the installed table is not older")
	out("--no-reload    do not restart the resolver service")
	out("-v, --version  print version")
	out("-h, --help     print this help")
	out("")
	out("env vars")
	out("UPDATEHOSTS_URL [blocklist url]")
	out("UPDATEHOSTS_TARGET [hosts file to replace, default /etc/hosts]")
	out("UPDATEHOSTS_SERVICE [systemd unit to restart, default NetworkManager.service]")
	out("UPDATEHOSTS_TIMEOUT [transport timeout, default 30s]")
	out("UPDATEHOSTS_MINSIZE [smallest accepted table in bytes]")
	out("UPDATEHOSTS_CHECKSUM [sha256:<hex>|blake2b:<hex>]")
	out("UPDATEHOSTS_CHECKSUM_URL [sha256sum file url]")
	out("UPDATEHOSTS_ENVFILE [env file to load first]")
	out("UPDATEHOSTS_DEBUG [verbose logging]")
	out("HTTPS_PROXY, SSL_CERT_[FILE|DIR]")
}

//
// LITTLE GENERIC HELPER SECTION
//

// out ...
func out(msg string) {
	os.Stdout.Write([]byte(msg + "\n"))
}
