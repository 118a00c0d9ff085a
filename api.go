// package updatehosts replaces the system hosts file with a verified blocklist
package updatehosts

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"paepcke.de/updatehosts/hostscheck"
	"paepcke.de/updatehosts/hostsfetch"
	"paepcke.de/updatehosts/hostsinstall"
)

// DefaultURL is the StevenBlack unified list with the fakenews, gambling, porn and social extensions
const DefaultURL = "https://raw.githubusercontent.com/StevenBlack/hosts/master/alternates/fakenews-gambling-porn-social/hosts"

// Config is everything a run depends on
type Config struct {
	HostsFile   string        // local table, bypasses the network when set
	URL         string        // remote table, DefaultURL if empty
	Checksum    string        // optional declared digest [sha256:<hex>|blake2b:<hex>]
	ChecksumURL string        // optional remote digest file
	Timeout     time.Duration // transport timeout
	UserAgent   string
	MinSize     int    // plausibility threshold in bytes
	Target      string // hosts file to replace, /etc/hosts if empty
	Reloader    hostsinstall.Reloader
	Confirm     Confirmer
	AssumeYes   bool      // skip the prompt, the decision is still recorded
	Force       bool      // install even if the table is not newer than the installed one
	Out         io.Writer // summary output, stdout if nil
}

// Result is the outcome of one run
type Result struct {
	State     State
	Trace     []State // every state passed, in order
	Decision  Decision
	Degraded  bool // installed, but the resolver cache flush failed
	UpToDate  bool // installed table is as new as the source, nothing done
	Report    *hostscheck.Report
	Installed *hostsinstall.Installed
	Err       error
}

// Run walks START -> FETCH_OR_LOAD -> VERIFY -> CONFIRM -> INSTALL -> DONE,
// any failure or a decline ends in ABORTED with the target untouched.
// A table dated no later than the installed one goes from VERIFY to DONE.
func Run(ctx context.Context, cfg *Config) *Result {
	// setup
	t0 := time.Now()
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg == nil {
		cfg = &Config{}
	}
	w := cfg.Out
	if w == nil {
		w = os.Stdout
	}
	installer := hostsinstall.New(hostsinstall.Options{Target: cfg.Target, Reloader: cfg.Reloader})
	r := &Result{State: Start, Trace: []State{Start}}

	// fetch or load
	r.next(FetchOrLoad)
	content, err := hostsfetch.Obtain(ctx, cfg.source())
	if err != nil {
		return r.abort(err)
	}
	info("source", "origin", content.Origin, "remote", content.Remote, "bytes", len(content.Data))

	// verify
	r.next(Verify)
	v, err := hostscheck.Verify(content, hostscheck.Options{MinSize: cfg.MinSize})
	if err != nil {
		return r.abort(err)
	}
	rep := v.Report()
	r.Report = &rep
	summary(w, v.Origin(), rep)

	// nothing newer than what is installed
	if !cfg.Force && upToDate(rep.DateParsed, installer) {
		r.UpToDate = true
		io.WriteString(w, "hosts file is up to date, nothing to do\n")
		info("up to date", "target", installer.Target(), "date", rep.Date)
		r.next(Done)
		return r
	}

	// confirm
	r.next(Confirm)
	r.Decision, err = decide(ctx, cfg, installer.Target())
	if err != nil {
		return r.abort(err)
	}
	if r.Decision != Accepted {
		return r.abort(ErrUserAborted)
	}

	// install
	r.next(Install)
	r.Installed, err = installer.Install(ctx, v)
	if err != nil {
		var se *hostsinstall.ServiceReloadError
		if !errors.As(err, &se) || r.Installed == nil {
			return r.abort(err)
		}
		r.Degraded, r.Err = true, err
		warn("installed, but the resolver cache is stale", "error", err)
	}

	// done
	r.next(Done)
	info(pad("time needed", 16) + time.Since(t0).String())
	return r
}

// source maps the config onto a hostsfetch.Spec, a local file never carries a url
func (cfg *Config) source() hostsfetch.Spec {
	spec := hostsfetch.Spec{
		Checksum:    cfg.Checksum,
		ChecksumURL: cfg.ChecksumURL,
		Timeout:     cfg.Timeout,
		UserAgent:   cfg.UserAgent,
	}
	if cfg.HostsFile != _empty {
		spec.Path = cfg.HostsFile
		spec.ChecksumURL = _empty
		return spec
	}
	spec.URL = cfg.URL
	if spec.URL == _empty {
		spec.URL = DefaultURL
	}
	return spec
}
