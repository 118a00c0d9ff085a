package updatehosts

import (
	"context"
	"errors"
	"io"
	"strconv"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"paepcke.de/updatehosts/hostscheck"
	"paepcke.de/updatehosts/hostsfetch"
	"paepcke.de/updatehosts/hostsinstall"
)

// State of a run
type State int

// states
const (
	Start State = iota
	FetchOrLoad
	Verify
	Confirm
	Install
	Done
	Aborted
)

// String ...
func (s State) String() string {
	switch s {
	case Start:
		return "START"
	case FetchOrLoad:
		return "FETCH_OR_LOAD"
	case Verify:
		return "VERIFY"
	case Confirm:
		return "CONFIRM"
	case Install:
		return "INSTALL"
	case Done:
		return "DONE"
	case Aborted:
		return "ABORTED"
	}
	return "STATE(" + strconv.Itoa(int(s)) + ")"
}

// Decision taken at CONFIRM
type Decision int

// decisions
const (
	Undecided Decision = iota
	Accepted
	Declined
)

// String ...
func (d Decision) String() string {
	switch d {
	case Accepted:
		return "yes"
	case Declined:
		return "no"
	}
	return "undecided"
}

// Confirmer asks whether the target may be replaced
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc ...
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

// Confirm ...
func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) { return f(ctx, prompt) }

// ErrUserAborted is the result of a declined confirmation
var ErrUserAborted = errors.New("aborted by user, nothing changed")

// exit codes
const (
	ExitOK = iota
	ExitFailure
	ExitFetch
	ExitNotFound
	ExitIntegrity
	ExitPermission
	ExitWrite
	ExitAborted
)

// ExitCode maps a run error onto the process exit code, a failed cache flush is still a success
func ExitCode(err error) int {
	var (
		fe *hostsfetch.FetchError
		nf *hostsfetch.NotFoundError
		ie *hostscheck.IntegrityError
		pe *hostsinstall.PermissionError
		we *hostsinstall.WriteError
		se *hostsinstall.ServiceReloadError
	)
	switch {
	case err == nil, errors.As(err, &se):
		return ExitOK
	case errors.Is(err, ErrUserAborted):
		return ExitAborted
	case errors.As(err, &fe):
		return ExitFetch
	case errors.As(err, &nf):
		return ExitNotFound
	case errors.As(err, &ie):
		return ExitIntegrity
	case errors.As(err, &pe):
		return ExitPermission
	case errors.As(err, &we):
		return ExitWrite
	}
	return ExitFailure
}

// Prompt is the question put to the user for target
func Prompt(target string) string { return "Update " + target + " (y/N)? " }

// next ...
func (r *Result) next(s State) {
	r.State = s
	r.Trace = append(r.Trace, s)
	debug("state", "state", s.String())
}

// abort ...
func (r *Result) abort(err error) *Result {
	errOut("["+r.State.String()+"]", err)
	r.Err = err
	r.next(Aborted)
	return r
}

// decide runs the CONFIRM step, no confirmer means no
func decide(ctx context.Context, cfg *Config, target string) (Decision, error) {
	if cfg.AssumeYes {
		info("confirmation skipped, assume yes")
		return Accepted, nil
	}
	if cfg.Confirm == nil {
		return Declined, nil
	}
	ok, err := cfg.Confirm.Confirm(ctx, Prompt(target))
	if err != nil {
		return Undecided, err
	}
	if ok {
		return Accepted, nil
	}
	return Declined, nil
}

// upToDate compares the source date header with the installed one, unknown dates never match
func upToDate(fetched time.Time, in *hostsinstall.Installer) bool {
	if fetched.IsZero() {
		return false
	}
	current, err := in.Current()
	if err != nil {
		debug("no installed table to compare", "target", in.Target(), "error", err)
		return false
	}
	_, installed := hostscheck.HeaderDate(current)
	return !installed.IsZero() && !fetched.After(installed)
}

// _maxListed caps the suspicious lines shown in the summary
const _maxListed = 10

// summary prints the table report
func summary(w io.Writer, origin string, rep hostscheck.Report) {
	p := message.NewPrinter(language.English)
	p.Fprintf(w, "%s%s\n", pad("source", 20), origin)
	if rep.Date != _empty {
		p.Fprintf(w, "%s%s\n", pad("date", 20), rep.Date)
	}
	p.Fprintf(w, "%s%d\n", pad("unique domains", 20), rep.UniqueDomains)
	if rep.DeclaredDomains >= 0 && rep.DeclaredDomains != rep.UniqueDomains {
		p.Fprintf(w, "%s%d [header]\n", pad("declared domains", 20), rep.DeclaredDomains)
	}
	p.Fprintf(w, "%s%d\n", pad("entries", 20), rep.Entries)
	p.Fprintf(w, "%s%d\n", pad("lines", 20), rep.Lines)
	p.Fprintf(w, "%s%d bytes\n", pad("size", 20), rep.Size)
	if rep.Digest != _empty {
		p.Fprintf(w, "%s%s [ok]\n", pad("digest", 20), rep.Digest)
	}
	if len(rep.Suspicious) == 0 {
		return
	}
	p.Fprintf(w, "\nSECURITY WARNING: %d suspicious line(s), inspect before installing\n", len(rep.Suspicious))
	for i, l := range rep.Suspicious {
		if i == _maxListed {
			p.Fprintf(w, "... %d more\n", len(rep.Suspicious)-_maxListed)
			break
		}
		note := _empty
		if l.Tolerated {
			note = " [tolerated]"
		}
		p.Fprintf(w, "line %d: %q%s\n", l.N+1, l.Text, note)
	}
}
