package updatehosts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"paepcke.de/updatehosts/hostscheck"
	"paepcke.de/updatehosts/hostsfetch"
	"paepcke.de/updatehosts/hostsinstall"
)

var _seed = []byte("127.0.0.1 localhost\n::1 localhost\n")

// table builds a blocklist of at least size bytes
func table(size int) []byte {
	var b bytes.Buffer
	b.WriteString("# Title: test list\n# Date: 18 October 2026 21:03:44 (UTC)\n#\n")
	b.WriteString("127.0.0.1 localhost\n::1 localhost\n\n")
	for i := 0; b.Len() < size; i++ {
		fmt.Fprintf(&b, "0.0.0.0 ads%d.tracker-example.com\n", i)
	}
	return b.Bytes()
}

type fakeReloader struct {
	calls atomic.Int32
	err   error
}

func (f *fakeReloader) Reload(context.Context) error {
	f.calls.Add(1)
	return f.err
}

type fakeConfirm struct {
	answer bool
	prompt string
	asked  int
}

func (f *fakeConfirm) Confirm(_ context.Context, prompt string) (bool, error) {
	f.asked++
	f.prompt = prompt
	return f.answer, nil
}

func seedTarget(t *testing.T) string {
	t.Helper()
	target := filepath.Join(t.TempDir(), "hosts")
	if err := os.WriteFile(target, _seed, 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return target
}

func serve(t *testing.T, status int, body []byte) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	hits := &atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.WriteHeader(status)
		w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv, hits
}

func assertUntouched(t *testing.T, target string) {
	t.Helper()
	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read target: %v", err)
	}
	if !bytes.Equal(got, _seed) {
		t.Fatalf("target was modified")
	}
}

func TestRunRemoteInstalls(t *testing.T) {
	body := table(50 * 1024)
	srv, hits := serve(t, http.StatusOK, body)
	target := seedTarget(t)
	rel := &fakeReloader{}
	conf := &fakeConfirm{answer: true}
	var out bytes.Buffer

	r := Run(context.Background(), &Config{URL: srv.URL + "/hosts", Target: target, Reloader: rel, Confirm: conf, Out: &out})
	if r.Err != nil {
		t.Fatalf("run: %v", r.Err)
	}
	want := []State{Start, FetchOrLoad, Verify, Confirm, Install, Done}
	if !reflect.DeepEqual(r.Trace, want) || r.State != Done {
		t.Fatalf("trace %v, want %v", r.Trace, want)
	}
	got, _ := os.ReadFile(target)
	if !bytes.Equal(got, body) {
		t.Fatalf("target content differs from fetched content")
	}
	if rel.calls.Load() != 1 || hits.Load() != 1 {
		t.Fatalf("reload calls %d, fetches %d", rel.calls.Load(), hits.Load())
	}
	if r.Decision != Accepted || conf.prompt != Prompt(target) {
		t.Fatalf("decision %v prompt %q", r.Decision, conf.prompt)
	}
	if r.Degraded || !r.Installed.Flushed {
		t.Fatalf("unexpected degraded run %+v", r.Installed)
	}
	if ExitCode(r.Err) != ExitOK {
		t.Fatalf("exit code %d", ExitCode(r.Err))
	}
	if !strings.Contains(out.String(), "unique domains") {
		t.Fatalf("summary missing: %s", out.String())
	}
}

func TestRunRemoteNotFound(t *testing.T) {
	srv, _ := serve(t, http.StatusNotFound, []byte("404: Not Found"))
	target := seedTarget(t)
	rel := &fakeReloader{}
	conf := &fakeConfirm{answer: true}

	r := Run(context.Background(), &Config{URL: srv.URL, Target: target, Reloader: rel, Confirm: conf, Out: &bytes.Buffer{}})
	var fe *hostsfetch.FetchError
	if !errors.As(r.Err, &fe) || fe.Status != http.StatusNotFound {
		t.Fatalf("expected FetchError 404, got %v", r.Err)
	}
	if r.State != Aborted || ExitCode(r.Err) == ExitOK {
		t.Fatalf("state %v exit %d", r.State, ExitCode(r.Err))
	}
	if conf.asked != 0 || rel.calls.Load() != 0 {
		t.Fatalf("run went past FETCH_OR_LOAD")
	}
	assertUntouched(t, target)
}

func TestRunMissingLocalFile(t *testing.T) {
	srv, hits := serve(t, http.StatusOK, table(4096))
	target := seedTarget(t)

	r := Run(context.Background(), &Config{
		HostsFile: filepath.Join(t.TempDir(), "missing"),
		URL:       srv.URL,
		Target:    target,
		Reloader:  &fakeReloader{},
		Confirm:   &fakeConfirm{answer: true},
		Out:       &bytes.Buffer{},
	})
	var nf *hostsfetch.NotFoundError
	if !errors.As(r.Err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", r.Err)
	}
	want := []State{Start, FetchOrLoad, Aborted}
	if !reflect.DeepEqual(r.Trace, want) {
		t.Fatalf("trace %v, want %v", r.Trace, want)
	}
	if hits.Load() != 0 {
		t.Fatalf("network touched in local mode")
	}
	if ExitCode(r.Err) != ExitNotFound {
		t.Fatalf("exit code %d", ExitCode(r.Err))
	}
	assertUntouched(t, target)
}

func TestRunDeclined(t *testing.T) {
	src := filepath.Join(t.TempDir(), "hosts.new")
	if err := os.WriteFile(src, table(8192), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	target := seedTarget(t)
	rel := &fakeReloader{}
	conf := &fakeConfirm{answer: false}

	r := Run(context.Background(), &Config{HostsFile: src, Target: target, Reloader: rel, Confirm: conf, Out: &bytes.Buffer{}})
	if !errors.Is(r.Err, ErrUserAborted) || r.Decision != Declined {
		t.Fatalf("expected decline, got %v %v", r.Err, r.Decision)
	}
	want := []State{Start, FetchOrLoad, Verify, Confirm, Aborted}
	if !reflect.DeepEqual(r.Trace, want) {
		t.Fatalf("trace %v, want %v", r.Trace, want)
	}
	if conf.asked != 1 || rel.calls.Load() != 0 {
		t.Fatalf("asked %d reloads %d", conf.asked, rel.calls.Load())
	}
	if ExitCode(r.Err) != ExitAborted {
		t.Fatalf("exit code %d", ExitCode(r.Err))
	}
	assertUntouched(t, target)
}

func TestRunNoConfirmerDeclines(t *testing.T) {
	src := filepath.Join(t.TempDir(), "hosts.new")
	if err := os.WriteFile(src, table(8192), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	target := seedTarget(t)

	r := Run(context.Background(), &Config{HostsFile: src, Target: target, Reloader: &fakeReloader{}, Out: &bytes.Buffer{}})
	if !errors.Is(r.Err, ErrUserAborted) {
		t.Fatalf("expected decline, got %v", r.Err)
	}
	assertUntouched(t, target)
}

func TestRunAssumeYes(t *testing.T) {
	body := table(8192)
	src := filepath.Join(t.TempDir(), "hosts.new")
	if err := os.WriteFile(src, body, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	target := seedTarget(t)
	conf := &fakeConfirm{answer: false}

	r := Run(context.Background(), &Config{HostsFile: src, Target: target, Reloader: &fakeReloader{}, Confirm: conf, AssumeYes: true, Out: &bytes.Buffer{}})
	if r.Err != nil || r.Decision != Accepted {
		t.Fatalf("run: %v %v", r.Err, r.Decision)
	}
	if conf.asked != 0 {
		t.Fatalf("prompted despite assume yes")
	}
	if r.Trace[3] != Confirm {
		t.Fatalf("CONFIRM state skipped: %v", r.Trace)
	}
	got, _ := os.ReadFile(target)
	if !bytes.Equal(got, body) {
		t.Fatalf("target not installed")
	}
}

func TestRunIntegrityFailure(t *testing.T) {
	cases := map[string][]byte{
		"too small": []byte("0.0.0.0 ads.example.com\n"),
		"html":      []byte("<html>" + strings.Repeat("<p>error page</p>", 200) + "</html>\n"),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			src := filepath.Join(t.TempDir(), "hosts.new")
			if err := os.WriteFile(src, data, 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			target := seedTarget(t)
			conf := &fakeConfirm{answer: true}

			r := Run(context.Background(), &Config{HostsFile: src, Target: target, Reloader: &fakeReloader{}, Confirm: conf, Out: &bytes.Buffer{}})
			var ie *hostscheck.IntegrityError
			if !errors.As(r.Err, &ie) {
				t.Fatalf("expected IntegrityError, got %v", r.Err)
			}
			if conf.asked != 0 || r.State != Aborted {
				t.Fatalf("run went past VERIFY: %v", r.Trace)
			}
			if ExitCode(r.Err) != ExitIntegrity {
				t.Fatalf("exit code %d", ExitCode(r.Err))
			}
			assertUntouched(t, target)
		})
	}
}

func TestRunChecksumMismatch(t *testing.T) {
	body := table(8192)
	srv, _ := serve(t, http.StatusOK, body)
	target := seedTarget(t)

	r := Run(context.Background(), &Config{
		URL:      srv.URL,
		Checksum: "sha256:" + strings.Repeat("0", 64),
		Target:   target,
		Reloader: &fakeReloader{},
		Confirm:  &fakeConfirm{answer: true},
		Out:      &bytes.Buffer{},
	})
	var ie *hostscheck.IntegrityError
	if !errors.As(r.Err, &ie) || ie.Reason != hostscheck.ReasonChecksumMismatch {
		t.Fatalf("expected checksum mismatch, got %v", r.Err)
	}
	assertUntouched(t, target)
}

func TestRunDegradedReload(t *testing.T) {
	body := table(8192)
	srv, _ := serve(t, http.StatusOK, body)
	target := seedTarget(t)
	rel := &fakeReloader{err: errors.New("unit NetworkManager.service not found")}

	r := Run(context.Background(), &Config{URL: srv.URL, Target: target, Reloader: rel, Confirm: &fakeConfirm{answer: true}, Out: &bytes.Buffer{}})
	var se *hostsinstall.ServiceReloadError
	if !errors.As(r.Err, &se) {
		t.Fatalf("expected ServiceReloadError, got %v", r.Err)
	}
	if r.State != Done || !r.Degraded {
		t.Fatalf("state %v degraded %v", r.State, r.Degraded)
	}
	if ExitCode(r.Err) != ExitOK {
		t.Fatalf("degraded run must exit 0, got %d", ExitCode(r.Err))
	}
	got, _ := os.ReadFile(target)
	if !bytes.Equal(got, body) {
		t.Fatalf("target not installed")
	}
}

func TestRunSummary(t *testing.T) {
	var b bytes.Buffer
	b.Write(table(0))
	for i := 0; i < 1500; i++ {
		fmt.Fprintf(&b, "0.0.0.0 ads%d.tracker-example.com\n", i)
	}
	b.WriteString("1.2.3.4 evil.example.com\n")
	src := filepath.Join(t.TempDir(), "hosts.new")
	if err := os.WriteFile(src, b.Bytes(), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	var out bytes.Buffer

	r := Run(context.Background(), &Config{HostsFile: src, Target: seedTarget(t), Reloader: &fakeReloader{}, Confirm: &fakeConfirm{}, Out: &out})
	if r.Report == nil || r.Report.UniqueDomains != 1500 {
		t.Fatalf("unexpected report %+v", r.Report)
	}
	s := out.String()
	for _, want := range []string{"1,500", "SECURITY WARNING: 1 suspicious", "evil.example.com", "18 October 2026"} {
		if !strings.Contains(s, want) {
			t.Errorf("summary lacks %q:\n%s", want, s)
		}
	}
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{&hostsinstall.ServiceReloadError{Service: "x", Err: errors.New("x")}, ExitOK},
		{&hostsfetch.FetchError{URL: "u", Status: 500}, ExitFetch},
		{&hostsfetch.NotFoundError{Path: "p"}, ExitNotFound},
		{&hostscheck.IntegrityError{Reason: hostscheck.ReasonTooSmall}, ExitIntegrity},
		{&hostsinstall.PermissionError{Path: "p", Err: errors.New("x")}, ExitPermission},
		{&hostsinstall.WriteError{Op: "rename", Path: "p", Err: errors.New("x")}, ExitWrite},
		{fmt.Errorf("prompt: %w", ErrUserAborted), ExitAborted},
		{context.Canceled, ExitFailure},
	}
	for _, c := range cases {
		if got := ExitCode(c.err); got != c.want {
			t.Errorf("ExitCode(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestStateString(t *testing.T) {
	names := []string{"START", "FETCH_OR_LOAD", "VERIFY", "CONFIRM", "INSTALL", "DONE", "ABORTED"}
	for i, n := range names {
		if State(i).String() != n {
			t.Errorf("State(%d) = %s, want %s", i, State(i), n)
		}
	}
}

func TestRunUpToDate(t *testing.T) {
	body := table(8192)
	src := filepath.Join(t.TempDir(), "hosts.new")
	if err := os.WriteFile(src, body, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	target := filepath.Join(t.TempDir(), "hosts")
	installed := bytes.Replace(body, []byte("ads0."), []byte("old0."), 1)
	if err := os.WriteFile(target, installed, 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	rel := &fakeReloader{}
	conf := &fakeConfirm{answer: true}
	var out bytes.Buffer

	r := Run(context.Background(), &Config{HostsFile: src, Target: target, Reloader: rel, Confirm: conf, Out: &out})
	if r.Err != nil || !r.UpToDate {
		t.Fatalf("expected up to date, got %v %v", r.Err, r.UpToDate)
	}
	want := []State{Start, FetchOrLoad, Verify, Done}
	if !reflect.DeepEqual(r.Trace, want) {
		t.Fatalf("trace %v, want %v", r.Trace, want)
	}
	if conf.asked != 0 || rel.calls.Load() != 0 || r.Installed != nil {
		t.Fatalf("asked %d reloads %d installed %+v", conf.asked, rel.calls.Load(), r.Installed)
	}
	if ExitCode(r.Err) != ExitOK {
		t.Fatalf("exit code %d", ExitCode(r.Err))
	}
	if !strings.Contains(out.String(), "nothing to do") {
		t.Fatalf("missing report: %s", out.String())
	}
	got, _ := os.ReadFile(target)
	if !bytes.Equal(got, installed) {
		t.Fatalf("target was modified")
	}

	// force installs the same date anyway
	r = Run(context.Background(), &Config{HostsFile: src, Target: target, Reloader: rel, Confirm: conf, Force: true, Out: &bytes.Buffer{}})
	if r.Err != nil || r.UpToDate || r.State != Done || conf.asked != 1 {
		t.Fatalf("forced run: %v %v %v", r.Err, r.UpToDate, r.Trace)
	}
	got, _ = os.ReadFile(target)
	if !bytes.Equal(got, body) {
		t.Fatalf("target not installed")
	}
}

func TestRunNewerInstalls(t *testing.T) {
	older := bytes.Replace(table(8192), []byte("18 October 2026"), []byte("11 October 2026"), 1)
	target := filepath.Join(t.TempDir(), "hosts")
	if err := os.WriteFile(target, older, 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	body := table(8192)
	srv, _ := serve(t, http.StatusOK, body)
	conf := &fakeConfirm{answer: true}

	r := Run(context.Background(), &Config{URL: srv.URL, Target: target, Reloader: &fakeReloader{}, Confirm: conf, Out: &bytes.Buffer{}})
	if r.Err != nil || r.UpToDate || conf.asked != 1 {
		t.Fatalf("run: %v %v asked %d", r.Err, r.UpToDate, conf.asked)
	}
	got, _ := os.ReadFile(target)
	if !bytes.Equal(got, body) {
		t.Fatalf("target not installed")
	}

	// a newer installed table is not replaced by an older one
	newer := bytes.Replace(body, []byte("18 October 2026"), []byte("19 October 2026"), 1)
	if err := os.WriteFile(target, newer, 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	r = Run(context.Background(), &Config{URL: srv.URL, Target: target, Reloader: &fakeReloader{}, Confirm: conf, Out: &bytes.Buffer{}})
	if !r.UpToDate || r.State != Done || conf.asked != 1 {
		t.Fatalf("older source: %v %v asked %d", r.UpToDate, r.Trace, conf.asked)
	}
}
