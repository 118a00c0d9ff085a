// package hostsfetch ...
package hostsfetch

// import
import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"
)

// const
const (
	_DEFAULT_TIMEOUT   = 30 * time.Second
	_DEFAULT_USERAGENT = "updatehosts/1.0"
	_DEFAULT_MAXSIZE   = 64 << 20 // hosts lists with all extensions are ~5MB
	_MAX_SUMFILE       = 4 << 10
	_SUM_SUFFIX        = ".sha256"
)

var (
	errNoURL      = errors.New("no source url configured")
	errTooLarge   = errors.New("body exceeds size limit")
	errNotRegular = errors.New("not a regular file")
)

// errUnsupportedScheme ...
func errUnsupportedScheme(scheme string) error {
	return errors.New("unsupported url scheme [" + scheme + "]")
}

// fetchRemote ...
func fetchRemote(ctx context.Context, spec Spec) (*Content, error) {
	if spec.URL == _empty {
		return nil, &FetchError{Err: errNoURL}
	}

	// setup transport layer
	timeout := timeoutOrDefault(spec.Timeout)
	client := getClient(getTransport(getTlsConf(), timeout), timeout)
	ua := spec.UserAgent
	if ua == _empty {
		ua = _DEFAULT_USERAGENT
	}
	limit := spec.MaxSize
	if limit <= 0 {
		limit = _DEFAULT_MAXSIZE
	}

	// fetch body
	info("fetch", "url", spec.URL, "timeout", timeout)
	raw, declared, err := fetchBody(ctx, client, spec.URL, ua, limit)
	if err != nil {
		return nil, err
	}
	data, err := decompressByName(spec.URL, raw)
	if err != nil {
		return nil, &FetchError{URL: spec.URL, Err: err}
	}
	c := &Content{
		Data:         data,
		Raw:          raw,
		Origin:       spec.URL,
		Remote:       true,
		DeclaredSize: declared,
	}

	// declared digest, inline first
	switch {
	case spec.Checksum != _empty:
		if c.Digest, err = ParseDigest(spec.Checksum); err != nil {
			return nil, &FetchError{URL: spec.URL, Err: err}
		}
	case spec.ChecksumURL != _empty:
		sum, _, err := fetchBody(ctx, client, spec.ChecksumURL, ua, _MAX_SUMFILE)
		if err != nil {
			return nil, err
		}
		if c.Digest, err = ParseSumFile(sum, spec.URL); err != nil {
			return nil, &FetchError{URL: spec.ChecksumURL, Err: err}
		}
	}
	debug("fetched", "url", spec.URL, "bytes", len(raw), "declared", declared)
	return c, nil
}

// fetchBody performs exactly one GET, no retries
func fetchBody(ctx context.Context, client *http.Client, target, ua string, limit int64) ([]byte, int64, error) {
	request, err := getRequest(ctx, target, ua)
	if err != nil {
		return nil, -1, &FetchError{URL: target, Err: err}
	}
	resp, err := client.Do(request)
	if err != nil {
		return nil, -1, &FetchError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 2048))
		return nil, -1, &FetchError{URL: target, Status: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, -1, &FetchError{URL: target, Status: resp.StatusCode, Err: err}
	}
	if int64(len(data)) > limit {
		return nil, -1, &FetchError{URL: target, Status: resp.StatusCode, Err: errors.New(errTooLarge.Error() + " [" + strconv.FormatInt(limit, 10) + "]")}
	}
	return data, resp.ContentLength, nil
}

// loadLocal ...
func loadLocal(spec Spec) (*Content, error) {
	path := spec.Path
	fi, err := os.Stat(path)
	if err != nil {
		return nil, &NotFoundError{Path: path, Err: err}
	}
	if !fi.Mode().IsRegular() {
		return nil, &NotFoundError{Path: path, Err: errNotRegular}
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &NotFoundError{Path: path, Err: err}
	}
	data, err := decompressByName(path, raw)
	if err != nil {
		return nil, &NotFoundError{Path: path, Err: err}
	}
	c := &Content{
		Data:         data,
		Raw:          raw,
		Origin:       path,
		DeclaredSize: -1,
	}

	// declared digest, inline or sidecar
	sidecar := path + _SUM_SUFFIX
	switch {
	case spec.Checksum != _empty:
		if c.Digest, err = ParseDigest(spec.Checksum); err != nil {
			return nil, &NotFoundError{Path: path, Err: err}
		}
	case isReadable(sidecar):
		sum, err := os.ReadFile(sidecar)
		if err != nil {
			return nil, &NotFoundError{Path: sidecar, Err: err}
		}
		if c.Digest, err = ParseSumFile(sum, path); err != nil {
			return nil, &NotFoundError{Path: sidecar, Err: err}
		}
		info("use checksum file", "path", sidecar)
	}
	info("read", "path", path, "bytes", len(raw))
	return c, nil
}
