// package hostscheck verifies hosts content before it may be installed
package hostscheck

import (
	"bytes"
	"strconv"

	"paepcke.de/updatehosts/hostsfetch"
)

// DefaultMinSize is the smallest accepted table in bytes
const DefaultMinSize = 1024

// Options ...
type Options struct {
	MinSize int // content must be larger than this, <= 0 means DefaultMinSize
}

// Verified is content that passed Verify, it can not be built any other way
type Verified struct {
	data   []byte
	origin string
	report Report
}

// Data is the table to install
func (v *Verified) Data() []byte { return v.data }

// Origin ...
func (v *Verified) Origin() string { return v.origin }

// Report ...
func (v *Verified) Report() Report { return v.report }

// Verify runs the size, format and digest checks in that order
func Verify(c *hostsfetch.Content, opts Options) (*Verified, error) {
	minSize := opts.MinSize
	if minSize <= 0 {
		minSize = DefaultMinSize
	}
	if c == nil || len(c.Data) == 0 {
		return nil, &IntegrityError{Reason: ReasonTooSmall, Detail: "empty content"}
	}

	// checks and install see the same bytes, later changes to c do not leak in
	c = &hostsfetch.Content{
		Data:         bytes.Clone(c.Data),
		Raw:          bytes.Clone(c.Raw),
		Origin:       c.Origin,
		Remote:       c.Remote,
		DeclaredSize: c.DeclaredSize,
		Digest:       c.Digest,
	}

	// size
	if len(c.Data) <= minSize {
		return nil, &IntegrityError{Reason: ReasonTooSmall, Detail: strconv.Itoa(len(c.Data)) + " bytes, need more than " + strconv.Itoa(minSize)}
	}
	if c.DeclaredSize >= 0 && c.DeclaredSize != int64(len(rawOf(c))) {
		detail := "received " + strconv.Itoa(len(rawOf(c))) + " of " + strconv.FormatInt(c.DeclaredSize, 10) + " declared bytes"
		if int64(len(rawOf(c))) < c.DeclaredSize {
			return nil, &IntegrityError{Reason: ReasonTooSmall, Detail: "truncated, " + detail}
		}
		return nil, &IntegrityError{Reason: ReasonSizeMismatch, Detail: detail}
	}

	// format
	if bytes.IndexByte(c.Data, 0) >= 0 {
		return nil, &IntegrityError{Reason: ReasonWrongFormat, Detail: "binary content"}
	}
	report := analyze(c.Data)
	if report.Entries == 0 {
		return nil, &IntegrityError{Reason: ReasonWrongFormat, Detail: "no <ip> <hostname> entry found"}
	}

	// digest
	if !c.Digest.IsZero() {
		if err := checkDigest(rawOf(c), c.Digest); err != nil {
			return nil, err
		}
		report.Digest = c.Digest.String()
	}
	return &Verified{data: c.Data, origin: c.Origin, report: report}, nil
}

// rawOf ...
func rawOf(c *hostsfetch.Content) []byte {
	if c.Raw != nil {
		return c.Raw
	}
	return c.Data
}
