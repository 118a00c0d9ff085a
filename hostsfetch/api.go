// package hostsfetch obtains hosts blocklist content from a remote url or a local file
package hostsfetch

// import
import (
	"context"
	"time"
)

// Spec describes where the content comes from
type Spec struct {
	URL         string        // remote source url, used when Path is empty
	Path        string        // local hosts file, bypasses the network
	Checksum    string        // optional declared digest [sha256:<hex>|blake2b:<hex>|<hex>]
	ChecksumURL string        // optional remote digest file [sha256sum format]
	Timeout     time.Duration // transport timeout, <= 0 means default
	UserAgent   string        // http user agent
	MaxSize     int64         // upper bound for the body, <= 0 means default
}

// Content is one run's blocklist
type Content struct {
	Data         []byte // [decompressed] table as it will be installed
	Raw          []byte // bytes as served, Digest and DeclaredSize refer to these
	Origin       string // url or local path
	Remote       bool   // fetched via network
	DeclaredSize int64  // size announced by the source, -1 if unknown
	Digest       Digest // declared digest, zero if none
}

// Obtain fetches spec.URL or reads spec.Path
func Obtain(ctx context.Context, spec Spec) (*Content, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if spec.Path != _empty {
		return loadLocal(spec)
	}
	return fetchRemote(ctx, spec)
}
