// package hostsfetch ...
package hostsfetch

import (
	"bytes"
	"errors"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// const
const (
	_app              = "[hostsfetch] "
	_empty            = ""
	_MAX_DECOMPRESSED = 256 << 20
)

// info ...
func info(msg string, kv ...any) { log.Info(_app+msg, kv...) }

// debug ...
func debug(msg string, kv ...any) { log.Debug(_app+msg, kv...) }

// isReadable ...
func isReadable(filename string) bool {
	f, err := os.Open(filename)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

// algoByName picks the decompressor from the url path or file name
func algoByName(name string) string {
	if u, err := url.Parse(name); err == nil && u.Scheme != _empty {
		name = u.Path
	}
	switch {
	case strings.HasSuffix(name, ".zst"):
		return "ZSTD"
	case strings.HasSuffix(name, ".gz"):
		return "GZIP"
	}
	return _empty
}

// decompressByName ...
func decompressByName(name string, data []byte) ([]byte, error) {
	algo := algoByName(name)
	if algo == _empty {
		return data, nil
	}
	out, err := decompress(algo, data)
	if err != nil {
		return nil, errors.New("[decompress] [" + algo + "] [" + err.Error() + "]")
	}
	debug("decompressed", "algo", algo, "in", len(data), "out", len(out))
	return out, nil
}

// decompress ...
func decompress(algo string, data []byte) ([]byte, error) {
	br := bytes.NewReader(data)
	switch algo {
	case "ZSTD":
		r, err := zstd.NewReader(br)
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return readBounded(r)
	case "GZIP":
		r, err := gzip.NewReader(br)
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return readBounded(r)
	}
	return nil, errors.New("unsupported de-compress algo [" + algo + "]")
}

// readBounded ...
func readBounded(r io.Reader) ([]byte, error) {
	out, err := io.ReadAll(io.LimitReader(r, _MAX_DECOMPRESSED+1))
	if err != nil {
		return nil, err
	}
	if len(out) > _MAX_DECOMPRESSED {
		return nil, errTooLarge
	}
	return out, nil
}
