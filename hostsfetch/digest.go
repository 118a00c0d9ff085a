package hostsfetch

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"errors"
	"path"
	"strings"
)

// supported digest algorithms
const (
	AlgoSHA256  = "sha256"
	AlgoBLAKE2b = "blake2b" // blake2b-256
)

var errNoDigest = errors.New("no digest found")

// Digest is a declared checksum, Sum is lower case hex
type Digest struct {
	Algo string
	Sum  string
}

// IsZero reports whether no digest was declared
func (d Digest) IsZero() bool { return d.Sum == _empty }

// String ...
func (d Digest) String() string {
	if d.IsZero() {
		return _empty
	}
	return d.Algo + ":" + d.Sum
}

// ParseDigest accepts sha256:<hex>, blake2b:<hex> or a bare sha256 hex string
func ParseDigest(s string) (Digest, error) {
	s = strings.TrimSpace(s)
	algo, sum, ok := strings.Cut(s, ":")
	if !ok {
		algo, sum = AlgoSHA256, s
	}
	algo = strings.ToLower(strings.TrimSpace(algo))
	sum = strings.ToLower(strings.TrimSpace(sum))
	switch algo {
	case AlgoSHA256, AlgoBLAKE2b:
	default:
		return Digest{}, errors.New("unsupported digest algorithm [" + algo + "]")
	}
	b, err := hex.DecodeString(sum)
	if err != nil {
		return Digest{}, errors.New("invalid digest [" + sum + "] [" + err.Error() + "]")
	}
	if len(b) != 32 {
		return Digest{}, errors.New("invalid digest length [" + sum + "]")
	}
	return Digest{Algo: algo, Sum: sum}, nil
}

// ParseSumFile reads sha256sum output, preferring the line naming origin
func ParseSumFile(data []byte, origin string) (Digest, error) {
	base := path.Base(origin)
	var first string
	s := bufio.NewScanner(bytes.NewReader(data))
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == _empty || line[0] == '#' {
			continue
		}
		fields := strings.Fields(line)
		if first == _empty {
			first = fields[0]
		}
		if len(fields) > 1 && strings.TrimPrefix(fields[1], "*") == base {
			return ParseDigest(fields[0])
		}
	}
	if err := s.Err(); err != nil {
		return Digest{}, err
	}
	if first == _empty {
		return Digest{}, errNoDigest
	}
	return ParseDigest(first)
}
