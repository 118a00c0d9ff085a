package hostscheck

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"

	"paepcke.de/updatehosts/hostsfetch"
)

// Sum computes the digest of data with algo as lower case hex
func Sum(algo string, data []byte) (string, bool) {
	switch algo {
	case hostsfetch.AlgoSHA256:
		h := sha256.Sum256(data)
		return hex.EncodeToString(h[:]), true
	case hostsfetch.AlgoBLAKE2b:
		h := blake2b.Sum256(data)
		return hex.EncodeToString(h[:]), true
	}
	return "", false
}

// checkDigest ...
func checkDigest(data []byte, want hostsfetch.Digest) error {
	got, ok := Sum(want.Algo, data)
	if !ok {
		return &IntegrityError{Reason: ReasonChecksumMismatch, Detail: "unsupported algorithm " + want.Algo}
	}
	if subtle.ConstantTimeCompare([]byte(got), []byte(want.Sum)) != 1 {
		return &IntegrityError{Reason: ReasonChecksumMismatch, Detail: want.Algo + " " + got + " != " + want.Sum}
	}
	return nil
}
