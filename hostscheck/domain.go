package hostscheck

import (
	"strings"

	"github.com/miekg/dns"
	"golang.org/x/net/idna"
)

// limits from rfc1035, rfc1123, rfc2181
const (
	_maxName  = 255
	_maxLabel = 63
	_minTLD   = 2
)

// IsHostname accepts any rfc1123 host name, single labels included
func IsHostname(host string) bool {
	return checkName(strings.ToLower(host), 1, false)
}

// IsDomain accepts a lower case domain with at least two labels and a sane tld
func IsDomain(name string) bool {
	return checkName(name, 2, false)
}

// IsSubDomain is IsDomain but tolerates '_' in labels left of the registered domain
func IsSubDomain(name string) bool {
	return checkName(name, 2, true)
}

// checkName ...
func checkName(name string, minLabels int, underscore bool) bool {
	if name == "" || len(name) > _maxName {
		return false
	}
	if _, ok := dns.IsDomainName(name); !ok {
		return false
	}
	labels := strings.Split(name, ".")
	n := len(labels)
	if n < minLabels {
		return false
	}
	for i, label := range labels {
		last := i == n-1
		if !checkLabel(label, underscore && i < n-2) {
			return false
		}
		if last && n > 1 && (len(label) < _minTLD || isNumeric(label)) {
			return false
		}
	}
	return true
}

// checkLabel ...
func checkLabel(label string, underscore bool) bool {
	l := len(label)
	if l == 0 || l > _maxLabel {
		return false
	}
	if label[0] == '-' || label[l-1] == '-' {
		return false
	}
	for i := 0; i < l; i++ {
		c := label[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-':
		case c == '_' && underscore:
		default:
			return false
		}
	}
	if strings.HasPrefix(label, "xn--") {
		if _, err := idna.Punycode.ToUnicode(label); err != nil {
			return false
		}
	}
	return true
}

// isNumeric ...
func isNumeric(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
