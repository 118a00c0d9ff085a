package hostscheck

import (
	"bytes"
	"net/netip"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Line is a numbered table line, N starts at 0
type Line struct {
	N    int
	Text string
	// Tolerated marks 0.0.0.0 entries whose only flaw is a '_' in a sub label
	Tolerated bool
}

// Report summarizes a verified table, it never changes the table
type Report struct {
	Size            int
	Lines           int
	Entries         int // well-formed <ip> <hostname> lines
	UniqueDomains   int // distinct names blocked via 0.0.0.0
	DeclaredDomains int // from the list header, -1 if absent
	Date            string
	DateParsed      time.Time
	Suspicious      []Line
	Digest          string
}

const (
	_blackhole   = "0.0.0.0"
	_hdrDate     = "# Date: "
	_commentChar = '#'
)

var reDeclared = regexp.MustCompile(`^# Number of unique domains: ([0-9,]{1,11})$`)

// dateLayouts cover the list header formats seen in the wild
var dateLayouts = []string{
	"2 January 2006 15:04:05 (MST)",
	"02 January 2006 15:04:05 (MST)",
	"January 2, 2006 15:04:05 (MST)",
	time.RFC1123,
	time.RFC3339,
}

// standard loopback, broadcast and ip6 entries of distribution hosts files
var systemEntries = []string{
	"127.0.0.1 localhost",
	"127.0.0.1 localhost.localdomain",
	"127.0.0.1 local",
	"255.255.255.255 broadcasthost",
	"::1 localhost",
	"::1 ip6-localhost",
	"::1 ip6-loopback",
	"fe80::1%lo0 localhost",
	"ff00::0 ip6-localnet",
	"ff00::0 ip6-mcastprefix",
	"ff02::1 ip6-allnodes",
	"ff02::2 ip6-allrouters",
	"ff02::3 ip6-allhosts",
}

// analyze ...
func analyze(data []byte) Report {
	r := Report{Size: len(data), DeclaredDomains: -1}
	seen := make(map[string]struct{})
	lines := strings.Split(string(data), "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	r.Lines = len(lines)
	for i, line := range lines {
		line = strings.TrimSuffix(line, "\r")

		// header
		if strings.HasPrefix(line, _hdrDate) && r.Date == "" {
			r.Date = strings.TrimSpace(line[len(_hdrDate):])
			r.DateParsed = parseDate(r.Date)
		}
		if m := reDeclared.FindStringSubmatch(line); m != nil && r.DeclaredDomains < 0 {
			if n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", "")); err == nil {
				r.DeclaredDomains = n
			}
		}

		// entries
		fields := strings.Fields(stripComment(line))
		if len(fields) >= 2 && IsEntry(fields[0], fields[1]) {
			r.Entries++
			if fields[0] == _blackhole && fields[1] != _blackhole {
				seen[strings.ToLower(fields[1])] = struct{}{}
			}
		}

		if bad, tolerated := suspicious(line); bad {
			r.Suspicious = append(r.Suspicious, Line{N: i, Text: line, Tolerated: tolerated})
		}
	}
	r.UniqueDomains = len(seen)
	return r
}

// isSystemEntry matches ip and name of a systemEntries pair as whole fields
func isSystemEntry(line string) bool {
	fields := strings.Fields(stripComment(line))
	if len(fields) != 2 {
		return false
	}
	for _, e := range systemEntries {
		ip, host, _ := strings.Cut(e, " ")
		if fields[0] == ip && fields[1] == host {
			return true
		}
	}
	return false
}

// HeaderDate returns the first "# Date:" header of a table, zero time if absent or unparsable
func HeaderDate(data []byte) (string, time.Time) {
	for len(data) > 0 {
		line := data
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			line, data = data[:i], data[i+1:]
		} else {
			data = nil
		}
		s := strings.TrimSuffix(string(line), "\r")
		if strings.HasPrefix(s, _hdrDate) {
			date := strings.TrimSpace(s[len(_hdrDate):])
			return date, parseDate(date)
		}
	}
	return "", time.Time{}
}

// IsEntry reports whether ip and host form a well-formed table entry
func IsEntry(ip, host string) bool {
	if _, err := netip.ParseAddr(ip); err != nil {
		return false
	}
	return IsHostname(host)
}

// suspicious flags lines that are neither comments, plain 0.0.0.0 blocks nor system entries
func suspicious(line string) (bad, tolerated bool) {
	if strings.ContainsAny(line, "\r\f\v") {
		return true, false
	}
	trimmed := strings.TrimLeft(line, " \t")
	if trimmed == "" || trimmed[0] == _commentChar {
		return false, false
	}
	if isSystemEntry(line) {
		return false, false
	}
	host, ok := blockTarget(line)
	if !ok {
		return true, false
	}
	if IsDomain(host) || isIPv4(host) {
		return false, false
	}
	return true, IsSubDomain(host)
}

// blockTarget returns the name of a "0.0.0.0 <name>[ # comment]" line
func blockTarget(line string) (string, bool) {
	rest, ok := strings.CutPrefix(line, _blackhole+" ")
	if !ok {
		return "", false
	}
	rest = strings.TrimRight(stripComment(rest), " \t")
	if rest == "" || strings.ContainsAny(rest, " \t") {
		return "", false
	}
	return rest, true
}

// stripComment ...
func stripComment(line string) string {
	if i := strings.IndexByte(line, _commentChar); i >= 0 {
		return line[:i]
	}
	return line
}

// isIPv4 ...
func isIPv4(s string) bool {
	a, err := netip.ParseAddr(s)
	return err == nil && a.Is4()
}

// parseDate ...
func parseDate(s string) time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
