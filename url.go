package sitecheck

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
)

// schemeSeparator matches the scheme and the run of slashes or backslashes
// that follows it, e.g. "http:\\" or "https:////".
var schemeSeparator = regexp.MustCompile(`^(?i)(https?):[/\\]+`)

// URLEntry is a normalised absolute http or https URL.
//
// URLEntry values are the deduplication key for polling and result
// reporting: two inputs that normalise to the same URLEntry are polled once.
// Create them with [ParseURL] or [ParseURLs].
type URLEntry string

// String returns the URL as a string.
func (u URLEntry) String() string {
	return string(u)
}

// ParseURL normalises raw into a [URLEntry].
//
// The scheme and host are lowercased, internationalised host names are
// converted to their ASCII form, default ports (80 for http, 443 for https)
// and the fragment are dropped. Any run of slashes or backslashes after the
// scheme is read as "//". Path, query and user info are preserved.
//
// Returns an error wrapping [ErrInvalidInput] if raw is not an absolute
// http or https URL with a host.
func ParseURL(raw string) (URLEntry, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty url", ErrInvalidInput)
	}

	u, err := url.Parse(schemeSeparator.ReplaceAllString(raw, "$1://"))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: url %q must use http or https", ErrInvalidInput, raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: url %q has no host", ErrInvalidInput, raw)
	}

	host, port := strings.ToLower(u.Hostname()), u.Port()
	asciiHost := host
	if net.ParseIP(host) == nil {
		asciiHost, err = idna.Punycode.ToASCII(host)
		if err != nil {
			return "", fmt.Errorf("%w: url %q has an invalid host: %v", ErrInvalidInput, raw, err)
		}
	}

	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		u.Host = net.JoinHostPort(asciiHost, port)
	} else if strings.Contains(asciiHost, ":") {
		u.Host = "[" + asciiHost + "]" // IPv6 literal
	} else {
		u.Host = asciiHost
	}

	u.Fragment = ""
	u.RawFragment = ""

	return URLEntry(u.String()), nil
}

// ParseURLs normalises every line and removes duplicates, keeping the order
// in which URLs were first seen.
//
// Returns an error wrapping [ErrInvalidInput] naming the first line that
// fails to parse; no partial result is returned in that case.
func ParseURLs(lines []string) ([]URLEntry, error) {
	entries := make([]URLEntry, 0, len(lines))
	for i, line := range lines {
		entry, err := ParseURL(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		entries = append(entries, entry)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no urls", ErrInvalidInput)
	}
	return Dedupe(entries), nil
}

// Dedupe returns entries without repeats, preserving first-seen order.
// The input slice is not modified.
func Dedupe(entries []URLEntry) []URLEntry {
	seen := make(map[URLEntry]struct{}, len(entries))
	out := make([]URLEntry, 0, len(entries))
	for _, e := range entries {
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}
