package reqctx

import (
	"net"
	"net/url"
	"strings"
)

// NormalizeURL canonicalizes raw for equality comparison.
//
// Scheme and host are lower-cased, default ports (80 for http, 443 for
// https) removed, the path is at least "/" with no trailing slash except at
// the root, the query is kept verbatim and the fragment is dropped.
// Relative references, including scheme-relative "//host/p" and root-relative
// "/p", are resolved against base when base has a host. mailto:, tel: and
// javascript: URIs are returned with only their scheme lower-cased and
// surrounding whitespace trimmed; tel: numbers also lose inner whitespace.
func NormalizeURL(raw, base string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if out, ok := opaqueURI(raw); ok {
		return out
	}

	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if u.Scheme == "" {
		if b, err := url.Parse(strings.TrimSpace(base)); err == nil && b.Host != "" {
			u = b.ResolveReference(u)
		}
	}
	return format(u)
}

// Origin returns scheme://host of a normalized URL, or "".
func Origin(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Scheme) + "://" + hostPort(u)
}

func opaqueURI(raw string) (string, bool) {
	lower := strings.ToLower(raw)
	for _, scheme := range []string{"mailto:", "tel:", "javascript:"} {
		if !strings.HasPrefix(lower, scheme) {
			continue
		}
		rest := strings.TrimSpace(raw[len(scheme):])
		if scheme == "tel:" {
			rest = strings.Join(strings.Fields(rest), "")
		}
		return scheme + rest, true
	}
	return "", false
}

func format(u *url.URL) string {
	var b strings.Builder
	scheme := strings.ToLower(u.Scheme)
	if scheme != "" {
		b.WriteString(scheme)
		b.WriteString(":")
	}
	if u.Host != "" {
		b.WriteString("//")
		b.WriteString(hostPort(u))
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	b.WriteString(path)

	if u.RawQuery != "" {
		b.WriteString("?")
		b.WriteString(u.RawQuery)
	} else if u.ForceQuery {
		b.WriteString("?")
	}
	return b.String()
}

func hostPort(u *url.URL) string {
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	switch strings.ToLower(u.Scheme) {
	case "http":
		if port == "80" {
			port = ""
		}
	case "https":
		if port == "443" {
			port = ""
		}
	}
	if port == "" {
		if strings.Contains(host, ":") {
			return "[" + host + "]"
		}
		return host
	}
	return net.JoinHostPort(host, port)
}
