package locator

import (
	"errors"
	"net/url"
	"strings"
)

const (
	// CanonicalHost is the host every accepted locator is rewritten to.
	CanonicalHost = "www.youtube.com"

	videoDomain = "youtube.com"
	shortHost   = "youtu.be"
)

// ErrInvalid is returned when a string cannot be turned into a canonical locator.
var ErrInvalid = errors.New("invalid youtube url")

// Normalize extracts the video ID from a watch URL (any host containing
// youtube.com, ID in the v query parameter) or a short link (youtu.be/<id>)
// and returns it as https://www.youtube.com/watch?v=<id>.
//
// Anything else, including strings that are not absolute URLs, yields ErrInvalid.
// Upstream returns 410 Gone for some non-canonical shapes, so callers must only
// hand the resolver what this returns.
func Normalize(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", ErrInvalid
	}

	host := strings.ToLower(u.Hostname())
	var id string
	switch {
	case strings.Contains(host, videoDomain):
		id = queryValue(u.RawQuery, "v")
	case host == shortHost:
		id, _, _ = strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
	}
	if id == "" {
		return "", ErrInvalid
	}

	return Canonical(id), nil
}

// Canonical builds the canonical watch URL for a video ID.
func Canonical(id string) string {
	return "https://" + CanonicalHost + "/watch?v=" + url.QueryEscape(id)
}

// VideoID returns the v parameter of a canonical locator, or "" if there is none.
func VideoID(canonical string) string {
	u, err := url.Parse(canonical)
	if err != nil {
		return ""
	}
	return queryValue(u.RawQuery, "v")
}

// queryValue returns the first value of key in a raw query string. Pairs are
// split on & only, so a value containing ; is kept whole rather than dropped
// as url.ParseQuery would. Undecodable values are returned as written.
func queryValue(rawQuery, key string) string {
	for _, pair := range strings.Split(rawQuery, "&") {
		k, v, _ := strings.Cut(pair, "=")
		if k, err := url.QueryUnescape(k); err != nil || k != key {
			continue
		}
		if decoded, err := url.QueryUnescape(v); err == nil {
			return decoded
		}
		return v
	}
	return ""
}
