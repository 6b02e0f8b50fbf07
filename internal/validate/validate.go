package validate

import (
	"regexp"
	"strings"
)

// jidRe matches a bare JID: a non-empty local part, a single @, and a
// non-empty domain part.
var jidRe = regexp.MustCompile(`^[^@]+@[^@]+$`)

// JID reports whether s has the local@domain shape expected of an XMPP
// entity identifier. Resource suffixes and stricter RFC 6122 rules are
// deliberately out of scope; the relay performs its own canonicalization.
func JID(s string) bool {
	return jidRe.MatchString(s)
}

// HTTPURL reports whether s begins with an http:// or https:// scheme.
// The relay only needs the scheme gate; full URL parsing happens there.
func HTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
