package validate

import "testing"

func TestJID(t *testing.T) {
	valid := []string{"user@example.com", "a@b", "relay.bot@xmpp.internal"}
	for _, s := range valid {
		if !JID(s) {
			t.Errorf("JID(%q) = false; want true", s)
		}
	}

	invalid := []string{"", "user", "@example.com", "user@", "a@b@c"}
	for _, s := range invalid {
		if JID(s) {
			t.Errorf("JID(%q) = true; want false", s)
		}
	}
}

func TestHTTPURL(t *testing.T) {
	if !HTTPURL("http://bosh.example.com/http-bind") {
		t.Error("http URL rejected")
	}
	if !HTTPURL("https://bosh.example.com/http-bind") {
		t.Error("https URL rejected")
	}
	if HTTPURL("ftp://example.com") {
		t.Error("ftp URL accepted")
	}
	if HTTPURL("bosh.example.com") {
		t.Error("schemeless URL accepted")
	}
}
