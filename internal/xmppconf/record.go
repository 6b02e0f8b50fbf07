package xmppconf

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/xmproxy/webapp/internal/validate"
)

// recognizedKeys lists every key the relay understands in xmpp-login.txt,
// in the canonical order used when writing the file.
var recognizedKeys = []string{
	"user",       // XMPP JID (required)
	"pw",         // Password (required, never logged)
	"adminbuddy", // Admin contact JID
	"bosh",       // Use BOSH transport (boolean)
	"boshurl",    // BOSH endpoint URL
	"boshhost",   // BOSH host
	"tlsverify",  // TLS certificate verification (boolean)
	"saslmech",   // SASL mechanism
}

var recognizedKeySet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(recognizedKeys))
	for _, key := range recognizedKeys {
		set[key] = struct{}{}
	}
	return set
}()

// Record is a parsed xmpp-login.txt: recognized keys mapped to string or
// bool values. Unknown keys never survive parsing and are silently dropped
// when writing.
type Record map[string]any

// Keys returns the recognized keys present in the record, sorted.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for key := range r {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// StringVal returns the value for key as a string, or "" when absent.
// Booleans render as their canonical literals.
func (r Record) StringVal(key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// BoolVal returns the value for key as a bool. Only a genuine boolean true
// counts; strings are never truthy.
func (r Record) BoolVal(key string) bool {
	v, _ := r[key].(bool)
	return v
}

// FromValues builds a record from decoded JSON values, applying the same
// rules as Parse: keys lowercased, unknown keys dropped, the literals
// true/false coerced to booleans.
func FromValues(values map[string]any) Record {
	record := Record{}
	for key, value := range values {
		key = strings.ToLower(strings.TrimSpace(key))
		if _, ok := recognizedKeySet[key]; !ok {
			continue
		}

		switch v := value.(type) {
		case nil:
			continue
		case bool:
			record[key] = v
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "true":
				record[key] = true
			case "false":
				record[key] = false
			default:
				record[key] = strings.TrimSpace(v)
			}
		default:
			record[key] = fmt.Sprintf("%v", v)
		}
	}
	return record
}

// Parse reads the line-oriented key: value format. Blank lines and lines
// starting with # are skipped, unknown keys are dropped, the last
// occurrence of a duplicate key wins, and the literals true/false
// (case-insensitive) become booleans.
func Parse(reader io.Reader) Record {
	record := Record{}

	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		if _, ok := recognizedKeySet[key]; !ok {
			continue
		}

		switch strings.ToLower(value) {
		case "true":
			record[key] = true
		case "false":
			record[key] = false
		default:
			record[key] = value
		}
	}

	return record
}

// ParseFile parses the file at path. A missing or unreadable file parses to
// an empty record: an unconfigured relay is a normal state, not an error.
func ParseFile(path string) Record {
	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[ConfigStore] failed to read %s: %v", path, err)
		}
		return Record{}
	}
	defer f.Close()

	return Parse(f)
}

// Encode renders the record in canonical key order. Absent keys and empty
// string values are omitted so the relay never sees placeholder lines.
func (r Record) Encode() []byte {
	var b strings.Builder
	for _, key := range recognizedKeys {
		value, ok := r[key]
		if !ok || value == nil {
			continue
		}
		rendered := r.StringVal(key)
		if rendered == "" {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", key, rendered)
	}
	return []byte(b.String())
}

// ValidationError reports a missing or malformed required field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validate checks the record against the relay's requirements: user and pw
// present, JID-shaped identifiers, and a sane BOSH URL when BOSH is enabled.
func (r Record) Validate() error {
	user := r.StringVal("user")
	if user == "" {
		return &ValidationError{Field: "user", Message: "JID (user) is required"}
	}
	if !validate.JID(user) {
		return &ValidationError{Field: "user", Message: "Invalid JID format. Expected: user@domain"}
	}

	if r.StringVal("pw") == "" {
		return &ValidationError{Field: "pw", Message: "Password is required"}
	}

	if adminbuddy := r.StringVal("adminbuddy"); adminbuddy != "" && !validate.JID(adminbuddy) {
		return &ValidationError{Field: "adminbuddy", Message: "Invalid admin buddy JID format"}
	}

	if r.BoolVal("bosh") {
		if boshurl := r.StringVal("boshurl"); boshurl != "" && !validate.HTTPURL(boshurl) {
			return &ValidationError{Field: "boshurl", Message: "BOSH URL must start with http:// or https://"}
		}
	}

	return nil
}
