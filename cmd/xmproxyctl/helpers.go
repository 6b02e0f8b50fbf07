package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xmproxy/webapp/internal/xmppconf"
)

// parseConfigArgs turns key=value command arguments into a config record.
// Keys the relay does not understand are rejected rather than silently
// dropped so typos surface at the prompt.
func parseConfigArgs(args []string) (xmppconf.Record, error) {
	values := make(map[string]any, len(args))
	for _, arg := range args {
		key, value, found := strings.Cut(arg, "=")
		if !found || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid argument %q, expected key=value", arg)
		}
		values[strings.TrimSpace(key)] = value
	}

	record := xmppconf.FromValues(values)
	if len(record) != len(values) {
		for key := range values {
			if _, ok := record[strings.ToLower(strings.TrimSpace(key))]; !ok {
				return nil, fmt.Errorf("unknown configuration key %q", key)
			}
		}
	}
	return record, nil
}

// formatConfig renders a masked configuration map as aligned key: value
// lines in a stable order.
func formatConfig(config map[string]any) string {
	if len(config) == 0 {
		return "(no configuration)"
	}

	keys := make([]string, 0, len(config))
	for key := range config {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		fmt.Fprintf(&b, "%-11s %v\n", key+":", config[key])
	}
	return strings.TrimRight(b.String(), "\n")
}
