package sanitize

import "strings"

const defaultPresetName = "preset"

// PresetName normalizes value to a filesystem-safe preset name. Letters,
// digits, underscores, and hyphens pass through; every other character is
// replaced with an underscore. Leading and trailing underscores are trimmed
// and an empty result falls back to "preset".
func PresetName(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	res := strings.Trim(b.String(), "_")
	if res == "" {
		return defaultPresetName
	}
	return res
}
