// Package updaters implements the shared status-string formatter and the
// per-destination updaters (VRChat, Discord status message, PluralKit).
// Discord Rich Presence is not a server-side updater (spec §4.4.5); its
// projection lives in package presence and is delivered over BridgeStream.
package updaters

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"sp2any/src/plurality"
)

// CleanPolicy selects how a fronter's display name is sanitized before
// being placed into a destination's status string.
type CleanPolicy int

const (
	// NoClean leaves the name untouched.
	NoClean CleanPolicy = iota
	// CleanForVRChat removes characters not representable in ISO-8859-15
	// and collapses whitespace runs into single spaces.
	CleanForVRChat
)

// VRChatMaxStatusLength is VRChat's status-line codepoint limit.
const VRChatMaxStatusLength = 23

// Format configures one call to FormatFrontingStatus.
type Format struct {
	Prefix                string
	StatusIfNoFronters    string
	TruncateNamesToLength int
	Cleaning              CleanPolicy
	MaxLength             *int // nil = unbounded
}

// FormatFrontingStatus implements the shared formatter, spec §4.4.1.
func FormatFrontingStatus(cfg Format, fronters []plurality.Fronter, usePluralKitName bool) string {
	if len(fronters) == 0 {
		return cfg.Prefix + " " + cfg.StatusIfNoFronters
	}

	names := make([]string, len(fronters))
	for i, f := range fronters {
		names[i] = nameFor(f, usePluralKitName, cfg.Cleaning)
	}

	long := cfg.Prefix + " " + strings.Join(names, ", ")
	short := cfg.Prefix + strings.Join(names, ",")

	truncatedNames := make([]string, len(names))
	for i, n := range names {
		truncatedNames[i] = takeCodepoints(n, cfg.TruncateNamesToLength)
	}
	truncated := cfg.Prefix + strings.Join(truncatedNames, ",")

	if cfg.MaxLength == nil {
		return long
	}

	candidates := []string{long, short, truncated}
	count := fmt.Sprintf("%s %d#", cfg.Prefix, len(fronters))
	candidates = append(candidates, count)

	best := ""
	bestLen := -1
	haveBest := false
	for _, c := range candidates {
		l := codepointLength(c)
		if l > *cfg.MaxLength {
			continue
		}
		if !haveBest || l > bestLen {
			best = c
			bestLen = l
			haveBest = true
		}
	}
	if !haveBest {
		// Nothing fits; return the shortest candidate (the count fallback)
		// even though it overflows, rather than silently dropping status.
		return count
	}
	return best
}

// nameFor resolves the display name for one fronter: a configured
// VRChat-specific override bypasses cleaning entirely; otherwise the
// resolved base/PluralKit name is cleaned per policy.
func nameFor(f plurality.Fronter, usePluralKitName bool, cleaning CleanPolicy) string {
	if f.VRChatStatusName != nil {
		return *f.VRChatStatusName
	}
	name := f.DisplayName(usePluralKitName)
	switch cleaning {
	case CleanForVRChat:
		return CleanNameForVRChatStatus(name)
	default:
		return name
	}
}

var iso885915Encoder = charmap.ISO8859_15.NewEncoder()

// CleanNameForVRChatStatus removes any character not representable in
// ISO-8859-15 and collapses whitespace runs into single spaces.
func CleanNameForVRChatStatus(name string) string {
	var b strings.Builder
	for _, r := range name {
		if _, err := iso885915Encoder.String(string(r)); err != nil {
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// StringCodepointsLength returns the number of Unicode codepoints (runes),
// not bytes, in s.
func StringCodepointsLength(s string) int {
	return codepointLength(s)
}

func codepointLength(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}

// takeCodepoints returns the first n codepoints of s (fewer if s is
// shorter).
func takeCodepoints(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
