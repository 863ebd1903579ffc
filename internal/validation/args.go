// Package validation gates untrusted UI input before it reaches
// process arguments. Every bd invocation that embeds an identifier or
// user text must pass through here first; the executor itself performs
// no validation.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// InvalidInputError reports a caller-supplied value that failed
// validation. The value is %q-escaped before it is echoed so control
// characters cannot reach a terminal or log raw.
type InvalidInputError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, escape(e.Value), e.Reason)
}

// escape renders a value safe for error text. Long values are
// truncated; %q escaping handles control characters.
func escape(s string) string {
	if len(s) > 64 {
		s = s[:64] + "..."
	}
	return strings.Trim(fmt.Sprintf("%q", s), `"`)
}

// shellMeta is the denylist of shell metacharacters rejected in issue
// IDs. The executor never uses a shell, so this is defense in depth
// against an ID leaking into some other tool's command line.
const shellMeta = ";&|$`()<>\"'\\*?[]{}~#"

// idPattern is the bd issue ID grammar: an optional project prefix
// ending in a dot, then prefix-suffix with alphanumerics and internal
// dots, hyphens and underscores (e.g. "bd-a3f8", "proj.web-12.1").
var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*-[A-Za-z0-9][A-Za-z0-9._-]*$`)

// SanitizeArg cleans a caller-supplied string for use as a CLI
// argument. Only NUL bytes are stripped: newlines and other whitespace
// are preserved verbatim because description and notes fields carry
// formatted text. Injection is prevented structurally (argv, never a
// shell), not by mangling content.
func SanitizeArg(s string) string {
	return strings.ReplaceAll(s, "\x00", "")
}

// ValidateIssueID checks an identifier against the bd ID grammar and
// the flag-injection and shell-metacharacter rules. It is the sole
// gate between untrusted UI input and process arguments.
func ValidateIssueID(id string) error {
	if id == "" {
		return &InvalidInputError{Field: "issue id", Value: id, Reason: "empty"}
	}
	if strings.HasPrefix(id, "-") {
		return &InvalidInputError{Field: "issue id", Value: id, Reason: "leading hyphen would be parsed as a flag"}
	}
	if strings.ContainsFunc(id, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f'
	}) {
		return &InvalidInputError{Field: "issue id", Value: id, Reason: "contains whitespace"}
	}
	if strings.ContainsAny(id, shellMeta) {
		return &InvalidInputError{Field: "issue id", Value: id, Reason: "contains shell metacharacter"}
	}
	if !idPattern.MatchString(id) {
		return &InvalidInputError{Field: "issue id", Value: id, Reason: "expected format prefix-suffix, e.g. bd-a3f8 or bd-a3f8.1"}
	}
	return nil
}

// ValidateFlagValue rejects free-text values with a leading hyphen,
// which bd's argument parser would otherwise read as a flag. Values
// passed after a "--" separator do not need this check.
func ValidateFlagValue(s, field string) error {
	if strings.HasPrefix(s, "-") {
		return &InvalidInputError{Field: field, Value: s, Reason: "leading hyphen would be parsed as a flag"}
	}
	return nil
}

// ExtractIssuePrefix extracts the prefix from an issue ID like
// "bd-123" -> "bd". Returns "" when the ID has no hyphen.
func ExtractIssuePrefix(issueID string) string {
	idx := strings.Index(issueID, "-")
	if idx <= 0 {
		return ""
	}
	return issueID[:idx]
}
