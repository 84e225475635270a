// Package safety implements the static denylist check applied to submitted
// source before any process is spawned.
//
// This is defense-in-depth, not a security boundary: pattern matching on
// source text is trivially evaded by obfuscation (string concatenation,
// getattr tricks, encodings). The real isolation boundary is the execution
// backend — callers must never treat an accepted result as a safety
// guarantee.
package safety

import "regexp"

// rule pairs a compiled pattern with the message reported on a match.
type rule struct {
	pattern *regexp.Regexp
	reason  string
}

// The denylist covers three families of constructs:
//   - imports of OS / process / interpreter-control modules
//   - dynamic evaluation (a denylisted source can otherwise rebuild anything)
//   - direct file and interactive-input primitives
//
// Compiled once at package init; Check is safe for concurrent use.
var rules = []rule{
	{
		pattern: regexp.MustCompile(`(?m)^\s*(import|from)\s+(os|sys|subprocess|shutil|socket|ctypes|importlib)\b`),
		reason:  "import of a restricted module",
	},
	{
		pattern: regexp.MustCompile(`\b__import__\s*\(`),
		reason:  "use of __import__",
	},
	{
		pattern: regexp.MustCompile(`\beval\s*\(`),
		reason:  "use of eval",
	},
	{
		pattern: regexp.MustCompile(`\bexec\s*\(`),
		reason:  "use of exec",
	},
	{
		pattern: regexp.MustCompile(`\bcompile\s*\(`),
		reason:  "use of compile",
	},
	{
		pattern: regexp.MustCompile(`\bopen\s*\(`),
		reason:  "direct file access",
	},
	{
		pattern: regexp.MustCompile(`\binput\s*\(`),
		reason:  "interactive input is not supported",
	},
}

// Check scans source text against the denylist. It returns the reason for
// the first match and true if the code must be rejected.
func Check(code string) (reason string, rejected bool) {
	for _, r := range rules {
		if r.pattern.MatchString(code) {
			return r.reason, true
		}
	}
	return "", false
}
