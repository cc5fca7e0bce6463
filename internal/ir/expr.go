package ir

import "regexp"

// varRefPattern matches a variable reference of the form {{identifier}}.
// A dotted form like {{x.y}} does not match this pattern and is therefore
// rejected wherever it appears, per the "no nested access" rule.
var varRefPattern = regexp.MustCompile(`\{\{\s*([a-z_][a-z0-9_]*)\s*\}\}`)

// dottedRefPattern detects the forbidden {{x.y}} form so callers can
// distinguish "no reference at all" from "a reference using nested access".
var dottedRefPattern = regexp.MustCompile(`\{\{\s*[a-z_][a-z0-9_.]*\.[a-z0-9_]+\s*\}\}`)

// VarRefs returns the set of variable names referenced via {{name}} in s,
// in first-occurrence order (duplicates collapsed).
func VarRefs(s string) []string {
	matches := varRefPattern.FindAllStringSubmatch(s, -1)
	seen := make(map[string]bool, len(matches))
	var out []string
	for _, m := range matches {
		name := m[1]
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// HasDottedRef reports whether s contains a forbidden {{x.y}} reference.
func HasDottedRef(s string) bool {
	return dottedRefPattern.MatchString(s)
}
