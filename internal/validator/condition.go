package validator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/soochol/flowforge/internal/ir"
)

// forbiddenSubstrings are rejected anywhere in a condition string,
// regardless of surrounding tokenization (spec.md §3.4).
var forbiddenSubstrings = []string{
	"import", "exec", "eval", "__", "lambda", "open", "file", "`", ";",
}

// conditionTokenPattern matches one allowed token: an identifier, a
// numeric literal, a single- or double-quoted string literal, a
// comparison/logical/membership operator word, a symbolic operator, or a
// parenthesis. Anything a condition string contains that doesn't tile
// into this token set (function calls, indexing, dotted access, etc.) is
// unsafe.
var conditionTokenPattern = regexp.MustCompile(
	`^(?:` +
		`[a-z_][a-z0-9_]*` + // identifier / keyword operator (and, or, not, in, is)
		`|[0-9]+(?:\.[0-9]+)?` + // numeric literal
		`|'[^']*'` + // single-quoted string
		`|"[^"]*"` + // double-quoted string
		`|==|!=|>=|<=|>|<` + // comparison operators
		`|\(|\)` + // parentheses
		`)$`,
)

var tokenSplitPattern = regexp.MustCompile(
	`[a-z_][a-z0-9_]*|[0-9]+(?:\.[0-9]+)?|'[^']*'|"[^"]*"|==|!=|>=|<=|[><()]`,
)

var keywordOperators = map[string]bool{"and": true, "or": true, "not": true, "in": true, "is": true}

// CheckConditionSafety enforces invariant 9 / property P6: the forbidden
// substring filter, then a token walk that accepts only in-scope
// identifiers, literals, the allowed operator set, and balanced
// parentheses. It returns a descriptive error when the condition is
// unsafe, or nil when it is safe.
func CheckConditionSafety(condition string, scope Scope) error {
	if condition == "" {
		return nil
	}

	lower := strings.ToLower(condition)
	for _, bad := range forbiddenSubstrings {
		if strings.Contains(lower, bad) {
			return fmt.Errorf("condition contains forbidden substring %q", bad)
		}
	}

	substituted, unresolved := substituteRefs(condition, scope)
	if len(unresolved) > 0 {
		return fmt.Errorf("condition references out-of-scope variable(s): %s", strings.Join(unresolved, ", "))
	}

	if err := checkTokens(substituted, scope); err != nil {
		return err
	}

	// Cross-check with expr-lang's own parser/compiler: anything our token
	// walk missed that is still structurally invalid (unbalanced
	// expressions, stray operators) is caught here using a dummy
	// environment of the in-scope names.
	env := make(map[string]any, len(scope))
	for name := range scope {
		env[name] = nil
	}
	if _, err := expr.Compile(substituted, expr.Env(env)); err != nil {
		return fmt.Errorf("condition failed expression compilation: %w", err)
	}

	return nil
}

// substituteRefs replaces every {{name}} in s with the bare identifier
// name, collecting any reference not present in scope.
func substituteRefs(s string, scope Scope) (string, []string) {
	var unresolved []string
	substituted := ir.VarRefs(s)
	out := s
	for _, name := range substituted {
		if !scope[name] {
			unresolved = append(unresolved, name)
		}
	}
	out = varRefReplacer.ReplaceAllString(out, "$1")
	return out, unresolved
}

var varRefReplacer = regexp.MustCompile(`\{\{\s*([a-z_][a-z0-9_]*)\s*\}\}`)

// checkTokens walks s token-by-token, rejecting anything that does not
// tile into the allowed token set, and rejecting identifiers not in
// scope and not a recognized keyword operator.
func checkTokens(s string, scope Scope) error {
	remaining := s
	for len(strings.TrimSpace(remaining)) > 0 {
		remaining = strings.TrimLeft(remaining, " \t")
		if remaining == "" {
			break
		}
		loc := tokenSplitPattern.FindStringIndex(remaining)
		if loc == nil || loc[0] != 0 {
			return fmt.Errorf("condition contains an unsafe token near %q", firstN(remaining, 20))
		}
		token := remaining[loc[0]:loc[1]]
		if !conditionTokenPattern.MatchString(token) {
			return fmt.Errorf("condition contains an unsafe token %q", token)
		}
		if isIdentifierToken(token) && !keywordOperators[token] && !scope[token] {
			return fmt.Errorf("condition references out-of-scope identifier %q", token)
		}
		remaining = remaining[loc[1]:]
	}
	return nil
}

var identifierTokenPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

func isIdentifierToken(token string) bool {
	return identifierTokenPattern.MatchString(token)
}

func firstN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
