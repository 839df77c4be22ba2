// Package expr checks the syntax of the condition expressions carried by
// if/else logic nodes.
//
// A condition is a boolean expression over upstream field names:
//
//	score >= 0.5
//	category == "billing" and score > 0.2
//	not (answer contains "unknown")
//
// Grammar: comparisons of the form <identifier> <op> <literal> combined
// with "and"/"or", negated with "not " or "!", grouped with parentheses.
// Operators: ==, !=, <, >, <=, >=, contains.
//
// Conditions are evaluated by the execution backend at run time; this
// package only decides whether an expression is well-formed, so malformed
// conditions are rejected at compile time instead of failing a run.
package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// Binary operators accepted in comparisons, longest first so that ">="
// is not split as ">" + "=".
var operators = []string{"==", "!=", "<=", ">=", "<", ">", " contains "}

// Check validates the syntax of a condition expression.
// Returns nil when the expression parses, or an error describing the
// first syntax problem found.
func Check(condition string) error {
	condition = strings.TrimSpace(condition)
	if condition == "" {
		return fmt.Errorf("condition is empty")
	}
	return checkExpr(condition)
}

// Fields returns the identifiers referenced by a condition, in order of
// first appearance. Returns nil when the condition does not parse.
func Fields(condition string) []string {
	var fields []string
	seen := make(map[string]struct{})
	collectFields(strings.TrimSpace(condition), seen, &fields)
	return fields
}

func checkExpr(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("empty sub-expression")
	}

	// Negation prefixes.
	if rest, ok := strings.CutPrefix(s, "not "); ok {
		return checkExpr(rest)
	}
	if rest, ok := strings.CutPrefix(s, "!"); ok {
		return checkExpr(rest)
	}

	// Fully parenthesized group.
	if strings.HasPrefix(s, "(") {
		if end := matchParen(s); end == len(s)-1 {
			return checkExpr(s[1:end])
		}
	}

	// Boolean connectives, split at the top nesting level only.
	for _, conn := range []string{" and ", " or ", " && ", " || "} {
		if left, right, ok := splitTopLevel(s, conn); ok {
			if err := checkExpr(left); err != nil {
				return err
			}
			return checkExpr(right)
		}
	}

	return checkComparison(s)
}

func collectFields(s string, seen map[string]struct{}, out *[]string) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "not "); ok {
		collectFields(rest, seen, out)
		return
	}
	if rest, ok := strings.CutPrefix(s, "!"); ok {
		collectFields(rest, seen, out)
		return
	}
	if strings.HasPrefix(s, "(") {
		if end := matchParen(s); end == len(s)-1 {
			collectFields(s[1:end], seen, out)
			return
		}
	}
	for _, conn := range []string{" and ", " or ", " && ", " || "} {
		if left, right, ok := splitTopLevel(s, conn); ok {
			collectFields(left, seen, out)
			collectFields(right, seen, out)
			return
		}
	}
	for _, op := range operators {
		if idx := strings.Index(s, op); idx > 0 {
			name := strings.TrimSpace(s[:idx])
			if isIdentifier(name) {
				if _, dup := seen[name]; !dup {
					seen[name] = struct{}{}
					*out = append(*out, name)
				}
			}
			return
		}
	}
}

// checkComparison validates a single <identifier> <op> <literal> clause.
func checkComparison(s string) error {
	for _, op := range operators {
		idx := strings.Index(s, op)
		if idx <= 0 {
			continue
		}
		left := strings.TrimSpace(s[:idx])
		right := strings.TrimSpace(s[idx+len(op):])
		if !isIdentifier(left) {
			return fmt.Errorf("left side of %q must be a field name, got %q", strings.TrimSpace(op), left)
		}
		if err := checkLiteral(right); err != nil {
			return fmt.Errorf("right side of %q: %w", strings.TrimSpace(op), err)
		}
		return nil
	}
	return fmt.Errorf("no comparison operator in %q", s)
}

func checkLiteral(s string) error {
	if s == "" {
		return fmt.Errorf("missing value")
	}
	if s == "true" || s == "false" {
		return nil
	}
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return nil
		}
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return nil
	}
	// Bare identifiers are allowed: comparing two upstream fields.
	if isIdentifier(s) {
		return nil
	}
	return fmt.Errorf("%q is not a quoted string, number, boolean, or field name", s)
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// matchParen returns the index of the parenthesis closing s[0], or -1.
func matchParen(s string) int {
	depth := 0
	inString := byte(0)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString != 0 {
			if c == inString {
				inString = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			inString = c
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitTopLevel splits s at the first occurrence of sep that is outside
// parentheses and string literals.
func splitTopLevel(s, sep string) (left, right string, ok bool) {
	depth := 0
	inString := byte(0)
	for i := 0; i+len(sep) <= len(s); i++ {
		c := s[i]
		if inString != 0 {
			if c == inString {
				inString = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			inString = c
		case '(':
			depth++
		case ')':
			depth--
		}
		if depth == 0 && inString == 0 && strings.HasPrefix(s[i:], sep) {
			return s[:i], s[i+len(sep):], true
		}
	}
	return "", "", false
}
