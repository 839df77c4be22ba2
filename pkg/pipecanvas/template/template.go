// Package template handles the {field} placeholders that module
// instructions use to reference upstream signature fields, e.g.
//
//	"Answer the {question} using only the {context}."
//
// Placeholder resolution happens in the execution backend; the editor uses
// Placeholders to surface references to fields no upstream node provides.
package template

import (
	"fmt"
	"regexp"
)

// placeholderPattern matches {name} where name is a valid field identifier.
var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Placeholders returns the placeholder names referenced by s, in order of
// first appearance, without duplicates.
func Placeholders(s string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		name := m[1]
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// Expand replaces {name} placeholders in s with values from vars.
// Placeholders with no matching variable are kept as-is.
func Expand(s string, vars map[string]any) string {
	if s == "" {
		return ""
	}
	return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := match[1 : len(match)-1]
		if val, ok := vars[name]; ok {
			return fmt.Sprintf("%v", val)
		}
		return match
	})
}

// Unresolved returns the placeholders in s that have no entry in known.
func Unresolved(s string, known map[string]struct{}) []string {
	var missing []string
	for _, name := range Placeholders(s) {
		if _, ok := known[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
