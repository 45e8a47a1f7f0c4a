package resolver

import (
	"fmt"
	"strings"
)

// HasTemplates reports whether the string contains at least one {{path}}
// reference.
func HasTemplates(s string) bool {
	return templatePattern.MatchString(s)
}

// ExtractPaths returns every path referenced by the template, deduplicated,
// in first-occurrence order.
func ExtractPaths(template string) []string {
	matches := templatePattern.FindAllStringSubmatch(template, -1)

	paths := make([]string, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))

	for _, match := range matches {
		path := strings.TrimSpace(match[1])
		if _, dup := seen[path]; dup {
			continue
		}

		seen[path] = struct{}{}
		paths = append(paths, path)
	}

	return paths
}

// ValidateTemplate lints a template at author time. It reports empty
// references, references containing whitespace, and unbalanced brace counts.
// Resolution itself never consults these checks.
func ValidateTemplate(template string) []string {
	var errs []string

	if opens, closes := strings.Count(template, "{{"), strings.Count(template, "}}"); opens != closes {
		errs = append(errs, fmt.Sprintf("unbalanced template braces: %d opening vs %d closing", opens, closes))
	}

	for _, match := range templatePattern.FindAllStringSubmatch(template, -1) {
		path := strings.TrimSpace(match[1])

		if path == "" {
			errs = append(errs, "empty template reference {{}}")

			continue
		}

		if strings.ContainsAny(path, " \t\n") {
			errs = append(errs, fmt.Sprintf("template reference %q contains whitespace", path))
		}
	}

	return errs
}
