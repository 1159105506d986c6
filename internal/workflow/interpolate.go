package workflow

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// placeholderPattern matches `{{ name }}` placeholders. Whitespace inside
// the braces is tolerated and trimmed before lookup.
var placeholderPattern = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// Interpolate replaces every `{{name}}` occurrence in template with the
// stringified value bound to name in the context snapshot. Unmatched
// placeholders are left untouched so partially-configured workflows stay
// inspectable. Replacement is single-pass: placeholder text inside a
// substituted value is not expanded again.
func Interpolate(template string, vars map[string]any) string {
	if template == "" || len(vars) == 0 {
		return template
	}
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := strings.TrimSpace(placeholderPattern.FindStringSubmatch(match)[1])
		value, ok := vars[name]
		if !ok {
			return match
		}
		return Stringify(value)
	})
}

// Stringify renders a context value for interpolation. Strings pass
// through verbatim; numbers and booleans use their canonical form;
// composite values render as JSON so prompts stay readable.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case fmt.Stringer:
		return v.String()
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}
