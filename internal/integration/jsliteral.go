package integration

import (
	"strings"

	"github.com/tidwall/gjson"
)

// ParseJSAssignment decodes a `name = <literal>;` script into its value
func ParseJSAssignment(text string) (gjson.Result, error) {
	text = strings.TrimSpace(text)
	idx := strings.Index(text, "=")
	if idx < 0 {
		return gjson.Result{}, malformed(text, "no assignment in script", nil)
	}
	body := strings.TrimSpace(text[idx+1:])
	body = strings.TrimSpace(strings.TrimSuffix(body, ";"))
	if body == "" || !gjson.Valid(body) {
		return gjson.Result{}, malformed(body, "assigned value is not a literal", nil)
	}
	return gjson.Parse(body), nil
}
