package htmldoc

import "strings"

// Inline style helpers. Only the display declaration is touched; every other
// declaration is kept in order.

func declarations(style string) []string {
	var out []string
	for _, d := range strings.Split(style, ";") {
		if d = strings.TrimSpace(d); d != "" {
			out = append(out, d)
		}
	}
	return out
}

func isDisplay(decl string) bool {
	prop, _, ok := strings.Cut(decl, ":")
	return ok && strings.EqualFold(strings.TrimSpace(prop), "display")
}

func clearDisplay(style string) string {
	var kept []string
	for _, d := range declarations(style) {
		if !isDisplay(d) {
			kept = append(kept, d)
		}
	}
	if len(kept) == 0 {
		return ""
	}
	return strings.Join(kept, "; ") + ";"
}

// setDisplay replaces the first display declaration with value, in place,
// and drops any others. With no display declaration it appends one. An
// empty value removes the declaration.
func setDisplay(style, value string) string {
	if value == "" {
		return clearDisplay(style)
	}
	decl := "display: " + value
	var out []string
	placed := false
	for _, d := range declarations(style) {
		if !isDisplay(d) {
			out = append(out, d)
			continue
		}
		if !placed {
			out = append(out, decl)
			placed = true
		}
	}
	if !placed {
		out = append(out, decl)
	}
	return strings.Join(out, "; ") + ";"
}

func setDisplayNone(style string) string {
	return setDisplay(style, "none")
}

// displayValue returns the value of the first display declaration.
func displayValue(style string) (string, bool) {
	for _, d := range declarations(style) {
		if isDisplay(d) {
			_, v, _ := strings.Cut(d, ":")
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

func hasDisplayNone(style string) bool {
	for _, d := range declarations(style) {
		if !isDisplay(d) {
			continue
		}
		_, v, _ := strings.Cut(d, ":")
		if strings.EqualFold(strings.TrimSpace(v), "none") {
			return true
		}
	}
	return false
}
