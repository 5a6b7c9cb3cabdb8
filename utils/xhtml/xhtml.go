// Package xhtml prepares XHTML documents for the HTML5 parser.
package xhtml

import (
	"bytes"
	"regexp"
	"strings"
)

// HTML5 parser honors trailing slash only on void elements, other
// self-closing tags stay open and swallow following markup (<title/> turns
// the rest of the document into title text).
var selfClosingPattern = regexp.MustCompile(
	`<([A-Za-z][A-Za-z0-9:_.-]*)((?:\s+[^\s"'<>/=]+(?:\s*=\s*(?:"[^"]*"|'[^']*'|[^\s"'<>]+))?)*)\s*/>`)

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "keygen": true, "link": true,
	"meta": true, "param": true, "source": true, "track": true, "wbr": true,
}

// ExpandSelfClosing rewrites every self-closing non-void element into an
// explicit start and end tag pair. Void elements are kept as they are.
func ExpandSelfClosing(data []byte) []byte {
	if !bytes.Contains(data, []byte("/>")) {
		return data
	}
	return selfClosingPattern.ReplaceAllFunc(data, func(tag []byte) []byte {
		m := selfClosingPattern.FindSubmatch(tag)
		name := string(m[1])
		if voidElements[strings.ToLower(name)] {
			return tag
		}
		res := make([]byte, 0, len(tag)+len(name)+2)
		res = append(res, '<')
		res = append(res, m[1]...)
		res = append(res, m[2]...)
		res = append(res, "></"...)
		res = append(res, m[1]...)
		return append(res, '>')
	})
}
