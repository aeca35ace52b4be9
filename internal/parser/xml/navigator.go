package xml

import (
	"strings"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
)

// Fiscal documents may declare the portalfiscal namespace, a prefixed
// variant of it, or none at all. All navigation below matches elements on
// local name only so the same path works against every variant.

// localName strips any namespace prefix from a raw tag
func localName(tag string) string {
	if idx := strings.IndexByte(tag, ':'); idx >= 0 {
		return tag[idx+1:]
	}
	return tag
}

// matches reports whether the element's local name equals name
func matches(el *etree.Element, name string) bool {
	return localName(el.Tag) == name
}

// FindDescendant returns the first descendant (or the element itself) whose
// local name equals name, searching depth-first in document order.
func FindDescendant(el *etree.Element, name string) *etree.Element {
	if el == nil {
		return nil
	}
	if matches(el, name) {
		return el
	}
	for _, child := range el.ChildElements() {
		if found := FindDescendant(child, name); found != nil {
			return found
		}
	}
	return nil
}

// findBelow is FindDescendant restricted to strict descendants
func findBelow(el *etree.Element, name string) *etree.Element {
	if el == nil {
		return nil
	}
	for _, child := range el.ChildElements() {
		if found := FindDescendant(child, name); found != nil {
			return found
		}
	}
	return nil
}

// FindElement resolves a relative path of local element names. Each segment
// matches the first descendant of the current node with that local name.
// Returns nil when any segment is missing; never errors.
func FindElement(el *etree.Element, path ...string) *etree.Element {
	current := el
	for _, segment := range path {
		current = findBelow(current, segment)
		if current == nil {
			return nil
		}
	}
	return current
}

// FindText returns the trimmed text of the element at path, or "" when the
// path does not resolve or the element is empty.
func FindText(el *etree.Element, path ...string) string {
	found := FindElement(el, path...)
	if found == nil {
		return ""
	}
	return strings.TrimSpace(found.Text())
}

// FindDecimal parses the text at path as a decimal. Missing or unparseable
// values yield zero; one bad numeric field must never void an import.
func FindDecimal(el *etree.Element, path ...string) decimal.Decimal {
	text := FindText(el, path...)
	if text == "" {
		return decimal.Zero
	}
	value, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero
	}
	return value
}
