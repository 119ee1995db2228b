package passage

import (
	"slices"
	"strings"
)

// DefaultVersion is used when a request names no translation.
const DefaultVersion = "ESV"

// PrimaryTranslations are the English translation codes served by default.
var PrimaryTranslations = []string{"ESV", "NIV", "KJV", "NASB", "NKJV", "NLT", "AMP", "MSG"}

// LocalizedTranslations are the German translation codes served by default.
var LocalizedTranslations = []string{"HOF", "LUTH1545", "NGU-DE", "SCH1951", "SCH2000"}

// Translations is a closed set of supported translation codes. Lookups
// ignore case; Canonical returns the code as registered.
type Translations struct {
	codes map[string]string
	order []string
}

// NewTranslations builds a set from one or more code lists. Blank entries are ignored.
func NewTranslations(lists ...[]string) Translations {
	t := Translations{codes: make(map[string]string)}
	for _, list := range lists {
		for _, code := range list {
			code = strings.TrimSpace(code)
			if code == "" {
				continue
			}
			key := strings.ToUpper(code)
			if _, ok := t.codes[key]; ok {
				continue
			}
			t.codes[key] = code
			t.order = append(t.order, code)
		}
	}
	return t
}

// DefaultTranslations returns PrimaryTranslations plus LocalizedTranslations.
func DefaultTranslations() Translations {
	return NewTranslations(PrimaryTranslations, LocalizedTranslations)
}

// Canonical returns the registered spelling of code and whether it is supported.
func (t Translations) Canonical(code string) (string, bool) {
	c, ok := t.codes[strings.ToUpper(strings.TrimSpace(code))]
	return c, ok
}

// Supports reports whether code is in the set.
func (t Translations) Supports(code string) bool {
	_, ok := t.Canonical(code)
	return ok
}

// Codes returns the supported codes in registration order.
func (t Translations) Codes() []string {
	return slices.Clone(t.order)
}

// Len returns the number of supported codes.
func (t Translations) Len() int {
	return len(t.order)
}
