package emailparse

import (
	"strings"
	"unicode/utf8"
)

// Fields holds the values recovered by ExtractFields. An empty string means
// the field was not found.
type Fields struct {
	Company  string `json:"company,omitempty"`
	Role     string `json:"role,omitempty"`
	Location string `json:"location,omitempty"`
}

// fieldRules pairs an ordered rule list with the sanity filter applied to
// every candidate it produces.
type fieldRules struct {
	rules     []patternRule
	minLen    int // candidates must be strictly longer than this
	stopWords []string
	trimSet   string
}

var (
	companyField  = fieldRules{rules: companyRules, minLen: 2, stopWords: companyStopWords}
	roleField     = fieldRules{rules: roleRules, minLen: 2, stopWords: roleStopWords}
	locationField = fieldRules{rules: locationRules, minLen: 1, trimSet: ",-"}
)

// ExtractFields recovers company, role and location from text. Each field is
// resolved independently: the first rule whose candidate passes the field's
// filter wins, and a rejected candidate falls through to the next rule.
func ExtractFields(text string) Fields {
	text = strings.TrimSpace(text)
	return Fields{
		Company:  companyField.extract(text),
		Role:     roleField.extract(text),
		Location: locationField.extract(text),
	}
}

func (f fieldRules) extract(text string) string {
	if text == "" {
		return ""
	}
	for _, r := range f.rules {
		loc := r.re.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}
		if r.fixed != "" {
			return r.fixed
		}
		start, end := loc[2*r.group], loc[2*r.group+1]
		if start < 0 {
			continue
		}
		candidate := f.clean(text[start:end])
		if f.accept(candidate) {
			return candidate
		}
	}
	return ""
}

func (f fieldRules) clean(s string) string {
	s = strings.TrimSpace(s)
	if f.trimSet != "" {
		s = strings.TrimSpace(strings.TrimRight(s, f.trimSet))
	}
	return s
}

func (f fieldRules) accept(candidate string) bool {
	if utf8.RuneCountInString(candidate) <= f.minLen {
		return false
	}
	lower := strings.ToLower(candidate)
	for _, w := range f.stopWords {
		if strings.Contains(lower, w) {
			return false
		}
	}
	return true
}
