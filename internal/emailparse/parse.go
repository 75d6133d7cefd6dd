// Package emailparse extracts application details from recruiter email text
// and infers the application status it implies.
//
// Everything here is a pure function over the input; the compiled pattern
// tables are package-level and read-only, so all functions are safe for
// concurrent use.
package emailparse

import "strings"

// Result is the merged output of field extraction and status classification.
type Result struct {
	Fields
	Status Category `json:"status"`
}

// Parse extracts fields and classifies the status of text.
func Parse(text string) Result {
	text = strings.TrimSpace(text)
	return Result{
		Fields: ExtractFields(text),
		Status: ClassifyStatus(text),
	}
}

// Explain is Parse plus the per-category scores behind the status.
func Explain(text string) (Result, []CategoryScore) {
	text = strings.TrimSpace(text)
	scores := Scores(text)
	return Result{Fields: ExtractFields(text), Status: pick(scores)}, scores
}
