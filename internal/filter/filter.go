package filter

import (
	"strings"

	"github.com/amishk599/applytrack/internal/model"
)

// Ensure SubjectFilter implements model.EmailFilter.
var _ model.EmailFilter = (*SubjectFilter)(nil)

// SubjectFilter matches emails whose subject contains any include keyword and
// none of the exclude keywords. Matching is case-insensitive. An empty include
// list is treated as "match all".
type SubjectFilter struct {
	include []string
	exclude []string
}

// NewSubjectFilter returns a filter over lower-cased copies of the keywords.
// Blank keywords are ignored.
func NewSubjectFilter(include, exclude []string) *SubjectFilter {
	return &SubjectFilter{
		include: lowerAll(include),
		exclude: lowerAll(exclude),
	}
}

// Match returns true if the email's subject passes both keyword lists.
// Emails without a subject are matched against their body instead.
func (f *SubjectFilter) Match(email model.Email) bool {
	subject := email.Subject
	if strings.TrimSpace(subject) == "" {
		subject = email.Body
	}
	subject = strings.ToLower(subject)

	for _, kw := range f.exclude {
		if strings.Contains(subject, kw) {
			return false
		}
	}

	if len(f.include) == 0 {
		return true
	}
	for _, kw := range f.include {
		if strings.Contains(subject, kw) {
			return true
		}
	}
	return false
}

func lowerAll(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			out = append(out, kw)
		}
	}
	return out
}
