package emailparse

import "regexp"

// Name fragments shared by several rules. Keyword anchors are matched
// case-insensitively through (?i:...) groups, while names must start each
// word with an upper-case letter so a capture ends at the first lower-case
// word or punctuation mark.
const (
	properName     = `[A-Z][A-Za-z0-9&'\-]*(?:[ \t]+(?:&[ \t]+)?[A-Z][A-Za-z0-9&'\-]*)*`
	properNameLazy = `[A-Z][A-Za-z0-9&'\-]*(?:[ \t]+(?:&[ \t]+)?[A-Z][A-Za-z0-9&'\-]*)*?`
	titleCased     = `[A-Z][A-Za-z0-9/+#\-]*(?:[ \t]+[A-Z][A-Za-z0-9/+#\-]*)*`
	placeName      = `[A-Z][A-Za-z\-]*(?:[ \t]+[A-Z][A-Za-z\-]*)*`
	stateCodes     = `NY|CA|TX|FL|WA|IL|MA|CO|GA|NC|AZ|VA|MD|NV|OR|DC`
)

// remoteLocation is the literal reported for remote-work detectors.
const remoteLocation = "Remote"

// patternRule is a single extraction attempt. group selects the capture
// group to report (0 is the whole match); a non-empty fixed value is
// reported verbatim instead of the matched text.
type patternRule struct {
	re    *regexp.Regexp
	group int
	fixed string
}

func capture(expr string) patternRule {
	return patternRule{re: regexp.MustCompile(expr), group: 1}
}

func literal(expr, value string) patternRule {
	return patternRule{re: regexp.MustCompile(expr), fixed: value}
}

// Rules are ordered most specific first; the first accepted candidate wins.
var (
	companyRules = []patternRule{
		capture(`\b(?i:at|with|from)\s+(` + properName + `)`),
		capture(`\b(?:The[ \t]+)?(` + properNameLazy + `)[ \t]+(?i:is hiring|has an opening|recruiting team|talent team|team|careers)\b`),
		capture(`(?m)^(?i:from):[ \t]*"?(` + properName + `)`),
	}

	roleRules = []patternRule{
		capture(`(?i)\bfor\s+(?:the|a|an)\s+([a-z0-9 /+#\-]+?)\s+(?:role|position|job)\b`),
		capture(`(?im)\b(?:role|position|job title|job|title):[ \t]*([a-z0-9 /+#\-]+)`),
		capture(`\b(?i:the|a|an)[ \t]+(` + titleCased + `)[ \t]+(?i:role|position|opening)\b`),
		capture(`(?i)\bas\s+an?\s+([a-z0-9 /+#\-]+?)(?:\s+at\b|\s+with\b|[.,])`),
		capture(`(?im)^subject:.*?([a-z0-9 /+#\-]+?)(?:\s+-\s+|\s+at\s+)`),
	}

	locationRules = []patternRule{
		capture(`(?i)\b(?:location|based|located)(?:\s+in)?:[ \t]*([a-z0-9 ,\-]+)`),
		capture(`\b(?i:in|at)[ \t]+(` + placeName + `,[ \t]*(?:` + stateCodes + `))\b`),
		literal(`(?i)\bremote`, remoteLocation),
		literal(`(?i)\bwork(?:ing)?\s+from\s+home\b`, remoteLocation),
	}
)

var (
	companyStopWords = []string{"your", "our", "this", "the", "please", "thank"}
	roleStopWords    = []string{"application", "interview", "position", "thank"}
)

// categoryDetectors is the scoring table. Its order is the tie-break order:
// when two categories share the highest score the earlier one wins.
var categoryDetectors = []struct {
	category Category
	patterns []*regexp.Regexp
}{
	{CategoryOffer, compileAll(
		`(?i)(?:pleased to|excited to|happy to|delighted to).*?(?:offer|extend).*?(?:position|role|job)`,
		`(?i)congratulations.*?(?:selected|chosen|offered)`,
		`(?i)offer.*?(?:position|role|job)`,
		`(?i)(?:salary|compensation|package|benefits)`,
		`(?i)starting date|start date|join.*?team`,
		`(?i)terms of employment|employment offer`,
	)},
	{CategoryInterviewing, compileAll(
		`(?i)(?:schedule|arrange|set up|invite).*?(?:interview|meeting|call)`,
		`(?i)(?:interview|meeting|call).*?(?:schedule|time|date)`,
		`(?i)next step.*?(?:interview|meet|call|speak)`,
		`(?i)(?:phone|video|in-person|onsite).*?interview`,
		`(?i)would like to.*?(?:meet|speak|interview)`,
		`(?i)interview.*?(?:process|round|panel)`,
	)},
	{CategoryRejected, compileAll(
		`(?i)unfortunately.*?(?:not|unable to|cannot)`,
		`(?i)(?:not|won't be).*?(?:moving forward|proceeding|selected|chosen)`,
		`(?i)decided to.*?(?:pursue|go with).*?other.*?candidate`,
		`(?i)(?:regret|sorry).*?(?:inform|tell).*?(?:not|unable)`,
		`(?i)after careful consideration.*?(?:not|unable|decided)`,
		`(?i)(?:other|different).*?(?:candidate|direction|fit)`,
		`(?i)thank you.*?interest.*?(?:however|unfortunately|but)`,
	)},
	{CategoryOnHold, compileAll(
		`(?i)keep.*?(?:resume|application|profile).*?(?:file|consideration)`,
		`(?i)future.*?(?:opportunities|openings|positions)`,
		`(?i)(?:on hold|paused|delayed).*?(?:hiring|process|position)`,
		`(?i)will.*?(?:contact|reach out).*?(?:future|later|when)`,
		`(?i)talent.*?(?:pool|pipeline|database)`,
	)},
	{CategoryApplied, compileAll(
		`(?i)(?:received|confirm).*?(?:application|submission)`,
		`(?i)thank you.*?(?:applying|submitting|interest)`,
		`(?i)application.*?(?:received|submitted|under review)`,
		`(?i)(?:reviewing|review).*?(?:application|submission|resume)`,
		`(?i)will be in touch|hear from us|contact you`,
	)},
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}
