package emailparse

// Category is the application status inferred from an email.
type Category string

const (
	CategoryApplied      Category = "APPLIED"
	CategoryInterviewing Category = "INTERVIEWING"
	CategoryOffer        Category = "OFFER"
	CategoryRejected     Category = "REJECTED"
	CategoryOnHold       Category = "ON_HOLD"
)

// DefaultCategory is returned when no detector matches.
const DefaultCategory = CategoryApplied

// Categories lists every category in scoring (tie-break) order.
func Categories() []Category {
	out := make([]Category, len(categoryDetectors))
	for i, d := range categoryDetectors {
		out[i] = d.category
	}
	return out
}

// CategoryScore is the number of detector matches a category collected.
type CategoryScore struct {
	Category Category `json:"category"`
	Score    int      `json:"score"`
}

// Scores counts, per category, the non-overlapping matches of each of its
// detectors summed together. The result follows scoring order.
func Scores(text string) []CategoryScore {
	out := make([]CategoryScore, len(categoryDetectors))
	for i, d := range categoryDetectors {
		score := 0
		for _, re := range d.patterns {
			score += len(re.FindAllStringIndex(text, -1))
		}
		out[i] = CategoryScore{Category: d.category, Score: score}
	}
	return out
}

// ClassifyStatus returns the category with the strictly highest score.
// Ties go to the category declared first; no matches at all yields
// DefaultCategory.
func ClassifyStatus(text string) Category {
	return pick(Scores(text))
}

func pick(scores []CategoryScore) Category {
	best, bestScore := DefaultCategory, 0
	for _, s := range scores {
		if s.Score > bestScore {
			best, bestScore = s.Category, s.Score
		}
	}
	return best
}
