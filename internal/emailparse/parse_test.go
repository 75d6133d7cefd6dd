package emailparse

import (
	"math/rand"
	"strings"
	"sync"
	"testing"
)

func TestParse_Scenarios(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Result
	}{
		{
			name: "application confirmation",
			text: "Thank you for applying for the Senior Backend Engineer role at Acme Corp. We have received your application and will be in touch.",
			want: Result{Fields: Fields{Company: "Acme Corp", Role: "Senior Backend Engineer"}, Status: CategoryApplied},
		},
		{
			name: "interview invite",
			text: "We would like to schedule a phone interview with you for the Data Scientist position at Initech.",
			want: Result{Fields: Fields{Company: "Initech", Role: "Data Scientist"}, Status: CategoryInterviewing},
		},
		{
			name: "rejection without names",
			text: "Unfortunately, after careful consideration we have decided to move forward with other candidates for this position.",
			want: Result{Status: CategoryRejected},
		},
		{
			name: "offer",
			text: "We are pleased to offer you the Software Engineer position at Globex. Please find the compensation package details attached.",
			want: Result{Fields: Fields{Company: "Globex", Role: "Software Engineer"}, Status: CategoryOffer},
		},
		{
			name: "remote only",
			text: "This position is fully remote.",
			want: Result{Fields: Fields{Location: "Remote"}, Status: CategoryApplied},
		},
		{
			name: "empty input",
			text: "",
			want: Result{Status: CategoryApplied},
		},
		{
			name: "whitespace only",
			text: " \n\t ",
			want: Result{Status: CategoryApplied},
		},
		{
			name: "headers and on-hold body",
			text: "Subject: Platform Engineer - Hooli\nFrom: Hooli Careers <jobs@hooli.com>\n\nHi Sam,\nThanks for your interest. We will keep your resume on file for future opportunities.\nLocation: Mountain View, CA",
			want: Result{Fields: Fields{Company: "Hooli", Role: "Platform Engineer", Location: "Mountain View, CA"}, Status: CategoryOnHold},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.text)
			if got != tt.want {
				t.Errorf("Parse() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestExtractFields_RejectedCandidateFallsThrough(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Fields
	}{
		{
			name: "company stop word moves to next rule",
			text: "Greetings from Our Recruiters.\nGlobex is hiring.",
			want: Fields{Company: "Globex"},
		},
		{
			name: "role stop word moves to next rule",
			text: "Position: Interview Scheduler\nWe see you as a Data Engineer.",
			want: Fields{Role: "Data Engineer"},
		},
		{
			name: "every candidate rejected",
			text: "Your interview for the Interview Coordinator position at Initech is confirmed.",
			want: Fields{Company: "Initech"},
		},
		{
			name: "company containing the",
			text: "A note from The Home Depot: you applied as a Warehouse Associate at our store.",
			want: Fields{Role: "Warehouse Associate"},
		},
		{
			name: "team signature",
			text: "Hi there, the Umbrella Talent Team is reviewing your application.",
			want: Fields{Company: "Umbrella"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractFields(tt.text)
			if got != tt.want {
				t.Errorf("ExtractFields() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestExtractFields_Location(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Role: Site Reliability Engineer\nLocation: Remote, US\n", "Remote, US"},
		{"We're hiring in San Francisco, CA for this team.", "San Francisco, CA"},
		{"The team is based in Austin, TX.", "Austin, TX"},
		{"You can work from home three days a week.", "Remote"},
		{"This role is remote-first.", "Remote"},
		{"Location:   ", ""},
		{"See you in the office.", ""},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := ExtractFields(tt.text).Location; got != tt.want {
				t.Errorf("Location = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassifyStatus_TieGoesToEarlierCategory(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Category
	}{
		{"offer beats applied", "We will discuss salary and contact you.", CategoryOffer},
		{"interviewing beats rejected", "Let's set up a call. Unfortunately we cannot move faster.", CategoryInterviewing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scores := Scores(tt.text)
			var top []Category
			max := 0
			for _, s := range scores {
				if s.Score > max {
					max, top = s.Score, []Category{s.Category}
				} else if s.Score == max && max > 0 {
					top = append(top, s.Category)
				}
			}
			if len(top) < 2 {
				t.Fatalf("expected a tie, scores = %+v", scores)
			}
			if got := ClassifyStatus(tt.text); got != tt.want {
				t.Errorf("ClassifyStatus() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClassifyStatus_SumsMatchCounts(t *testing.T) {
	text := "We are putting the position on hold and will reach out later when hiring resumes. We will keep your profile in our talent pool."
	scores := Scores(text)
	for _, s := range scores {
		if s.Category == CategoryOnHold && s.Score != 3 {
			t.Errorf("ON_HOLD score = %d, want 3", s.Score)
		}
	}
	if got := ClassifyStatus(text); got != CategoryOnHold {
		t.Errorf("ClassifyStatus() = %s, want %s", got, CategoryOnHold)
	}
}

func TestClassifyStatus_CaseInsensitive(t *testing.T) {
	if got := ClassifyStatus("CONGRATULATIONS, YOU HAVE BEEN SELECTED"); got != CategoryOffer {
		t.Errorf("ClassifyStatus() = %s, want %s", got, CategoryOffer)
	}
}

func TestExplain_MatchesParse(t *testing.T) {
	text := "We would like to schedule a phone interview with you for the Data Scientist position at Initech."
	res, scores := Explain(text)
	if res != Parse(text) {
		t.Errorf("Explain result %+v differs from Parse %+v", res, Parse(text))
	}
	if len(scores) != len(Categories()) {
		t.Fatalf("got %d scores, want %d", len(scores), len(Categories()))
	}
	for i, c := range Categories() {
		if scores[i].Category != c {
			t.Errorf("scores[%d] = %s, want %s", i, scores[i].Category, c)
		}
	}
}

var fragments = []string{
	"Thank you for applying", "at Acme Corp", "the", "Our", "interview", "position", "role",
	"remote", "Location: Denver, CO", "as a Designer,", "unfortunately not", "salary",
	"Subject: Re: SRE - Foo", "\n", "  ", ".", ",", "Dear Jo", "from", "with Zed Labs", "\x00\xff",
	"for the Staff Engineer job", "keep your resume on file", "working from home",
}

func randomText(r *rand.Rand) string {
	n := r.Intn(12)
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fragments[r.Intn(len(fragments))]
	}
	return strings.Join(parts, " ")
}

func TestParse_Properties(t *testing.T) {
	valid := map[Category]bool{}
	for _, c := range Categories() {
		valid[c] = true
	}
	r := rand.New(rand.NewSource(1))

	for i := 0; i < 2000; i++ {
		text := randomText(r)
		got := Parse(text)

		if !valid[got.Status] {
			t.Fatalf("Parse(%q).Status = %q, not a known category", text, got.Status)
		}
		checkName(t, text, "company", got.Company, companyStopWords)
		checkName(t, text, "role", got.Role, roleStopWords)
		if got.Location != "" && got.Location != remoteLocation {
			if got.Location != strings.TrimSpace(got.Location) || !strings.Contains(text, got.Location) {
				t.Fatalf("Parse(%q).Location = %q, not a trimmed substring", text, got.Location)
			}
		}
		if again := Parse(text); again != got {
			t.Fatalf("Parse(%q) not idempotent: %+v then %+v", text, got, again)
		}
	}
}

func checkName(t *testing.T, text, field, value string, stop []string) {
	t.Helper()
	if value == "" {
		return
	}
	if value != strings.TrimSpace(value) || len([]rune(value)) <= 2 {
		t.Fatalf("Parse(%q).%s = %q, fails length/trim check", text, field, value)
	}
	for _, w := range stop {
		if strings.Contains(strings.ToLower(value), w) {
			t.Fatalf("Parse(%q).%s = %q contains stop word %q", text, field, value, w)
		}
	}
}

func TestClassifyStatus_NoSignalDefaultsToApplied(t *testing.T) {
	for _, text := range []string{"", "hello", "lorem ipsum dolor sit amet", "\x00\x01\x02"} {
		if got := ClassifyStatus(text); got != CategoryApplied {
			t.Errorf("ClassifyStatus(%q) = %s, want %s", text, got, CategoryApplied)
		}
	}
}

func TestParse_ConcurrentCallsAgree(t *testing.T) {
	text := "We are pleased to offer you the Software Engineer position at Globex. Please find the compensation package details attached."
	want := Parse(text)

	var wg sync.WaitGroup
	errs := make(chan Result, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := Parse(text); got != want {
				errs <- got
			}
		}()
	}
	wg.Wait()
	close(errs)
	for got := range errs {
		t.Errorf("concurrent Parse() = %+v, want %+v", got, want)
	}
}

func FuzzParse(f *testing.F) {
	f.Add("Thank you for applying for the Senior Backend Engineer role at Acme Corp.")
	f.Add("Location: Remote")
	f.Add("")
	f.Fuzz(func(t *testing.T, text string) {
		got := Parse(text)
		checkName(t, text, "company", got.Company, companyStopWords)
		checkName(t, text, "role", got.Role, roleStopWords)
	})
}
