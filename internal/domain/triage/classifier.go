package triage

const (
	// MinSimilarity is the lowest tf-idf cosine score the similarity
	// fallback accepts before defaulting to General Medicine.
	MinSimilarity = 0.10

	// PediatricAgeLimit is the age below which a General Medicine result is
	// nudged to Pediatrics.
	PediatricAgeLimit = 12
)

// Classifier maps free-text symptoms to a department. It is safe for
// concurrent use; all state is built in NewClassifier.
type Classifier struct {
	lex            *Lexicon
	index          *similarityIndex
	pediatricNudge bool
}

// ClassifierOption configures a Classifier.
type ClassifierOption func(*Classifier)

// WithPediatricNudge toggles the General Medicine to Pediatrics rewrite for
// patients younger than PediatricAgeLimit. It is on by default.
func WithPediatricNudge(enabled bool) ClassifierOption {
	return func(c *Classifier) { c.pediatricNudge = enabled }
}

// NewClassifier builds a classifier over lex, or over DefaultLexicon when
// lex is nil.
func NewClassifier(lex *Lexicon, opts ...ClassifierOption) *Classifier {
	if lex == nil {
		lex = DefaultLexicon()
	}
	c := &Classifier{
		lex:            lex,
		index:          newSimilarityIndex(lex),
		pediatricNudge: true,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Classify returns the recommended department for the symptom description.
// It never fails; unknown text yields General Medicine. Text with no content
// words (empty, punctuation or stop words only) yields General Medicine
// regardless of age.
func (c *Classifier) Classify(symptomText string, age int) Department {
	text := Normalize(symptomText)
	dept := c.route(text)
	if dept == GeneralMedicine && c.pediatricNudge && age < PediatricAgeLimit && len(contentWords(text)) > 0 {
		return Pediatrics
	}
	return dept
}

// MatchesEmergency reports whether the text contains an emergency override
// term after normalisation.
func (c *Classifier) MatchesEmergency(symptomText string) bool {
	return containsAny(Normalize(symptomText), c.lex.emergency)
}

// Similarity exposes the fallback scores for the given text, keyed by
// department. Used by the admin explain view and tests.
func (c *Classifier) Similarity(symptomText string) map[Department]float64 {
	return c.index.scores(Normalize(symptomText))
}

func (c *Classifier) route(text string) Department {
	if containsAny(text, c.lex.emergency) {
		return Emergency
	}
	if containsAny(text, c.lex.pregnancy) {
		return Gynecology
	}
	if containsAny(text, c.lex.child) {
		return Pediatrics
	}
	if d, ok := c.ruleOverride(text); ok {
		return d
	}
	if d, score := c.index.best(text); score >= MinSimilarity {
		return d
	}
	return GeneralMedicine
}

// ruleOverride returns the first rule department whose terms occur in text.
func (c *Classifier) ruleOverride(text string) (Department, bool) {
	for _, r := range c.lex.rules {
		if containsAny(text, r.terms) {
			return r.dept, true
		}
	}
	return "", false
}
