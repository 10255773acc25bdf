package triage

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Lexicon holds the substring-matched override terms and the per-department
// keyword bags used by the similarity fallback. A Lexicon is immutable once
// built; all terms are stored normalised.
type Lexicon struct {
	emergency []string
	pregnancy []string
	child     []string
	rules     []rule
	bags      map[Department][]string
}

type rule struct {
	dept  Department
	terms []string
}

// LexiconFile is the YAML layout accepted by LoadLexicon.
type LexiconFile struct {
	Emergency   []string            `yaml:"emergency"`
	Pregnancy   []string            `yaml:"pregnancy"`
	Child       []string            `yaml:"child"`
	Rules       []RuleFile          `yaml:"rules"`
	Departments map[string][]string `yaml:"departments"`
}

// RuleFile is one rule override. Rules are probed in file order and text
// containing any of Terms routes to Department.
type RuleFile struct {
	Department string   `yaml:"department"`
	Terms      []string `yaml:"terms"`
}

var defaultLexiconFile = LexiconFile{
	Emergency: []string{
		"emergency", "urgent", "severe chest pain", "can't breathe", "unconscious",
		"bleeding heavily", "overdose", "suicide", "accident", "trauma",
		"life threatening", "stroke", "severe bleeding", "difficulty breathing",
		"heart attack", "severe pain",
	},
	Pregnancy: []string{"pregnant", "pregnancy", "labor", "contractions"},
	Child:     []string{"baby", "infant", "child", "toddler"},
	Rules: []RuleFile{
		{Department: string(Cardiology), Terms: []string{"chest pain", "heart"}},
		{Department: string(Orthopedics), Terms: []string{"joint pain", "back pain", "fracture", "sprain"}},
		{Department: string(Dermatology), Terms: []string{"skin", "rash", "acne", "eczema"}},
		{Department: string(Neurology), Terms: []string{"headache", "migraine", "seizure", "stroke"}},
	},
	Departments: map[string][]string{
		string(GeneralMedicine): {
			"fever", "cough", "cold", "flu", "headache", "fatigue", "weakness",
			"nausea", "vomiting", "diarrhea", "stomach", "general", "tired",
			"sick", "unwell", "body ache", "muscle pain", "sore throat",
		},
		string(Cardiology): {
			"chest", "heart", "palpitation", "cardiac", "blood pressure",
			"chest pain", "shortness of breath", "breathing difficulty",
			"chest tightness", "angina", "hypertension", "heart rate", "cardiovascular",
		},
		string(Pulmonology): {
			"breathing", "cough", "lung", "asthma", "shortness of breath",
			"wheezing", "phlegm", "bronchitis", "pneumonia",
		},
		string(Orthopedics): {
			"joint", "bone", "fracture", "sprain", "back pain", "neck pain",
			"knee pain", "shoulder pain", "hip pain", "arthritis", "muscle",
			"ligament", "tendon", "sports injury", "mobility", "walking difficulty",
		},
		string(Gynecology): {
			"pregnancy", "pregnant", "menstrual", "period", "pelvic pain",
			"vaginal", "uterine", "ovarian", "breast", "reproductive",
			"gynecological", "women health", "contraception", "fertility",
		},
		string(Pediatrics): {
			"baby", "infant", "child", "toddler", "pediatric", "vaccination",
			"growth", "development", "feeding", "crying", "diaper",
		},
		string(Dermatology): {
			"skin", "rash", "acne", "eczema", "psoriasis", "mole", "itching",
			"burning", "dermatitis", "allergic reaction", "hives", "wound",
			"cut", "burn", "bruise", "skin condition",
		},
		string(Neurology): {
			"headache", "migraine", "seizure", "stroke", "numbness", "tingling",
			"paralysis", "memory loss", "confusion", "dizziness", "vertigo",
			"neurological", "brain", "nerve", "spinal",
		},
	},
}

var defaultLexicon = mustLexicon(defaultLexiconFile)

// DefaultLexicon returns the built-in lexicon shared by the whole process.
func DefaultLexicon() *Lexicon {
	return defaultLexicon
}

// DefaultLexiconFile returns a copy of the built-in table, e.g. as a starting
// point for an override file.
func DefaultLexiconFile() LexiconFile {
	f := LexiconFile{
		Emergency:   append([]string(nil), defaultLexiconFile.Emergency...),
		Pregnancy:   append([]string(nil), defaultLexiconFile.Pregnancy...),
		Child:       append([]string(nil), defaultLexiconFile.Child...),
		Rules:       make([]RuleFile, len(defaultLexiconFile.Rules)),
		Departments: make(map[string][]string, len(defaultLexiconFile.Departments)),
	}
	for i, r := range defaultLexiconFile.Rules {
		f.Rules[i] = RuleFile{Department: r.Department, Terms: append([]string(nil), r.Terms...)}
	}
	for d, terms := range defaultLexiconFile.Departments {
		f.Departments[d] = append([]string(nil), terms...)
	}
	return f
}

// LoadLexicon reads a YAML lexicon from path.
func LoadLexicon(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon %s: %w", path, err)
	}
	lex, err := ParseLexicon(data)
	if err != nil {
		return nil, fmt.Errorf("lexicon %s: %w", path, err)
	}
	return lex, nil
}

// ParseLexicon builds a lexicon from YAML.
func ParseLexicon(data []byte) (*Lexicon, error) {
	var f LexiconFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse lexicon: %w", err)
	}
	return NewLexicon(f)
}

// NewLexicon validates f and normalises every term.
func NewLexicon(f LexiconFile) (*Lexicon, error) {
	if len(f.Emergency) == 0 {
		return nil, fmt.Errorf("lexicon has no emergency terms")
	}
	lex := &Lexicon{
		emergency: normalizeTerms(f.Emergency),
		pregnancy: normalizeTerms(f.Pregnancy),
		child:     normalizeTerms(f.Child),
		bags:      make(map[Department][]string, len(f.Departments)),
	}
	for name, terms := range f.Departments {
		d := Department(name)
		if !InCatalog(d) {
			return nil, fmt.Errorf("unknown department %q", name)
		}
		if d == Emergency {
			return nil, fmt.Errorf("emergency routing uses the emergency term list, not a department bag")
		}
		lex.bags[d] = normalizeTerms(terms)
	}
	for _, r := range f.Rules {
		d := Department(r.Department)
		if !InCatalog(d) || d == Emergency {
			return nil, fmt.Errorf("rule override names invalid department %q", r.Department)
		}
		terms := normalizeTerms(r.Terms)
		if len(terms) == 0 {
			return nil, fmt.Errorf("rule override %q has no terms", r.Department)
		}
		lex.rules = append(lex.rules, rule{dept: d, terms: terms})
	}
	return lex, nil
}

func mustLexicon(f LexiconFile) *Lexicon {
	lex, err := NewLexicon(f)
	if err != nil {
		panic(err)
	}
	return lex
}

// EmergencyTerms returns the normalised emergency override terms.
func (l *Lexicon) EmergencyTerms() []string {
	return append([]string(nil), l.emergency...)
}

// Terms returns the normalised keyword bag of d.
func (l *Lexicon) Terms(d Department) []string {
	return append([]string(nil), l.bags[d]...)
}

// RuleTerms returns the normalised rule override terms of d, or nil when d
// has no rule.
func (l *Lexicon) RuleTerms(d Department) []string {
	for _, r := range l.rules {
		if r.dept == d {
			return append([]string(nil), r.terms...)
		}
	}
	return nil
}

// IsIndicator reports whether word can influence classification. That is
// the case when it is a word of any lexicon term, or when it would complete
// a substring-matched term on its own ("laboratory" holds "labor") or next
// to a neighbouring word ("pecan breathe" holds "can breathe").
func (l *Lexicon) IsIndicator(word string) bool {
	words := splitWords(Normalize(word))
	if len(words) != 1 {
		for _, w := range words {
			if l.IsIndicator(w) {
				return true
			}
		}
		return false
	}
	w := words[0]
	for _, list := range l.substringLists() {
		if termsContainWord(list, w) || completesTerm(list, w) {
			return true
		}
	}
	for _, terms := range l.bags {
		if termsContainWord(terms, w) {
			return true
		}
	}
	return false
}

// substringLists returns every term list the classifier matches as a
// substring of the normalised text.
func (l *Lexicon) substringLists() [][]string {
	lists := [][]string{l.emergency, l.pregnancy, l.child}
	for _, r := range l.rules {
		lists = append(lists, r.terms)
	}
	return lists
}

func completesTerm(terms []string, word string) bool {
	for _, t := range terms {
		if strings.Contains(word, t) {
			return true
		}
		parts := splitWords(t)
		if len(parts) > 1 && (strings.HasSuffix(word, parts[0]) || strings.HasPrefix(word, parts[len(parts)-1])) {
			return true
		}
	}
	return false
}

func termsContainWord(terms []string, word string) bool {
	for _, t := range terms {
		for _, w := range splitWords(t) {
			if w == word {
				return true
			}
		}
	}
	return false
}

func normalizeTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if n := Normalize(t); n != "" {
			out = append(out, n)
		}
	}
	return out
}
