package triage

import "math"

// stopWords are dropped from both the department documents and the query
// before weighting.
var stopWords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"a", "about", "after", "again", "all", "also", "am", "an", "and", "any",
		"are", "as", "at", "be", "been", "before", "being", "but", "by", "can",
		"could", "did", "do", "does", "doing", "during", "each", "few", "for",
		"from", "further", "had", "has", "have", "having", "he", "her", "here",
		"hers", "him", "his", "how", "i", "if", "in", "into", "is", "it", "its",
		"just", "me", "more", "most", "my", "myself", "no", "nor", "not", "now",
		"of", "off", "on", "once", "only", "or", "other", "our", "out", "over",
		"own", "same", "she", "should", "since", "so", "some", "such", "than",
		"that", "the", "their", "them", "then", "there", "these", "they", "this",
		"those", "through", "to", "too", "under", "until", "up", "very", "was",
		"we", "were", "what", "when", "where", "which", "while", "who", "whom",
		"why", "will", "with", "would", "you", "your",
	} {
		stopWords[w] = struct{}{}
	}
}

func contentWords(normalized string) []string {
	words := splitWords(normalized)
	out := words[:0]
	for _, w := range words {
		if _, stop := stopWords[w]; !stop {
			out = append(out, w)
		}
	}
	return out
}

// similarityIndex holds l2-normalised tf-idf vectors for each department
// bag, laid out in catalog order.
type similarityIndex struct {
	vocab   map[string]int
	idf     []float64
	depts   []Department
	vectors [][]float64
}

func newSimilarityIndex(lex *Lexicon) *similarityIndex {
	idx := &similarityIndex{vocab: make(map[string]int)}

	var docs [][]string
	for _, d := range Catalog {
		terms, ok := lex.bags[d]
		if !ok {
			continue
		}
		var words []string
		for _, t := range terms {
			words = append(words, contentWords(t)...)
		}
		for _, w := range words {
			if _, seen := idx.vocab[w]; !seen {
				idx.vocab[w] = len(idx.vocab)
			}
		}
		idx.depts = append(idx.depts, d)
		docs = append(docs, words)
	}

	df := make([]int, len(idx.vocab))
	for _, words := range docs {
		seen := make(map[int]bool, len(words))
		for _, w := range words {
			i := idx.vocab[w]
			if !seen[i] {
				seen[i] = true
				df[i]++
			}
		}
	}
	n := float64(len(docs))
	idx.idf = make([]float64, len(df))
	for i, f := range df {
		idx.idf[i] = math.Log((1+n)/(1+float64(f))) + 1
	}

	for _, words := range docs {
		idx.vectors = append(idx.vectors, idx.weigh(words))
	}
	return idx
}

// weigh returns the normalised tf-idf vector of words; out-of-vocabulary
// words carry no weight.
func (idx *similarityIndex) weigh(words []string) []float64 {
	v := make([]float64, len(idx.vocab))
	for _, w := range words {
		if i, ok := idx.vocab[w]; ok {
			v[i]++
		}
	}
	var norm float64
	for i := range v {
		v[i] *= idx.idf[i]
		norm += v[i] * v[i]
	}
	if norm == 0 {
		return v
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] /= norm
	}
	return v
}

// best returns the department whose bag is most similar to the normalised
// text. Ties keep the department that comes first in the catalog.
func (idx *similarityIndex) best(normalized string) (Department, float64) {
	q := idx.weigh(contentWords(normalized))
	bestDept, bestScore := GeneralMedicine, 0.0
	for k, vec := range idx.vectors {
		var dot float64
		for i, w := range q {
			if w != 0 {
				dot += w * vec[i]
			}
		}
		if dot > bestScore {
			bestDept, bestScore = idx.depts[k], dot
		}
	}
	return bestDept, bestScore
}

// scores returns the similarity of normalised text to every department bag.
func (idx *similarityIndex) scores(normalized string) map[Department]float64 {
	q := idx.weigh(contentWords(normalized))
	out := make(map[Department]float64, len(idx.depts))
	for k, vec := range idx.vectors {
		var dot float64
		for i, w := range q {
			dot += w * vec[i]
		}
		out[idx.depts[k]] = dot
	}
	return out
}
