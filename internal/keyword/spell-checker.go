package keyword

import (
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// Suggestion is a dictionary term close to a word that was not found.
type Suggestion struct {
	Term      string  // The suggested term
	Distance  int     // Edit distance from the original word
	Frequency int     // Number of chunks containing the term
	Score     float64 // Frequency damped by distance; higher is better
}

// SpellChecker suggests indexed terms for words the index does not contain.
// The vocabulary is loaded lazily and reloaded after Invalidate.
type SpellChecker struct {
	dictionary     TermDictionary
	maxDistance    int
	minFreq        int
	maxSuggestions int

	mu    sync.Mutex
	terms map[string]int
	stale bool
}

// SpellCheckerOption is a functional option for configuring SpellChecker.
type SpellCheckerOption func(*SpellChecker)

// WithMaxDistance sets the maximum edit distance for suggestions.
func WithMaxDistance(d int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if d > 0 {
			s.maxDistance = d
		}
	}
}

// WithMinFrequency ignores terms found in fewer chunks than f.
func WithMinFrequency(f int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if f >= 0 {
			s.minFreq = f
		}
	}
}

// WithMaxSuggestions sets the maximum number of suggestions per word.
func WithMaxSuggestions(n int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if n > 0 {
			s.maxSuggestions = n
		}
	}
}

// NewSpellChecker creates a SpellChecker over dict.
func NewSpellChecker(dict TermDictionary, opts ...SpellCheckerOption) *SpellChecker {
	s := &SpellChecker{
		dictionary:     dict,
		maxDistance:    2,
		minFreq:        1,
		maxSuggestions: 5,
		stale:          true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Invalidate marks the vocabulary out of date. Call it after indexing.
func (s *SpellChecker) Invalidate() {
	s.mu.Lock()
	s.stale = true
	s.mu.Unlock()
}

func (s *SpellChecker) vocabulary() (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stale {
		terms, err := s.dictionary.Terms()
		if err != nil {
			return nil, err
		}
		s.terms = terms
		s.stale = false
	}
	return s.terms, nil
}

// Suggest returns up to maxSuggestions terms within maxDistance of word,
// best first. A word already in the dictionary gets no suggestions.
func (s *SpellChecker) Suggest(word string) ([]Suggestion, error) {
	terms, err := s.vocabulary()
	if err != nil {
		return nil, err
	}
	return s.suggest(terms, strings.ToLower(word)), nil
}

func (s *SpellChecker) suggest(terms map[string]int, word string) []Suggestion {
	if _, ok := terms[word]; ok {
		return nil
	}
	wordLen := utf8.RuneCountInString(word)
	var out []Suggestion
	for term, freq := range terms {
		if freq < s.minFreq {
			continue
		}
		diff := utf8.RuneCountInString(term) - wordLen
		if diff > s.maxDistance || -diff > s.maxDistance {
			continue
		}
		d := EditDistance(word, term)
		if d > s.maxDistance {
			continue
		}
		out = append(out, Suggestion{
			Term:      term,
			Distance:  d,
			Frequency: freq,
			Score:     float64(freq) / float64(d+1),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Term < out[j].Term
	})
	if len(out) > s.maxSuggestions {
		out = out[:s.maxSuggestions]
	}
	return out
}

// Correct replaces every unknown word of query with its best suggestion.
// It returns "" when nothing was replaced.
func (s *SpellChecker) Correct(query string) (string, error) {
	terms, err := s.vocabulary()
	if err != nil {
		return "", err
	}
	words := tokenizeQuery(query)
	changed := false
	for i, w := range words {
		if best := s.suggest(terms, w); len(best) > 0 {
			words[i] = best[0].Term
			changed = true
		}
	}
	if !changed {
		return "", nil
	}
	return strings.Join(words, " "), nil
}

// tokenizeQuery lowercases query and splits it into words, trimming the
// punctuation the standard analyzer drops.
func tokenizeQuery(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if f != "" {
			words = append(words, f)
		}
	}
	return words
}
