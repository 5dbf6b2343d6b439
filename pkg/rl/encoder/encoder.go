// Package encoder maps questions to fixed-length state vectors.
//
// The vocabulary and idf weights are computed once from the corpus; the
// resulting Encoder is immutable and safe for concurrent use.
package encoder

import (
	"errors"
	"math"
	"sort"
)

var (
	// ErrEncoding is returned together with a zero vector when a question
	// carries no known term. Callers use the zero vector as the state.
	ErrEncoding = errors.New("question produced no encodable signal")

	ErrEmptyVocabulary = errors.New("corpus produced an empty vocabulary")
)

type Config struct {
	MaxFeatures    int
	MinTokenLength int
}

func DefaultConfig() Config {
	return Config{
		MaxFeatures:    1000,
		MinTokenLength: 2,
	}
}

type Encoder struct {
	tokenizer *Tokenizer
	vocab     map[string]int
	terms     []string
	idf       []float64
}

// New builds an encoder whose dimension is the size of the corpus vocabulary,
// capped at cfg.MaxFeatures terms by document frequency.
func New(documents []string, cfg Config) (*Encoder, error) {
	if cfg.MaxFeatures <= 0 {
		cfg.MaxFeatures = DefaultConfig().MaxFeatures
	}
	tokenizer := NewTokenizer(cfg.MinTokenLength)

	df := make(map[string]int)
	for _, doc := range documents {
		seen := make(map[string]struct{})
		for _, tok := range tokenizer.Tokens(doc) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	if len(df) == 0 {
		return nil, ErrEmptyVocabulary
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}

	if len(terms) > cfg.MaxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if df[terms[i]] != df[terms[j]] {
				return df[terms[i]] > df[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:cfg.MaxFeatures]
	}
	sort.Strings(terms)

	n := float64(len(documents))
	vocab := make(map[string]int, len(terms))
	idf := make([]float64, len(terms))
	for i, term := range terms {
		vocab[term] = i
		idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	return &Encoder{
		tokenizer: tokenizer,
		vocab:     vocab,
		terms:     terms,
		idf:       idf,
	}, nil
}

func (e *Encoder) Dimension() int {
	return len(e.terms)
}

// Terms lists the vocabulary in state-vector order.
func (e *Encoder) Terms() []string {
	return append([]string(nil), e.terms...)
}

// Tokens exposes the tokenizer so scoring uses the same normalisation.
func (e *Encoder) Tokens(text string) []string {
	return e.tokenizer.Tokens(text)
}

// Encode returns the unit-norm tf-idf vector of question. Unknown terms
// contribute nothing; if nothing is known the zero vector and ErrEncoding
// are returned.
func (e *Encoder) Encode(question string) ([]float64, error) {
	vec := make([]float64, len(e.terms))

	var hits int
	for _, tok := range e.tokenizer.Tokens(question) {
		idx, ok := e.vocab[tok]
		if !ok {
			continue
		}
		vec[idx]++
		hits++
	}
	if hits == 0 {
		return vec, ErrEncoding
	}

	var norm float64
	for i := range vec {
		if vec[i] == 0 {
			continue
		}
		vec[i] *= e.idf[i]
		norm += vec[i] * vec[i]
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec, nil
}
