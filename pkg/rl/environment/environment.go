// Package environment defines the action space (one action per article) and
// the reward signal for the recommendation policy.
//
// Episodes are single-step: Reset turns a question into a state, the agent
// picks one action, Score rates it, and the episode ends.
package environment

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"

	"rl-recommender-be/internal/entity"
	"rl-recommender-be/internal/repository/contract"
	"rl-recommender-be/pkg/rl/encoder"
)

var (
	ErrEmptyCorpus   = errors.New("corpus has no articles")
	ErrUnknownAction = errors.New("action outside the action space")
)

const (
	MinReward = 0.0
	MaxReward = 1.0
)

// Config weighs the two reward terms. The weights are normalised to sum to 1.
type Config struct {
	SimilarityWeight float64
	TagWeight        float64
}

func DefaultConfig() Config {
	return Config{
		SimilarityWeight: 0.6,
		TagWeight:        0.4,
	}
}

// Episode carries the question context between Reset and Score.
type Episode struct {
	Question string
	State    []float64
	// Degraded is set when the encoder found no known term and the zero
	// vector was used as state.
	Degraded bool

	tokens map[string]struct{}
}

type Environment struct {
	encoder  *encoder.Encoder
	articles []*entity.Article
	actionOf map[int]int

	articleVecs [][]float64
	labelTokens []map[string]struct{}

	simWeight float64
	tagWeight float64

	fingerprint string
}

// New freezes the article order of store as the action order.
func New(store contract.ArticleRepository, enc *encoder.Encoder, cfg Config) (*Environment, error) {
	articles := store.GetAllArticles()
	if len(articles) == 0 {
		return nil, ErrEmptyCorpus
	}

	simWeight, tagWeight := cfg.SimilarityWeight, cfg.TagWeight
	if simWeight < 0 || tagWeight < 0 || simWeight+tagWeight == 0 {
		return nil, fmt.Errorf("invalid reward weights %.3f/%.3f", simWeight, tagWeight)
	}
	total := simWeight + tagWeight
	simWeight, tagWeight = simWeight/total, tagWeight/total

	env := &Environment{
		encoder:     enc,
		articles:    articles,
		actionOf:    make(map[int]int, len(articles)),
		articleVecs: make([][]float64, len(articles)),
		labelTokens: make([]map[string]struct{}, len(articles)),
		simWeight:   simWeight,
		tagWeight:   tagWeight,
	}

	for i, a := range articles {
		env.actionOf[a.Id] = i

		// An article made only of unknown terms keeps a zero vector and can
		// still earn the tag term.
		vec, _ := enc.Encode(a.Text())
		env.articleVecs[i] = vec

		labels := make(map[string]struct{})
		for _, label := range a.Labels() {
			for _, tok := range enc.Tokens(label) {
				labels[tok] = struct{}{}
			}
		}
		env.labelTokens[i] = labels
	}
	env.fingerprint = corpusFingerprint(articles, enc.Terms())

	return env, nil
}

// corpusFingerprint hashes the action order, the article behind each action
// and the state layout.
func corpusFingerprint(articles []*entity.Article, terms []string) string {
	h := sha256.New()
	for _, a := range articles {
		h.Write([]byte(strconv.Itoa(a.Id)))
		h.Write([]byte{0})
		h.Write([]byte(a.Text()))
		h.Write([]byte{0})
	}
	h.Write([]byte{1})
	for _, term := range terms {
		h.Write([]byte(term))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint identifies the article order and vocabulary this environment
// was built from. Parameters trained against one fingerprint are only valid
// for environments with the same fingerprint.
func (e *Environment) Fingerprint() string {
	return e.fingerprint
}

func (e *Environment) ActionSpaceSize() int {
	return len(e.articles)
}

func (e *Environment) StateDim() int {
	return e.encoder.Dimension()
}

// Reset encodes question into the state of a new episode. It never fails:
// unencodable questions get the zero vector and a Degraded episode.
func (e *Environment) Reset(question string) *Episode {
	state, err := e.encoder.Encode(question)

	tokens := make(map[string]struct{})
	for _, tok := range e.encoder.Tokens(question) {
		tokens[tok] = struct{}{}
	}

	return &Episode{
		Question: question,
		State:    state,
		Degraded: errors.Is(err, encoder.ErrEncoding),
		tokens:   tokens,
	}
}

// Score rates action against the episode's question. The result lies in
// [MinReward, MaxReward]:
//
//	reward = w_sim * cos(state, article) + w_tag * |question ∩ labels| / |labels|
//
// Articles without labels are scored on similarity alone.
func (e *Environment) Score(ep *Episode, action int) (float64, error) {
	if action < 0 || action >= len(e.articles) {
		return 0, fmt.Errorf("%w: %d not in [0, %d)", ErrUnknownAction, action, len(e.articles))
	}

	sim := cosine(ep.State, e.articleVecs[action])

	labels := e.labelTokens[action]
	if len(labels) == 0 {
		return clamp(sim), nil
	}

	var hits int
	for tok := range labels {
		if _, ok := ep.tokens[tok]; ok {
			hits++
		}
	}
	overlap := float64(hits) / float64(len(labels))

	return clamp(e.simWeight*sim + e.tagWeight*overlap), nil
}

func (e *Environment) ArticleForAction(action int) (*entity.Article, error) {
	if action < 0 || action >= len(e.articles) {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrUnknownAction, action, len(e.articles))
	}
	return e.articles[action], nil
}

func (e *Environment) ActionForArticle(articleId int) (int, error) {
	action, ok := e.actionOf[articleId]
	if !ok {
		return 0, fmt.Errorf("%w: id %d", contract.ErrArticleNotFound, articleId)
	}
	return action, nil
}

// Articles returns the corpus in action order.
func (e *Environment) Articles() []*entity.Article {
	out := make([]*entity.Article, len(e.articles))
	copy(out, e.articles)
	return out
}

// cosine assumes both vectors are unit-norm or zero, which the encoder guarantees.
func cosine(a, b []float64) float64 {
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return MinReward
	}
	return math.Max(MinReward, math.Min(MaxReward, v))
}
