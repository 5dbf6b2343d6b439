// Package pretrain warm-starts the agent with supervised learning on labeled
// (question, article) pairs derived from corpus metadata, before any
// exploratory training.
package pretrain

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"rl-recommender-be/internal/entity"
	"rl-recommender-be/internal/pkg/logger"
	"rl-recommender-be/pkg/rl/agent"
	"rl-recommender-be/pkg/rl/environment"
)

const logModule = "PRETRAIN"

var ErrPretrainDataMissing = errors.New("no labeled pairs available for pretraining")

type Config struct {
	BatchSize          int
	HoldoutFraction    float64
	MinPairsForHoldout int
	Seed               int64
}

func DefaultConfig() Config {
	return Config{
		BatchSize:          16,
		HoldoutFraction:    0.2,
		MinPairsForHoldout: 5,
		Seed:               42,
	}
}

// Pair is one labeled example: Question should be answered by ArticleId.
type Pair struct {
	Question  string
	ArticleId int
}

// DerivePairs builds labeled pairs from the question templates bound to each
// article, its title and a "what is <keyword>" template per keyword.
func DerivePairs(articles []*entity.Article) []Pair {
	var pairs []Pair
	for _, a := range articles {
		for _, q := range a.Questions {
			if q = strings.TrimSpace(q); q != "" {
				pairs = append(pairs, Pair{Question: q, ArticleId: a.Id})
			}
		}
		if title := strings.TrimSpace(a.Title); title != "" {
			pairs = append(pairs, Pair{Question: title, ArticleId: a.Id})
		}
		for _, kw := range a.Keywords {
			if kw = strings.TrimSpace(kw); kw != "" {
				pairs = append(pairs, Pair{Question: "what is " + kw, ArticleId: a.Id})
			}
		}
	}
	return pairs
}

type example struct {
	state   []float64
	action  int
	labeled agent.LabeledExample
}

type EvalResult struct {
	Evaluated bool    `json:"evaluated"`
	Accuracy  float64 `json:"accuracy"`
	Correct   int     `json:"correct"`
	Total     int     `json:"total"`
}

type Report struct {
	Iterations int        `json:"iterations"`
	FinalLoss  float64    `json:"final_loss"`
	TrainPairs int        `json:"train_pairs"`
	EvalPairs  int        `json:"eval_pairs"`
	Eval       EvalResult `json:"eval"`
}

type Pretrainer struct {
	env    *environment.Environment
	agent  *agent.Agent
	cfg    Config
	logger logger.ILogger
	rng    *rand.Rand

	train []example
	eval  []example
}

// New encodes pairs once and splits them into training and held-out sets.
// Pairs naming an article outside the environment are skipped with a warning.
func New(env *environment.Environment, ag *agent.Agent, pairs []Pair, cfg Config, log logger.ILogger) *Pretrainer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	p := &Pretrainer{
		env:    env,
		agent:  ag,
		cfg:    cfg,
		logger: log,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
	}

	examples := make([]example, 0, len(pairs))
	var skipped int
	for _, pair := range pairs {
		action, err := env.ActionForArticle(pair.ArticleId)
		if err != nil {
			skipped++
			continue
		}
		state := env.Reset(pair.Question).State
		examples = append(examples, example{
			state:   state,
			action:  action,
			labeled: agent.LabeledExample{State: state, Action: action},
		})
	}
	if skipped > 0 {
		log.Warn(logModule, "Skipped pairs for unknown articles", map[string]interface{}{
			"skipped": skipped,
		})
	}

	p.rng.Shuffle(len(examples), func(i, j int) { examples[i], examples[j] = examples[j], examples[i] })

	holdout := int(float64(len(examples)) * cfg.HoldoutFraction)
	if len(examples) < cfg.MinPairsForHoldout || holdout <= 0 || holdout >= len(examples) {
		p.train = examples
		p.eval = examples
		if len(examples) > 0 {
			log.Warn(logModule, "Too few pairs for a held-out split, evaluating on training pairs", map[string]interface{}{
				"pairs": len(examples),
			})
		}
	} else {
		p.eval = examples[:holdout]
		p.train = examples[holdout:]
	}
	return p
}

func (p *Pretrainer) TrainPairs() int { return len(p.train) }
func (p *Pretrainer) EvalPairs() int  { return len(p.eval) }

// PretrainSupervised runs iterations minibatch steps of the supervised
// strategy, then hard-syncs the target network. With no pairs it changes
// nothing and returns ErrPretrainDataMissing.
func (p *Pretrainer) PretrainSupervised(ctx context.Context, iterations int) (Report, error) {
	report := Report{TrainPairs: len(p.train), EvalPairs: len(p.eval)}

	if len(p.train) == 0 {
		p.logger.Warn(logModule, "No labeled pairs, continuing with an untrained agent", nil)
		return report, ErrPretrainDataMissing
	}

	p.logger.Info(logModule, "Supervised pretraining started", map[string]interface{}{
		"iterations":  iterations,
		"train_pairs": len(p.train),
		"eval_pairs":  len(p.eval),
	})

	for i := 0; i < iterations; i++ {
		if err := ctx.Err(); err != nil {
			p.agent.SyncTarget()
			return report, fmt.Errorf("pretraining interrupted after %d iterations: %w", i, err)
		}
		report.FinalLoss = p.agent.Fit(agent.Supervised{Examples: p.batch()})
		report.Iterations++

		if (i+1)%100 == 0 {
			p.logger.Debug(logModule, "Pretraining progress", map[string]interface{}{
				"iteration": i + 1,
				"loss":      report.FinalLoss,
			})
		}
	}
	p.agent.SyncTarget()

	report.Eval = p.Evaluate()
	p.logger.Info(logModule, "Supervised pretraining finished", map[string]interface{}{
		"iterations": report.Iterations,
		"final_loss": report.FinalLoss,
		"accuracy":   report.Eval.Accuracy,
	})
	return report, nil
}

func (p *Pretrainer) batch() []agent.LabeledExample {
	if len(p.train) <= p.cfg.BatchSize {
		out := make([]agent.LabeledExample, len(p.train))
		for i, ex := range p.train {
			out[i] = ex.labeled
		}
		return out
	}

	out := make([]agent.LabeledExample, p.cfg.BatchSize)
	for i := range out {
		out[i] = p.train[p.rng.Intn(len(p.train))].labeled
	}
	return out
}

// Evaluate reports the share of held-out pairs whose greedy action is the
// labeled one.
func (p *Pretrainer) Evaluate() EvalResult {
	if len(p.eval) == 0 {
		return EvalResult{}
	}

	res := EvalResult{Evaluated: true, Total: len(p.eval)}
	for _, ex := range p.eval {
		if p.agent.SelectAction(ex.state, false) == ex.action {
			res.Correct++
		}
	}
	res.Accuracy = float64(res.Correct) / float64(res.Total)
	return res
}
