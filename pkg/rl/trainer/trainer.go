// Package trainer runs exploratory fine-tuning episodes against the
// environment: reset, epsilon-greedy selection, scoring, replay and one
// temporal-difference step per episode.
package trainer

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"rl-recommender-be/internal/pkg/logger"
	"rl-recommender-be/pkg/rl/agent"
	"rl-recommender-be/pkg/rl/environment"
)

const logModule = "TRAINER"

var ErrNoQuestions = errors.New("no training questions")

type Summary struct {
	Episodes     int     `json:"episodes"`
	MeanReward   float64 `json:"mean_reward"`
	TrainedSteps int     `json:"trained_steps"`
	LastLoss     float64 `json:"last_loss"`
	Epsilon      float64 `json:"epsilon"`
}

type Trainer struct {
	env    *environment.Environment
	agent  *agent.Agent
	logger logger.ILogger
	rng    *rand.Rand
}

func New(env *environment.Environment, ag *agent.Agent, seed int64, log logger.ILogger) *Trainer {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Trainer{
		env:    env,
		agent:  ag,
		logger: log,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// RunEpisodes plays episodes single-step episodes, each on a question drawn
// uniformly from questions. Every episode is terminal, so the next state is
// the state itself.
func (t *Trainer) RunEpisodes(ctx context.Context, questions []string, episodes int) (Summary, error) {
	var summary Summary
	if len(questions) == 0 {
		return summary, ErrNoQuestions
	}

	var totalReward float64
	for i := 0; i < episodes; i++ {
		if err := ctx.Err(); err != nil {
			summary.finish(totalReward, t.agent)
			return summary, fmt.Errorf("training interrupted after %d episodes: %w", i, err)
		}

		ep := t.env.Reset(questions[t.rng.Intn(len(questions))])
		action := t.agent.SelectAction(ep.State, true)
		reward, err := t.env.Score(ep, action)
		if err != nil {
			return summary, err
		}

		if err := t.agent.Observe(agent.Transition{
			State:     ep.State,
			Action:    action,
			Reward:    reward,
			NextState: ep.State,
			Terminal:  true,
		}); err != nil {
			return summary, err
		}

		if loss, trained := t.agent.TrainStep(); trained {
			summary.TrainedSteps++
			summary.LastLoss = loss
		}

		summary.Episodes++
		totalReward += reward

		if summary.Episodes%100 == 0 {
			t.logger.Debug(logModule, "Episode progress", map[string]interface{}{
				"episode":     summary.Episodes,
				"mean_reward": totalReward / float64(summary.Episodes),
				"epsilon":     t.agent.Epsilon(),
			})
		}
	}

	summary.finish(totalReward, t.agent)
	t.logger.Info(logModule, "Fine-tuning finished", map[string]interface{}{
		"episodes":      summary.Episodes,
		"mean_reward":   summary.MeanReward,
		"trained_steps": summary.TrainedSteps,
		"epsilon":       summary.Epsilon,
	})
	return summary, nil
}

func (s *Summary) finish(totalReward float64, ag *agent.Agent) {
	if s.Episodes > 0 {
		s.MeanReward = totalReward / float64(s.Episodes)
	}
	s.Epsilon = ag.Epsilon()
}
