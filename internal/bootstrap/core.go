package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"rl-recommender-be/internal/config"
	"rl-recommender-be/internal/pkg/logger"
	"rl-recommender-be/internal/repository/memory"
	"rl-recommender-be/internal/service"
	"rl-recommender-be/pkg/rl/agent"
	"rl-recommender-be/pkg/rl/encoder"
	"rl-recommender-be/pkg/rl/environment"
	"rl-recommender-be/pkg/rl/pretrain"
	"rl-recommender-be/pkg/rl/trainer"
)

const bootModule = "BOOTSTRAP"

// Core is the recommender itself: corpus, encoder, environment and agent,
// with dimensions agreed between them.
type Core struct {
	Articles *memory.ArticleRepository
	Encoder  *encoder.Encoder
	Env      *environment.Environment
	Agent    *agent.Agent
}

// BuildCore loads the corpus and derives every dimension from it. An empty
// corpus fails with environment.ErrEmptyCorpus.
func BuildCore(cfg *config.Config) (*Core, error) {
	articles, err := memory.LoadArticleRepository(cfg.Corpus.Path)
	if err != nil {
		return nil, err
	}
	return NewCore(articles, cfg)
}

func NewCore(articles *memory.ArticleRepository, cfg *config.Config) (*Core, error) {
	all := articles.GetAllArticles()
	if len(all) == 0 {
		return nil, environment.ErrEmptyCorpus
	}

	docs := make([]string, 0, len(all))
	for _, a := range all {
		docs = append(docs, a.Text())
	}
	enc, err := encoder.New(docs, cfg.Encoder)
	if err != nil {
		return nil, fmt.Errorf("build encoder: %w", err)
	}

	env, err := environment.New(articles, enc, cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("build environment: %w", err)
	}

	agentCfg := cfg.Agent
	agentCfg.StateDim = env.StateDim()
	agentCfg.ActionDim = env.ActionSpaceSize()
	ag, err := agent.New(agentCfg, env)
	if err != nil {
		return nil, fmt.Errorf("build agent: %w", err)
	}

	return &Core{Articles: articles, Encoder: enc, Env: env, Agent: ag}, nil
}

// WarmStart restores the saved checkpoint when allowed. Otherwise it
// pretrains on pairs derived from the corpus and runs the configured
// fine-tuning episodes. Missing pretraining data and a checkpoint that does
// not fit the current corpus are only warnings.
func WarmStart(ctx context.Context, core *Core, training service.ITrainingService, cfg *config.Config, log logger.ILogger) error {
	if cfg.Training.RestoreCheckpoint && training != nil {
		restored, err := training.RestoreCheckpoint(ctx)
		switch {
		case errors.Is(err, agent.ErrConfigMismatch):
			log.Warn(bootModule, "Checkpoint does not match the corpus, retraining", map[string]interface{}{
				"error": err.Error(),
			})
		case err != nil:
			return fmt.Errorf("restore checkpoint: %w", err)
		case restored:
			return nil
		}
	}

	pairs := pretrain.DerivePairs(core.Articles.GetAllArticles())
	pt := pretrain.New(core.Env, core.Agent, pairs, cfg.Pretrain, log)
	report, err := pt.PretrainSupervised(ctx, cfg.Training.PretrainIterations)
	switch {
	case errors.Is(err, pretrain.ErrPretrainDataMissing):
		log.Warn(bootModule, "Serving with an untrained agent", map[string]interface{}{
			"articles": len(core.Articles.GetAllArticles()),
		})
	case err != nil:
		return fmt.Errorf("pretrain: %w", err)
	default:
		log.Info(bootModule, "Pretraining finished", map[string]interface{}{
			"iterations": report.Iterations,
			"final_loss": report.FinalLoss,
			"eval_pairs": report.EvalPairs,
			"eval_acc":   report.Eval.Accuracy,
		})
	}

	if cfg.Training.FinetuneEpisodes <= 0 || len(pairs) == 0 {
		return nil
	}

	questions := make([]string, 0, len(pairs))
	for _, p := range pairs {
		questions = append(questions, p.Question)
	}
	summary, err := trainer.New(core.Env, core.Agent, cfg.Agent.Seed, log).RunEpisodes(ctx, questions, cfg.Training.FinetuneEpisodes)
	if err != nil {
		return fmt.Errorf("fine-tune: %w", err)
	}
	log.Info(bootModule, "Fine-tuning finished", map[string]interface{}{
		"episodes":    summary.Episodes,
		"mean_reward": summary.MeanReward,
		"steps":       summary.TrainedSteps,
	})
	return nil
}
