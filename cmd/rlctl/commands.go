package main

import (
	"errors"
	"fmt"

	"rl-recommender-be/internal/bootstrap"
	"rl-recommender-be/internal/config"
	"rl-recommender-be/internal/repository/unitofwork"
	"rl-recommender-be/internal/service"
	"rl-recommender-be/pkg/rl/agent"
	"rl-recommender-be/pkg/rl/pretrain"
	"rl-recommender-be/pkg/rl/trainer"
	"rl-recommender-be/pkg/session"

	"github.com/spf13/cobra"
)

// checkpointer reuses the training service for checkpoint I/O only; it is
// never started as a consumer.
func checkpointer(cfg *config.Config, core *bootstrap.Core) (service.ITrainingService, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	return service.NewTrainingService(nil, nil, unitofwork.NewRepositoryFactory(db), core.Env, core.Agent, cliLogger(cfg), service.TrainingOptions{
		Topic:          cfg.Training.Topic,
		CheckpointName: cfg.Training.CheckpointName,
	}), nil
}

func runPretrain(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	core, err := bootstrap.BuildCore(cfg)
	if err != nil {
		return err
	}

	iterations := flagIterations
	if iterations <= 0 {
		iterations = cfg.Training.PretrainIterations
	}

	pairs := pretrain.DerivePairs(core.Articles.GetAllArticles())
	report, err := pretrain.New(core.Env, core.Agent, pairs, cfg.Pretrain, cliLogger(cfg)).
		PretrainSupervised(cmd.Context(), iterations)
	if err != nil {
		return err
	}
	if err := printJSON(report); err != nil {
		return err
	}

	if flagNoSave {
		return nil
	}
	cp, err := checkpointer(cfg, core)
	if err != nil {
		return err
	}
	return cp.SaveCheckpoint(cmd.Context())
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	core, err := bootstrap.BuildCore(cfg)
	if err != nil {
		return err
	}
	cp, err := checkpointer(cfg, core)
	if err != nil {
		return err
	}

	restored, err := cp.RestoreCheckpoint(cmd.Context())
	switch {
	case errors.Is(err, agent.ErrConfigMismatch):
		fmt.Printf("Checkpoint does not match the corpus (%v), training from scratch\n", err)
	case err != nil:
		return err
	case !restored:
		fmt.Println("No checkpoint found, training from scratch")
	}

	var questions []string
	for _, p := range pretrain.DerivePairs(core.Articles.GetAllArticles()) {
		questions = append(questions, p.Question)
	}

	summary, err := trainer.New(core.Env, core.Agent, cfg.Agent.Seed, cliLogger(cfg)).
		RunEpisodes(cmd.Context(), questions, flagEpisodes)
	if err != nil {
		return err
	}
	if err := printJSON(summary); err != nil {
		return err
	}

	if flagNoSave {
		return nil
	}
	return cp.SaveCheckpoint(cmd.Context())
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	store := session.NewStore(unitofwork.NewRepositoryFactory(db), cliLogger(cfg))

	if len(args) == 0 {
		count, err := store.PersistedCount(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(map[string]interface{}{"sessions": count})
	}

	persisted, err := store.Persisted(cmd.Context(), args[0], flagLimit)
	if err != nil {
		return err
	}
	return printJSON(persisted)
}

func runArticles(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	core, err := bootstrap.BuildCore(cfg)
	if err != nil {
		return err
	}

	for action, a := range core.Env.Articles() {
		fmt.Printf("%3d  id=%-4d %s\n", action, a.Id, a.Title)
	}
	return nil
}
