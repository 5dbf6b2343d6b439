// Command rlctl trains and inspects the recommender offline, against the same
// corpus and database as the REST service.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"rl-recommender-be/internal/config"
	"rl-recommender-be/internal/model"
	"rl-recommender-be/internal/pkg/logger"
	"rl-recommender-be/pkg/database"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	flagIterations int
	flagEpisodes   int
	flagNoSave     bool
	flagLimit      int
)

func main() {
	root := &cobra.Command{
		Use:           "rlctl",
		Short:         "Offline training and inspection for the article recommender",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pretrainCmd := &cobra.Command{
		Use:   "pretrain",
		Short: "Supervised warm start on question/article pairs derived from the corpus",
		RunE:  runPretrain,
	}
	pretrainCmd.Flags().IntVar(&flagIterations, "iterations", 0, "minibatch iterations (default PRETRAIN_ITERATIONS)")
	pretrainCmd.Flags().BoolVar(&flagNoSave, "no-save", false, "do not write the checkpoint")

	trainCmd := &cobra.Command{
		Use:   "train",
		Short: "Epsilon-greedy fine-tuning episodes starting from the saved checkpoint",
		RunE:  runTrain,
	}
	trainCmd.Flags().IntVar(&flagEpisodes, "episodes", 200, "number of episodes")
	trainCmd.Flags().BoolVar(&flagNoSave, "no-save", false, "do not write the checkpoint")

	statsCmd := &cobra.Command{
		Use:   "stats [user_id]",
		Short: "Show session stats for one user, or a summary of all sessions",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runStats,
	}
	statsCmd.Flags().IntVar(&flagLimit, "history", 0, "also print the last N interactions")

	articlesCmd := &cobra.Command{
		Use:   "articles",
		Short: "List the corpus in action order",
		RunE:  runArticles,
	}

	root.AddCommand(pretrainCmd, trainCmd, statsCmd, articlesCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func openDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.NewGormDB(cfg.Database.Connection, database.Options{})
	if err != nil {
		return nil, err
	}
	if !database.IsPostgres(cfg.Database.Connection) {
		if err := db.AutoMigrate(model.All()...); err != nil {
			return nil, err
		}
	}
	return db, nil
}

func cliLogger(cfg *config.Config) *logger.ZapLogger {
	return logger.NewZapLogger(cfg.App.TrainingLogPath, false)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
