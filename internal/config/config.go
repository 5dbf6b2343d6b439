package config

import (
	"log"
	"os"
	"strconv"

	"rl-recommender-be/pkg/rl/agent"
	"rl-recommender-be/pkg/rl/encoder"
	"rl-recommender-be/pkg/rl/environment"
	"rl-recommender-be/pkg/rl/pretrain"

	"github.com/joho/godotenv"
)

type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Auth        AuthConfig
	Corpus      CorpusConfig
	Tracing     TracingConfig
	Training    TrainingConfig
	Encoder     encoder.Config
	Environment environment.Config
	Agent       agent.Config
	Pretrain    pretrain.Config
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	TrainingLogPath    string
	CorsAllowedOrigins string
	NatsURL            string // empty disables the external event bus
}

type DatabaseConfig struct {
	// Connection is either a postgres DSN/URL or a sqlite file path.
	Connection string
}

type AuthConfig struct {
	JwtSecret string
}

type CorpusConfig struct {
	Path string
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
}

type TrainingConfig struct {
	Topic              string
	OnlineExploration  bool  // select with epsilon-greedy while serving
	TrainEvery         int   // run a train step every N consumed interactions
	CheckpointEvery    int64 // persist parameters every N trained steps, 0 disables
	RestoreCheckpoint  bool
	CheckpointName     string
	PretrainIterations int
	FinetuneEpisodes   int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	agentDefaults := agent.DefaultConfig()
	encoderDefaults := encoder.DefaultConfig()
	envDefaults := environment.DefaultConfig()
	pretrainDefaults := pretrain.DefaultConfig()

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "8000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			TrainingLogPath:    getEnv("TRAINING_LOG_FILE_PATH", "logs/training.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			NatsURL:            getEnv("NATS_URL", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", "data/rl_sessions.db"),
		},
		Auth: AuthConfig{
			JwtSecret: getEnv("JWT_SECRET", ""),
		},
		Corpus: CorpusConfig{
			Path: getEnv("ARTICLES_PATH", "data/articles.json"),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", false),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "rl-recommender-backend"),
		},
		Training: TrainingConfig{
			Topic:              getEnv("TRAINING_TOPIC", "interaction.recorded"),
			OnlineExploration:  getEnvAsBool("TRAINING_ONLINE_EXPLORATION", false),
			TrainEvery:         getEnvAsInt("TRAINING_TRAIN_EVERY", 1),
			CheckpointEvery:    int64(getEnvAsInt("TRAINING_CHECKPOINT_EVERY", 100)),
			RestoreCheckpoint:  getEnvAsBool("TRAINING_RESTORE_CHECKPOINT", true),
			CheckpointName:     getEnv("TRAINING_CHECKPOINT_NAME", "dqn"),
			PretrainIterations: getEnvAsInt("PRETRAIN_ITERATIONS", 500),
			FinetuneEpisodes:   getEnvAsInt("TRAINING_FINETUNE_EPISODES", 0),
		},
		Encoder: encoder.Config{
			MaxFeatures:    getEnvAsInt("ENCODER_MAX_FEATURES", encoderDefaults.MaxFeatures),
			MinTokenLength: getEnvAsInt("ENCODER_MIN_TOKEN_LENGTH", encoderDefaults.MinTokenLength),
		},
		Environment: environment.Config{
			SimilarityWeight: getEnvAsFloat("REWARD_SIMILARITY_WEIGHT", envDefaults.SimilarityWeight),
			TagWeight:        getEnvAsFloat("REWARD_TAG_WEIGHT", envDefaults.TagWeight),
		},
		Agent: agent.Config{
			HiddenDim:          getEnvAsInt("AGENT_HIDDEN_DIM", agentDefaults.HiddenDim),
			LearningRate:       getEnvAsFloat("AGENT_LEARNING_RATE", agentDefaults.LearningRate),
			Gamma:              getEnvAsFloat("AGENT_GAMMA", agentDefaults.Gamma),
			BufferCapacity:     getEnvAsInt("AGENT_BUFFER_CAPACITY", agentDefaults.BufferCapacity),
			BatchSize:          getEnvAsInt("AGENT_BATCH_SIZE", agentDefaults.BatchSize),
			EpsilonStart:       getEnvAsFloat("AGENT_EPSILON_START", agentDefaults.EpsilonStart),
			EpsilonEnd:         getEnvAsFloat("AGENT_EPSILON_END", agentDefaults.EpsilonEnd),
			EpsilonDecaySteps:  getEnvAsInt("AGENT_EPSILON_DECAY_STEPS", agentDefaults.EpsilonDecaySteps),
			EpsilonSchedule:    agent.ScheduleKind(getEnv("AGENT_EPSILON_SCHEDULE", string(agentDefaults.EpsilonSchedule))),
			TargetSyncMode:     agent.SyncMode(getEnv("AGENT_TARGET_SYNC_MODE", string(agentDefaults.TargetSyncMode))),
			TargetSyncInterval: getEnvAsInt("AGENT_TARGET_SYNC_INTERVAL", agentDefaults.TargetSyncInterval),
			TargetSyncTau:      getEnvAsFloat("AGENT_TARGET_SYNC_TAU", agentDefaults.TargetSyncTau),
			MaxGradNorm:        getEnvAsFloat("AGENT_MAX_GRAD_NORM", agentDefaults.MaxGradNorm),
			Seed:               int64(getEnvAsInt("AGENT_SEED", int(agentDefaults.Seed))),
		},
		Pretrain: pretrain.Config{
			BatchSize:          getEnvAsInt("PRETRAIN_BATCH_SIZE", pretrainDefaults.BatchSize),
			HoldoutFraction:    getEnvAsFloat("PRETRAIN_HOLDOUT_FRACTION", pretrainDefaults.HoldoutFraction),
			MinPairsForHoldout: getEnvAsInt("PRETRAIN_MIN_PAIRS_FOR_HOLDOUT", pretrainDefaults.MinPairsForHoldout),
			Seed:               int64(getEnvAsInt("PRETRAIN_SEED", int(pretrainDefaults.Seed))),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}
