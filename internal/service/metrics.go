package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	questionsAnswered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rl_questions_answered_total",
		Help: "Questions answered, split by whether the question could be encoded",
	}, []string{"degraded"})

	servedReward = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rl_served_reward",
		Help:    "Environment reward of served recommendations",
		Buckets: prometheus.LinearBuckets(0, 0.1, 11),
	})

	trainingMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rl_training_messages_total",
		Help: "Training messages consumed by source and outcome",
	}, []string{"source", "outcome"})

	checkpointsSaved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rl_checkpoints_saved_total",
		Help: "Agent checkpoints persisted",
	})
)
