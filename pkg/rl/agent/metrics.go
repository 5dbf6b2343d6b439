package agent

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	actionsSelected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rl_agent_actions_selected_total",
		Help: "Actions selected by mode (greedy, explore)",
	}, []string{"mode"})

	trainSteps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rl_agent_train_steps_total",
		Help: "Optimisation steps applied by strategy",
	}, []string{"strategy"})

	lastLoss = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rl_agent_loss",
		Help: "Loss of the most recent optimisation step by strategy",
	}, []string{"strategy"})

	epsilonGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rl_agent_epsilon",
		Help: "Current exploration rate",
	})

	replaySize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rl_agent_replay_size",
		Help: "Transitions held in the replay buffer",
	})

	targetSyncs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rl_agent_target_syncs_total",
		Help: "Target network synchronisations by mode",
	}, []string{"mode"})
)
