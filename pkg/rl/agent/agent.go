// Package agent implements a value-based (DQN style) policy over a discrete
// action space: a Q-network with a replay buffer, a target network for
// stable regression targets and an epsilon-greedy exploration schedule.
//
// Inference reads an atomically published parameter snapshot and never
// blocks. Training (Observe, TrainStep, Fit, Restore) is serialised on a
// single mutex; every update is computed on a copy and then published, so a
// reader sees either the old or the new parameters, never a mix.
package agent

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
)

var ErrInvalidTransition = errors.New("invalid transition")

// Dimensions is what the agent must agree with: in practice the environment.
type Dimensions interface {
	StateDim() int
	ActionSpaceSize() int
}

// Fingerprinter is implemented by a paired environment that can identify the
// corpus behind its action and state layout.
type Fingerprinter interface {
	Fingerprint() string
}

type Agent struct {
	cfg         Config
	fingerprint string

	live atomic.Pointer[qNetwork]

	mu       sync.Mutex
	target   *qNetwork
	buffer   *replayBuffer
	trainRng *rand.Rand
	tdSteps  int64

	updates      atomic.Int64
	explorations atomic.Int64

	exploreMu  sync.Mutex
	exploreRng *rand.Rand
}

// New builds an agent for the paired environment. cfg.StateDim and
// cfg.ActionDim must already be filled in and agree with paired.
func New(cfg Config, paired Dimensions) (*Agent, error) {
	if cfg.StateDim <= 0 || cfg.ActionDim <= 0 {
		return nil, fmt.Errorf("%w: state_dim=%d action_dim=%d must be positive", ErrConfigMismatch, cfg.StateDim, cfg.ActionDim)
	}
	if paired != nil && (cfg.StateDim != paired.StateDim() || cfg.ActionDim != paired.ActionSpaceSize()) {
		return nil, fmt.Errorf("%w: agent %dx%d, environment %dx%d",
			ErrConfigMismatch, cfg.StateDim, cfg.ActionDim, paired.StateDim(), paired.ActionSpaceSize())
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	initRng := rand.New(rand.NewSource(cfg.Seed))
	net := newNetwork(cfg.StateDim, cfg.HiddenDim, cfg.ActionDim, initRng)

	a := &Agent{
		cfg:        cfg,
		target:     net.clone(),
		buffer:     newReplayBuffer(cfg.BufferCapacity),
		trainRng:   rand.New(rand.NewSource(cfg.Seed + 1)),
		exploreRng: rand.New(rand.NewSource(cfg.Seed + 2)),
	}
	if fp, ok := paired.(Fingerprinter); ok {
		a.fingerprint = fp.Fingerprint()
	}
	a.live.Store(net)
	epsilonGauge.Set(cfg.EpsilonStart)
	return a, nil
}

func (a *Agent) Config() Config {
	return a.cfg
}

// SelectAction picks an action for state. With training=false it is the
// argmax of the predicted values (lowest index on ties) and deterministic
// for fixed parameters. With training=true it is epsilon-greedy, epsilon
// following the configured schedule over the number of exploratory
// selections made so far.
func (a *Agent) SelectAction(state []float64, training bool) int {
	action, _ := a.SelectWithConfidence(state, training)
	return action
}

// SelectWithConfidence is SelectAction plus the Confidence of the chosen
// action, both derived from a single parameter snapshot.
func (a *Agent) SelectWithConfidence(state []float64, training bool) (int, float64) {
	q := a.live.Load().predict(state)
	if training {
		step := a.explorations.Add(1) - 1
		eps := epsilonAt(a.cfg, step)
		epsilonGauge.Set(eps)

		a.exploreMu.Lock()
		explore := a.exploreRng.Float64() < eps
		var action int
		if explore {
			action = a.exploreRng.Intn(a.cfg.ActionDim)
		}
		a.exploreMu.Unlock()

		if explore {
			actionsSelected.WithLabelValues("explore").Inc()
			return action, softmax(q)[action]
		}
	}

	actionsSelected.WithLabelValues("greedy").Inc()
	action := argmax(q)
	return action, softmax(q)[action]
}

// Predict returns the estimated value of every action for state.
func (a *Agent) Predict(state []float64) []float64 {
	return a.live.Load().predict(state)
}

// Confidence is the softmax probability the current parameters assign to
// action. It is the agent's own estimate, not the environment reward.
func (a *Agent) Confidence(state []float64, action int) float64 {
	if action < 0 || action >= a.cfg.ActionDim {
		return 0
	}
	return softmax(a.Predict(state))[action]
}

// Epsilon is the exploration rate the next exploratory selection will use.
func (a *Agent) Epsilon() float64 {
	return epsilonAt(a.cfg, a.explorations.Load())
}

// Steps counts optimisation steps applied by any strategy.
func (a *Agent) Steps() int64 {
	return a.updates.Load()
}

// Observe appends a transition to the replay buffer, evicting the oldest
// one when the buffer is full. Slices are copied.
func (a *Agent) Observe(t Transition) error {
	if t.Action < 0 || t.Action >= a.cfg.ActionDim {
		return fmt.Errorf("%w: action %d not in [0, %d)", ErrInvalidTransition, t.Action, a.cfg.ActionDim)
	}
	if len(t.State) != a.cfg.StateDim {
		return fmt.Errorf("%w: state has %d values, want %d", ErrInvalidTransition, len(t.State), a.cfg.StateDim)
	}
	if !t.Terminal && len(t.NextState) != a.cfg.StateDim {
		return fmt.Errorf("%w: next state has %d values, want %d", ErrInvalidTransition, len(t.NextState), a.cfg.StateDim)
	}

	t.State = append([]float64(nil), t.State...)
	t.NextState = append([]float64(nil), t.NextState...)

	a.mu.Lock()
	a.buffer.add(t)
	size := a.buffer.len()
	a.mu.Unlock()

	replaySize.Set(float64(size))
	return nil
}

func (a *Agent) BufferLen() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.buffer.len()
}

// TrainStep samples a minibatch from the replay buffer, applies one
// temporal-difference update and then synchronises the target network
// according to the configured mode. It returns trained=false without
// touching anything while the buffer holds fewer than BatchSize transitions.
func (a *Agent) TrainStep() (loss float64, trained bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.buffer.len() < a.cfg.BatchSize {
		return 0, false
	}

	batch := a.buffer.sample(a.trainRng, a.cfg.BatchSize)
	loss = a.fitLocked(TemporalDifference{Batch: batch, Gamma: a.cfg.Gamma})
	a.tdSteps++

	switch a.cfg.TargetSyncMode {
	case SyncSoft:
		a.target.blend(a.live.Load(), a.cfg.TargetSyncTau)
		targetSyncs.WithLabelValues(string(SyncSoft)).Inc()
	default:
		if a.tdSteps%int64(a.cfg.TargetSyncInterval) == 0 {
			a.target = a.live.Load().clone()
			targetSyncs.WithLabelValues(string(SyncHard)).Inc()
		}
	}
	return loss, true
}

// Fit applies one optimisation step of strategy to the live parameters and
// returns the loss measured before the step. The target network is left
// alone; call SyncTarget when a strategy should move it.
func (a *Agent) Fit(strategy Strategy) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fitLocked(strategy)
}

func (a *Agent) fitLocked(strategy Strategy) float64 {
	current := a.live.Load()
	grad, loss := strategy.gradient(current, a.target)

	next := current.clone()
	next.applyGradient(grad, a.cfg.LearningRate, a.cfg.MaxGradNorm)
	a.live.Store(next)
	a.updates.Add(1)

	trainSteps.WithLabelValues(strategy.Name()).Inc()
	lastLoss.WithLabelValues(strategy.Name()).Set(loss)
	return loss
}

// SyncTarget copies the live parameters into the target network.
func (a *Agent) SyncTarget() {
	a.mu.Lock()
	a.target = a.live.Load().clone()
	a.mu.Unlock()
	targetSyncs.WithLabelValues("manual").Inc()
}
