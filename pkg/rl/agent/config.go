package agent

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigMismatch means the agent's dimensions disagree with the
	// environment or checkpoint it is paired with.
	ErrConfigMismatch = errors.New("agent dimensions do not match")
	ErrInvalidConfig  = errors.New("invalid agent config")
)

type ScheduleKind string

const (
	ScheduleLinear      ScheduleKind = "linear"
	ScheduleExponential ScheduleKind = "exponential"
)

type SyncMode string

const (
	SyncHard SyncMode = "hard" // copy every TargetSyncInterval steps
	SyncSoft SyncMode = "soft" // polyak averaging with TargetSyncTau every step
)

type Config struct {
	StateDim  int
	ActionDim int
	HiddenDim int

	LearningRate float64
	Gamma        float64
	MaxGradNorm  float64 // 0 disables clipping

	BufferCapacity int
	BatchSize      int

	EpsilonStart      float64
	EpsilonEnd        float64
	EpsilonDecaySteps int
	EpsilonSchedule   ScheduleKind

	TargetSyncMode     SyncMode
	TargetSyncInterval int
	TargetSyncTau      float64

	Seed int64
}

// DefaultConfig leaves StateDim and ActionDim at zero: they are only known
// once the encoder and environment have been built from the corpus.
func DefaultConfig() Config {
	return Config{
		HiddenDim:          64,
		LearningRate:       0.01,
		Gamma:              0.95,
		MaxGradNorm:        10,
		BufferCapacity:     10000,
		BatchSize:          32,
		EpsilonStart:       1.0,
		EpsilonEnd:         0.05,
		EpsilonDecaySteps:  1000,
		EpsilonSchedule:    ScheduleExponential,
		TargetSyncMode:     SyncHard,
		TargetSyncInterval: 100,
		TargetSyncTau:      0.01,
		Seed:               42,
	}
}

func (c Config) validate() error {
	switch {
	case c.HiddenDim <= 0:
		return fmt.Errorf("%w: hidden dim %d", ErrInvalidConfig, c.HiddenDim)
	case c.LearningRate <= 0:
		return fmt.Errorf("%w: learning rate %g", ErrInvalidConfig, c.LearningRate)
	case c.Gamma < 0 || c.Gamma > 1:
		return fmt.Errorf("%w: gamma %g not in [0,1]", ErrInvalidConfig, c.Gamma)
	case c.MaxGradNorm < 0:
		return fmt.Errorf("%w: max grad norm %g", ErrInvalidConfig, c.MaxGradNorm)
	case c.BufferCapacity <= 0:
		return fmt.Errorf("%w: buffer capacity %d", ErrInvalidConfig, c.BufferCapacity)
	case c.BatchSize <= 0:
		return fmt.Errorf("%w: batch size %d", ErrInvalidConfig, c.BatchSize)
	case c.EpsilonStart < 0 || c.EpsilonStart > 1 || c.EpsilonEnd < 0 || c.EpsilonEnd > 1:
		return fmt.Errorf("%w: epsilon range %g..%g", ErrInvalidConfig, c.EpsilonStart, c.EpsilonEnd)
	case c.EpsilonSchedule != ScheduleLinear && c.EpsilonSchedule != ScheduleExponential:
		return fmt.Errorf("%w: epsilon schedule %q", ErrInvalidConfig, c.EpsilonSchedule)
	case c.TargetSyncMode != SyncHard && c.TargetSyncMode != SyncSoft:
		return fmt.Errorf("%w: target sync mode %q", ErrInvalidConfig, c.TargetSyncMode)
	case c.TargetSyncMode == SyncHard && c.TargetSyncInterval <= 0:
		return fmt.Errorf("%w: target sync interval %d", ErrInvalidConfig, c.TargetSyncInterval)
	case c.TargetSyncMode == SyncSoft && (c.TargetSyncTau <= 0 || c.TargetSyncTau > 1):
		return fmt.Errorf("%w: target sync tau %g", ErrInvalidConfig, c.TargetSyncTau)
	}
	return nil
}
