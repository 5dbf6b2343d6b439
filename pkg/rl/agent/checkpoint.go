package agent

import "fmt"

// Checkpoint is a serialisable copy of the live parameters. The target
// network is not stored; Restore re-synchronises it from the restored
// weights.
type Checkpoint struct {
	StateDim     int       `json:"state_dim"`
	HiddenDim    int       `json:"hidden_dim"`
	ActionDim    int       `json:"action_dim"`
	W1           []float64 `json:"w1"`
	B1           []float64 `json:"b1"`
	W2           []float64 `json:"w2"`
	B2           []float64 `json:"b2"`
	Steps        int64     `json:"steps"`
	Explorations int64     `json:"explorations"`
	// Fingerprint identifies the corpus the parameters were trained on.
	Fingerprint  string    `json:"fingerprint"`
}

func (a *Agent) Snapshot() Checkpoint {
	net := a.live.Load().clone()
	return Checkpoint{
		StateDim:     net.stateDim,
		HiddenDim:    net.hiddenDim,
		ActionDim:    net.actionDim,
		W1:           net.w1,
		B1:           net.b1,
		W2:           net.w2,
		B2:           net.b2,
		Steps:        a.updates.Load(),
		Explorations: a.explorations.Load(),
		Fingerprint:  a.fingerprint,
	}
}

// Restore replaces the live and target parameters with cp. A checkpoint
// taken from an agent with different dimensions or trained on a different
// corpus is rejected with ErrConfigMismatch and leaves the agent unchanged.
func (a *Agent) Restore(cp Checkpoint) error {
	if cp.Fingerprint != a.fingerprint {
		return fmt.Errorf("%w: checkpoint corpus %q, agent corpus %q", ErrConfigMismatch, cp.Fingerprint, a.fingerprint)
	}
	if cp.StateDim != a.cfg.StateDim || cp.HiddenDim != a.cfg.HiddenDim || cp.ActionDim != a.cfg.ActionDim {
		return fmt.Errorf("%w: checkpoint %dx%dx%d, agent %dx%dx%d", ErrConfigMismatch,
			cp.StateDim, cp.HiddenDim, cp.ActionDim, a.cfg.StateDim, a.cfg.HiddenDim, a.cfg.ActionDim)
	}

	net := newZeroNetwork(cp.StateDim, cp.HiddenDim, cp.ActionDim)
	for i, src := range [][]float64{cp.W1, cp.B1, cp.W2, cp.B2} {
		dst := net.params()[i]
		if len(src) != len(dst) {
			return fmt.Errorf("%w: checkpoint tensor %d has %d values, want %d", ErrConfigMismatch, i, len(src), len(dst))
		}
		copy(dst, src)
	}

	a.mu.Lock()
	a.live.Store(net)
	a.target = net.clone()
	a.mu.Unlock()

	a.updates.Store(cp.Steps)
	a.explorations.Store(cp.Explorations)
	return nil
}
