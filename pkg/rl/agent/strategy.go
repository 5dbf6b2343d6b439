package agent

import "math"

// Strategy is one training objective over the agent's single parameter set.
// The agent ships two: TemporalDifference for exploratory reinforcement
// learning and Supervised for warm-start pretraining. Callers choose one
// explicitly through Agent.Fit.
type Strategy interface {
	Name() string
	gradient(live, target *qNetwork) (*qNetwork, float64)
}

// TemporalDifference regresses Q(s,a) towards r + gamma * max_a' Qtarget(s',a').
// The loss is half the mean squared error on the taken actions.
type TemporalDifference struct {
	Batch []Transition
	Gamma float64
}

func (TemporalDifference) Name() string { return "temporal_difference" }

func (s TemporalDifference) gradient(live, target *qNetwork) (*qNetwork, float64) {
	grad := newZeroNetwork(live.stateDim, live.hiddenDim, live.actionDim)
	if len(s.Batch) == 0 {
		return grad, 0
	}

	weight := 1 / float64(len(s.Batch))
	var loss float64
	dq := make([]float64, live.actionDim)

	for _, t := range s.Batch {
		hidden, q := live.forward(t.State)

		y := t.Reward
		if !t.Terminal {
			y += s.Gamma * maxValue(target.predict(t.NextState))
		}

		diff := q[t.Action] - y
		loss += 0.5 * diff * diff * weight

		for i := range dq {
			dq[i] = 0
		}
		dq[t.Action] = diff
		live.backward(grad, t.State, hidden, dq, weight)
	}
	return grad, loss
}

type LabeledExample struct {
	State  []float64
	Action int
}

// Supervised minimises softmax cross-entropy between the Q values, read as
// logits, and the labeled action.
type Supervised struct {
	Examples []LabeledExample
}

func (Supervised) Name() string { return "supervised" }

func (s Supervised) gradient(live, _ *qNetwork) (*qNetwork, float64) {
	grad := newZeroNetwork(live.stateDim, live.hiddenDim, live.actionDim)
	if len(s.Examples) == 0 {
		return grad, 0
	}

	weight := 1 / float64(len(s.Examples))
	var loss float64

	for _, ex := range s.Examples {
		hidden, q := live.forward(ex.State)
		p := softmax(q)
		loss -= math.Log(math.Max(p[ex.Action], 1e-12)) * weight

		p[ex.Action] -= 1
		live.backward(grad, ex.State, hidden, p, weight)
	}
	return grad, loss
}
