package agent

import (
	"math"
	"math/rand"
)

// qNetwork is a two-layer perceptron Q(s,·) = W2·relu(W1·s + b1) + b2.
// Weight matrices are row-major. The same type holds gradients.
type qNetwork struct {
	stateDim, hiddenDim, actionDim int

	w1 []float64 // hiddenDim x stateDim
	b1 []float64
	w2 []float64 // actionDim x hiddenDim
	b2 []float64
}

func newZeroNetwork(stateDim, hiddenDim, actionDim int) *qNetwork {
	return &qNetwork{
		stateDim:  stateDim,
		hiddenDim: hiddenDim,
		actionDim: actionDim,
		w1:        make([]float64, hiddenDim*stateDim),
		b1:        make([]float64, hiddenDim),
		w2:        make([]float64, actionDim*hiddenDim),
		b2:        make([]float64, actionDim),
	}
}

// newNetwork initialises weights He-uniform, biases at zero.
func newNetwork(stateDim, hiddenDim, actionDim int, rng *rand.Rand) *qNetwork {
	n := newZeroNetwork(stateDim, hiddenDim, actionDim)
	heUniform(n.w1, stateDim, rng)
	heUniform(n.w2, hiddenDim, rng)
	return n
}

func heUniform(w []float64, fanIn int, rng *rand.Rand) {
	limit := math.Sqrt(6 / float64(fanIn))
	for i := range w {
		w[i] = (rng.Float64()*2 - 1) * limit
	}
}

func (n *qNetwork) clone() *qNetwork {
	return &qNetwork{
		stateDim:  n.stateDim,
		hiddenDim: n.hiddenDim,
		actionDim: n.actionDim,
		w1:        append([]float64(nil), n.w1...),
		b1:        append([]float64(nil), n.b1...),
		w2:        append([]float64(nil), n.w2...),
		b2:        append([]float64(nil), n.b2...),
	}
}

func (n *qNetwork) params() [][]float64 {
	return [][]float64{n.w1, n.b1, n.w2, n.b2}
}

// inputLen bounds reads of a state slice; missing trailing entries count as zero.
func (n *qNetwork) inputLen(state []float64) int {
	if len(state) < n.stateDim {
		return len(state)
	}
	return n.stateDim
}

// forward returns the hidden activations (post-relu) and the Q values.
func (n *qNetwork) forward(state []float64) (hidden, q []float64) {
	hidden = make([]float64, n.hiddenDim)
	for h := 0; h < n.hiddenDim; h++ {
		sum := n.b1[h]
		row := n.w1[h*n.stateDim : (h+1)*n.stateDim]
		for i, s := range state[:n.inputLen(state)] {
			if s != 0 {
				sum += row[i] * s
			}
		}
		if sum > 0 {
			hidden[h] = sum
		}
	}

	q = make([]float64, n.actionDim)
	for a := 0; a < n.actionDim; a++ {
		sum := n.b2[a]
		row := n.w2[a*n.hiddenDim : (a+1)*n.hiddenDim]
		for h, v := range hidden {
			sum += row[h] * v
		}
		q[a] = sum
	}
	return hidden, q
}

func (n *qNetwork) predict(state []float64) []float64 {
	_, q := n.forward(state)
	return q
}

// backward accumulates into grad the gradient of a loss whose derivative
// with respect to the Q values is dq, scaled by weight.
func (n *qNetwork) backward(grad *qNetwork, state, hidden, dq []float64, weight float64) {
	dHidden := make([]float64, n.hiddenDim)
	for a, d := range dq {
		if d == 0 {
			continue
		}
		d *= weight
		grad.b2[a] += d
		row := n.w2[a*n.hiddenDim : (a+1)*n.hiddenDim]
		gRow := grad.w2[a*n.hiddenDim : (a+1)*n.hiddenDim]
		for h, v := range hidden {
			gRow[h] += d * v
			dHidden[h] += d * row[h]
		}
	}

	for h := 0; h < n.hiddenDim; h++ {
		if hidden[h] <= 0 || dHidden[h] == 0 {
			continue // relu gate
		}
		d := dHidden[h]
		grad.b1[h] += d
		gRow := grad.w1[h*n.stateDim : (h+1)*n.stateDim]
		for i, s := range state[:n.inputLen(state)] {
			if s != 0 {
				gRow[i] += d * s
			}
		}
	}
}

// applyGradient performs one SGD step, clipping the global gradient norm
// to maxNorm when maxNorm > 0.
func (n *qNetwork) applyGradient(grad *qNetwork, lr, maxNorm float64) {
	scale := lr
	if maxNorm > 0 {
		var sq float64
		for _, g := range grad.params() {
			for _, v := range g {
				sq += v * v
			}
		}
		if norm := math.Sqrt(sq); norm > maxNorm {
			scale *= maxNorm / norm
		}
	}

	dst := n.params()
	for i, g := range grad.params() {
		p := dst[i]
		for j, v := range g {
			p[j] -= scale * v
		}
	}
}

// blend moves n towards src: n = tau*src + (1-tau)*n.
func (n *qNetwork) blend(src *qNetwork, tau float64) {
	dst := n.params()
	for i, s := range src.params() {
		p := dst[i]
		for j, v := range s {
			p[j] = tau*v + (1-tau)*p[j]
		}
	}
}

// argmax returns the index of the largest value, lowest index on ties.
func argmax(values []float64) int {
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}

func maxValue(values []float64) float64 {
	return values[argmax(values)]
}

func softmax(values []float64) []float64 {
	out := make([]float64, len(values))
	m := maxValue(values)
	var sum float64
	for i, v := range values {
		out[i] = math.Exp(v - m)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
