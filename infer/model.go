package infer

import (
	"fmt"
)

// Model holds the trained parameters of a two-layer classifier, supplied by
// the external training collaborator as plain row-major float64 matrices.
type Model struct {
	W1 [][]float64 // inputs x hidden
	B1 []float64   // hidden
	W2 [][]float64 // hidden x classes
	B2 []float64   // classes
}

// Dims returns the (inputs, hidden, classes) dimensions of the model.
func (m *Model) Dims() (in, hidden, classes int) {
	return len(m.W1), len(m.B1), len(m.B2)
}

// Validate checks the mutual consistency of the parameter shapes.
func (m *Model) Validate() error {
	in, hidden, classes := m.Dims()
	if in == 0 || hidden == 0 || classes == 0 {
		return fmt.Errorf("infer: empty model dimensions (%d, %d, %d)", in, hidden, classes)
	}
	for i, row := range m.W1 {
		if len(row) != hidden {
			return fmt.Errorf("infer: W1 row %d has %d columns, want %d", i, len(row), hidden)
		}
	}
	if len(m.W2) != hidden {
		return fmt.Errorf("infer: W2 has %d rows, want %d", len(m.W2), hidden)
	}
	for i, row := range m.W2 {
		if len(row) != classes {
			return fmt.Errorf("infer: W2 row %d has %d columns, want %d", i, len(row), classes)
		}
	}
	return nil
}

// Batch is one inference batch: input rows and their true labels.
type Batch struct {
	Inputs [][]float64
	Labels []int
}

// Validate checks the batch against the model dimensions.
func (b *Batch) Validate(m *Model) error {
	if len(b.Inputs) == 0 || len(b.Inputs) != len(b.Labels) {
		return fmt.Errorf("infer: batch of %d inputs and %d labels", len(b.Inputs), len(b.Labels))
	}
	in, _, classes := m.Dims()
	for i, row := range b.Inputs {
		if len(row) != in {
			return fmt.Errorf("infer: input row %d has %d features, want %d", i, len(row), in)
		}
	}
	for i, l := range b.Labels {
		if l < 0 || l >= classes {
			return fmt.Errorf("infer: label %d out of range [0, %d)", i, classes)
		}
	}
	return nil
}

// BatchResult is the only output revealed per batch.
type BatchResult struct {
	Correct int
	Total   int
}

// Accuracy returns the fraction of correctly classified samples.
func (r BatchResult) Accuracy() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.Total)
}

// PredictPlain evaluates the model on plaintext inputs with the given
// activation and returns the predicted class per row. The shared protocol
// must be functionally transparent to this computation.
func (m *Model) PredictPlain(inputs [][]float64, activation func(float64) float64) []int {

	_, hidden, classes := m.Dims()

	out := make([]int, len(inputs))
	for i, row := range inputs {

		h := make([]float64, hidden)
		for j := 0; j < hidden; j++ {
			acc := m.B1[j]
			for k, x := range row {
				acc += x * m.W1[k][j]
			}
			h[j] = activation(acc)
		}

		best := 0
		var bestScore float64
		for j := 0; j < classes; j++ {
			acc := m.B2[j]
			for k, x := range h {
				acc += x * m.W2[k][j]
			}
			if j == 0 || acc > bestScore {
				best, bestScore = j, acc
			}
		}
		out[i] = best
	}

	return out
}

// ScorePlain returns the plaintext accuracy of the model on the batch.
func (m *Model) ScorePlain(batch Batch, activation func(float64) float64) BatchResult {
	preds := m.PredictPlain(batch.Inputs, activation)
	res := BatchResult{Total: len(preds)}
	for i, p := range preds {
		if p == batch.Labels[i] {
			res.Correct++
		}
	}
	return res
}
