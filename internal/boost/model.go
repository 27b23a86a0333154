package boost

import "fmt"

// Model is a trained ensemble. It serializes to JSON losslessly, so a
// round-tripped model scores identically to the one it was saved from.
type Model struct {
	BaseScore   float64 `json:"base_score"`
	NumFeatures int     `json:"num_features"`
	Trees       []Tree  `json:"trees"`
}

// Rounds returns how many boosting rounds the model kept.
func (m *Model) Rounds() int {
	return len(m.Trees)
}

// PredictProba returns the conversion probability for one feature vector.
func (m *Model) PredictProba(x []float64) (float64, error) {
	if len(x) != m.NumFeatures {
		return 0, fmt.Errorf("vector has %d features, model expects %d", len(x), m.NumFeatures)
	}
	raw := logit(m.BaseScore)
	for i := range m.Trees {
		raw += m.Trees[i].predictRaw(x)
	}
	return sigmoid(raw), nil
}

// PredictBatch scores every row of the design matrix.
func (m *Model) PredictBatch(x [][]float64) ([]float64, error) {
	out := make([]float64, len(x))
	for i, row := range x {
		p, err := m.PredictProba(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = p
	}
	return out, nil
}

// FeatureImportances returns per-feature gain totals normalized to sum to
// one. Features never used to split score zero.
func (m *Model) FeatureImportances() []float64 {
	imp := make([]float64, m.NumFeatures)
	total := 0.0
	for i := range m.Trees {
		for _, n := range m.Trees[i].Nodes {
			if n.Feature >= 0 {
				imp[n.Feature] += n.Gain
				total += n.Gain
			}
		}
	}
	if total > 0 {
		for i := range imp {
			imp[i] /= total
		}
	}
	return imp
}

// Validate checks structural integrity after deserialization: sane scores,
// in-range split features, and child pointers that always move forward so
// prediction terminates.
func (m *Model) Validate() error {
	if m.NumFeatures < 1 {
		return fmt.Errorf("model has %d features", m.NumFeatures)
	}
	if m.BaseScore <= 0 || m.BaseScore >= 1 {
		return fmt.Errorf("base_score %v out of range", m.BaseScore)
	}
	for t := range m.Trees {
		nodes := m.Trees[t].Nodes
		if len(nodes) == 0 {
			return fmt.Errorf("tree %d is empty", t)
		}
		for i, n := range nodes {
			if n.Feature < 0 {
				continue
			}
			if n.Feature >= m.NumFeatures {
				return fmt.Errorf("tree %d node %d splits on feature %d, model has %d", t, i, n.Feature, m.NumFeatures)
			}
			if n.Left <= i || n.Left >= len(nodes) || n.Right <= i || n.Right >= len(nodes) {
				return fmt.Errorf("tree %d node %d has out-of-range children", t, i)
			}
		}
	}
	return nil
}
