package boost

import "sort"

// Node is one tree node. Internal nodes carry a split (Feature >= 0) and
// child indexes that always point past the node itself; leaves carry the
// additive weight and Feature -1.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold,omitempty"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Weight    float64 `json:"weight,omitempty"`
	Gain      float64 `json:"gain,omitempty"`
}

// Tree is one regression tree of the ensemble, stored as a flat node slice
// rooted at index 0. Leaf weights already include the learning rate.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

func (t *Tree) predictRaw(x []float64) float64 {
	i := 0
	for t.Nodes[i].Feature >= 0 {
		n := &t.Nodes[i]
		if x[n.Feature] < n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return t.Nodes[i].Weight
}

// grower carries the state shared across one tree build.
type grower struct {
	x     [][]float64
	grad  []float64
	hess  []float64
	feats []int
	p     Params
	nodes []Node
}

type split struct {
	feature   int
	threshold float64
	gain      float64
}

// growTree fits one regression tree to the current gradients over the
// sampled rows and features.
func growTree(x [][]float64, grad, hess []float64, rows, feats []int, p Params) Tree {
	g := &grower{x: x, grad: grad, hess: hess, feats: feats, p: p}
	g.build(rows, 0)
	return Tree{Nodes: g.nodes}
}

func (g *grower) leaf(sumGrad, sumHess float64) int {
	weight := 0.0
	if denom := sumHess + g.p.Lambda; denom > 0 {
		weight = -g.p.LearningRate * sumGrad / denom
	}
	g.nodes = append(g.nodes, Node{
		Feature: -1,
		Left:    -1,
		Right:   -1,
		Weight:  weight,
	})
	return len(g.nodes) - 1
}

func (g *grower) build(rows []int, depth int) int {
	var sumGrad, sumHess float64
	for _, r := range rows {
		sumGrad += g.grad[r]
		sumHess += g.hess[r]
	}

	if depth >= g.p.MaxDepth || len(rows) < 2 {
		return g.leaf(sumGrad, sumHess)
	}

	best, ok := g.bestSplit(rows, sumGrad, sumHess)
	if !ok {
		return g.leaf(sumGrad, sumHess)
	}

	var left, right []int
	for _, r := range rows {
		if g.x[r][best.feature] < best.threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}

	idx := len(g.nodes)
	g.nodes = append(g.nodes, Node{})
	leftIdx := g.build(left, depth+1)
	rightIdx := g.build(right, depth+1)
	g.nodes[idx] = Node{
		Feature:   best.feature,
		Threshold: best.threshold,
		Left:      leftIdx,
		Right:     rightIdx,
		Gain:      best.gain,
	}
	return idx
}

// bestSplit scans every sampled feature for the split with the highest loss
// reduction. Candidates must clear gamma and leave both children with at
// least min_child_weight of hessian mass. Ties keep the first candidate
// found, so the scan order is deterministic.
func (g *grower) bestSplit(rows []int, sumGrad, sumHess float64) (split, bool) {
	lambda := g.p.Lambda
	parentScore := sumGrad * sumGrad / (sumHess + lambda)

	var best split
	found := false

	order := make([]int, len(rows))
	for _, f := range g.feats {
		copy(order, rows)
		sort.Slice(order, func(a, b int) bool {
			va, vb := g.x[order[a]][f], g.x[order[b]][f]
			if va != vb {
				return va < vb
			}
			return order[a] < order[b]
		})

		var leftGrad, leftHess float64
		for i := 0; i < len(order)-1; i++ {
			r := order[i]
			leftGrad += g.grad[r]
			leftHess += g.hess[r]

			v, next := g.x[r][f], g.x[order[i+1]][f]
			if v == next {
				continue
			}
			rightGrad := sumGrad - leftGrad
			rightHess := sumHess - leftHess
			if leftHess < g.p.MinChildWeight || rightHess < g.p.MinChildWeight {
				continue
			}
			if leftHess+lambda <= 0 || rightHess+lambda <= 0 {
				continue
			}

			gain := 0.5 * (leftGrad*leftGrad/(leftHess+lambda) +
				rightGrad*rightGrad/(rightHess+lambda) - parentScore)
			if gain <= g.p.Gamma {
				continue
			}
			thr := v + (next-v)/2
			if thr <= v {
				continue
			}
			if !found || gain > best.gain {
				best = split{feature: f, threshold: thr, gain: gain}
				found = true
			}
		}
	}
	return best, found
}
