package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

type DecisionTree struct {
	nodes []TreeNode
}

// TreeNode is one node of a flattened tree. Leaves carry the share of
// positive training samples that reached them.
type TreeNode struct {
	FeatureIdx       int     `json:"feature_idx"`
	Threshold        float64 `json:"threshold"`
	LeftChild        int     `json:"left_child"`
	RightChild       int     `json:"right_child"`
	ClassLabel       int     `json:"class_label"`
	PositiveFraction float64 `json:"positive_fraction"`
	IsLeaf           bool    `json:"is_leaf"`
}

func NewDecisionTree(nodes []TreeNode) *DecisionTree {
	return &DecisionTree{nodes: append([]TreeNode(nil), nodes...)}
}

func (dt *DecisionTree) Predict(features []float64) (int, error) {
	leaf, err := dt.leaf(features)
	if err != nil {
		return 0, err
	}
	return leaf.ClassLabel, nil
}

func (dt *DecisionTree) PredictProba(features []float64) (float64, error) {
	leaf, err := dt.leaf(features)
	if err != nil {
		return 0, err
	}
	return leaf.PositiveFraction, nil
}

func (dt *DecisionTree) leaf(features []float64) (TreeNode, error) {
	if len(dt.nodes) == 0 {
		return TreeNode{}, fmt.Errorf("%w: decision tree has no nodes", ErrNotFitted)
	}
	idx := 0
	// a well-formed tree reaches a leaf in fewer steps than it has nodes
	for steps := 0; steps <= len(dt.nodes); steps++ {
		node := dt.nodes[idx]
		if node.IsLeaf {
			return node, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return TreeNode{}, fmt.Errorf("%w: tree splits on feature %d, record has %d",
				ErrSchemaMismatch, node.FeatureIdx, len(features))
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(dt.nodes) {
			return TreeNode{}, errors.New("invalid tree state")
		}
	}
	return TreeNode{}, errors.New("invalid tree state: cycle")
}

func (dt *DecisionTree) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var nodes []TreeNode
	if err := json.Unmarshal(payload, &nodes); err != nil {
		return fmt.Errorf("decode decision tree %s: %w", path, err)
	}
	if len(nodes) == 0 {
		return fmt.Errorf("%w: decision tree %s has no nodes", ErrNotFitted, path)
	}
	for i, node := range nodes {
		if node.IsLeaf && (node.PositiveFraction < 0 || node.PositiveFraction > 1) {
			return fmt.Errorf("decision tree %s: leaf %d positive_fraction %g outside [0, 1]", path, i, node.PositiveFraction)
		}
	}
	dt.nodes = nodes
	return nil
}
