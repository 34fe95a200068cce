package ml

import "fmt"

const (
	ModelDecisionTree       = "decision_tree"
	ModelLogisticRegression = "logistic_regression"
)

func LoadModel(modelType, path string) (Classifier, error) {
	switch modelType {
	case ModelDecisionTree:
		model := &DecisionTree{}
		if err := model.Load(path); err != nil {
			return nil, err
		}
		return model, nil
	case ModelLogisticRegression:
		model := &LogisticRegression{}
		if err := model.Load(path); err != nil {
			return nil, err
		}
		return model, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedModel, modelType)
	}
}
