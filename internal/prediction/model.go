package prediction

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
)

// Kind names the estimator a model artifact was exported from.
type Kind string

const (
	KindDecisionTree     Kind = "decision_tree"
	KindRandomForest     Kind = "random_forest"
	KindGradientBoosting Kind = "gradient_boosting"
)

var ErrModelUnavailable = errors.New("MODEL_UNAVAILABLE")

const leaf = -1

// Node is one node of an exported tree. Left and Right are indexes into the
// tree's node slice; a leaf has Left == -1. Samples with x[Feature] <=
// Threshold go left.
type Node struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold"`
	Left      int       `json:"left"`
	Right     int       `json:"right"`
	Value     []float64 `json:"value"`
}

type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Artifact is the serialized form of a trained classifier.
type Artifact struct {
	Kind         Kind                `json:"kind"`
	Version      string              `json:"version"`
	FeatureNames []string            `json:"feature_names"`
	Encoders     map[string][]string `json:"encoders"`
	LearningRate float64             `json:"learning_rate,omitempty"`
	InitScore    float64             `json:"init_score,omitempty"`
	Trees        []Tree              `json:"trees"`
}

// Model is a loaded, validated classifier. It is read-only after load and
// safe for concurrent use.
type Model struct {
	kind         Kind
	version      string
	learningRate float64
	initScore    float64
	trees        []Tree
	encoders     map[string]*LabelEncoder
}

// LoadModel reads and validates a model artifact. Any failure wraps
// ErrModelUnavailable.
func LoadModel(path string) (*Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	var art Artifact
	if err := json.Unmarshal(raw, &art); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrModelUnavailable, path, err)
	}
	return NewModel(art)
}

func NewModel(art Artifact) (*Model, error) {
	switch art.Kind {
	case KindDecisionTree, KindRandomForest, KindGradientBoosting:
	default:
		return nil, fmt.Errorf("%w: unsupported model kind %q", ErrModelUnavailable, art.Kind)
	}

	if len(art.FeatureNames) != len(FeatureOrder) {
		return nil, fmt.Errorf("%w: expected %d features, got %d", ErrModelUnavailable, len(FeatureOrder), len(art.FeatureNames))
	}
	for i, name := range FeatureOrder {
		if art.FeatureNames[i] != name {
			return nil, fmt.Errorf("%w: feature %d is %q, expected %q", ErrModelUnavailable, i, art.FeatureNames[i], name)
		}
	}

	if len(art.Trees) == 0 {
		return nil, fmt.Errorf("%w: model has no trees", ErrModelUnavailable)
	}
	if art.Kind == KindDecisionTree && len(art.Trees) != 1 {
		return nil, fmt.Errorf("%w: decision tree must have exactly one tree", ErrModelUnavailable)
	}
	for i, tree := range art.Trees {
		if err := validateTree(tree, art.Kind); err != nil {
			return nil, fmt.Errorf("%w: tree %d: %v", ErrModelUnavailable, i, err)
		}
	}

	encoders := make(map[string]*LabelEncoder, 2)
	for _, name := range []string{FeatureEducation, FeatureSelfEmployed} {
		classes := art.Encoders[name]
		if len(classes) == 0 {
			return nil, fmt.Errorf("%w: missing encoder for %s", ErrModelUnavailable, name)
		}
		encoders[name] = NewLabelEncoder(classes)
	}

	learningRate := art.LearningRate
	if art.Kind == KindGradientBoosting && learningRate <= 0 {
		return nil, fmt.Errorf("%w: gradient boosting requires a positive learning rate", ErrModelUnavailable)
	}

	return &Model{
		kind:         art.Kind,
		version:      art.Version,
		learningRate: learningRate,
		initScore:    art.InitScore,
		trees:        art.Trees,
		encoders:     encoders,
	}, nil
}

func validateTree(tree Tree, kind Kind) error {
	n := len(tree.Nodes)
	if n == 0 {
		return errors.New("empty tree")
	}
	for i, node := range tree.Nodes {
		if node.Left == leaf {
			want := 2
			if kind == KindGradientBoosting {
				want = 1
			}
			if len(node.Value) != want {
				return fmt.Errorf("leaf %d has %d values, expected %d", i, len(node.Value), want)
			}
			if err := validateLeaf(node.Value, kind); err != nil {
				return fmt.Errorf("leaf %d: %v", i, err)
			}
			continue
		}
		if node.Feature < 0 || node.Feature >= len(FeatureOrder) {
			return fmt.Errorf("node %d splits on unknown feature %d", i, node.Feature)
		}
		// Children always follow their parent in exported order, so a
		// forward-only check also rules out cycles.
		if node.Left <= i || node.Left >= n || node.Right <= i || node.Right >= n {
			return fmt.Errorf("node %d has invalid children %d/%d", i, node.Left, node.Right)
		}
	}
	return nil
}

// validateLeaf rejects values Proba cannot turn into a distribution. Forest
// and tree leaves hold class weights; boosting leaves hold signed raw scores.
func validateLeaf(value []float64, kind Kind) error {
	total := 0.0
	for _, v := range value {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("non-finite value %v", v)
		}
		if kind != KindGradientBoosting && v < 0 {
			return fmt.Errorf("negative class weight %v", v)
		}
		total += v
	}
	if kind != KindGradientBoosting && total <= 0 {
		return errors.New("class weights sum to zero")
	}
	return nil
}

func (m *Model) Kind() Kind {
	return m.kind
}

func (m *Model) Version() string {
	return m.version
}

// Encoder returns the fitted encoder for a categorical feature.
func (m *Model) Encoder(feature string) *LabelEncoder {
	return m.encoders[feature]
}

// Vector encodes f in FeatureOrder. Unseen categories fall back to the first
// fitted class; their feature names are returned in fallbacks.
func (m *Model) Vector(f Features) (vec []float64, fallbacks []string) {
	vec = make([]float64, len(FeatureOrder))
	for i, name := range FeatureOrder {
		enc, categorical := m.encoders[name]
		if !categorical {
			vec[i] = f.numeric(name)
			continue
		}
		code, ok := enc.Encode(f.categorical(name))
		if !ok {
			fallbacks = append(fallbacks, name)
		}
		vec[i] = float64(code)
	}
	return vec, fallbacks
}

// Proba returns the class probabilities [rejected, approved] for x.
func (m *Model) Proba(x []float64) [2]float64 {
	if m.kind == KindGradientBoosting {
		raw := m.initScore
		for _, tree := range m.trees {
			raw += m.learningRate * tree.leaf(x).Value[0]
		}
		p := 1 / (1 + math.Exp(-raw))
		return [2]float64{1 - p, p}
	}

	var sum [2]float64
	for _, tree := range m.trees {
		value := tree.leaf(x).Value
		total := value[0] + value[1]
		if total <= 0 {
			continue
		}
		sum[0] += value[0] / total
		sum[1] += value[1] / total
	}
	n := float64(len(m.trees))
	return [2]float64{sum[0] / n, sum[1] / n}
}

func (t Tree) leaf(x []float64) Node {
	i := 0
	for {
		node := t.Nodes[i]
		if node.Left == leaf {
			return node
		}
		if x[node.Feature] <= node.Threshold {
			i = node.Left
		} else {
			i = node.Right
		}
	}
}
