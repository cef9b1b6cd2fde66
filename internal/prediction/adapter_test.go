package prediction

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	featLoanAmount = 4
	featCibil      = 6
)

// ====== Test Helper Functions ======

func encoders() map[string][]string {
	return map[string][]string{
		FeatureEducation:    {EducationNotGraduate, EducationGraduate},
		FeatureSelfEmployed: {SelfEmployedYes, SelfEmployedNo},
	}
}

func creditTree() Tree {
	return Tree{Nodes: []Node{
		{Feature: featCibil, Threshold: 549.5, Left: 1, Right: 2},
		{Left: leaf, Right: leaf, Value: []float64{90, 10}},
		{Feature: featLoanAmount, Threshold: 25000000, Left: 3, Right: 4},
		{Left: leaf, Right: leaf, Value: []float64{5, 95}},
		{Left: leaf, Right: leaf, Value: []float64{60, 40}},
	}}
}

func secondTree() Tree {
	return Tree{Nodes: []Node{
		{Feature: featCibil, Threshold: 540.5, Left: 1, Right: 2},
		{Left: leaf, Right: leaf, Value: []float64{80, 20}},
		{Left: leaf, Right: leaf, Value: []float64{10, 90}},
	}}
}

func boostTree() Tree {
	return Tree{Nodes: []Node{
		{Feature: featCibil, Threshold: 549.5, Left: 1, Right: 2},
		{Left: leaf, Right: leaf, Value: []float64{-2}},
		{Left: leaf, Right: leaf, Value: []float64{2}},
	}}
}

func artifact(kind Kind, trees ...Tree) Artifact {
	return Artifact{
		Kind:         kind,
		Version:      "test-1",
		FeatureNames: append([]string(nil), FeatureOrder...),
		Encoders:     encoders(),
		Trees:        trees,
	}
}

func mustModel(t *testing.T, art Artifact) *Model {
	t.Helper()
	m, err := NewModel(art)
	require.NoError(t, err)
	return m
}

func applicant(cibil int) Features {
	return Features{
		NoOfDependents:         2,
		Education:              EducationGraduate,
		SelfEmployed:           SelfEmployedNo,
		IncomeAnnum:            9600000,
		LoanAmount:             10000000,
		LoanTerm:               12,
		CibilScore:             cibil,
		ResidentialAssetsValue: 2400000,
		CommercialAssetsValue:  1760000,
		LuxuryAssetsValue:      2270000,
		BankAssetValue:         800000,
	}
}

// ====== Tests ======

func TestAdapter_Predict_RandomForest(t *testing.T) {
	a := NewAdapter(mustModel(t, artifact(KindRandomForest, creditTree(), secondTree())), DefaultFallback())

	approved := a.Predict(applicant(750))
	assert.Equal(t, DecisionApproved, approved.Decision)
	assert.InDelta(t, 92.5, approved.Confidence, 1e-9)
	assert.InDelta(t, 0.925, approved.ApprovalProbability, 1e-9)
	assert.False(t, approved.Degraded)
	assert.Equal(t, "test-1", approved.ModelVersion)

	rejected := a.Predict(applicant(400))
	assert.Equal(t, DecisionRejected, rejected.Decision)
	assert.InDelta(t, 85.0, rejected.Confidence, 1e-9, "confidence is the probability of the predicted class")
	assert.InDelta(t, 0.15, rejected.ApprovalProbability, 1e-9)
}

func TestAdapter_Predict_DecisionTree(t *testing.T) {
	a := NewAdapter(mustModel(t, artifact(KindDecisionTree, creditTree())), DefaultFallback())

	large := applicant(750)
	large.LoanAmount = 30000000

	res := a.Predict(large)
	assert.Equal(t, DecisionRejected, res.Decision)
	assert.InDelta(t, 60.0, res.Confidence, 1e-9)
}

func TestAdapter_Predict_SplitRuleIsInclusive(t *testing.T) {
	a := NewAdapter(mustModel(t, artifact(KindDecisionTree, Tree{Nodes: []Node{
		{Feature: featCibil, Threshold: 600, Left: 1, Right: 2},
		{Left: leaf, Right: leaf, Value: []float64{1, 0}},
		{Left: leaf, Right: leaf, Value: []float64{0, 1}},
	}})), DefaultFallback())

	assert.Equal(t, DecisionRejected, a.Predict(applicant(600)).Decision)
	assert.Equal(t, DecisionApproved, a.Predict(applicant(601)).Decision)
}

func TestAdapter_Predict_GradientBoosting(t *testing.T) {
	art := artifact(KindGradientBoosting, boostTree(), boostTree())
	art.LearningRate = 0.5
	a := NewAdapter(mustModel(t, art), DefaultFallback())

	res := a.Predict(applicant(700))
	assert.Equal(t, DecisionApproved, res.Decision)
	assert.InDelta(t, 88.0797, res.Confidence, 1e-3)

	res = a.Predict(applicant(500))
	assert.Equal(t, DecisionRejected, res.Decision)
	assert.InDelta(t, 88.0797, res.Confidence, 1e-3)
}

func TestAdapter_Predict_UnseenCategoryFallsBackToFirstClass(t *testing.T) {
	// Split on education: code 0 (" Graduate") goes left.
	a := NewAdapter(mustModel(t, artifact(KindDecisionTree, Tree{Nodes: []Node{
		{Feature: 1, Threshold: 0.5, Left: 1, Right: 2},
		{Left: leaf, Right: leaf, Value: []float64{3, 7}},
		{Left: leaf, Right: leaf, Value: []float64{8, 2}},
	}})), DefaultFallback())

	known := applicant(700)
	unseen := applicant(700)
	unseen.Education = "Doctorate"

	first := a.Predict(unseen)
	second := a.Predict(unseen)

	assert.Equal(t, first, second)
	assert.Equal(t, []string{FeatureEducation}, first.UnseenCategories)
	assert.Equal(t, a.Predict(known).Decision, first.Decision)
	assert.InDelta(t, 70.0, first.Confidence, 1e-9)
	assert.Empty(t, a.Predict(known).UnseenCategories)
}

func TestAdapter_Predict_NoModelIsDegraded(t *testing.T) {
	a := NewAdapter(nil, DefaultFallback())

	res := a.Predict(applicant(300))

	assert.False(t, a.Available())
	assert.True(t, res.Degraded)
	assert.Equal(t, DecisionApproved, res.Decision)
	assert.Equal(t, 75.0, res.Confidence)
	assert.Equal(t, "MODEL_UNAVAILABLE", res.Reason)
}

func TestLoadAdapter_MissingFile(t *testing.T) {
	a, err := LoadAdapter(filepath.Join(t.TempDir(), "missing.json"), Fallback{Decision: DecisionRejected, Confidence: 50})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModelUnavailable)
	require.NotNil(t, a)

	res := a.Predict(applicant(800))
	assert.True(t, res.Degraded)
	assert.Equal(t, DecisionRejected, res.Decision)
	assert.Equal(t, 50.0, res.Confidence)
	assert.Contains(t, res.Reason, "MODEL_UNAVAILABLE")
}

func TestLoadModel_FromFile(t *testing.T) {
	raw, err := json.Marshal(artifact(KindRandomForest, creditTree(), secondTree()))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	a, err := LoadAdapter(path, DefaultFallback())
	require.NoError(t, err)
	assert.True(t, a.Available())
	assert.Equal(t, KindRandomForest, a.Model().Kind())
	assert.Equal(t, DecisionApproved, a.Predict(applicant(750)).Decision)
}

func TestLoadModel_BundledArtifact(t *testing.T) {
	path := filepath.Join("..", "..", "configs", "models", "loan_model.json")
	m, err := LoadModel(path)
	require.NoError(t, err)
	assert.Equal(t, KindRandomForest, m.Kind())
	assert.Equal(t, []string{EducationGraduate, EducationNotGraduate}, m.Encoder(FeatureEducation).Classes())
}

func TestNewModel_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(a *Artifact)
	}{
		{name: "unknown kind", mutate: func(a *Artifact) { a.Kind = "svm" }},
		{name: "feature order mismatch", mutate: func(a *Artifact) {
			a.FeatureNames[0], a.FeatureNames[1] = a.FeatureNames[1], a.FeatureNames[0]
		}},
		{name: "missing feature", mutate: func(a *Artifact) { a.FeatureNames = a.FeatureNames[:10] }},
		{name: "no trees", mutate: func(a *Artifact) { a.Trees = nil }},
		{name: "missing encoder", mutate: func(a *Artifact) { delete(a.Encoders, FeatureSelfEmployed) }},
		{name: "backward child", mutate: func(a *Artifact) { a.Trees[0].Nodes[2].Left = 0 }},
		{name: "bad leaf arity", mutate: func(a *Artifact) { a.Trees[0].Nodes[1].Value = []float64{1} }},
		{name: "negative class weight", mutate: func(a *Artifact) { a.Trees[0].Nodes[1].Value = []float64{-1, 3} }},
		{name: "zero weight leaf", mutate: func(a *Artifact) { a.Trees[1].Nodes[2].Value = []float64{0, 0} }},
		{name: "non-finite boosting leaf", mutate: func(a *Artifact) {
			a.Kind = KindGradientBoosting
			a.LearningRate = 0.1
			tree := boostTree()
			tree.Nodes[1].Value = []float64{math.Inf(1)}
			a.Trees = []Tree{tree}
		}},
		{name: "unknown split feature", mutate: func(a *Artifact) { a.Trees[0].Nodes[0].Feature = 42 }},
		{name: "boosting without learning rate", mutate: func(a *Artifact) {
			a.Kind = KindGradientBoosting
			a.Trees = []Tree{boostTree()}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			art := artifact(KindRandomForest, creditTree(), secondTree())
			tt.mutate(&art)
			m, err := NewModel(art)
			assert.Nil(t, m)
			assert.ErrorIs(t, err, ErrModelUnavailable)
		})
	}
}

func TestAdapter_Predict_OutOfRangeProbabilityDegrades(t *testing.T) {
	// Built directly so the leaf check in NewModel is bypassed.
	m := &Model{
		kind:    KindDecisionTree,
		version: "broken",
		trees: []Tree{{Nodes: []Node{
			{Left: leaf, Right: leaf, Value: []float64{-1, 3}},
		}}},
		encoders: map[string]*LabelEncoder{
			FeatureEducation:    NewLabelEncoder(encoders()[FeatureEducation]),
			FeatureSelfEmployed: NewLabelEncoder(encoders()[FeatureSelfEmployed]),
		},
	}

	res := NewAdapter(m, DefaultFallback()).Predict(applicant(750))

	assert.True(t, res.Degraded)
	assert.Equal(t, DecisionApproved, res.Decision)
	assert.Equal(t, 75.0, res.Confidence)
	assert.Contains(t, res.Reason, "outside [0,1]")
}

func TestAdapter_Predict_ConfidenceInRange(t *testing.T) {
	a := NewAdapter(mustModel(t, artifact(KindRandomForest, creditTree(), secondTree())), DefaultFallback())
	for _, cibil := range []int{300, 540, 549, 550, 700, 900} {
		res := a.Predict(applicant(cibil))
		assert.False(t, res.Degraded, cibil)
		assert.GreaterOrEqual(t, res.Confidence, 50.0, cibil)
		assert.LessOrEqual(t, res.Confidence, 100.0, cibil)
	}
}

func TestAdapter_Predict_Concurrent(t *testing.T) {
	a := NewAdapter(mustModel(t, artifact(KindRandomForest, creditTree(), secondTree())), DefaultFallback())
	want := a.Predict(applicant(750))

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, want, a.Predict(applicant(750)))
		}()
	}
	wg.Wait()
}

func TestLabelEncoder(t *testing.T) {
	enc := NewLabelEncoder([]string{SelfEmployedYes, SelfEmployedNo})
	assert.Equal(t, []string{SelfEmployedNo, SelfEmployedYes}, enc.Classes())

	code, ok := enc.Encode(SelfEmployedYes)
	assert.True(t, ok)
	assert.Equal(t, 1, code)

	code, ok = enc.Encode("Freelance")
	assert.False(t, ok)
	assert.Equal(t, 0, code)
}

func TestCategoryHelpers(t *testing.T) {
	assert.Equal(t, SelfEmployedYes, SelfEmployedCategory("Self Employed"))
	assert.Equal(t, SelfEmployedNo, SelfEmployedCategory("Salaried"))
	assert.Equal(t, SelfEmployedNo, SelfEmployedCategory(""))

	assert.Equal(t, EducationGraduate, EducationCategory("Graduate"))
	assert.Equal(t, EducationNotGraduate, EducationCategory("Not Graduate"))
	assert.Equal(t, EducationGraduate, EducationCategory(EducationGraduate))
}
