package prediction

import "sort"

// LabelEncoder maps a categorical value to the index of its fitted class.
// Classes are kept in fitted (sorted) order.
type LabelEncoder struct {
	classes []string
	index   map[string]int
}

func NewLabelEncoder(classes []string) *LabelEncoder {
	sorted := append([]string(nil), classes...)
	sort.Strings(sorted)

	index := make(map[string]int, len(sorted))
	for i, c := range sorted {
		index[c] = i
	}
	return &LabelEncoder{classes: sorted, index: index}
}

func (e *LabelEncoder) Classes() []string {
	return append([]string(nil), e.classes...)
}

// Encode returns the class index of value. An unseen value falls back to the
// first fitted class and reports ok=false.
func (e *LabelEncoder) Encode(value string) (code int, ok bool) {
	if i, found := e.index[value]; found {
		return i, true
	}
	return 0, false
}
