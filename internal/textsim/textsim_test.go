package textsim

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Rekrutacja", "rekrutacja"},
		{"REKRUTACJA", "rekrutacja"},
		{"Zarządzanie zespołem", "zarzadzanie zespolem"},
		{"Łódź", "lodz"},
		{"Café Crème", "cafe creme"},
		{"Straße", "strasse"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Fold(tt.in), tt.in)
	}
}

func TestTrigrams(t *testing.T) {
	got := Trigrams("cat")
	assert.Len(t, got, 4)
	for _, tri := range []string{"  c", " ca", "cat", "at "} {
		assert.Contains(t, got, tri)
	}

	assert.Empty(t, Trigrams("  !! "))
}

func TestTrigramSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, TrigramSimilarity("word", "word"), 1e-9)
	assert.Equal(t, 0.0, TrigramSimilarity("", "word"))
	assert.Equal(t, 0.0, TrigramSimilarity("abc", "xyz"))

	// pg_trgm: similarity('word', 'two words') = 0.363636
	assert.InDelta(t, 0.363636, TrigramSimilarity("word", "two words"), 1e-5)
}

func TestFoldedSimilarity_AccentAndCaseInsensitive(t *testing.T) {
	base := FoldedSimilarity("rekrutacja", "Rekrutacja w IT")
	assert.Greater(t, base, 0.2)
	assert.InDelta(t, base, FoldedSimilarity("rekrutacja", "REKRUTACJA W IT"), 1e-9)
	assert.InDelta(t, FoldedSimilarity("zarzadzanie", "Zarządzanie"), FoldedSimilarity("zarzadzanie", "zarzadzanie"), 1e-9)
}

func TestNormalizeVector(t *testing.T) {
	v := NormalizeVector([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	zero := NormalizeVector([]float32{0, 0})
	assert.Equal(t, []float32{0, 0}, zero)
}

func TestCosineSimilarity_StaysInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for range 500 {
		v := make([]float32, 384)
		for i := range v {
			v[i] = float32(rng.NormFloat64())
		}
		v = NormalizeVector(v)
		neg := make([]float32, len(v))
		for i, x := range v {
			neg[i] = -x
		}

		self := CosineSimilarity(v, v)
		assert.LessOrEqual(t, self, 1.0)
		assert.InDelta(t, 1.0, self, 1e-9)
		assert.GreaterOrEqual(t, CosineSimilarity(v, neg), -1.0)
	}
}

func TestCosineSimilarity(t *testing.T) {
	a := NormalizeVector([]float32{1, 2, 3})
	assert.InDelta(t, 1.0, CosineSimilarity(a, a), 1e-6)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.False(t, math.IsNaN(CosineSimilarity([]float32{0, 0}, []float32{1, 1})))
}
