package kraepelin

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_RejectsOutOfRangeDimensions(t *testing.T) {
	gen := NewGenerator(rand.NewSource(1))

	cases := []struct {
		name       string
		rows, cols int
	}{
		{"rows too small", 19, 20},
		{"rows too large", 101, 20},
		{"columns too small", 20, 19},
		{"columns too large", 20, 101},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := gen.Generate(tc.rows, tc.cols, DifficultyMedium)
			assert.ErrorIs(t, err, ErrInvalidConfiguration)
			assert.Nil(t, m)
		})
	}
}

func TestGenerate_RejectsUnknownDifficulty(t *testing.T) {
	gen := NewGenerator(rand.NewSource(1))
	_, err := gen.Generate(20, 20, Difficulty("ekstrem"))
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestGenerate_SameSeedSameMatrix(t *testing.T) {
	a, err := NewGenerator(rand.NewSource(42)).Generate(30, 25, DifficultyHard)
	require.NoError(t, err)
	b, err := NewGenerator(rand.NewSource(42)).Generate(30, 25, DifficultyHard)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGenerate_Shape(t *testing.T) {
	m, err := NewGenerator(rand.NewSource(7)).Generate(45, 60, DifficultyMedium)
	require.NoError(t, err)
	assert.Equal(t, 45, m.Rows())
	assert.Equal(t, 60, m.Columns())
	assert.Equal(t, 44*60, m.TotalQuestions())
	assert.NoError(t, m.Validate())
}

func TestGenerate_MediumAndEasyNeverZero(t *testing.T) {
	gen := NewGenerator(rand.NewSource(3))
	for _, d := range []Difficulty{DifficultyMedium, DifficultyEasy, ""} {
		m, err := gen.Generate(100, 100, d)
		require.NoError(t, err)
		for _, row := range m {
			for _, v := range row {
				if v < 1 || v > 9 {
					t.Fatalf("difficulty %q produced %d", d, v)
				}
			}
		}
	}
}

func TestGenerate_EasyFavoursMiddleDigits(t *testing.T) {
	m, err := NewGenerator(rand.NewSource(11)).Generate(100, 100, DifficultyEasy)
	require.NoError(t, err)

	counts := make(map[int]int)
	for _, row := range m {
		for _, v := range row {
			counts[v]++
		}
	}
	assert.Greater(t, counts[5], counts[1])
	assert.Greater(t, counts[5], counts[9])
	assert.Greater(t, counts[4], counts[2])
}

func TestGenerate_HardProducesOccasionalZero(t *testing.T) {
	m, err := NewGenerator(rand.NewSource(5)).Generate(100, 100, DifficultyHard)
	require.NoError(t, err)

	zeros := 0
	for _, row := range m {
		for _, v := range row {
			if v == 0 {
				zeros++
			}
		}
	}
	assert.Greater(t, zeros, 0)
	// 5% of 10000 cells, with generous slack
	assert.Less(t, zeros, 1000)
}

func TestGenerate_CustomPolicy(t *testing.T) {
	policy := DefaultPolicy()
	policy.HardZeroProbability = 1
	m, err := NewGenerator(rand.NewSource(1)).WithPolicy(policy).Generate(20, 20, DifficultyHard)
	require.NoError(t, err)
	for _, row := range m {
		for _, v := range row {
			assert.Equal(t, 0, v)
		}
	}
}

func TestParseDifficulty(t *testing.T) {
	d, err := ParseDifficulty("")
	require.NoError(t, err)
	assert.Equal(t, DifficultyMedium, d)

	d, err = ParseDifficulty("mudah")
	require.NoError(t, err)
	assert.Equal(t, DifficultyEasy, d)

	_, err = ParseDifficulty("hard")
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}
