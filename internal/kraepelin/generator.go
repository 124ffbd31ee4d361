package kraepelin

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Difficulty is a named digit-distribution policy for matrix generation.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "mudah"
	DifficultyMedium Difficulty = "sedang"
	DifficultyHard   Difficulty = "sulit"
)

// Dimension bounds for generated matrices.
const (
	MinDimension = 20
	MaxDimension = 100
)

// ParseDifficulty maps a request value to a Difficulty. Empty means sedang.
func ParseDifficulty(s string) (Difficulty, error) {
	switch Difficulty(s) {
	case "":
		return DifficultyMedium, nil
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return Difficulty(s), nil
	default:
		return "", fmt.Errorf("%w: unknown difficulty %q", ErrInvalidConfiguration, s)
	}
}

// ValidateDimensions rejects row or column counts outside [MinDimension, MaxDimension].
func ValidateDimensions(rows, columns int) error {
	if rows < MinDimension || rows > MaxDimension {
		return fmt.Errorf("%w: rows %d outside [%d,%d]", ErrInvalidConfiguration, rows, MinDimension, MaxDimension)
	}
	if columns < MinDimension || columns > MaxDimension {
		return fmt.Errorf("%w: columns %d outside [%d,%d]", ErrInvalidConfiguration, columns, MinDimension, MaxDimension)
	}
	return nil
}

// DifficultyPolicy holds the tunable parts of the digit distributions.
type DifficultyPolicy struct {
	// EasyWeights are the relative weights of digits 1..9 for mudah.
	EasyWeights [9]int
	// HardZeroProbability is the chance of a 0 cell for sulit.
	HardZeroProbability float64
}

// DefaultPolicy returns the triangular mudah weighting and a 5% zero rate for sulit.
func DefaultPolicy() DifficultyPolicy {
	return DifficultyPolicy{
		EasyWeights:         [9]int{5, 10, 15, 20, 25, 20, 15, 10, 5},
		HardZeroProbability: 0.05,
	}
}

// Generator produces stimulus matrices. It is safe for concurrent use.
type Generator struct {
	mu     sync.Mutex
	rnd    *rand.Rand
	policy DifficultyPolicy
}

// NewGenerator returns a Generator drawing from src. A nil src seeds from the clock.
func NewGenerator(src rand.Source) *Generator {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Generator{rnd: rand.New(src), policy: DefaultPolicy()}
}

// WithPolicy replaces the difficulty policy.
func (g *Generator) WithPolicy(p DifficultyPolicy) *Generator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.policy = p
	return g
}

// Generate builds a rows x columns matrix for the given difficulty.
func (g *Generator) Generate(rows, columns int, difficulty Difficulty) (Matrix, error) {
	if err := ValidateDimensions(rows, columns); err != nil {
		return nil, err
	}
	difficulty, err := ParseDifficulty(string(difficulty))
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	m := make(Matrix, rows)
	for r := range m {
		m[r] = make([]int, columns)
		for c := range m[r] {
			m[r][c] = g.digit(difficulty)
		}
	}
	return m, nil
}

func (g *Generator) digit(d Difficulty) int {
	switch d {
	case DifficultyEasy:
		return g.weightedDigit()
	case DifficultyHard:
		if g.rnd.Float64() < g.policy.HardZeroProbability {
			return 0
		}
		return g.rnd.Intn(9) + 1
	default:
		return g.rnd.Intn(9) + 1
	}
}

// weightedDigit picks 1..9 by cumulative weight.
func (g *Generator) weightedDigit() int {
	total := 0
	for _, w := range g.policy.EasyWeights {
		total += w
	}
	if total <= 0 {
		return g.rnd.Intn(9) + 1
	}
	r := g.rnd.Intn(total)
	acc := 0
	for i, w := range g.policy.EasyWeights {
		acc += w
		if r < acc {
			return i + 1
		}
	}
	return 9
}
