package nutrition

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFallbackEstimateCategories(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"coconut oil", "fat"},
		{"maple syrup", "sugar"},
		{"sourdough bread", "carb"},
		{"ground beef", "protein"},
		{"baby spinach", "vegetable"},
		{"dragon fruit", "fruit"},
		{"smoked paprika", "spice"},
		{"greek yogurt", "dairy"},
		{"xyzabc123", "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, category := FallbackEstimate(tt.name, 1)
			assert.Equal(t, tt.expected, category)
		})
	}
}

func TestFallbackEstimateScalesWithQuantity(t *testing.T) {
	one, _ := FallbackEstimate("mystery", 1)
	two, _ := FallbackEstimate("mystery", 2)
	assert.InDelta(t, one.Calories*2, two.Calories, 0.001)
}

func TestFallbackEstimateClampsQuantity(t *testing.T) {
	ten, _ := FallbackEstimate("mystery", 10)
	hundred, _ := FallbackEstimate("mystery", 100)
	assert.InDelta(t, ten.Calories, hundred.Calories, 0.001)
}

func TestFallbackEstimateNegativeQuantity(t *testing.T) {
	est, _ := FallbackEstimate("mystery", -3)
	assert.InDelta(t, 0.0, est.Calories, 0.001)
}

func TestFallbackEstimateDefaultValues(t *testing.T) {
	// default 類別 × 1 × 0.3
	est, category := FallbackEstimate("unknown thing", 1)
	assert.Equal(t, "default", category)
	assert.InDelta(t, 30.0, est.Calories, 0.001)
	assert.InDelta(t, 0.9, est.ProteinG, 0.001)
}
