package fact

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martbuild/pkg/models"
)

func TestSeverityTierBoundaries(t *testing.T) {
	b := NewBuilder(testPipelineCfg(), time.Now())

	tests := []struct {
		score float64
		want  string
	}{
		{10.0, "CRITICAL"},
		{9.0, "CRITICAL"}, // inclusive lower bound classifies up
		{8.999, "HIGH"},
		{7.0, "HIGH"},
		{6.9, "MEDIUM"},
		{4.0, "MEDIUM"},
		{3.999, "LOW"},
		{0.0, "LOW"},
	}

	for _, tt := range tests {
		score := tt.score
		assert.Equal(t, tt.want, b.severityTier(&score), "score %v", tt.score)
	}
}

func TestSeverityTierNilScore(t *testing.T) {
	b := NewBuilder(testPipelineCfg(), time.Now())
	assert.Equal(t, "UNKNOWN", b.severityTier(nil))
}

func TestSeverityTierBelowAllTiers(t *testing.T) {
	b := NewBuilder(models.Pipeline{
		SeverityTiers: []models.SeverityTier{{Name: "HIGH", MinScore: 7.0}},
	}, time.Now())

	score := 1.0
	assert.Equal(t, "UNKNOWN", b.severityTier(&score))
}

func TestProfitMarginPct(t *testing.T) {
	got := profitMarginPct(40, 100)
	require.NotNil(t, got)
	assert.InDelta(t, 40.0, *got, 1e-9)

	assert.Nil(t, profitMarginPct(40, 0))
}

func TestDiscountPct(t *testing.T) {
	got := discountPct(10, 50, 2)
	require.NotNil(t, got)
	assert.InDelta(t, 10.0, *got, 1e-9)

	assert.Nil(t, discountPct(10, 0, 2))
	assert.Nil(t, discountPct(10, 50, 0))
}
