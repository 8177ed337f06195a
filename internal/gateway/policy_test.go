package gateway_test

import (
	"testing"

	"github.com/isometry/echo-api/internal/gateway"
	"github.com/isometry/echo-api/internal/guardian"
	"github.com/stretchr/testify/assert"
)

func TestEvaluate(t *testing.T) {
	testCases := []struct {
		Name     string
		Scores   guardian.Scores
		Expected gateway.Decision
	}{
		{
			Name:     "all_low",
			Scores:   guardian.Scores{Toxicity: 0.2, Sexual: 0.1, Violence: 0.3, Illegal: 0.69},
			Expected: gateway.Decision{Allow: true, Reason: "The prompt is allowed"},
		},
		{
			Name:     "violence_at_threshold",
			Scores:   guardian.Scores{Violence: gateway.Threshold},
			Expected: gateway.Decision{Reason: "description of violent acts"},
		},
		{
			Name:     "illegal_highest",
			Scores:   guardian.Scores{Violence: 0.75, Illegal: 0.9, Sexual: 0.8},
			Expected: gateway.Decision{Reason: "inquiries on how to perform an illegal activity"},
		},
		{
			Name:     "sexual_highest",
			Scores:   guardian.Scores{Sexual: 0.95, Toxicity: 0.95},
			Expected: gateway.Decision{Reason: "sexual content"},
		},
		{
			Name:     "tie_goes_to_violence",
			Scores:   guardian.Scores{Violence: 0.8, Illegal: 0.8, Sexual: 0.8},
			Expected: gateway.Decision{Reason: "description of violent acts"},
		},
		{
			Name:     "toxicity_fallback",
			Scores:   guardian.Scores{Toxicity: 0.7, Violence: 0.5},
			Expected: gateway.Decision{Reason: "toxic content"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			assert.Equal(t, tc.Expected, gateway.Evaluate(tc.Scores))
		})
	}
}
