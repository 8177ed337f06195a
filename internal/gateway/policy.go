package gateway

import (
	"github.com/isometry/echo-api/internal/guardian"
)

// Threshold is the score at or above which a category blocks a prompt.
const Threshold = 0.7

// Decision is the outcome of screening a prompt. Reason names the offending content when Allow is false.
type Decision struct {
	Allow  bool
	Reason string
}

type category struct {
	score  float64
	reason string
}

// Evaluate applies the content policy to scores. The highest scoring of violence, illegal activity and
// sexual content blocks the prompt when it reaches Threshold, ties going to the category listed first.
// Otherwise overall toxicity at or above Threshold blocks it.
func Evaluate(scores guardian.Scores) Decision {
	categories := []category{
		{score: scores.Violence, reason: "description of violent acts"},
		{score: scores.Illegal, reason: "inquiries on how to perform an illegal activity"},
		{score: scores.Sexual, reason: "sexual content"},
	}

	top := categories[0]
	for _, c := range categories[1:] {
		if c.score > top.score {
			top = c
		}
	}
	if top.score >= Threshold {
		return Decision{Reason: top.reason}
	}
	if scores.Toxicity >= Threshold {
		return Decision{Reason: "toxic content"}
	}
	return Decision{Allow: true, Reason: "The prompt is allowed"}
}
