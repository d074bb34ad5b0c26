// Package scoring derives the engagement score and risk label from a
// contact's interaction history.
package scoring

import "github.com/camdenhq/rapport/internal/model"

// Params are the inputs to the score formula.
type Params struct {
	DaysSinceLastInteraction int
	OutboundPending          bool
	MeetingCountLast30       int
	EmailCountLast30         int
}

// ComputeScore maps the params to a score in [0, 100] and its risk label.
// Recency decays the score by 2 points per day, an unanswered outbound email
// costs 15, and recent meetings and emails boost it by 8 and 2 apiece.
func ComputeScore(p Params) (int, model.RiskLabel) {
	score := 100
	score -= 2 * p.DaysSinceLastInteraction
	if p.OutboundPending {
		score -= 15
	}
	score += 8 * p.MeetingCountLast30
	score += 2 * p.EmailCountLast30

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return score, labelFor(score)
}

func labelFor(score int) model.RiskLabel {
	switch {
	case score >= 70:
		return model.RiskActive
	case score >= 40:
		return model.RiskWarm
	default:
		return model.RiskAtRisk
	}
}
