package service

import (
	"github.com/sirupsen/logrus"

	"github.com/frame-dx-server/internal/domain"
	"github.com/frame-dx-server/pkg/findings"
)

// RuleEvaluator checks a frame's hard constraints and collects the findings
// it shares with a request.
type RuleEvaluator struct {
	logger *logrus.Logger
}

// NewRuleEvaluator creates a new rule evaluator
func NewRuleEvaluator(logger *logrus.Logger) *RuleEvaluator {
	return &RuleEvaluator{logger: logger}
}

// Evaluate matches present against frame. Rule members keep the order the
// frame declares them in. A frame without rules, or without a given kind, is
// unconstrained for that kind; unknown kinds are ignored.
func (e *RuleEvaluator) Evaluate(frame *domain.Frame, present findings.Set) domain.EvaluationResult {
	result := domain.EvaluationResult{
		FrameID:          frame.ID,
		MatchedFindings:  make(map[string]float64),
		UnmetMust:        []string{},
		ForbiddenPresent: []string{},
	}

	for id, weight := range frame.Findings {
		if present.Has(id) {
			result.MatchedFindings[id] = weight
		}
	}

	for _, id := range frame.RuleMembers(domain.MustHave) {
		if !present.Has(id) {
			result.UnmetMust = append(result.UnmetMust, id)
		}
	}

	for _, id := range frame.RuleMembers(domain.MustNotHave) {
		if present.Has(id) {
			result.ForbiddenPresent = append(result.ForbiddenPresent, id)
		}
	}

	if e.logger.IsLevelEnabled(logrus.DebugLevel) {
		for kind := range frame.Rules {
			if !domain.RuleKind(kind).IsKnown() {
				e.logger.WithFields(logrus.Fields{
					"frame_id":  frame.ID,
					"rule_kind": kind,
				}).Debug("Ignoring unknown rule kind")
			}
		}
	}

	result.Admissible = len(result.UnmetMust) == 0 && len(result.ForbiddenPresent) == 0
	return result
}
