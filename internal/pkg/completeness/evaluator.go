package completeness

import (
	"github.com/intakehq/briefing-backend/internal/entity"
)

// Policy tunes readiness. ReadyThreshold is the minimum completion
// percentage, MinCoreShare is the minimum fraction of answered questions
// that must come from the core categories.
type Policy struct {
	ReadyThreshold float64
	MinCoreShare   float64
}

// Result reports how far a session is from being ready for summary.
type Result struct {
	Percentage    float64
	Ready         bool
	AnsweredCount int
	RequiredCount int
	CoreShare     float64
}

type Evaluator struct {
	policy Policy
}

func NewEvaluator(policy Policy) *Evaluator {
	return &Evaluator{policy: policy}
}

// Evaluate scores a session against the policy. The percentage counts
// answered required questions over issued required questions; when no
// question is marked required, all issued questions count instead.
func (e *Evaluator) Evaluate(session *entity.Session) Result {
	issued := session.IssuedQuestions()
	if len(issued) == 0 {
		return Result{}
	}

	var required, answeredRequired, answered, answeredCore int
	anyRequired := false
	for _, q := range issued {
		if q.Required {
			anyRequired = true
		}
	}

	for _, q := range issued {
		counts := q.Required || !anyRequired
		if counts {
			required++
		}
		if _, ok := session.Answers[q.Code]; !ok {
			continue
		}
		answered++
		if counts {
			answeredRequired++
		}
		if entity.CoreCategories[q.Category] {
			answeredCore++
		}
	}

	result := Result{
		AnsweredCount: answered,
		RequiredCount: required,
	}
	if required > 0 {
		result.Percentage = float64(answeredRequired) / float64(required) * 100
	}
	if answered > 0 {
		result.CoreShare = float64(answeredCore) / float64(answered)
	}

	result.Ready = result.Percentage >= e.policy.ReadyThreshold &&
		result.CoreShare >= e.policy.MinCoreShare

	return result
}
