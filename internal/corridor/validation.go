// ==============================================================================
// VALIDATION ENGINE - internal/corridor/validation.go
// ==============================================================================

package corridor

import (
	"strings"

	"payreq/internal/domain"
)

// FieldFailure is a single failing field in a validation report.
type FieldFailure struct {
	Field   domain.FieldKey `json:"field"`
	Label   string          `json:"label"`
	Message string          `json:"message"`
}

// Report is the outcome of validating a draft against a requirement set.
// Failures keep the requirement set's order, so validating an unchanged
// draft twice yields an identical report.
type Report struct {
	IsValid  bool           `json:"is_valid"`
	Failures []FieldFailure `json:"failures"`
}

// FailureFor returns the failure message for a field, if any.
func (r Report) FailureFor(key domain.FieldKey) (string, bool) {
	for _, f := range r.Failures {
		if f.Field == key {
			return f.Message, true
		}
	}
	return "", false
}

// Validate checks the draft against the requirement set, in set order:
// required-and-empty first, then the field's format validator. It is a pure
// function and never mutates the draft.
func Validate(draft *domain.PaymentDraft, set RequirementSet) Report {
	report := Report{IsValid: true, Failures: []FieldFailure{}}
	if draft == nil {
		report.IsValid = false
		return report
	}

	for _, req := range set {
		value := strings.TrimSpace(draft.Field(req.Key))
		if value == "" {
			report.Failures = append(report.Failures, FieldFailure{
				Field:   req.Key,
				Label:   req.Label,
				Message: "required",
			})
			continue
		}
		if req.Validate != nil {
			if err := req.Validate(value); err != nil {
				report.Failures = append(report.Failures, FieldFailure{
					Field:   req.Key,
					Label:   req.Label,
					Message: err.Error(),
				})
			}
		}
	}

	report.IsValid = len(report.Failures) == 0
	return report
}
