package corridor

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"payreq/internal/domain"
)

func completedUSDraft() *domain.PaymentDraft {
	draft := domain.NewPaymentDraft(uuid.New(), uuid.New(), domain.USD)
	draft.BeneficiaryName = "Acme Industrial Supplies"
	draft.CanonicalAmount = "2500.00"
	draft.DisplayAmount = "2,500.00"
	draft.BankName = "JPMorgan Chase"
	draft.AccountNumber = "000123456789"
	draft.ABARoutingNumber = "021000021"
	draft.StreetAddress = "270 Park Avenue"
	draft.City = "New York"
	draft.Purpose = "Invoice settlement for Q3 machine parts"
	draft.InvoiceNumber = "INV-2026-0815"
	draft.InvoiceDate = "2026-08-15"
	draft.AttachmentURL = "https://storage.example.com/files/inv-2026-0815.pdf"
	return draft
}

func TestValidate_CompleteDraftPasses(t *testing.T) {
	draft := completedUSDraft()
	set := Resolve("US", domain.USD)

	report := Validate(draft, set)

	assert.True(t, report.IsValid)
	assert.Empty(t, report.Failures)
}

func TestValidate_MissingFieldsReportedInSetOrder(t *testing.T) {
	draft := completedUSDraft()
	draft.BeneficiaryName = ""
	draft.ABARoutingNumber = ""
	set := Resolve("US", domain.USD)

	report := Validate(draft, set)

	assert.False(t, report.IsValid)
	assert.Len(t, report.Failures, 2)
	// Failures follow the requirement set's order, not edit order.
	assert.Equal(t, domain.FieldBeneficiaryName, report.Failures[0].Field)
	assert.Equal(t, domain.FieldABARoutingNumber, report.Failures[1].Field)
	assert.Equal(t, "required", report.Failures[0].Message)
}

func TestValidate_FormatFailure(t *testing.T) {
	draft := completedUSDraft()
	draft.ABARoutingNumber = "12345"
	set := Resolve("US", domain.USD)

	report := Validate(draft, set)

	assert.False(t, report.IsValid)
	msg, ok := report.FailureFor(domain.FieldABARoutingNumber)
	assert.True(t, ok)
	assert.Contains(t, msg, "9-digit")
}

func TestValidate_Deterministic(t *testing.T) {
	draft := completedUSDraft()
	draft.City = ""
	draft.InvoiceDate = "not-a-date"
	set := Resolve("US", domain.USD)

	first := Validate(draft, set)
	second := Validate(draft, set)

	assert.Equal(t, first, second)
}

func TestValidate_DoesNotMutateDraft(t *testing.T) {
	draft := completedUSDraft()
	before := draft.Snapshot()
	set := Resolve("US", domain.USD)

	_ = Validate(draft, set)

	after := draft.Snapshot()
	assert.Equal(t, before.BeneficiaryName, after.BeneficiaryName)
	assert.Equal(t, before.CanonicalAmount, after.CanonicalAmount)
	assert.Equal(t, before.ABARoutingNumber, after.ABARoutingNumber)
}

func TestValidate_NilDraft(t *testing.T) {
	report := Validate(nil, Resolve("US", domain.USD))
	assert.False(t, report.IsValid)
}
