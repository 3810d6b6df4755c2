package wizard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"payreq/internal/bankdir"
	"payreq/internal/corridor"
	"payreq/internal/domain"
	"payreq/internal/submission"
	"payreq/pkg/errors"
	"payreq/pkg/logger"
)

// --- Mocks ---

type MockSubmitter struct {
	mock.Mock
}

func (m *MockSubmitter) Submit(ctx context.Context, draft *domain.PaymentDraft) (*submission.Receipt, error) {
	args := m.Called(ctx, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*submission.Receipt), args.Error(1)
}

// blockingSubmitter holds every Submit call until released, so tests can
// observe the wizard mid-flight.
type blockingSubmitter struct {
	entered chan struct{}
	release chan struct{}
	receipt *submission.Receipt
	err     error
}

func (s *blockingSubmitter) Submit(ctx context.Context, draft *domain.PaymentDraft) (*submission.Receipt, error) {
	s.entered <- struct{}{}
	<-s.release
	return s.receipt, s.err
}

func testDirectory() *bankdir.Service {
	providers := []bankdir.Provider{bankdir.NewStaticDirectoryProvider()}
	return bankdir.NewService(nil, nil, providers, time.Hour, logger.NewNop())
}

func newTestWizard(submitter submission.Client) *Wizard {
	return New(uuid.New(), testDirectory(), submitter, Policy{AllowUnresolvedContinue: true}, logger.NewNop())
}

// selectUS walks a fresh wizard through currency selection and a resolved
// CHASUS33 lookup into FieldEntry.
func selectUS(t *testing.T, w *Wizard) {
	t.Helper()
	assert.NoError(t, w.SelectCurrency(uuid.New(), uuid.New(), domain.USD, domain.USD))

	shouldResolve, err := w.SetIdentifier(domain.IdentifierSwift, "CHASUS33")
	assert.NoError(t, err)
	assert.True(t, shouldResolve)
	assert.NoError(t, w.Resolve(context.Background(), domain.IdentifierSwift, "CHASUS33"))
	assert.Equal(t, domain.StateFieldEntry, w.State())
}

// fillUSDraft completes every field the US corridor requires.
func fillUSDraft(t *testing.T, w *Wizard) {
	t.Helper()
	assert.NoError(t, w.SetField(domain.FieldBeneficiaryName, "Acme Industrial Supplies"))
	assert.NoError(t, w.SetAmount("2,500.00"))
	assert.NoError(t, w.SetField(domain.FieldAccountNumber, "000123456789"))
	assert.NoError(t, w.SetField(domain.FieldABARoutingNumber, "021000021"))
	assert.NoError(t, w.SetField(domain.FieldStreetAddress, "270 Park Avenue"))
	assert.NoError(t, w.SetField(domain.FieldCity, "New York"))
	assert.NoError(t, w.SetField(domain.FieldPurpose, "Invoice settlement for machine parts"))
	assert.NoError(t, w.SetField(domain.FieldInvoiceNumber, "INV-2026-0815"))
	assert.NoError(t, w.SetField(domain.FieldInvoiceDate, "2026-08-15"))

	ticket, err := w.BeginAttachmentUpload()
	assert.NoError(t, err)
	assert.NoError(t, w.ApplyAttachment(ticket, "https://storage.example.com/files/inv.pdf"))
}

// --- FSM ---

func TestWizard_StartsInDrafting(t *testing.T) {
	w := newTestWizard(new(MockSubmitter))

	assert.Equal(t, domain.StateDrafting, w.State())
	_, ok := w.Draft()
	assert.False(t, ok)
}

func TestSelectCurrency_MovesToIdentifierResolution(t *testing.T) {
	w := newTestWizard(new(MockSubmitter))

	err := w.SelectCurrency(uuid.New(), uuid.New(), domain.USD, domain.EUR)

	assert.NoError(t, err)
	assert.Equal(t, domain.StateIdentifierResolution, w.State())
	draft, ok := w.Draft()
	assert.True(t, ok)
	assert.Equal(t, domain.EUR, draft.BeneficiaryCurrency)
}

func TestSelectCurrency_DomesticSkipsResolution(t *testing.T) {
	w := New(uuid.New(), testDirectory(), new(MockSubmitter), Policy{
		DomesticCurrencies: map[domain.Currency]bool{domain.USD: true},
	}, logger.NewNop())

	err := w.SelectCurrency(uuid.New(), uuid.New(), domain.USD, domain.USD)

	assert.NoError(t, err)
	assert.Equal(t, domain.StateFieldEntry, w.State())
}

func TestSelectCurrency_OnlyFromDrafting(t *testing.T) {
	w := newTestWizard(new(MockSubmitter))
	assert.NoError(t, w.SelectCurrency(uuid.New(), uuid.New(), domain.USD, domain.EUR))

	err := w.SelectCurrency(uuid.New(), uuid.New(), domain.USD, domain.GBP)

	assert.ErrorIs(t, err, errors.ErrInvalidTransition)
}

func TestAdvance_FromDraftingRejected(t *testing.T) {
	w := newTestWizard(new(MockSubmitter))

	_, err := w.Advance()

	assert.ErrorIs(t, err, errors.ErrInvalidTransition)
}

// --- Identifier resolution ---

func TestResolve_EnrichesDraftAndAdvances(t *testing.T) {
	w := newTestWizard(new(MockSubmitter))
	assert.NoError(t, w.SelectCurrency(uuid.New(), uuid.New(), domain.USD, domain.USD))

	shouldResolve, err := w.SetIdentifier(domain.IdentifierSwift, "chasus33")
	assert.NoError(t, err)
	assert.True(t, shouldResolve)

	assert.NoError(t, w.Resolve(context.Background(), domain.IdentifierSwift, "chasus33"))

	assert.Equal(t, domain.StateFieldEntry, w.State())
	assert.Equal(t, ResolutionResolved, w.Resolution())
	draft, _ := w.Draft()
	assert.Equal(t, "JPMorgan Chase Bank", draft.BankName)
	assert.Equal(t, "US", draft.BankCountryCode)
	assert.Equal(t, "New York", draft.BankCity)
}

func TestSetIdentifier_BelowThresholdDoesNotResolve(t *testing.T) {
	w := newTestWizard(new(MockSubmitter))
	assert.NoError(t, w.SelectCurrency(uuid.New(), uuid.New(), domain.USD, domain.USD))

	shouldResolve, err := w.SetIdentifier(domain.IdentifierSwift, "CHASU")

	assert.NoError(t, err)
	assert.False(t, shouldResolve)
	assert.Equal(t, domain.StateIdentifierResolution, w.State())
}

func TestApplyResolution_StaleIdentifierDiscarded(t *testing.T) {
	w := newTestWizard(new(MockSubmitter))
	assert.NoError(t, w.SelectCurrency(uuid.New(), uuid.New(), domain.USD, domain.USD))

	// User types CHASUS33, then corrects to DEUTDEFF before the first
	// lookup lands.
	_, err := w.SetIdentifier(domain.IdentifierSwift, "CHASUS33")
	assert.NoError(t, err)
	_, err = w.SetIdentifier(domain.IdentifierSwift, "DEUTDEFF")
	assert.NoError(t, err)

	stale := &domain.BankInfo{BankName: "JPMorgan Chase Bank", Country: "United States", CountryCode: "US", City: "New York"}
	err = w.ApplyResolution("CHASUS33", stale, nil)
	assert.ErrorIs(t, err, errors.ErrStaleResolution)

	draft, _ := w.Draft()
	assert.Empty(t, draft.BankName, "stale result must not enrich the draft")

	// The current identifier's result still applies.
	fresh := &domain.BankInfo{BankName: "Deutsche Bank", Country: "Germany", CountryCode: "DE", City: "Frankfurt am Main"}
	assert.NoError(t, w.ApplyResolution("DEUTDEFF", fresh, nil))
	draft, _ = w.Draft()
	assert.Equal(t, "Deutsche Bank", draft.BankName)
}

func TestApplyResolution_FailureLeavesDraftIntact(t *testing.T) {
	w := newTestWizard(new(MockSubmitter))
	assert.NoError(t, w.SelectCurrency(uuid.New(), uuid.New(), domain.USD, domain.USD))

	_, err := w.SetIdentifier(domain.IdentifierSwift, "NOPEUS33")
	assert.NoError(t, err)

	err = w.Resolve(context.Background(), domain.IdentifierSwift, "NOPEUS33")

	assert.ErrorIs(t, err, errors.ErrBankNotFound)
	assert.Equal(t, ResolutionUnresolved, w.Resolution())
	assert.Equal(t, domain.StateIdentifierResolution, w.State())
	draft, _ := w.Draft()
	assert.Empty(t, draft.BankName)
}

func TestApplyResolution_AfterCancelDiscarded(t *testing.T) {
	w := newTestWizard(new(MockSubmitter))
	assert.NoError(t, w.SelectCurrency(uuid.New(), uuid.New(), domain.USD, domain.USD))
	_, err := w.SetIdentifier(domain.IdentifierSwift, "CHASUS33")
	assert.NoError(t, err)

	assert.NoError(t, w.Cancel())

	info := &domain.BankInfo{BankName: "JPMorgan Chase Bank", CountryCode: "US"}
	err = w.ApplyResolution("CHASUS33", info, nil)
	assert.ErrorIs(t, err, errors.ErrWizardTerminated)
}

func TestEnrichment_DoesNotOverwriteHandEditedFields(t *testing.T) {
	w := newTestWizard(new(MockSubmitter))
	assert.NoError(t, w.SelectCurrency(uuid.New(), uuid.New(), domain.USD, domain.USD))

	_, err := w.SetIdentifier(domain.IdentifierSwift, "CHASUS33")
	assert.NoError(t, err)
	assert.NoError(t, w.SetField(domain.FieldBankName, "Chase Manhattan (custom)"))

	info := &domain.BankInfo{BankName: "JPMorgan Chase Bank", Country: "United States", CountryCode: "US", City: "New York"}
	assert.NoError(t, w.ApplyResolution("CHASUS33", info, nil))

	draft, _ := w.Draft()
	assert.Equal(t, "Chase Manhattan (custom)", draft.BankName)
	assert.Equal(t, "US", draft.BankCountryCode, "untouched fields are still enriched")
}

func TestSkipResolution_PolicyGated(t *testing.T) {
	blocked := New(uuid.New(), testDirectory(), new(MockSubmitter), Policy{AllowUnresolvedContinue: false}, logger.NewNop())
	assert.NoError(t, blocked.SelectCurrency(uuid.New(), uuid.New(), domain.USD, domain.USD))
	assert.ErrorIs(t, blocked.SkipResolution(), errors.ErrOverrideDisabled)

	allowed := newTestWizard(new(MockSubmitter))
	assert.NoError(t, allowed.SelectCurrency(uuid.New(), uuid.New(), domain.USD, domain.USD))
	assert.NoError(t, allowed.SkipResolution())
	assert.Equal(t, domain.StateFieldEntry, allowed.State())
}

func TestAdvance_UnresolvedIdentifierBlocked(t *testing.T) {
	w := newTestWizard(new(MockSubmitter))
	assert.NoError(t, w.SelectCurrency(uuid.New(), uuid.New(), domain.USD, domain.USD))

	_, err := w.Advance()

	assert.ErrorIs(t, err, errors.ErrUnresolvedBank)
	assert.Equal(t, domain.StateIdentifierResolution, w.State())
}

// --- Field entry ---

func TestSetField_AmountKeyRejected(t *testing.T) {
	w := newTestWizard(new(MockSubmitter))
	selectUS(t, w)

	err := w.SetField(domain.FieldAmount, "1000.00")

	assert.ErrorIs(t, err, errors.ErrAmountInvalid)
}

func TestSetAmount_StoresBothForms(t *testing.T) {
	w := newTestWizard(new(MockSubmitter))
	selectUS(t, w)

	assert.NoError(t, w.SetAmount("1,000.5"))

	draft, _ := w.Draft()
	assert.Equal(t, "1000.50", draft.CanonicalAmount)
	assert.Equal(t, "1,000.50", draft.DisplayAmount)
}

func TestSetAmount_InvalidInputRejected(t *testing.T) {
	w := newTestWizard(new(MockSubmitter))
	selectUS(t, w)

	assert.ErrorIs(t, w.SetAmount("12.345"), errors.ErrAmountPrecision)
	assert.ErrorIs(t, w.SetAmount("abc"), errors.ErrAmountInvalid)

	draft, _ := w.Draft()
	assert.Empty(t, draft.CanonicalAmount, "rejected input must not land in the draft")
}

func TestCountryChange_PrunesStaleIdentifierFields(t *testing.T) {
	w := newTestWizard(new(MockSubmitter))
	selectUS(t, w)

	assert.NoError(t, w.SetField(domain.FieldAccountNumber, "000123456789"))
	assert.NoError(t, w.SetField(domain.FieldABARoutingNumber, "021000021"))

	// Beneficiary bank turns out to be German: IBAN corridor.
	assert.NoError(t, w.SetField(domain.FieldBankCountryCode, "DE"))

	draft, _ := w.Draft()
	assert.Empty(t, draft.ABARoutingNumber, "ABA routing does not survive a move to an IBAN corridor")
	assert.Empty(t, draft.AccountNumber)
}

func TestSetField_CrossCorridorIdentifierRejected(t *testing.T) {
	w := newTestWizard(new(MockSubmitter))
	selectUS(t, w)
	fillUSDraft(t, w)

	// US corridor takes account number + ABA routing; IBAN and IFSC
	// belong to other corridors and must never join the payload.
	assert.ErrorIs(t, w.SetField(domain.FieldIBAN, "DE89370400440532013000"), errors.ErrFieldNotApplicable)
	assert.ErrorIs(t, w.SetField(domain.FieldIFSCCode, "HDFC0000001"), errors.ErrFieldNotApplicable)

	draft, _ := w.Draft()
	assert.Empty(t, draft.IBAN)
	assert.Empty(t, draft.IFSCCode)

	report, err := w.Advance()
	assert.NoError(t, err)
	assert.True(t, report.IsValid)

	frozen, _ := w.Draft()
	populated := 0
	for _, key := range corridor.IdentifierFieldKeys() {
		if frozen.Field(key) != "" {
			populated++
		}
	}
	assert.Equal(t, 2, populated, "only the US shape (account + ABA) is populated")
}

// --- Attachments ---

func TestApplyAttachment_LatestUploadWins(t *testing.T) {
	w := newTestWizard(new(MockSubmitter))
	selectUS(t, w)

	first, err := w.BeginAttachmentUpload()
	assert.NoError(t, err)
	second, err := w.BeginAttachmentUpload()
	assert.NoError(t, err)

	// The slower first upload finishes after the second began.
	err = w.ApplyAttachment(first, "https://storage.example.com/files/old.pdf")
	assert.ErrorIs(t, err, errors.ErrStaleUpload)

	assert.NoError(t, w.ApplyAttachment(second, "https://storage.example.com/files/new.pdf"))
	draft, _ := w.Draft()
	assert.Equal(t, "https://storage.example.com/files/new.pdf", draft.AttachmentURL)
}

func TestApplyAttachment_AfterCancelDiscarded(t *testing.T) {
	w := newTestWizard(new(MockSubmitter))
	selectUS(t, w)

	ticket, err := w.BeginAttachmentUpload()
	assert.NoError(t, err)
	assert.NoError(t, w.Cancel())

	err = w.ApplyAttachment(ticket, "https://storage.example.com/files/late.pdf")
	assert.ErrorIs(t, err, errors.ErrWizardTerminated)
}

// --- Review ---

func TestAdvance_InvalidDraftIsNoOp(t *testing.T) {
	w := newTestWizard(new(MockSubmitter))
	selectUS(t, w)

	report, err := w.Advance()

	assert.ErrorIs(t, err, errors.ErrValidationFailed)
	assert.False(t, report.IsValid)
	assert.NotEmpty(t, report.Failures)
	assert.Equal(t, domain.StateFieldEntry, w.State())
}

func TestAdvance_ValidDraftFreezesForReview(t *testing.T) {
	w := newTestWizard(new(MockSubmitter))
	selectUS(t, w)
	fillUSDraft(t, w)

	report, err := w.Advance()

	assert.NoError(t, err)
	assert.True(t, report.IsValid)
	assert.Equal(t, domain.StateReview, w.State())

	assert.ErrorIs(t, w.SetField(domain.FieldCity, "Boston"), errors.ErrDraftFrozen)
	assert.ErrorIs(t, w.SetAmount("99.00"), errors.ErrDraftFrozen)
}

func TestEditBack_UnfreezesWithoutClearing(t *testing.T) {
	w := newTestWizard(new(MockSubmitter))
	selectUS(t, w)
	fillUSDraft(t, w)
	_, err := w.Advance()
	assert.NoError(t, err)

	assert.NoError(t, w.EditBack())

	assert.Equal(t, domain.StateFieldEntry, w.State())
	draft, _ := w.Draft()
	assert.Equal(t, "Acme Industrial Supplies", draft.BeneficiaryName)
	assert.NoError(t, w.SetField(domain.FieldCity, "Boston"))
}

// --- Submission ---

func TestSubmit_SuccessCompletesAndClearsDraft(t *testing.T) {
	submitter := new(MockSubmitter)
	submitter.On("Submit", mock.Anything, mock.Anything).Return(&submission.Receipt{ID: "tx-1", Status: "success"}, nil)

	w := newTestWizard(submitter)
	selectUS(t, w)
	fillUSDraft(t, w)
	_, err := w.Advance()
	assert.NoError(t, err)

	receipt, err := w.Submit(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, "tx-1", receipt.ID)
	assert.Equal(t, domain.StateCompleted, w.State())
	_, ok := w.Draft()
	assert.False(t, ok, "draft is gone after successful submission")
	submitter.AssertNumberOfCalls(t, "Submit", 1)
}

func TestSubmit_FailureReturnsToFieldEntryWithError(t *testing.T) {
	submitter := new(MockSubmitter)
	submitter.On("Submit", mock.Anything, mock.Anything).Return(nil, errors.Wrap(errors.ErrSubmissionRejected, "insufficient funds"))

	w := newTestWizard(submitter)
	selectUS(t, w)
	fillUSDraft(t, w)
	_, err := w.Advance()
	assert.NoError(t, err)

	_, err = w.Submit(context.Background())

	assert.ErrorIs(t, err, errors.ErrSubmissionRejected)
	assert.Equal(t, domain.StateFieldEntry, w.State())
	assert.Contains(t, w.LastError(), "insufficient funds")
	draft, ok := w.Draft()
	assert.True(t, ok, "draft survives a failed submission")
	assert.Equal(t, "Acme Industrial Supplies", draft.BeneficiaryName)
	assert.NoError(t, w.SetField(domain.FieldCity, "Boston"), "draft is editable again")
}

func TestSubmit_SingleFlight(t *testing.T) {
	submitter := &blockingSubmitter{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
		receipt: &submission.Receipt{ID: "tx-1", Status: "success"},
	}

	w := newTestWizard(submitter)
	selectUS(t, w)
	fillUSDraft(t, w)
	_, err := w.Advance()
	assert.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := w.Submit(context.Background())
		assert.NoError(t, err)
	}()

	<-submitter.entered

	// Second submit while the first is on the wire.
	_, err = w.Submit(context.Background())
	assert.ErrorIs(t, err, errors.ErrSubmissionInFlight)

	close(submitter.release)
	wg.Wait()
	assert.Equal(t, domain.StateCompleted, w.State())
}

func TestSubmit_CancelledMidFlightDiscardsResult(t *testing.T) {
	submitter := &blockingSubmitter{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
		receipt: &submission.Receipt{ID: "tx-1", Status: "success"},
	}

	w := newTestWizard(submitter)
	selectUS(t, w)
	fillUSDraft(t, w)
	_, err := w.Advance()
	assert.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := w.Submit(context.Background())
		done <- err
	}()

	<-submitter.entered
	assert.NoError(t, w.Cancel())
	close(submitter.release)

	assert.ErrorIs(t, <-done, errors.ErrWizardTerminated)
	assert.Equal(t, domain.StateCancelled, w.State())
}

func TestSubmit_RequiresReview(t *testing.T) {
	w := newTestWizard(new(MockSubmitter))
	selectUS(t, w)

	_, err := w.Submit(context.Background())

	assert.ErrorIs(t, err, errors.ErrInvalidTransition)
}

// --- Cancellation ---

func TestCancel_TerminatesAndBlocksFurtherEdits(t *testing.T) {
	w := newTestWizard(new(MockSubmitter))
	selectUS(t, w)

	assert.NoError(t, w.Cancel())

	assert.Equal(t, domain.StateCancelled, w.State())
	_, ok := w.Draft()
	assert.False(t, ok)
	assert.ErrorIs(t, w.SetField(domain.FieldCity, "Boston"), errors.ErrNoActiveDraft)
	assert.ErrorIs(t, w.Cancel(), errors.ErrWizardTerminated)
}

func TestCancel_DoesNotAffectOtherSessions(t *testing.T) {
	m := NewManager(testDirectory(), new(MockSubmitter), Policy{AllowUnresolvedContinue: true}, logger.NewNop())
	a := m.Create()
	b := m.Create()

	assert.NoError(t, a.SelectCurrency(uuid.New(), uuid.New(), domain.USD, domain.USD))
	assert.NoError(t, b.SelectCurrency(uuid.New(), uuid.New(), domain.USD, domain.EUR))

	assert.NoError(t, a.Cancel())

	assert.Equal(t, domain.StateCancelled, a.State())
	assert.Equal(t, domain.StateIdentifierResolution, b.State())
	_, ok := b.Draft()
	assert.True(t, ok)
}

func TestManager_GetUnknownSession(t *testing.T) {
	m := NewManager(testDirectory(), new(MockSubmitter), Policy{}, logger.NewNop())

	_, err := m.Get(uuid.New())

	assert.ErrorIs(t, err, errors.ErrSessionNotFound)
}
