// ==============================================================================
// PAYMENT WIZARD - internal/wizard/wizard.go
// ==============================================================================
// Finite-state machine sequencing currency selection, identifier resolution,
// field entry, review, and submission of a cross-border payment draft.
// Illegal transitions are rejected against an allowed-transition table
// rather than guarded by scattered flags.
// ==============================================================================

package wizard

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"payreq/internal/amount"
	"payreq/internal/bankdir"
	"payreq/internal/corridor"
	"payreq/internal/domain"
	"payreq/internal/submission"
	"payreq/pkg/errors"
	"payreq/pkg/logger"
)

// ResolutionState communicates the outcome of the latest identifier lookup
// to the UI without blocking field entry.
type ResolutionState string

const (
	ResolutionIdle       ResolutionState = "idle"
	ResolutionResolved   ResolutionState = "resolved"
	ResolutionUnresolved ResolutionState = "unresolved"
)

// Policy holds product-configurable wizard behavior.
type Policy struct {
	// AllowUnresolvedContinue permits advancing past an unresolved bank
	// identifier with an explicit user override.
	AllowUnresolvedContinue bool
	// DomesticCurrencies skip the identifier resolution stage entirely.
	DomesticCurrencies map[domain.Currency]bool
}

// allowedTransitions is the full transition table of the wizard. Cancelled
// is additionally reachable from every non-terminal state.
var allowedTransitions = []struct {
	From domain.WizardState
	To   domain.WizardState
}{
	{domain.StateDrafting, domain.StateIdentifierResolution},
	{domain.StateDrafting, domain.StateFieldEntry},
	{domain.StateIdentifierResolution, domain.StateFieldEntry},
	{domain.StateFieldEntry, domain.StateReview},
	{domain.StateReview, domain.StateFieldEntry},
	{domain.StateReview, domain.StateSubmitting},
	{domain.StateSubmitting, domain.StateCompleted},
	{domain.StateSubmitting, domain.StateFieldEntry},
}

func transitionAllowed(from, to domain.WizardState) bool {
	if to == domain.StateCancelled {
		return !from.Terminal()
	}
	for _, t := range allowedTransitions {
		if t.From == from && t.To == to {
			return true
		}
	}
	return false
}

// Wizard owns exactly one payment draft for its lifetime. All methods are
// safe for concurrent use; async results (resolution, upload, submission)
// are matched against the request that produced them and discarded when
// superseded or when the wizard has moved on.
type Wizard struct {
	id        uuid.UUID
	directory *bankdir.Service
	submitter submission.Client
	policy    Policy
	logger    logger.Logger

	mu                sync.Mutex
	state             domain.WizardState
	draft             *domain.PaymentDraft
	resolution        ResolutionState
	pendingIdentifier string
	attachmentSeq     uint64
	lastError         string
	createdAt         time.Time
}

// New constructs a wizard in the Drafting state with no draft yet.
func New(id uuid.UUID, directory *bankdir.Service, submitter submission.Client, policy Policy, log logger.Logger) *Wizard {
	return &Wizard{
		id:         id,
		directory:  directory,
		submitter:  submitter,
		policy:     policy,
		logger:     log,
		state:      domain.StateDrafting,
		resolution: ResolutionIdle,
		createdAt:  time.Now(),
	}
}

// ID returns the session identifier.
func (w *Wizard) ID() uuid.UUID { return w.id }

// CreatedAt returns when the session was opened.
func (w *Wizard) CreatedAt() time.Time { return w.createdAt }

// State returns the current wizard state.
func (w *Wizard) State() domain.WizardState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Draft returns a read-only snapshot of the draft, if one exists.
func (w *Wizard) Draft() (domain.PaymentDraft, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.draft == nil {
		return domain.PaymentDraft{}, false
	}
	return w.draft.Snapshot(), true
}

// Resolution returns the outcome of the latest identifier lookup.
func (w *Wizard) Resolution() ResolutionState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.resolution
}

// LastError returns the most recent surfaced submission error, if any.
func (w *Wizard) LastError() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastError
}

// Requirements returns the requirement set for the draft's current corridor.
func (w *Wizard) Requirements() corridor.RequirementSet {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.draft == nil {
		return corridor.RequirementSet{}
	}
	return w.requirementsLocked()
}

func (w *Wizard) requirementsLocked() corridor.RequirementSet {
	return corridor.Resolve(w.draft.BankCountryCode, w.draft.BeneficiaryCurrency)
}

// identifierFieldKeys indexes the account-identifier fields for membership
// checks in SetField and the country-change prune.
var identifierFieldKeys = func() map[domain.FieldKey]bool {
	m := make(map[domain.FieldKey]bool, len(corridor.IdentifierFieldKeys()))
	for _, key := range corridor.IdentifierFieldKeys() {
		m[key] = true
	}
	return m
}()

// Report validates the current draft against its corridor requirements.
// Recomputed on every call; never cached across draft mutations.
func (w *Wizard) Report() corridor.Report {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reportLocked()
}

func (w *Wizard) reportLocked() corridor.Report {
	if w.draft == nil {
		return corridor.Report{IsValid: false, Failures: []corridor.FieldFailure{}}
	}
	return corridor.Validate(w.draft, w.requirementsLocked())
}

// SelectCurrency creates the draft and moves past Drafting. Currencies in
// the domestic set need no bank identifier and skip straight to FieldEntry.
func (w *Wizard) SelectCurrency(senderID, walletID uuid.UUID, source, beneficiary domain.Currency) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != domain.StateDrafting {
		return errors.ErrInvalidTransition
	}

	draft := domain.NewPaymentDraft(senderID, walletID, source)
	draft.BeneficiaryCurrency = beneficiary

	next := domain.StateIdentifierResolution
	if w.policy.DomesticCurrencies[beneficiary] {
		next = domain.StateFieldEntry
	}

	w.draft = draft
	w.setStateLocked(next)
	return nil
}

// SetIdentifier records the typed SWIFT code or IBAN and reports whether it
// has reached the lookup threshold. Any in-flight resolution for a previous
// value is superseded from this moment on.
func (w *Wizard) SetIdentifier(kind domain.IdentifierKind, value string) (shouldResolve bool, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.draft == nil {
		return false, errors.ErrNoActiveDraft
	}
	if w.draft.Frozen {
		return false, errors.ErrDraftFrozen
	}
	if w.state != domain.StateIdentifierResolution && w.state != domain.StateFieldEntry {
		return false, errors.ErrInvalidTransition
	}

	normalized := bankdir.NormalizeIdentifier(value)
	w.draft.IdentifierKind = kind
	if kind == domain.IdentifierIBAN {
		w.draft.IBAN = normalized
		w.draft.Touch(domain.FieldIBAN)
	} else {
		w.draft.SwiftCode = normalized
	}
	w.draft.UpdatedAt = time.Now()

	w.pendingIdentifier = normalized
	w.resolution = ResolutionIdle

	if kind == domain.IdentifierIBAN {
		return bankdir.ShouldResolveIBAN(normalized), nil
	}
	return bankdir.ShouldResolveSwift(normalized), nil
}

// Resolve performs the directory lookup for the given identifier and applies
// the result, discarding it when superseded. The identifier travels with the
// request so a stale response can never enrich a newer draft.
func (w *Wizard) Resolve(ctx context.Context, kind domain.IdentifierKind, identifier string) error {
	normalized := bankdir.NormalizeIdentifier(identifier)

	var (
		info *domain.BankInfo
		err  error
	)
	if kind == domain.IdentifierIBAN {
		info, err = w.directory.ResolveIBAN(ctx, normalized)
	} else {
		info, err = w.directory.ResolveSwift(ctx, normalized)
	}

	return w.ApplyResolution(normalized, info, err)
}

// ApplyResolution applies a directory lookup result to the draft. Stale
// results (for a superseded identifier) and results arriving after the
// wizard left the form stages are discarded without touching the draft.
func (w *Wizard) ApplyResolution(requestedIdentifier string, info *domain.BankInfo, lookupErr error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.draft == nil || w.state.Terminal() {
		return errors.ErrWizardTerminated
	}
	if bankdir.NormalizeIdentifier(requestedIdentifier) != w.pendingIdentifier {
		return errors.ErrStaleResolution
	}
	if w.state != domain.StateIdentifierResolution && w.state != domain.StateFieldEntry {
		return errors.ErrInvalidTransition
	}

	if lookupErr != nil {
		// Draft stays as-is; the user may retry or correct manually.
		w.resolution = ResolutionUnresolved
		w.logger.Warn("Bank identifier unresolved", map[string]interface{}{
			"session_id": w.id.String(),
			"identifier": requestedIdentifier,
			"error":      lookupErr.Error(),
		})
		return lookupErr
	}

	w.enrichLocked(info)
	w.resolution = ResolutionResolved

	if w.state == domain.StateIdentifierResolution {
		w.setStateLocked(domain.StateFieldEntry)
	}
	return nil
}

// enrichLocked copies directory fields into the draft without overwriting
// anything the user has hand-edited.
func (w *Wizard) enrichLocked(info *domain.BankInfo) {
	d := w.draft
	if !d.IsTouched(domain.FieldBankName) {
		d.BankName = info.BankName
	}
	if !d.IsTouched(domain.FieldBankCountry) {
		d.BankCountry = info.Country
	}
	if !d.IsTouched(domain.FieldBankCountryCode) {
		d.BankCountryCode = info.CountryCode
		w.pruneIdentifierFieldsLocked()
	}
	if !d.IsTouched(domain.FieldBankCity) {
		d.BankCity = info.City
	}
	if ccy := corridor.CurrencyForCountry(d.BankCountryCode); ccy != "" && d.BeneficiaryCurrency == "" {
		d.BeneficiaryCurrency = ccy
	}
	d.UpdatedAt = time.Now()
}

// SkipResolution is the explicit "continue anyway" override for an
// unresolved identifier. It never fires automatically.
func (w *Wizard) SkipResolution() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.draft == nil {
		return errors.ErrNoActiveDraft
	}
	if w.state != domain.StateIdentifierResolution {
		return errors.ErrInvalidTransition
	}
	if !w.policy.AllowUnresolvedContinue {
		return errors.ErrOverrideDisabled
	}

	w.setStateLocked(domain.StateFieldEntry)
	return nil
}

// SetField writes one draft field and marks it as hand-edited. Rejected
// while the draft is frozen in review.
func (w *Wizard) SetField(key domain.FieldKey, value string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.draft == nil {
		return errors.ErrNoActiveDraft
	}
	if w.draft.Frozen {
		return errors.ErrDraftFrozen
	}
	if w.state != domain.StateIdentifierResolution && w.state != domain.StateFieldEntry {
		return errors.ErrInvalidTransition
	}
	if key == domain.FieldAmount {
		// Amounts must flow through SetAmount so display and canonical
		// forms never diverge.
		return errors.ErrAmountInvalid
	}
	if identifierFieldKeys[key] && !w.requirementsLocked().Contains(key) {
		// Only the current corridor's identifier shape is writable; a
		// leftover or cross-corridor key would otherwise survive into
		// the submission payload.
		return errors.ErrFieldNotApplicable
	}

	w.draft.SetField(key, value)
	w.draft.Touch(key)

	if key == domain.FieldBankCountryCode {
		w.pruneIdentifierFieldsLocked()
	}
	return nil
}

// SetAmount canonicalizes the display input and stores both forms together.
func (w *Wizard) SetAmount(display string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.draft == nil {
		return errors.ErrNoActiveDraft
	}
	if w.draft.Frozen {
		return errors.ErrDraftFrozen
	}

	canonical, err := amount.ToCanonical(display)
	if err != nil {
		return err
	}

	w.draft.CanonicalAmount = canonical
	w.draft.DisplayAmount = amount.ToDisplay(canonical)
	w.draft.Touch(domain.FieldAmount)
	w.draft.UpdatedAt = time.Now()
	return nil
}

// pruneIdentifierFieldsLocked clears account-identifier fields that the
// current corridor does not require, so exactly one identifier shape stays
// populated after a country change.
func (w *Wizard) pruneIdentifierFieldsLocked() {
	set := w.requirementsLocked()
	for _, key := range corridor.IdentifierFieldKeys() {
		if !set.Contains(key) && w.draft.Field(key) != "" {
			w.draft.SetField(key, "")
			delete(w.draft.Touched, key)
		}
	}
}

// BeginAttachmentUpload issues a ticket for a new upload attempt. Starting a
// new upload supersedes interest in any still-pending one.
func (w *Wizard) BeginAttachmentUpload() (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.draft == nil {
		return 0, errors.ErrNoActiveDraft
	}
	if w.draft.Frozen {
		return 0, errors.ErrDraftFrozen
	}

	w.attachmentSeq++
	return w.attachmentSeq, nil
}

// ApplyAttachment stores a completed upload's reference, unless the ticket
// was superseded or the wizard has moved on. A failed upload never reaches
// this method, so the previous reference survives intact.
func (w *Wizard) ApplyAttachment(ticket uint64, url string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.draft == nil || w.state.Terminal() {
		return errors.ErrWizardTerminated
	}
	if ticket != w.attachmentSeq {
		return errors.ErrStaleUpload
	}

	w.draft.AttachmentURL = url
	w.draft.Touch(domain.FieldAttachment)
	w.draft.UpdatedAt = time.Now()
	return nil
}

// Advance moves the wizard one stage forward. From FieldEntry the move is
// guarded by a passing validation report: an invalid draft makes Advance a
// no-op that returns the failing fields.
func (w *Wizard) Advance() (corridor.Report, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.state {
	case domain.StateIdentifierResolution:
		if w.resolution != ResolutionResolved {
			return corridor.Report{}, errors.ErrUnresolvedBank
		}
		w.setStateLocked(domain.StateFieldEntry)
		return corridor.Report{IsValid: true, Failures: []corridor.FieldFailure{}}, nil

	case domain.StateFieldEntry:
		report := w.reportLocked()
		if !report.IsValid {
			return report, errors.ErrValidationFailed
		}
		// The frozen draft carries only the current corridor's identifier
		// shape, whatever entry path populated the others.
		w.pruneIdentifierFieldsLocked()
		w.draft.Frozen = true
		w.draft.Status = domain.StateReview
		w.setStateLocked(domain.StateReview)
		return report, nil

	default:
		return corridor.Report{}, errors.ErrInvalidTransition
	}
}

// EditBack reopens the form from review. The draft is unfrozen, not cleared.
func (w *Wizard) EditBack() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != domain.StateReview {
		return errors.ErrInvalidTransition
	}

	w.draft.Frozen = false
	w.setStateLocked(domain.StateFieldEntry)
	return nil
}

// Submit posts the draft to the transaction API. It is single-flight: a
// second call while one is in flight returns ErrSubmissionInFlight. Success
// clears the draft and terminates the wizard; failure returns to FieldEntry
// with the draft intact and the error surfaced.
func (w *Wizard) Submit(ctx context.Context) (*submission.Receipt, error) {
	w.mu.Lock()
	if w.state == domain.StateSubmitting {
		w.mu.Unlock()
		return nil, errors.ErrSubmissionInFlight
	}
	if w.state != domain.StateReview {
		w.mu.Unlock()
		return nil, errors.ErrInvalidTransition
	}

	// The review guard already validated, but submission is the last gate.
	report := w.reportLocked()
	if !report.IsValid {
		w.mu.Unlock()
		return nil, errors.ErrValidationFailed
	}

	w.setStateLocked(domain.StateSubmitting)
	snapshot := w.draft.Snapshot()
	w.lastError = ""
	w.mu.Unlock()

	receipt, err := w.submitter.Submit(ctx, &snapshot)

	w.mu.Lock()
	defer w.mu.Unlock()

	// Cancelled while in flight: the draft is gone, nothing to write.
	if w.state != domain.StateSubmitting {
		return nil, errors.ErrWizardTerminated
	}

	if err != nil {
		w.draft.Frozen = false
		w.lastError = err.Error()
		w.setStateLocked(domain.StateFieldEntry)
		w.logger.Warn("Submission failed", map[string]interface{}{
			"session_id": w.id.String(),
			"error":      err.Error(),
		})
		return nil, err
	}

	w.draft = nil
	w.setStateLocked(domain.StateCompleted)
	w.logger.Info("Payment request submitted", map[string]interface{}{
		"session_id":     w.id.String(),
		"transaction_id": receipt.ID,
	})
	return receipt, nil
}

// Cancel discards the draft entirely. In-flight resolution, upload, and
// submission results can no longer touch it.
func (w *Wizard) Cancel() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state.Terminal() {
		return errors.ErrWizardTerminated
	}

	w.draft = nil
	w.pendingIdentifier = ""
	w.resolution = ResolutionIdle
	w.setStateLocked(domain.StateCancelled)
	return nil
}

func (w *Wizard) setStateLocked(to domain.WizardState) {
	if !transitionAllowed(w.state, to) {
		// Transition callers validate before getting here; this guard
		// keeps an FSM bug from corrupting a session silently.
		w.logger.Error("Blocked illegal wizard transition", map[string]interface{}{
			"session_id": w.id.String(),
			"from":       w.state,
			"to":         to,
		})
		return
	}

	w.state = to
	if w.draft != nil {
		w.draft.Status = to
	}
}
