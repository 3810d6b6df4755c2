// ==============================================================================
// WIZARD HANDLER - internal/handler/wizard.go
// ==============================================================================
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"payreq/internal/attachment"
	"payreq/internal/domain"
	"payreq/internal/middleware"
	"payreq/internal/wizard"
	payreqerrors "payreq/pkg/errors"
	"payreq/pkg/validator"
)

// Logger is the logging surface handlers depend on.
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// WizardHandler exposes the payment wizard over HTTP.
type WizardHandler struct {
	sessions    *wizard.Manager
	attachments *attachment.Manager
	validator   *validator.Validator
	logger      Logger
	maxUpload   int64
}

func NewWizardHandler(sessions *wizard.Manager, attachments *attachment.Manager, val *validator.Validator, maxUpload int64, log Logger) *WizardHandler {
	if maxUpload <= 0 {
		maxUpload = attachment.DefaultMaxFileSize
	}
	return &WizardHandler{
		sessions:    sessions,
		attachments: attachments,
		validator:   val,
		logger:      log,
		maxUpload:   maxUpload,
	}
}

// sessionView is the read surface exposed to the dashboard UI.
type sessionView struct {
	SessionID  string                `json:"session_id"`
	State      domain.WizardState    `json:"state"`
	Resolution wizard.ResolutionState `json:"resolution"`
	Draft      *domain.PaymentDraft  `json:"draft,omitempty"`
	Report     interface{}           `json:"report"`
	LastError  string                `json:"last_error,omitempty"`
}

func (h *WizardHandler) view(w *wizard.Wizard) sessionView {
	v := sessionView{
		SessionID:  w.ID().String(),
		State:      w.State(),
		Resolution: w.Resolution(),
		Report:     w.Report(),
		LastError:  w.LastError(),
	}
	if draft, ok := w.Draft(); ok {
		v.Draft = &draft
	}
	return v
}

// OpenSession creates a fresh wizard session.
func (h *WizardHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.UserIDFromContext(r.Context()); !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	wiz := h.sessions.Create()
	h.respondJSON(w, http.StatusCreated, h.view(wiz))
}

// GetSession returns state, draft snapshot, and validation report.
func (h *WizardHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	wiz, ok := h.session(w, r)
	if !ok {
		return
	}
	h.respondJSON(w, http.StatusOK, h.view(wiz))
}

type selectCurrencyRequest struct {
	WalletID            string `json:"wallet_id" validate:"required,uuid4"`
	SourceCurrency      string `json:"source_currency" validate:"required,len=3"`
	BeneficiaryCurrency string `json:"beneficiary_currency" validate:"required,len=3"`
}

// SelectCurrency creates the draft and moves the wizard past Drafting.
func (h *WizardHandler) SelectCurrency(w http.ResponseWriter, r *http.Request) {
	wiz, ok := h.session(w, r)
	if !ok {
		return
	}

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req selectCurrencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := h.validator.ValidateStructured(&req); errs != nil {
		h.respondValidationErrors(w, errs)
		return
	}

	walletID, err := uuid.Parse(req.WalletID)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid wallet id")
		return
	}

	if err := wiz.SelectCurrency(userID, walletID, domain.Currency(req.SourceCurrency), domain.Currency(req.BeneficiaryCurrency)); err != nil {
		h.respondWizardError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, h.view(wiz))
}

type setFieldsRequest struct {
	Fields map[string]string `json:"fields"`
	Amount string            `json:"amount,omitempty"`
}

// SetFields writes draft fields; the amount, when present, flows through the
// canonicalizer.
func (h *WizardHandler) SetFields(w http.ResponseWriter, r *http.Request) {
	wiz, ok := h.session(w, r)
	if !ok {
		return
	}

	var req setFieldsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	fieldErrors := make(map[string]string)
	for key, value := range req.Fields {
		if err := wiz.SetField(domain.FieldKey(key), value); err != nil {
			if errors.Is(err, payreqerrors.ErrDraftFrozen) || errors.Is(err, payreqerrors.ErrNoActiveDraft) || errors.Is(err, payreqerrors.ErrInvalidTransition) {
				h.respondWizardError(w, err)
				return
			}
			fieldErrors[key] = err.Error()
		}
	}
	if req.Amount != "" {
		if err := wiz.SetAmount(req.Amount); err != nil {
			if errors.Is(err, payreqerrors.ErrDraftFrozen) || errors.Is(err, payreqerrors.ErrNoActiveDraft) {
				h.respondWizardError(w, err)
				return
			}
			fieldErrors["amount"] = err.Error()
		}
	}

	if len(fieldErrors) > 0 {
		h.respondJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"errors":  fieldErrors,
			"session": h.view(wiz),
		})
		return
	}

	h.respondJSON(w, http.StatusOK, h.view(wiz))
}

type identifierRequest struct {
	Kind  string `json:"kind" validate:"required,oneof=swift iban"`
	Value string `json:"value" validate:"required,min=1,max=40"`
}

// SetIdentifier records the typed bank identifier and, once the lookup
// threshold is reached, resolves it against the directory. The resolution
// result is applied with a supersession check so a stale response for an
// older identifier never enriches the draft.
func (h *WizardHandler) SetIdentifier(w http.ResponseWriter, r *http.Request) {
	wiz, ok := h.session(w, r)
	if !ok {
		return
	}

	var req identifierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := h.validator.ValidateStructured(&req); errs != nil {
		h.respondValidationErrors(w, errs)
		return
	}

	kind := domain.IdentifierSwift
	if req.Kind == "iban" {
		kind = domain.IdentifierIBAN
	}

	shouldResolve, err := wiz.SetIdentifier(kind, req.Value)
	if err != nil {
		h.respondWizardError(w, err)
		return
	}

	if shouldResolve {
		if err := wiz.Resolve(r.Context(), kind, req.Value); err != nil {
			switch {
			case errors.Is(err, payreqerrors.ErrStaleResolution),
				errors.Is(err, payreqerrors.ErrWizardTerminated):
				// Superseded mid-flight; the current session view tells
				// the caller everything it needs.
			case errors.Is(err, payreqerrors.ErrBankNotFound):
				h.logger.Info("Identifier not found in directory", map[string]interface{}{
					"session_id": wiz.ID().String(),
				})
			default:
				h.logger.Warn("Identifier resolution failed", map[string]interface{}{
					"session_id": wiz.ID().String(),
					"error":      err.Error(),
				})
			}
		}
	}

	h.respondJSON(w, http.StatusOK, h.view(wiz))
}

// SkipResolution is the explicit continue-anyway override.
func (h *WizardHandler) SkipResolution(w http.ResponseWriter, r *http.Request) {
	wiz, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := wiz.SkipResolution(); err != nil {
		h.respondWizardError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, h.view(wiz))
}

// UploadAttachment validates and uploads the invoice file, then stores its
// reference on the draft unless a newer upload superseded this one.
func (h *WizardHandler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	wiz, ok := h.session(w, r)
	if !ok {
		return
	}

	// Leave headroom for the multipart envelope around the file cap.
	if err := r.ParseMultipartForm(h.maxUpload + 64*1024); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid multipart body")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUpload+1))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Failed to read file")
		return
	}

	ticket, err := wiz.BeginAttachmentUpload()
	if err != nil {
		h.respondWizardError(w, err)
		return
	}

	result, err := h.attachments.Upload(r.Context(), &attachment.UploadRequest{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		// The draft's previous attachment reference stays intact.
		status := http.StatusBadGateway
		if errors.Is(err, payreqerrors.ErrFileTooLarge) || errors.Is(err, payreqerrors.ErrFileTypeNotAllowed) || errors.Is(err, payreqerrors.ErrFileEmpty) {
			status = http.StatusUnprocessableEntity
		}
		h.respondError(w, status, err.Error())
		return
	}

	if err := wiz.ApplyAttachment(ticket, result.URL); err != nil {
		h.respondWizardError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"attachment": result,
		"session":    h.view(wiz),
	})
}

// Advance moves the wizard forward one stage. A failing validation report
// is returned with 422 and the wizard stays put.
func (h *WizardHandler) Advance(w http.ResponseWriter, r *http.Request) {
	wiz, ok := h.session(w, r)
	if !ok {
		return
	}

	report, err := wiz.Advance()
	if err != nil {
		if errors.Is(err, payreqerrors.ErrValidationFailed) {
			h.respondJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
				"report":  report,
				"session": h.view(wiz),
			})
			return
		}
		h.respondWizardError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, h.view(wiz))
}

// EditBack reopens the form from review without clearing the draft.
func (h *WizardHandler) EditBack(w http.ResponseWriter, r *http.Request) {
	wiz, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := wiz.EditBack(); err != nil {
		h.respondWizardError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, h.view(wiz))
}

// Cancel discards the draft and terminates the session.
func (h *WizardHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	wiz, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := wiz.Cancel(); err != nil {
		h.respondWizardError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, h.view(wiz))
}

// Submit posts the reviewed draft to the transaction API.
func (h *WizardHandler) Submit(w http.ResponseWriter, r *http.Request) {
	wiz, ok := h.session(w, r)
	if !ok {
		return
	}

	receipt, err := wiz.Submit(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, payreqerrors.ErrSubmissionInFlight):
			h.respondError(w, http.StatusConflict, "Submission already in flight")
		case errors.Is(err, payreqerrors.ErrSubmissionRejected):
			h.respondJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
				"error":   err.Error(),
				"session": h.view(wiz),
			})
		default:
			h.respondWizardError(w, err)
		}
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"receipt": receipt,
		"session": h.view(wiz),
	})
}

func (h *WizardHandler) session(w http.ResponseWriter, r *http.Request) (*wizard.Wizard, bool) {
	idStr := mux.Vars(r)["id"]
	id, err := uuid.Parse(idStr)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid session id")
		return nil, false
	}

	wiz, err := h.sessions.Get(id)
	if err != nil {
		h.respondError(w, http.StatusNotFound, "Session not found")
		return nil, false
	}
	return wiz, true
}

func (h *WizardHandler) respondWizardError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, payreqerrors.ErrInvalidTransition),
		errors.Is(err, payreqerrors.ErrWizardTerminated),
		errors.Is(err, payreqerrors.ErrUnresolvedBank),
		errors.Is(err, payreqerrors.ErrOverrideDisabled):
		h.respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, payreqerrors.ErrDraftFrozen),
		errors.Is(err, payreqerrors.ErrNoActiveDraft),
		errors.Is(err, payreqerrors.ErrStaleUpload):
		h.respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, payreqerrors.ErrSessionNotFound):
		h.respondError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error("Wizard operation failed", map[string]interface{}{"error": err.Error()})
		h.respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *WizardHandler) respondValidationErrors(w http.ResponseWriter, errs map[string]string) {
	h.respondJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{"errors": errs})
}

func (h *WizardHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (h *WizardHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
