package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"payreq/internal/bankdir"
	payreqerrors "payreq/pkg/errors"
	"payreq/pkg/validator"
)

// BankDirectoryHandler exposes standalone identifier lookups, independent of
// any wizard session.
type BankDirectoryHandler struct {
	directory *bankdir.Service
	validator *validator.Validator
	logger    Logger
}

func NewBankDirectoryHandler(directory *bankdir.Service, val *validator.Validator, log Logger) *BankDirectoryHandler {
	return &BankDirectoryHandler{directory: directory, validator: val, logger: log}
}

type swiftLookupRequest struct {
	Code string `json:"code" validate:"required,swift_code"`
}

type ibanLookupRequest struct {
	IBAN string `json:"iban" validate:"required,iban"`
}

// LookupSwift resolves a SWIFT/BIC code to bank details. Unlike wizard entry,
// a direct lookup carries the full code, so it is format-checked up front.
func (h *BankDirectoryHandler) LookupSwift(w http.ResponseWriter, r *http.Request) {
	req := swiftLookupRequest{Code: strings.TrimSpace(mux.Vars(r)["code"])}
	if errs := h.validator.ValidateStructured(&req); errs != nil {
		h.respondJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{"errors": errs})
		return
	}

	info, err := h.directory.ResolveSwift(r.Context(), req.Code)
	if err != nil {
		h.respondLookupError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, info)
}

// LookupIBAN resolves an IBAN to the issuing bank's details.
func (h *BankDirectoryHandler) LookupIBAN(w http.ResponseWriter, r *http.Request) {
	req := ibanLookupRequest{IBAN: strings.TrimSpace(mux.Vars(r)["iban"])}
	if errs := h.validator.ValidateStructured(&req); errs != nil {
		h.respondJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{"errors": errs})
		return
	}

	info, err := h.directory.ResolveIBAN(r.Context(), req.IBAN)
	if err != nil {
		h.respondLookupError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, info)
}

func (h *BankDirectoryHandler) respondLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, payreqerrors.ErrBankNotFound) {
		h.respondError(w, http.StatusNotFound, "Bank not found")
		return
	}
	if errors.Is(err, payreqerrors.ErrIdentifierTooShort) {
		h.respondError(w, http.StatusUnprocessableEntity, "Identifier below lookup threshold")
		return
	}
	h.logger.Error("Directory lookup failed", map[string]interface{}{"error": err.Error()})
	h.respondError(w, http.StatusBadGateway, "Directory lookup failed")
}

func (h *BankDirectoryHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (h *BankDirectoryHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
