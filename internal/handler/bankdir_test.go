package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payreq/internal/bankdir"
	"payreq/pkg/logger"
	"payreq/pkg/validator"
)

func newDirectoryRouter(t *testing.T) *mux.Router {
	t.Helper()

	directory := bankdir.NewService(nil, nil,
		[]bankdir.Provider{bankdir.NewStaticDirectoryProvider()},
		time.Hour, logger.NewNop())
	h := NewBankDirectoryHandler(directory, validator.New(), logger.NewNop())

	r := mux.NewRouter()
	r.HandleFunc("/bank-directory/swift/{code}", h.LookupSwift).Methods(http.MethodGet)
	r.HandleFunc("/bank-directory/iban/{iban}", h.LookupIBAN).Methods(http.MethodGet)
	return r
}

func TestLookupSwift_ResolvesKnownCode(t *testing.T) {
	router := newDirectoryRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bank-directory/swift/DEUTDEFF", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Deutsche Bank", body["bank_name"])
}

func TestLookupSwift_MalformedCodeRejected(t *testing.T) {
	router := newDirectoryRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bank-directory/swift/DEUT", nil))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid SWIFT/BIC code")
}

func TestLookupSwift_UnknownCodeNotFound(t *testing.T) {
	router := newDirectoryRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bank-directory/swift/NOPEUS33", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLookupIBAN_ResolvesKnownBankCode(t *testing.T) {
	router := newDirectoryRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bank-directory/iban/DE89370400440532013000", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Commerzbank", body["bank_name"])
}

func TestLookupIBAN_MalformedRejected(t *testing.T) {
	router := newDirectoryRouter(t)

	// Check digits missing, so the shape check fails before any lookup.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bank-directory/iban/DEUTSCHEBANK", nil))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid IBAN")
}
