// Package submission posts finished payment drafts to the transaction API.
package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"payreq/internal/domain"
	"payreq/pkg/errors"
)

// Client submits a finished draft and returns the backend's receipt.
type Client interface {
	Submit(ctx context.Context, draft *domain.PaymentDraft) (*Receipt, error)
}

// Receipt is the transaction API's acknowledgement.
type Receipt struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// payload is the transaction API wire format. Amount is always the
// canonical decimal string, never the display form.
type payload struct {
	SenderID          string `json:"sender_id"`
	SourceWalletID    string `json:"source_wallet_id"`
	SourceCurrency    string `json:"source_currency"`
	Amount            string `json:"amount"`
	BeneficiaryName   string `json:"beneficiary_name"`
	BankName          string `json:"bank_name"`
	BankCountryCode   string `json:"bank_country_code"`
	BankCity          string `json:"bank_city,omitempty"`
	BeneficiaryCcy    string `json:"beneficiary_currency,omitempty"`
	SwiftCode         string `json:"swift_code,omitempty"`
	IBAN              string `json:"iban,omitempty"`
	AccountNumber     string `json:"account_number,omitempty"`
	IFSCCode          string `json:"ifsc_code,omitempty"`
	ABARoutingNumber  string `json:"aba_routing_number,omitempty"`
	BSBNumber         string `json:"bsb_number,omitempty"`
	InstitutionNumber string `json:"institution_number,omitempty"`
	TransitNumber     string `json:"transit_number,omitempty"`
	RoutingCode       string `json:"routing_code,omitempty"`
	StreetAddress     string `json:"street_address,omitempty"`
	City              string `json:"city,omitempty"`
	Purpose           string `json:"purpose"`
	InvoiceNumber     string `json:"invoice_number"`
	InvoiceDate       string `json:"invoice_date"`
	AttachmentURL     string `json:"attachment_url"`
}

type response struct {
	Status  string `json:"status"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
}

// HTTPClient is the production transaction API client.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Submit posts the draft to POST {base}/transaction.
func (c *HTTPClient) Submit(ctx context.Context, draft *domain.PaymentDraft) (*Receipt, error) {
	body, err := json.Marshal(fromDraft(draft))
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transaction", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transaction request failed: %w", err)
	}
	defer resp.Body.Close()

	var ack response
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return nil, fmt.Errorf("failed to decode transaction response: %w", err)
	}

	if resp.StatusCode >= 400 || ack.Status != "success" {
		if ack.Message != "" {
			return nil, errors.Wrap(errors.ErrSubmissionRejected, ack.Message)
		}
		return nil, errors.ErrSubmissionRejected
	}

	return &Receipt{ID: ack.ID, Status: ack.Status}, nil
}

func fromDraft(d *domain.PaymentDraft) payload {
	return payload{
		SenderID:          d.SenderID.String(),
		SourceWalletID:    d.SourceWalletID.String(),
		SourceCurrency:    string(d.SourceCurrency),
		Amount:            d.CanonicalAmount,
		BeneficiaryName:   d.BeneficiaryName,
		BankName:          d.BankName,
		BankCountryCode:   d.BankCountryCode,
		BankCity:          d.BankCity,
		BeneficiaryCcy:    string(d.BeneficiaryCurrency),
		SwiftCode:         d.SwiftCode,
		IBAN:              d.IBAN,
		AccountNumber:     d.AccountNumber,
		IFSCCode:          d.IFSCCode,
		ABARoutingNumber:  d.ABARoutingNumber,
		BSBNumber:         d.BSBNumber,
		InstitutionNumber: d.InstitutionNumber,
		TransitNumber:     d.TransitNumber,
		RoutingCode:       d.RoutingCode,
		StreetAddress:     d.StreetAddress,
		City:              d.City,
		Purpose:           d.Purpose,
		InvoiceNumber:     d.InvoiceNumber,
		InvoiceDate:       d.InvoiceDate,
		AttachmentURL:     d.AttachmentURL,
	}
}
