// Package domain defines the core types of the payment request builder.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Currency represents ISO 4217 currency codes
type Currency string

const (
	USD Currency = "USD" // US Dollar
	EUR Currency = "EUR" // Euro
	GBP Currency = "GBP" // British Pound
	INR Currency = "INR" // Indian Rupee
	AUD Currency = "AUD" // Australian Dollar
	CAD Currency = "CAD" // Canadian Dollar
	ZAR Currency = "ZAR" // South African Rand
)

// WizardState represents the lifecycle stage of a payment wizard session.
type WizardState string

const (
	StateDrafting             WizardState = "drafting"
	StateIdentifierResolution WizardState = "identifier_resolution"
	StateFieldEntry           WizardState = "field_entry"
	StateReview               WizardState = "review"
	StateSubmitting           WizardState = "submitting"
	StateCompleted            WizardState = "completed"
	StateCancelled            WizardState = "cancelled"
)

// Terminal reports whether the wizard can never leave this state.
func (s WizardState) Terminal() bool {
	return s == StateCompleted || s == StateCancelled
}

// FieldKey identifies a single draft field for requirements and validation.
type FieldKey string

const (
	FieldBeneficiaryName   FieldKey = "beneficiary_name"
	FieldAmount            FieldKey = "amount"
	FieldBankName          FieldKey = "bank_name"
	FieldPurpose           FieldKey = "purpose"
	FieldInvoiceNumber     FieldKey = "invoice_number"
	FieldInvoiceDate       FieldKey = "invoice_date"
	FieldAttachment        FieldKey = "attachment_url"
	FieldIBAN              FieldKey = "iban"
	FieldAccountNumber     FieldKey = "account_number"
	FieldIFSCCode          FieldKey = "ifsc_code"
	FieldABARoutingNumber  FieldKey = "aba_routing_number"
	FieldBSBNumber         FieldKey = "bsb_number"
	FieldInstitutionNumber FieldKey = "institution_number"
	FieldTransitNumber     FieldKey = "transit_number"
	FieldRoutingCode       FieldKey = "routing_code"
	FieldStreetAddress     FieldKey = "street_address"
	FieldCity              FieldKey = "city"
	FieldSwiftCode         FieldKey = "swift_code"
	FieldBankCountry       FieldKey = "bank_country"
	FieldBankCountryCode   FieldKey = "bank_country_code"
	FieldBankCity          FieldKey = "bank_city"
)

// IdentifierKind distinguishes the two bank identifier lookup paths.
type IdentifierKind string

const (
	IdentifierSwift IdentifierKind = "swift"
	IdentifierIBAN  IdentifierKind = "iban"
)

// BankInfo is the directory record resolved for a SWIFT code or IBAN.
type BankInfo struct {
	BankName    string `json:"bank_name" db:"bank_name"`
	Country     string `json:"country" db:"country"`
	CountryCode string `json:"country_code" db:"country_code"`
	City        string `json:"city" db:"city"`
	Region      string `json:"region,omitempty" db:"region"`
}

// PaymentDraft is the in-progress payment request. It has no identity of its
// own; it lives inside exactly one wizard session until submitted or
// discarded.
type PaymentDraft struct {
	SenderID       uuid.UUID `json:"sender_id"`
	SourceWalletID uuid.UUID `json:"source_wallet_id"`
	SourceCurrency Currency  `json:"source_currency"`

	// Bank identifier as typed by the user, used for directory lookup.
	IdentifierKind IdentifierKind `json:"identifier_kind,omitempty"`
	SwiftCode      string         `json:"swift_code,omitempty"`

	// Enriched by the directory resolver, unless hand-edited first.
	BankName            string   `json:"bank_name,omitempty"`
	BankCountry         string   `json:"bank_country,omitempty"`
	BankCountryCode     string   `json:"bank_country_code,omitempty"`
	BankCity            string   `json:"bank_city,omitempty"`
	BeneficiaryCurrency Currency `json:"beneficiary_currency,omitempty"`

	// Beneficiary account identifier. Exactly one shape is populated,
	// chosen by the corridor requirement table.
	IBAN              string `json:"iban,omitempty"`
	AccountNumber     string `json:"account_number,omitempty"`
	IFSCCode          string `json:"ifsc_code,omitempty"`
	ABARoutingNumber  string `json:"aba_routing_number,omitempty"`
	BSBNumber         string `json:"bsb_number,omitempty"`
	InstitutionNumber string `json:"institution_number,omitempty"`
	TransitNumber     string `json:"transit_number,omitempty"`
	RoutingCode       string `json:"routing_code,omitempty"`

	BeneficiaryName string `json:"beneficiary_name,omitempty"`
	StreetAddress   string `json:"street_address,omitempty"`
	City            string `json:"city,omitempty"`

	// DisplayAmount and CanonicalAmount are only ever written together,
	// through the amount canonicalizer.
	DisplayAmount   string `json:"display_amount,omitempty"`
	CanonicalAmount string `json:"canonical_amount,omitempty"`

	AttachmentURL string `json:"attachment_url,omitempty"`
	InvoiceNumber string `json:"invoice_number,omitempty"`
	InvoiceDate   string `json:"invoice_date,omitempty"`
	Purpose       string `json:"purpose,omitempty"`

	Status    WizardState       `json:"status"`
	Touched   map[FieldKey]bool `json:"-"`
	Frozen    bool              `json:"-"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// NewPaymentDraft creates an empty draft for the given sender and wallet.
func NewPaymentDraft(senderID, walletID uuid.UUID, currency Currency) *PaymentDraft {
	now := time.Now()
	return &PaymentDraft{
		SenderID:       senderID,
		SourceWalletID: walletID,
		SourceCurrency: currency,
		Status:         StateDrafting,
		Touched:        make(map[FieldKey]bool),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Touch marks a field as hand-edited so resolver enrichment will not
// overwrite it.
func (d *PaymentDraft) Touch(key FieldKey) {
	if d.Touched == nil {
		d.Touched = make(map[FieldKey]bool)
	}
	d.Touched[key] = true
}

// IsTouched reports whether the user has hand-edited the field.
func (d *PaymentDraft) IsTouched(key FieldKey) bool {
	return d.Touched[key]
}

// Field returns the draft value for the given key. Unknown keys read as "".
func (d *PaymentDraft) Field(key FieldKey) string {
	switch key {
	case FieldBeneficiaryName:
		return d.BeneficiaryName
	case FieldAmount:
		return d.CanonicalAmount
	case FieldBankName:
		return d.BankName
	case FieldPurpose:
		return d.Purpose
	case FieldInvoiceNumber:
		return d.InvoiceNumber
	case FieldInvoiceDate:
		return d.InvoiceDate
	case FieldAttachment:
		return d.AttachmentURL
	case FieldIBAN:
		return d.IBAN
	case FieldAccountNumber:
		return d.AccountNumber
	case FieldIFSCCode:
		return d.IFSCCode
	case FieldABARoutingNumber:
		return d.ABARoutingNumber
	case FieldBSBNumber:
		return d.BSBNumber
	case FieldInstitutionNumber:
		return d.InstitutionNumber
	case FieldTransitNumber:
		return d.TransitNumber
	case FieldRoutingCode:
		return d.RoutingCode
	case FieldStreetAddress:
		return d.StreetAddress
	case FieldCity:
		return d.City
	case FieldSwiftCode:
		return d.SwiftCode
	case FieldBankCountry:
		return d.BankCountry
	case FieldBankCountryCode:
		return d.BankCountryCode
	case FieldBankCity:
		return d.BankCity
	}
	return ""
}

// SetField writes the draft value for the given key. Unknown keys are a
// no-op; amount is deliberately excluded because it must flow through the
// canonicalizer.
func (d *PaymentDraft) SetField(key FieldKey, value string) {
	switch key {
	case FieldBeneficiaryName:
		d.BeneficiaryName = value
	case FieldBankName:
		d.BankName = value
	case FieldPurpose:
		d.Purpose = value
	case FieldInvoiceNumber:
		d.InvoiceNumber = value
	case FieldInvoiceDate:
		d.InvoiceDate = value
	case FieldIBAN:
		d.IBAN = value
	case FieldAccountNumber:
		d.AccountNumber = value
	case FieldIFSCCode:
		d.IFSCCode = value
	case FieldABARoutingNumber:
		d.ABARoutingNumber = value
	case FieldBSBNumber:
		d.BSBNumber = value
	case FieldInstitutionNumber:
		d.InstitutionNumber = value
	case FieldTransitNumber:
		d.TransitNumber = value
	case FieldRoutingCode:
		d.RoutingCode = value
	case FieldStreetAddress:
		d.StreetAddress = value
	case FieldCity:
		d.City = value
	case FieldSwiftCode:
		d.SwiftCode = value
	case FieldBankCountry:
		d.BankCountry = value
	case FieldBankCountryCode:
		d.BankCountryCode = value
	case FieldBankCity:
		d.BankCity = value
	}
	d.UpdatedAt = time.Now()
}

// Snapshot returns a deep copy safe to hand to callers.
func (d *PaymentDraft) Snapshot() PaymentDraft {
	cp := *d
	cp.Touched = make(map[FieldKey]bool, len(d.Touched))
	for k, v := range d.Touched {
		cp.Touched[k] = v
	}
	return cp
}
