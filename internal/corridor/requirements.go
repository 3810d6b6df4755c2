// ==============================================================================
// CORRIDOR REQUIREMENTS - internal/corridor/requirements.go
// ==============================================================================
// Per-country beneficiary field requirements for cross-border payments.
// Modeled as a pure lookup over a static table so the rule set stays
// auditable as data.
// ==============================================================================

package corridor

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"payreq/internal/domain"
)

// Requirement is a single required draft field with its format validator.
type Requirement struct {
	Key      domain.FieldKey `json:"key"`
	Label    string          `json:"label"`
	Validate func(string) error `json:"-"`
}

// RequirementSet is the ordered list of fields a draft must satisfy before
// submission. It is pure data: never mutated, recomputed on country change.
type RequirementSet []Requirement

// Contains reports whether the set requires the given field.
func (rs RequirementSet) Contains(key domain.FieldKey) bool {
	for _, r := range rs {
		if r.Key == key {
			return true
		}
	}
	return false
}

// Keys returns the required field keys in set order.
func (rs RequirementSet) Keys() []domain.FieldKey {
	keys := make([]domain.FieldKey, 0, len(rs))
	for _, r := range rs {
		keys = append(keys, r.Key)
	}
	return keys
}

// ibanEligible lists ISO-3166 alpha-2 codes of countries whose transfers use
// IBAN account identifiers (Europe plus the Middle East IBAN adopters).
var ibanEligible = map[string]bool{
	"AD": true, "AE": true, "AL": true, "AT": true, "AZ": true, "BA": true,
	"BE": true, "BG": true, "BH": true, "CH": true, "CY": true, "CZ": true,
	"DE": true, "DK": true, "EE": true, "ES": true, "FI": true, "FO": true,
	"FR": true, "GB": true, "GE": true, "GI": true, "GL": true, "GR": true,
	"HR": true, "HU": true, "IE": true, "IL": true, "IQ": true, "IS": true,
	"IT": true, "JO": true, "KW": true, "LB": true, "LI": true, "LT": true,
	"LU": true, "LV": true, "MC": true, "MD": true, "ME": true, "MK": true,
	"MT": true, "NL": true, "NO": true, "PL": true, "PS": true, "PT": true,
	"QA": true, "RO": true, "RS": true, "SA": true, "SE": true, "SI": true,
	"SK": true, "SM": true, "TR": true, "VA": true, "XK": true,
}

// abaTerritories use US ABA routing numbers.
var abaTerritories = map[string]bool{
	"US": true, "PR": true, "AS": true, "GU": true, "MP": true, "VI": true,
}

// addressRequired lists countries where beneficiary street address and city
// are required regardless of the identifier branch.
var addressRequired = map[string]bool{
	"CA": true, "US": true, "GB": true, "AU": true,
}

// IBANEligible reports whether the country settles over IBAN.
func IBANEligible(countryCode string) bool {
	return ibanEligible[strings.ToUpper(strings.TrimSpace(countryCode))]
}

// Resolve maps a beneficiary country (and currency) to the ordered set of
// required draft fields. Deterministic, no side effects. The identifier
// branches are disjoint by construction; the first match in table order wins
// as a guard.
func Resolve(countryCode string, currencyCode domain.Currency) RequirementSet {
	cc := strings.ToUpper(strings.TrimSpace(countryCode))

	set := RequirementSet{
		{Key: domain.FieldBeneficiaryName, Label: "Beneficiary name", Validate: textValidator(2, 140)},
		{Key: domain.FieldAmount, Label: "Amount", Validate: validateAmount},
		{Key: domain.FieldBankName, Label: "Bank name", Validate: textValidator(2, 140)},
	}

	switch {
	case ibanEligible[cc]:
		set = append(set,
			Requirement{Key: domain.FieldIBAN, Label: "IBAN", Validate: validateIBAN},
		)
	case cc == "IN":
		set = append(set,
			Requirement{Key: domain.FieldAccountNumber, Label: "Account number", Validate: validateAccountNumber},
			Requirement{Key: domain.FieldIFSCCode, Label: "IFSC code", Validate: patternValidator(ifscPattern, "must be a valid IFSC code")},
		)
	case abaTerritories[cc]:
		set = append(set,
			Requirement{Key: domain.FieldAccountNumber, Label: "Account number", Validate: validateAccountNumber},
			Requirement{Key: domain.FieldABARoutingNumber, Label: "ABA routing number", Validate: patternValidator(abaPattern, "must be a 9-digit routing number")},
		)
	case cc == "AU":
		set = append(set,
			Requirement{Key: domain.FieldAccountNumber, Label: "Account number", Validate: validateAccountNumber},
			Requirement{Key: domain.FieldBSBNumber, Label: "BSB number", Validate: patternValidator(bsbPattern, "must be a 6-digit BSB number")},
		)
	case cc == "CA":
		set = append(set,
			Requirement{Key: domain.FieldAccountNumber, Label: "Account number", Validate: validateAccountNumber},
			Requirement{Key: domain.FieldInstitutionNumber, Label: "Institution number", Validate: patternValidator(institutionPattern, "must be a 3-digit institution number")},
			Requirement{Key: domain.FieldTransitNumber, Label: "Transit number", Validate: patternValidator(transitPattern, "must be a 5-digit transit number")},
		)
	case cc == "ZA":
		set = append(set,
			Requirement{Key: domain.FieldAccountNumber, Label: "Account number", Validate: validateAccountNumber},
			Requirement{Key: domain.FieldRoutingCode, Label: "Routing code", Validate: patternValidator(routingCodePattern, "must be a 6-digit routing code")},
		)
	default:
		set = append(set,
			Requirement{Key: domain.FieldAccountNumber, Label: "Account number", Validate: validateAccountNumber},
		)
	}

	if addressRequired[cc] {
		set = append(set,
			Requirement{Key: domain.FieldStreetAddress, Label: "Street address", Validate: textValidator(3, 140)},
			Requirement{Key: domain.FieldCity, Label: "City", Validate: textValidator(2, 85)},
		)
	}

	set = append(set,
		Requirement{Key: domain.FieldPurpose, Label: "Purpose of payment", Validate: textValidator(3, 280)},
		Requirement{Key: domain.FieldInvoiceNumber, Label: "Invoice number", Validate: patternValidator(invoicePattern, "may only contain letters, digits, '-' and '_'")},
		Requirement{Key: domain.FieldInvoiceDate, Label: "Invoice date", Validate: validateInvoiceDate},
		Requirement{Key: domain.FieldAttachment, Label: "Invoice attachment", Validate: validateAttachmentURL},
	)

	return set
}

// IdentifierFieldKeys lists every account-identifier field across all
// corridors. The wizard uses it to clear fields left over from a previous
// country so exactly one identifier shape stays populated.
func IdentifierFieldKeys() []domain.FieldKey {
	return []domain.FieldKey{
		domain.FieldIBAN,
		domain.FieldAccountNumber,
		domain.FieldIFSCCode,
		domain.FieldABARoutingNumber,
		domain.FieldBSBNumber,
		domain.FieldInstitutionNumber,
		domain.FieldTransitNumber,
		domain.FieldRoutingCode,
	}
}

// ------------------------------------------------------------------------------
// Field format validators
// ------------------------------------------------------------------------------

var (
	canonicalAmountPattern = regexp.MustCompile(`^[0-9]+\.[0-9]{2}$`)
	ibanCharsPattern       = regexp.MustCompile(`^[A-Z0-9]+$`)
	ifscPattern            = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)
	abaPattern             = regexp.MustCompile(`^[0-9]{9}$`)
	bsbPattern             = regexp.MustCompile(`^[0-9]{6}$`)
	institutionPattern     = regexp.MustCompile(`^[0-9]{3}$`)
	transitPattern         = regexp.MustCompile(`^[0-9]{5}$`)
	routingCodePattern     = regexp.MustCompile(`^[0-9]{6}$`)
	invoicePattern         = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	accountNumberPattern   = regexp.MustCompile(`^[A-Za-z0-9]{4,34}$`)
)

func validateAmount(v string) error {
	if !canonicalAmountPattern.MatchString(v) {
		return fmt.Errorf("must be a canonical decimal amount")
	}
	d, err := decimal.NewFromString(v)
	if err != nil || !d.IsPositive() {
		return fmt.Errorf("must be greater than zero")
	}
	return nil
}

func validateIBAN(v string) error {
	iban := strings.ToUpper(strings.ReplaceAll(v, " ", ""))
	if len(iban) <= 15 || len(iban) > 34 {
		return fmt.Errorf("must be 16-34 characters")
	}
	if !ibanCharsPattern.MatchString(iban) {
		return fmt.Errorf("may only contain letters and digits")
	}
	return nil
}

func validateAccountNumber(v string) error {
	if !accountNumberPattern.MatchString(v) {
		return fmt.Errorf("must be 4-34 letters or digits")
	}
	return nil
}

func validateInvoiceDate(v string) error {
	if _, err := time.Parse("2006-01-02", v); err != nil {
		return fmt.Errorf("must be a date in YYYY-MM-DD format")
	}
	return nil
}

func validateAttachmentURL(v string) error {
	if !strings.HasPrefix(v, "http://") && !strings.HasPrefix(v, "https://") {
		return fmt.Errorf("must be an uploaded file reference")
	}
	return nil
}

func patternValidator(re *regexp.Regexp, message string) func(string) error {
	return func(v string) error {
		if !re.MatchString(strings.TrimSpace(v)) {
			return fmt.Errorf("%s", message)
		}
		return nil
	}
}

func textValidator(minLen, maxLen int) func(string) error {
	return func(v string) error {
		n := len(strings.TrimSpace(v))
		if n < minLen {
			return fmt.Errorf("must be at least %d characters", minLen)
		}
		if n > maxLen {
			return fmt.Errorf("must be at most %d characters", maxLen)
		}
		return nil
	}
}
