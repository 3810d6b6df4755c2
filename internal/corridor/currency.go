package corridor

import (
	"strings"

	"payreq/internal/domain"
)

// euroArea lists countries whose settlement currency is the euro.
var euroArea = map[string]bool{
	"AD": true, "AT": true, "BE": true, "CY": true, "DE": true, "EE": true,
	"ES": true, "FI": true, "FR": true, "GR": true, "HR": true, "IE": true,
	"IT": true, "LT": true, "LU": true, "LV": true, "MC": true, "MT": true,
	"NL": true, "PT": true, "SI": true, "SK": true, "SM": true, "VA": true,
}

var countryCurrency = map[string]domain.Currency{
	"US": domain.USD, "PR": domain.USD, "AS": domain.USD, "GU": domain.USD,
	"MP": domain.USD, "VI": domain.USD,
	"GB": domain.GBP,
	"IN": domain.INR,
	"AU": domain.AUD,
	"CA": domain.CAD,
	"ZA": domain.ZAR,
	"CH": "CHF", "DK": "DKK", "NO": "NOK", "SE": "SEK", "PL": "PLN",
	"CZ": "CZK", "HU": "HUF", "RO": "RON", "BG": "BGN", "TR": "TRY",
	"AE": "AED", "SA": "SAR", "QA": "QAR", "KW": "KWD", "BH": "BHD",
	"IL": "ILS", "JO": "JOD", "LB": "LBP", "IQ": "IQD",
}

// CurrencyForCountry derives the beneficiary currency from a resolved bank
// country code. Unknown countries return "" and leave the draft untouched.
func CurrencyForCountry(countryCode string) domain.Currency {
	cc := strings.ToUpper(strings.TrimSpace(countryCode))
	if euroArea[cc] {
		return domain.EUR
	}
	return countryCurrency[cc]
}
