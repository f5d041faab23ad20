package phonepool

import (
	"sort"
	"strings"
)

// CountryPolicy names the countries North American numbers map to.
type CountryPolicy struct {
	Primary   string
	Secondary string
}

// DefaultCountryPolicy maps NANP numbers to the US, with Canadian area codes
// going to CA.
var DefaultCountryPolicy = CountryPolicy{Primary: "US", Secondary: "CA"}

// secondaryAreaCodes are the NANP area codes assigned to Canada.
var secondaryAreaCodes = map[string]bool{
	"204": true, "226": true, "236": true, "249": true, "250": true, "263": true,
	"289": true, "306": true, "343": true, "354": true, "365": true, "367": true,
	"368": true, "382": true, "403": true, "416": true, "418": true, "428": true,
	"431": true, "437": true, "438": true, "450": true, "468": true, "474": true,
	"506": true, "514": true, "519": true, "548": true, "579": true, "581": true,
	"584": true, "587": true, "604": true, "613": true, "639": true, "647": true,
	"672": true, "683": true, "705": true, "709": true, "742": true, "753": true,
	"778": true, "780": true, "782": true, "807": true, "819": true, "825": true,
	"867": true, "873": true, "879": true, "902": true, "905": true,
}

// callingCodes maps non-NANP country calling codes to ISO countries.
var callingCodes = map[string]string{
	"44":  "GB",
	"61":  "AU",
	"64":  "NZ",
	"353": "IE",
	"27":  "ZA",
}

// callingCodePrefixes is callingCodes' keys, longest first.
var callingCodePrefixes = func() []string {
	keys := make([]string, 0, len(callingCodes))
	for k := range callingCodes {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}()

// DetectCountry infers the country to buy a number in from a clinic's own
// number. It returns an empty string when the number gives no hint.
func (p CountryPolicy) DetectCountry(clinicNumber string) string {
	digits := normalize(clinicNumber)
	if digits == "" {
		return ""
	}

	// Ten digits without a calling code are treated as NANP.
	if len(digits) == 10 && !strings.HasPrefix(clinicNumber, "+") {
		digits = "1" + digits
	}

	if strings.HasPrefix(digits, "1") {
		if len(digits) >= 4 && secondaryAreaCodes[digits[1:4]] {
			return p.Secondary
		}
		return p.Primary
	}
	for _, prefix := range callingCodePrefixes {
		if strings.HasPrefix(digits, prefix) {
			return callingCodes[prefix]
		}
	}
	return ""
}

// DetectCountry is DefaultCountryPolicy.DetectCountry.
func DetectCountry(clinicNumber string) string {
	return DefaultCountryPolicy.DetectCountry(clinicNumber)
}

// normalize strips formatting and an international "00" prefix.
func normalize(number string) string {
	var b strings.Builder
	for _, r := range number {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if !strings.HasPrefix(number, "+") && strings.HasPrefix(digits, "00") {
		digits = digits[2:]
	}
	return digits
}
