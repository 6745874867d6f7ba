package country

import "strings"

// Country describes how phone numbers are entered and displayed for one
// country. Format uses 'X' as a digit placeholder; Length is the exact
// national number digit count (excluding the dial code).
type Country struct {
	Code   string `json:"code"` // 2-letter ISO code, unique
	Name   string `json:"name"`
	Flag   string `json:"flag"`
	Dial   string `json:"dial"` // "+" followed by digits; NOT unique (NANP)
	Format string `json:"format"`
	Length int    `json:"length"`
}

// Countries is the fixed, ordered directory. The first entry is the default
// selection in the portal UI.
var Countries = []Country{
	{Code: "KE", Name: "Kenya", Flag: "🇰🇪", Dial: "+254", Format: "7XX XXX XXX", Length: 9},
	{Code: "US", Name: "United States", Flag: "🇺🇸", Dial: "+1", Format: "(XXX) XXX-XXXX", Length: 10},
	{Code: "GB", Name: "United Kingdom", Flag: "🇬🇧", Dial: "+44", Format: "XXXX XXX XXX", Length: 10},
	{Code: "CA", Name: "Canada", Flag: "🇨🇦", Dial: "+1", Format: "(XXX) XXX-XXXX", Length: 10},
	{Code: "AU", Name: "Australia", Flag: "🇦🇺", Dial: "+61", Format: "XXX XXX XXX", Length: 9},
	{Code: "IN", Name: "India", Flag: "🇮🇳", Dial: "+91", Format: "XXXXX XXXXX", Length: 10},
	{Code: "ZA", Name: "South Africa", Flag: "🇿🇦", Dial: "+27", Format: "XX XXX XXXX", Length: 9},
	{Code: "NG", Name: "Nigeria", Flag: "🇳🇬", Dial: "+234", Format: "XXX XXX XXXX", Length: 10},
	{Code: "GH", Name: "Ghana", Flag: "🇬🇭", Dial: "+233", Format: "XX XXX XXXX", Length: 9},
	{Code: "UG", Name: "Uganda", Flag: "🇺🇬", Dial: "+256", Format: "XXX XXX XXX", Length: 9},
	{Code: "TZ", Name: "Tanzania", Flag: "🇹🇿", Dial: "+255", Format: "XXX XXX XXX", Length: 9},
	{Code: "RW", Name: "Rwanda", Flag: "🇷🇼", Dial: "+250", Format: "XXX XXX XXX", Length: 9},
	{Code: "ET", Name: "Ethiopia", Flag: "🇪🇹", Dial: "+251", Format: "XX XXX XXXX", Length: 9},
	{Code: "ZM", Name: "Zambia", Flag: "🇿🇲", Dial: "+260", Format: "XX XXX XXXX", Length: 9},
	{Code: "ZW", Name: "Zimbabwe", Flag: "🇿🇼", Dial: "+263", Format: "XX XXX XXXX", Length: 9},
	{Code: "AE", Name: "United Arab Emirates", Flag: "🇦🇪", Dial: "+971", Format: "XX XXX XXXX", Length: 9},
	{Code: "SA", Name: "Saudi Arabia", Flag: "🇸🇦", Dial: "+966", Format: "XX XXX XXXX", Length: 9},
	{Code: "EG", Name: "Egypt", Flag: "🇪🇬", Dial: "+20", Format: "XXX XXX XXXX", Length: 10},
	{Code: "FR", Name: "France", Flag: "🇫🇷", Dial: "+33", Format: "X XX XX XX XX", Length: 9},
	{Code: "DE", Name: "Germany", Flag: "🇩🇪", Dial: "+49", Format: "XXX XXXXXXX", Length: 10},
	{Code: "IT", Name: "Italy", Flag: "🇮🇹", Dial: "+39", Format: "XXX XXX XXXX", Length: 10},
	{Code: "ES", Name: "Spain", Flag: "🇪🇸", Dial: "+34", Format: "XXX XX XX XX", Length: 9},
	{Code: "NL", Name: "Netherlands", Flag: "🇳🇱", Dial: "+31", Format: "X XX XX XX XX", Length: 9},
	{Code: "BE", Name: "Belgium", Flag: "🇧🇪", Dial: "+32", Format: "XXX XX XX XX", Length: 9},
	{Code: "CH", Name: "Switzerland", Flag: "🇨🇭", Dial: "+41", Format: "XX XXX XX XX", Length: 9},
	{Code: "SE", Name: "Sweden", Flag: "🇸🇪", Dial: "+46", Format: "XX XXX XX XX", Length: 9},
	{Code: "NO", Name: "Norway", Flag: "🇳🇴", Dial: "+47", Format: "XXX XX XXX", Length: 8},
	{Code: "DK", Name: "Denmark", Flag: "🇩🇰", Dial: "+45", Format: "XX XX XX XX", Length: 8},
	{Code: "FI", Name: "Finland", Flag: "🇫🇮", Dial: "+358", Format: "XX XXX XXXX", Length: 9},
	{Code: "PL", Name: "Poland", Flag: "🇵🇱", Dial: "+48", Format: "XXX XXX XXX", Length: 9},
	{Code: "BR", Name: "Brazil", Flag: "🇧🇷", Dial: "+55", Format: "XX XXXXX-XXXX", Length: 11},
	{Code: "MX", Name: "Mexico", Flag: "🇲🇽", Dial: "+52", Format: "XXX XXX XXXX", Length: 10},
	{Code: "AR", Name: "Argentina", Flag: "🇦🇷", Dial: "+54", Format: "XX XXXX-XXXX", Length: 10},
	{Code: "CL", Name: "Chile", Flag: "🇨🇱", Dial: "+56", Format: "X XXXX XXXX", Length: 9},
	{Code: "CO", Name: "Colombia", Flag: "🇨🇴", Dial: "+57", Format: "XXX XXX XXXX", Length: 10},
	{Code: "PE", Name: "Peru", Flag: "🇵🇪", Dial: "+51", Format: "XXX XXX XXX", Length: 9},
	{Code: "CN", Name: "China", Flag: "🇨🇳", Dial: "+86", Format: "XXX XXXX XXXX", Length: 11},
	{Code: "JP", Name: "Japan", Flag: "🇯🇵", Dial: "+81", Format: "XX XXXX XXXX", Length: 10},
	{Code: "KR", Name: "South Korea", Flag: "🇰🇷", Dial: "+82", Format: "XX XXXX XXXX", Length: 10},
	{Code: "TH", Name: "Thailand", Flag: "🇹🇭", Dial: "+66", Format: "XX XXX XXXX", Length: 9},
	{Code: "VN", Name: "Vietnam", Flag: "🇻🇳", Dial: "+84", Format: "XX XXX XXXX", Length: 9},
	{Code: "PH", Name: "Philippines", Flag: "🇵🇭", Dial: "+63", Format: "XXX XXX XXXX", Length: 10},
	{Code: "ID", Name: "Indonesia", Flag: "🇮🇩", Dial: "+62", Format: "XXX XXX XXXX", Length: 10},
	{Code: "MY", Name: "Malaysia", Flag: "🇲🇾", Dial: "+60", Format: "XX XXX XXXX", Length: 9},
	{Code: "SG", Name: "Singapore", Flag: "🇸🇬", Dial: "+65", Format: "XXXX XXXX", Length: 8},
	{Code: "NZ", Name: "New Zealand", Flag: "🇳🇿", Dial: "+64", Format: "XX XXX XXXX", Length: 9},
	{Code: "PK", Name: "Pakistan", Flag: "🇵🇰", Dial: "+92", Format: "XXX XXX XXXX", Length: 10},
	{Code: "BD", Name: "Bangladesh", Flag: "🇧🇩", Dial: "+880", Format: "XXXX XXX XXX", Length: 10},
	{Code: "LK", Name: "Sri Lanka", Flag: "🇱🇰", Dial: "+94", Format: "XX XXX XXXX", Length: 9},
	{Code: "TR", Name: "Turkey", Flag: "🇹🇷", Dial: "+90", Format: "XXX XXX XXXX", Length: 10},
}

// ByCode finds a country by its 2-letter ISO code.
func ByCode(code string) (Country, bool) {
	for _, c := range Countries {
		if c.Code == code {
			return c, true
		}
	}
	return Country{}, false
}

// ByDial finds a country by its dial code. Dial codes are shared (eg. "+1" is
// both the US and Canada); the first match in directory order wins. Callers
// that need every match should use AllByDial.
func ByDial(dial string) (Country, bool) {
	for _, c := range Countries {
		if c.Dial == dial {
			return c, true
		}
	}
	return Country{}, false
}

// AllByDial returns every country sharing the given dial code, in directory order.
func AllByDial(dial string) []Country {
	var matches []Country
	for _, c := range Countries {
		if c.Dial == dial {
			matches = append(matches, c)
		}
	}
	return matches
}

// StripNonDigits removes every non-digit character from s.
func StripNonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Validate reports whether number, stripped of non-digits, has exactly the
// digit count the country expects. A zero country or empty number is invalid.
func Validate(c Country, number string) bool {
	if c.Length == 0 || number == "" {
		return false
	}
	return len(StripNonDigits(number)) == c.Length
}

// Format applies the country's display template to number, consuming stripped
// digits left to right. Formatting stops as soon as the digits run out, so
// partial input yields a well-formed prefix with no trailing separators.
// A zero country or empty number is returned unchanged.
func Format(c Country, number string) string {
	if c.Format == "" || number == "" {
		return number
	}

	cleaned := StripNonDigits(number)

	var b strings.Builder
	digitIndex := 0
	for i := 0; i < len(c.Format) && digitIndex < len(cleaned); i++ {
		if c.Format[i] == 'X' {
			b.WriteByte(cleaned[digitIndex])
			digitIndex++
		} else {
			b.WriteByte(c.Format[i])
		}
	}
	return b.String()
}
