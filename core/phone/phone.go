// Package phone mediates country selection and progressive digit entry into a
// single validity signal. The consuming UI drives it through explicit
// mutators; each mutation is atomic with respect to one input event.
package phone

import "github.com/tutorke/darasa/core/country"

// Input holds the phone entry state for one check-in form.
type Input struct {
	Country *country.Country
	Digits  string
	Valid   bool
}

func NewInput() *Input {
	return &Input{}
}

// SelectCountry replaces the selected country and discards any entered
// digits; the input is never valid right after a country change.
func (in *Input) SelectCountry(c country.Country) {
	in.Country = &c
	in.Digits = ""
	in.Valid = false
}

// EnterDigits replaces the digit buffer from one raw input event: non-digits
// are stripped and the rest truncated to the country's exact length.
// A no-op until a country is selected.
func (in *Input) EnterDigits(raw string) {
	if in.Country == nil {
		return
	}
	cleaned := country.StripNonDigits(raw)
	if len(cleaned) > in.Country.Length {
		cleaned = cleaned[:in.Country.Length]
	}
	in.Digits = cleaned
	in.Valid = country.Validate(*in.Country, cleaned)
}

// FullNumber returns the canonical international form, dial code and digits
// concatenated with no separator. This exact string is the storage key.
func (in *Input) FullNumber() string {
	if in.Country == nil || in.Digits == "" {
		return ""
	}
	return in.Country.Dial + in.Digits
}

// Formatted returns the digits rendered with the country's display template.
func (in *Input) Formatted() string {
	if in.Country == nil {
		return in.Digits
	}
	return country.Format(*in.Country, in.Digits)
}
