// Package validate runs post-resolution structural and semantic checks over a
// resolved record: required-field presence, format checks for
// checksum-bearing identifiers, currency and date strings, enumerations, and
// cross-field plausibility. Validation reports and never mutates.
package validate

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/c360studio/metacast/record"
	"github.com/c360studio/metacast/schema"
)

// Kind classifies a validation error.
type Kind string

const (
	// KindRequired marks a missing required field.
	KindRequired Kind = "required"
	// KindFormat marks a malformed value.
	KindFormat Kind = "format"
	// KindCrossField marks an implausible value relative to a linked field.
	KindCrossField Kind = "cross_field"
)

// Error is one validation defect.
type Error struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Kind    Kind   `json:"kind"`
}

// Warning is a non-blocking validation note.
type Warning struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result collects every defect found in one record. Validation runs to
// completion even when fields error, so recovery sees the complete list.
type Result struct {
	Valid    bool      `json:"valid"`
	Errors   []Error   `json:"errors,omitempty"`
	Warnings []Warning `json:"warnings,omitempty"`
}

func (r *Result) addError(field, message string, kind Kind) {
	r.Errors = append(r.Errors, Error{Field: field, Message: message, Kind: kind})
}

func (r *Result) addWarning(field, message string) {
	r.Warnings = append(r.Warnings, Warning{Field: field, Message: message})
}

// Pre-compiled format patterns.
var (
	currencyRe = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)
	dateRe     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	digitsRe   = regexp.MustCompile(`^\d{13}$`)
)

// Validator validates resolved records against an output schema.
type Validator struct{}

// NewValidator creates a validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks rec against every field of the schema and returns the
// complete defect list.
func (v *Validator) Validate(rec *record.Record, s *schema.Schema) *Result {
	result := &Result{}

	for _, f := range s.Fields() {
		value, present := rec.Get(f.Name)

		if f.Required && (!present || value == "") {
			result.addError(f.Name, "required field is empty", KindRequired)
			continue
		}
		if !present || value == "" {
			continue
		}

		v.checkFormat(result, f, value)
		v.checkCrossField(result, rec, f, value)
	}

	result.Valid = len(result.Errors) == 0
	return result
}

func (v *Validator) checkFormat(result *Result, f schema.Field, value string) {
	switch f.Format {
	case schema.FormatISBN13:
		if !digitsRe.MatchString(value) {
			result.addError(f.Name, fmt.Sprintf("must be 13 digits, got %q", value), KindFormat)
			return
		}
		if CheckDigit(value[:12]) != value[12:] {
			result.addError(f.Name, fmt.Sprintf("check digit mismatch: expected %s", CheckDigit(value[:12])), KindFormat)
		}

	case schema.FormatCurrency:
		if !currencyRe.MatchString(value) {
			result.addError(f.Name, fmt.Sprintf("must be a decimal amount, got %q", value), KindFormat)
		}

	case schema.FormatDate:
		if !dateRe.MatchString(value) {
			result.addError(f.Name, fmt.Sprintf("must be YYYY-MM-DD, got %q", value), KindFormat)
		}

	case schema.FormatEnum:
		for _, allowed := range f.Enum {
			if value == allowed {
				return
			}
		}
		result.addError(f.Name, fmt.Sprintf("value %q not in %v", value, f.Enum), KindFormat)

	case schema.FormatInt:
		if _, err := strconv.Atoi(value); err != nil {
			result.addError(f.Name, fmt.Sprintf("must be an integer, got %q", value), KindFormat)
		}

	case schema.FormatDecimal:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			result.addError(f.Name, fmt.Sprintf("must be a decimal number, got %q", value), KindFormat)
		}
	}
}

// Plausible pages-per-inch bounds for the spine-width cross-check.
const (
	minPlausiblePPI = 200
	maxPlausiblePPI = 700
)

func (v *Validator) checkCrossField(result *Result, rec *record.Record, f schema.Field, value string) {
	if f.LinkedField == "" {
		return
	}

	linked, ok := rec.Get(f.LinkedField)
	if !ok || linked == "" {
		result.addWarning(f.Name, fmt.Sprintf("linked field %s is empty, cross-check skipped", f.LinkedField))
		return
	}

	// The only linked pair in the distribution schema is spine width against
	// page count.
	width, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return // Format check already reported it
	}
	pages, err := strconv.Atoi(linked)
	if err != nil || pages <= 0 {
		return
	}

	minWidth := float64(pages) / maxPlausiblePPI
	maxWidth := float64(pages) / minPlausiblePPI
	if width < minWidth || width > maxWidth {
		result.addError(f.Name,
			fmt.Sprintf("%s implausible for %d pages (expected %.3f-%.3f)", value, pages, minWidth, maxWidth),
			KindCrossField)
	}
}

// CheckDigit computes the ISBN-13 check digit for the first 12 digits.
func CheckDigit(first12 string) string {
	sum := 0
	for i, r := range first12 {
		digit := int(r - '0')
		if i%2 == 1 {
			digit *= 3
		}
		sum += digit
	}
	return strconv.Itoa((10 - sum%10) % 10)
}
