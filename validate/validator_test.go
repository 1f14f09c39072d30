package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/metacast/record"
	"github.com/c360studio/metacast/schema"
)

// validAttrs returns a record that passes every check of the distribution
// schema. Tests break individual fields from here.
func validAttrs() map[string]string {
	return map[string]string{
		"isbn13":      "9780306406157",
		"title":       "The Voyage",
		"contributor": "A. Mariner",
		"publisher":   "Acme Press",
		"pub_date":    "2024-03-15",
		"binding":     "paperback",
		"price_usd":   "24.95",
		"price_cad":   "33.95",
		"bisac_code":  "FIC000000",
	}
}

func TestValidateCleanRecord(t *testing.T) {
	v := NewValidator()
	result := v.Validate(record.New(validAttrs()), schema.Distribution())

	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	attrs := validAttrs()
	attrs["isbn13"] = "9780306406150" // bad check digit
	attrs["binding"] = "stapled"      // not in enum
	attrs["price_usd"] = "about 25"   // not a currency amount
	delete(attrs, "title")            // missing required field

	v := NewValidator()
	result := v.Validate(record.New(attrs), schema.Distribution())

	require.False(t, result.Valid)
	// All defects reported, not just the first
	require.Len(t, result.Errors, 4)

	byField := make(map[string]Error)
	for _, e := range result.Errors {
		byField[e.Field] = e
	}
	assert.Equal(t, KindFormat, byField["isbn13"].Kind)
	assert.Equal(t, KindFormat, byField["binding"].Kind)
	assert.Equal(t, KindFormat, byField["price_usd"].Kind)
	assert.Equal(t, KindRequired, byField["title"].Kind)
}

func TestValidateFormats(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		value   string
		wantErr bool
	}{
		{name: "valid isbn", field: "isbn13", value: "9780306406157", wantErr: false},
		{name: "isbn wrong length", field: "isbn13", value: "978030640615", wantErr: true},
		{name: "isbn bad check digit", field: "isbn13", value: "9780306406158", wantErr: true},
		{name: "valid date", field: "pub_date", value: "2024-03-15", wantErr: false},
		{name: "slash date rejected post-resolution", field: "pub_date", value: "03/15/2024", wantErr: true},
		{name: "valid currency", field: "price_usd", value: "24.95", wantErr: false},
		{name: "currency too many decimals", field: "price_usd", value: "24.955", wantErr: true},
		{name: "currency with symbol", field: "price_usd", value: "$24.95", wantErr: true},
		{name: "valid enum", field: "returnable", value: "Y", wantErr: false},
		{name: "invalid enum", field: "returnable", value: "maybe", wantErr: true},
		{name: "valid int", field: "carton_qty", value: "24", wantErr: false},
		{name: "invalid int", field: "carton_qty", value: "two dozen", wantErr: true},
	}

	v := NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := validAttrs()
			attrs[tt.field] = tt.value
			result := v.Validate(record.New(attrs), schema.Distribution())

			found := false
			for _, e := range result.Errors {
				if e.Field == tt.field {
					found = true
				}
			}
			assert.Equal(t, tt.wantErr, found, "errors: %v", result.Errors)
		})
	}
}

func TestValidateCrossFieldSpineWidth(t *testing.T) {
	v := NewValidator()

	// 248 pages at 444 ppi is plausible
	attrs := validAttrs()
	attrs["page_count"] = "248"
	attrs["spine_width_in"] = "0.559"
	result := v.Validate(record.New(attrs), schema.Distribution())
	assert.True(t, result.Valid, "errors: %v", result.Errors)

	// 2 inches of spine for 248 pages is not
	attrs["spine_width_in"] = "2.000"
	result = v.Validate(record.New(attrs), schema.Distribution())
	require.False(t, result.Valid)
	assert.Equal(t, KindCrossField, result.Errors[0].Kind)

	// Missing linked field downgrades to a warning
	delete(attrs, "page_count")
	attrs["spine_width_in"] = "0.559"
	result = v.Validate(record.New(attrs), schema.Distribution())
	assert.True(t, result.Valid)
	assert.NotEmpty(t, result.Warnings)
}

func TestValidateNeverMutates(t *testing.T) {
	attrs := validAttrs()
	attrs["binding"] = "stapled"
	rec := record.New(attrs)

	NewValidator().Validate(rec, schema.Distribution())

	assert.Equal(t, "stapled", rec.Value("binding"))
	assert.Len(t, rec.Keys(), len(attrs))
}

func TestCheckDigit(t *testing.T) {
	tests := []struct {
		first12 string
		want    string
	}{
		{"978030640615", "7"},
		{"978031233911", "1"},
		{"978000000000", "2"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CheckDigit(tt.first12), "input %s", tt.first12)
	}
}
