package repair

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/metacast/config"
	"github.com/c360studio/metacast/record"
	"github.com/c360studio/metacast/schema"
	"github.com/c360studio/metacast/validate"
)

func testEnv(t *testing.T, global string) *Env {
	t.Helper()
	root := t.TempDir()
	if global == "" {
		global = "{}\n"
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, config.GlobalDefaultsFile), []byte(global), 0o644))

	store, err := config.NewStore(root)
	require.NoError(t, err)
	return &Env{Resolver: config.NewResolver(store), Context: config.Context{}}
}

func recoverRecord(t *testing.T, attrs map[string]string, env *Env) (*record.Record, *Outcome) {
	t.Helper()
	rec := record.New(attrs)
	result := validate.NewValidator().Validate(rec, schema.Distribution())
	require.False(t, result.Valid, "test record must have defects")

	out, err := NewManager(schema.Distribution()).Recover(rec, result, env)
	require.NoError(t, err)
	return rec, out
}

func TestRecoverCheckDigit(t *testing.T) {
	rec, out := recoverRecord(t, map[string]string{
		"isbn13": "9780306406150", // check digit should be 7
	}, testEnv(t, ""))

	assert.Equal(t, "9780306406157", rec.Value("isbn13"))

	var attempt *Attempt
	for i := range out.Attempts {
		if out.Attempts[i].Field == "isbn13" {
			attempt = &out.Attempts[i]
		}
	}
	require.NotNil(t, attempt)
	assert.True(t, attempt.Applied)
	assert.Equal(t, "check_digit", attempt.Repair)
	assert.Equal(t, "9780306406150", attempt.Before)
	assert.Equal(t, "9780306406157", attempt.After)

	prov, ok := rec.Provenance("isbn13")
	require.True(t, ok)
	assert.Equal(t, record.OriginRepair, prov.Origin)
}

func TestRecoverCheckDigitNotThirteenDigits(t *testing.T) {
	rec, out := recoverRecord(t, map[string]string{
		"isbn13": "0306406152", // ISBN-10, cannot deterministically extend
	}, testEnv(t, ""))

	assert.Equal(t, "0306406152", rec.Value("isbn13"))
	hasRemaining := false
	for _, e := range out.Remaining {
		if e.Field == "isbn13" {
			hasRemaining = true
		}
	}
	assert.True(t, hasRemaining)
}

func TestRecoverNumericCoercion(t *testing.T) {
	rec, _ := recoverRecord(t, map[string]string{
		"page_count": "248 pages",
	}, testEnv(t, ""))

	assert.Equal(t, "248", rec.Value("page_count"))
}

func TestRecoverNumericCoercionAmbiguous(t *testing.T) {
	rec, out := recoverRecord(t, map[string]string{
		"page_count": "248 of 300",
	}, testEnv(t, ""))

	// Two digit runs: no deterministic repair, error surfaced
	assert.Equal(t, "248 of 300", rec.Value("page_count"))
	assert.NotEmpty(t, out.Remaining)
}

func TestRecoverCurrencyNormalization(t *testing.T) {
	rec, _ := recoverRecord(t, map[string]string{
		"price_usd": "$1,024.9500",
	}, testEnv(t, ""))

	assert.Equal(t, "1024.95", rec.Value("price_usd"))
}

func TestRecoverCurrencyDerivation(t *testing.T) {
	env := testEnv(t, "cad_conversion_rate: \"1.40\"\n")
	rec, out := recoverRecord(t, map[string]string{
		"price_usd": "20.00",
		// price_cad missing entirely
	}, env)

	assert.Equal(t, "28.00", rec.Value("price_cad"))

	found := false
	for _, a := range out.Attempts {
		if a.Repair == "currency_derivation" && a.Applied {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRecoverCurrencyDerivationNoBase(t *testing.T) {
	rec, out := recoverRecord(t, map[string]string{
		"title": "X",
		// neither price present
	}, testEnv(t, ""))

	assert.Equal(t, "", rec.Value("price_cad"))
	hasRemaining := false
	for _, e := range out.Remaining {
		if e.Field == "price_cad" {
			hasRemaining = true
		}
	}
	assert.True(t, hasRemaining)
}

func TestRecoverClassificationSuggestion(t *testing.T) {
	rec, _ := recoverRecord(t, map[string]string{
		"title":       "A History of the Great War",
		"description": "A sweeping historical account.",
	}, testEnv(t, ""))

	assert.Equal(t, "HIS000000", rec.Value("bisac_code"))
}

func TestRecoverClassificationTieNotGuessed(t *testing.T) {
	rec, out := recoverRecord(t, map[string]string{
		"title": "The Science of Cooking", // science and cooking tie at 1
	}, testEnv(t, ""))

	assert.Equal(t, "", rec.Value("bisac_code"))

	var attempt *Attempt
	for i := range out.Attempts {
		if out.Attempts[i].Field == "bisac_code" {
			attempt = &out.Attempts[i]
		}
	}
	require.NotNil(t, attempt)
	assert.False(t, attempt.Applied)
	assert.Contains(t, attempt.Reason, "ambiguous")
}

func TestRecoverConfiguredKeywordTable(t *testing.T) {
	env := testEnv(t, "bisac_keywords:\n  GAR000000:\n    - gardening\n    - plants\n")
	rec, _ := recoverRecord(t, map[string]string{
		"title": "Gardening for Beginners",
	}, env)

	assert.Equal(t, "GAR000000", rec.Value("bisac_code"))
}

func TestRecoverLeavesUnrepairableErrors(t *testing.T) {
	// A missing title has no deterministic repair
	_, out := recoverRecord(t, map[string]string{
		"isbn13": "9780306406157",
	}, testEnv(t, ""))

	hasTitle := false
	for _, e := range out.Remaining {
		if e.Field == "title" {
			hasTitle = true
		}
	}
	assert.True(t, hasTitle)
}
