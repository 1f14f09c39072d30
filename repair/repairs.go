package repair

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/c360studio/metacast/config"
	"github.com/c360studio/metacast/record"
	"github.com/c360studio/metacast/schema"
	"github.com/c360studio/metacast/validate"
)

// checkDigitRepair recomputes the ISBN-13 check character when the first 12
// digits are intact.
type checkDigitRepair struct{}

func (r *checkDigitRepair) Name() string { return "check_digit" }

func (r *checkDigitRepair) Matches(err validate.Error, f schema.Field) bool {
	return f.Format == schema.FormatISBN13 && err.Kind == validate.KindFormat
}

var thirteenDigitsRe = regexp.MustCompile(`^\d{13}$`)

func (r *checkDigitRepair) Apply(rec *record.Record, err validate.Error, env *Env) (string, bool, string) {
	value := rec.Value(err.Field)
	if !thirteenDigitsRe.MatchString(value) {
		return "", false, "not 13 digits, cannot recompute check digit"
	}
	return value[:12] + validate.CheckDigit(value[:12]), true, ""
}

// numericCoercionRepair strips non-digit characters from integer fields
// ("248 pages" becomes "248").
type numericCoercionRepair struct{}

func (r *numericCoercionRepair) Name() string { return "numeric_coercion" }

func (r *numericCoercionRepair) Matches(err validate.Error, f schema.Field) bool {
	return f.Format == schema.FormatInt && err.Kind == validate.KindFormat
}

var digitRunRe = regexp.MustCompile(`\d+`)

func (r *numericCoercionRepair) Apply(rec *record.Record, err validate.Error, env *Env) (string, bool, string) {
	value := rec.Value(err.Field)
	runs := digitRunRe.FindAllString(value, -1)
	if len(runs) != 1 {
		return "", false, fmt.Sprintf("expected exactly one digit run in %q, found %d", value, len(runs))
	}
	return runs[0], true, ""
}

// currencyNormalizationRepair strips currency symbols and grouping commas and
// reformats to two fraction digits ("$24.9500" becomes "24.95").
type currencyNormalizationRepair struct{}

func (r *currencyNormalizationRepair) Name() string { return "currency_normalization" }

func (r *currencyNormalizationRepair) Matches(err validate.Error, f schema.Field) bool {
	return f.Format == schema.FormatCurrency && err.Kind == validate.KindFormat
}

func (r *currencyNormalizationRepair) Apply(rec *record.Record, err validate.Error, env *Env) (string, bool, string) {
	value := rec.Value(err.Field)
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "", "USD", "", "CAD", "").Replace(value)
	amount, perr := strconv.ParseFloat(cleaned, 64)
	if perr != nil || amount < 0 {
		return "", false, fmt.Sprintf("cannot parse %q as an amount", value)
	}
	return strconv.FormatFloat(amount, 'f', 2, 64), true, ""
}

// currencyDerivationRepair fills a missing Canadian price from the US price
// and the configured conversion rate.
type currencyDerivationRepair struct{}

func (r *currencyDerivationRepair) Name() string { return "currency_derivation" }

func (r *currencyDerivationRepair) Matches(err validate.Error, f schema.Field) bool {
	return err.Field == "price_cad" && err.Kind == validate.KindRequired
}

func (r *currencyDerivationRepair) Apply(rec *record.Record, err validate.Error, env *Env) (string, bool, string) {
	base := rec.Value("price_usd")
	if base == "" {
		return "", false, "no base price to derive from"
	}
	amount, perr := strconv.ParseFloat(base, 64)
	if perr != nil {
		return "", false, fmt.Sprintf("base price %q is not a number", base)
	}

	rateStr, _, _, rerr := env.Resolver.GetString("cad_conversion_rate", env.Context, "1.35")
	if rerr != nil {
		return "", false, rerr.Error()
	}
	rate, perr := strconv.ParseFloat(rateStr, 64)
	if perr != nil || rate <= 0 {
		return "", false, fmt.Sprintf("configured conversion rate %q is not a positive number", rateStr)
	}

	// Plain arithmetic conversion; no price-point rounding.
	return strconv.FormatFloat(amount*rate, 'f', 2, 64), true, ""
}

// defaultBISACKeywords is the builtin keyword table used when the hierarchy
// defines no bisac_keywords map.
var defaultBISACKeywords = map[string][]string{
	"FIC000000": {"novel", "fiction", "story"},
	"JUV000000": {"children", "juvenile", "kids"},
	"BUS000000": {"business", "management", "economics"},
	"CKB000000": {"cooking", "recipes", "food"},
	"HIS000000": {"history", "historical", "war"},
	"SCI000000": {"science", "physics", "biology"},
	"SEL000000": {"self-help", "wellness", "mindfulness"},
}

// classificationSuggestionRepair suggests a BISAC code by keyword overlap
// over the title and description. It applies only when exactly one code has
// the highest overlap; ties are not guessed.
type classificationSuggestionRepair struct{}

func (r *classificationSuggestionRepair) Name() string { return "classification_suggestion" }

func (r *classificationSuggestionRepair) Matches(err validate.Error, f schema.Field) bool {
	return err.Field == "bisac_code" && err.Kind == validate.KindRequired
}

func (r *classificationSuggestionRepair) Apply(rec *record.Record, err validate.Error, env *Env) (string, bool, string) {
	text := strings.ToLower(rec.Value("title") + " " + rec.Value("subtitle") + " " + rec.Value("description"))
	if strings.TrimSpace(text) == "" {
		return "", false, "no title or description text to classify"
	}

	table := keywordTable(env)

	type scored struct {
		code  string
		score int
	}
	var scores []scored
	for code, keywords := range table {
		n := 0
		for _, kw := range keywords {
			if strings.Contains(text, strings.ToLower(kw)) {
				n++
			}
		}
		if n > 0 {
			scores = append(scores, scored{code: code, score: n})
		}
	}
	if len(scores) == 0 {
		return "", false, "no keyword overlap with any classification"
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		return scores[i].code < scores[j].code
	})
	if len(scores) > 1 && scores[0].score == scores[1].score {
		return "", false, fmt.Sprintf("ambiguous: %s and %s tie with overlap %d", scores[0].code, scores[1].code, scores[0].score)
	}

	return scores[0].code, true, ""
}

func keywordTable(env *Env) map[string][]string {
	raw, _, found, err := env.Resolver.Get("bisac_keywords", env.Context, nil)
	if err != nil || !found {
		return defaultBISACKeywords
	}
	configured, ok := raw.(map[string]any)
	if !ok {
		return defaultBISACKeywords
	}

	table := make(map[string][]string, len(configured))
	for code, v := range configured {
		list, ok := v.([]any)
		if !ok {
			continue
		}
		keywords := make([]string, 0, len(list))
		for _, kw := range list {
			keywords = append(keywords, config.Stringify(kw))
		}
		table[code] = keywords
	}
	if len(table) == 0 {
		return defaultBISACKeywords
	}
	return table
}
