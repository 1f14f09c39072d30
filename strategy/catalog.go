package strategy

import (
	"fmt"
	"strconv"

	"github.com/c360studio/metacast/config"
)

// defaultPagesPerInch maps paper types to pages-per-inch, used when the
// configuration hierarchy defines no pages_per_inch table.
var defaultPagesPerInch = map[string]float64{
	"standard":   444,
	"premium":    370,
	"groundwood": 500,
}

// SpineWidth derives the spine width in inches from the page count and the
// configured paper-type lookup table.
func SpineWidth(env *Env) (string, error) {
	pagesStr, ok := env.Record.Get("pages")
	if !ok {
		pagesStr, ok = env.Record.Get("page_count")
	}
	if !ok || pagesStr == "" {
		return "", nil
	}
	pages, err := strconv.Atoi(pagesStr)
	if err != nil {
		return "", fmt.Errorf("page count %q is not a number", pagesStr)
	}
	if pages <= 0 {
		return "", fmt.Errorf("page count must be positive, got %d", pages)
	}

	paperType, _, _, err := env.Resolver.GetString("paper_type", env.Context, "standard")
	if err != nil {
		return "", err
	}
	if v := env.Record.Value("paper_type"); v != "" {
		paperType = v
	}

	ppi, err := pagesPerInch(env, paperType)
	if err != nil {
		return "", err
	}

	return strconv.FormatFloat(float64(pages)/ppi, 'f', 3, 64), nil
}

func pagesPerInch(env *Env, paperType string) (float64, error) {
	raw, _, found, err := env.Resolver.Get("pages_per_inch", env.Context, nil)
	if err != nil {
		return 0, err
	}
	if found {
		if table, ok := raw.(map[string]any); ok {
			if v, ok := table[paperType]; ok {
				ppi, perr := strconv.ParseFloat(config.Stringify(v), 64)
				if perr != nil || ppi <= 0 {
					return 0, fmt.Errorf("configured pages_per_inch for %q is not a positive number", paperType)
				}
				return ppi, nil
			}
		}
	}

	if ppi, ok := defaultPagesPerInch[paperType]; ok {
		return ppi, nil
	}
	return defaultPagesPerInch["standard"], nil
}

// UnitWeight derives the unit weight in pounds from the page count and the
// configured per-page weight.
func UnitWeight(env *Env) (string, error) {
	pagesStr := env.Record.Value("pages")
	if pagesStr == "" {
		pagesStr = env.Record.Value("page_count")
	}
	if pagesStr == "" {
		return "", nil
	}
	pages, err := strconv.Atoi(pagesStr)
	if err != nil {
		return "", fmt.Errorf("page count %q is not a number", pagesStr)
	}

	perPage, _, _, err := env.Resolver.GetString("weight_per_page_lb", env.Context, "0.0025")
	if err != nil {
		return "", err
	}
	w, err := strconv.ParseFloat(perPage, 64)
	if err != nil || w <= 0 {
		return "", fmt.Errorf("weight_per_page_lb %q is not a positive number", perPage)
	}

	return strconv.FormatFloat(float64(pages)*w, 'f', 2, 64), nil
}

// HighDiscount reports whether the resolved US discount is 50 or above.
func HighDiscount(env *Env) bool {
	v, _, _, err := env.Resolver.GetString("us_discount", env.Context, "")
	if err != nil || v == "" {
		v = env.Record.Value("us_discount")
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return false
	}
	return n >= 50
}

// DistributionRegistry binds the default strategy for every field of the
// distribution schema. Callers may rebind individual fields afterwards; the
// last binding wins.
func DistributionRegistry() *Registry {
	r := NewRegistry()

	r.Bind("isbn13", Direct("isbn13"))
	r.Bind("title", Direct("title"))
	r.Bind("subtitle", Direct("subtitle"))
	r.Bind("contributor", Direct("contributor"))
	r.Bind("contributor_role", Default("contributor_role", "author"))
	r.Bind("publisher", Direct("publisher"))
	r.Bind("imprint", Direct("imprint"))
	r.Bind("series", Direct("series"))
	r.Bind("edition", Direct("edition"))
	r.Bind("language_code", Default("language_code", "eng"))

	r.Bind("pub_date", DateComputation([]string{"pub_date", "publication_date"}, 0, false))
	r.Bind("on_sale_date", DateComputation([]string{"on_sale_date", "pub_date", "publication_date"}, 0, false))
	r.Bind("copyright_date", DateComputation([]string{"copyright_date", "copyright_year", "pub_date"}, 0, false))

	r.Bind("binding", Default("binding", "paperback"))
	r.Bind("page_count", Direct("pages"))
	r.Bind("spine_width_in", Computed("spine_width", SpineWidth))
	r.Bind("trim_size", Default("trim_size", "6 x 9"))
	r.Bind("weight_lb", Computed("unit_weight", UnitWeight))
	r.Bind("carton_qty", Default("carton_qty", "24"))

	r.Bind("price_usd", Direct("price_usd"))
	r.Bind("price_cad", Direct("price_cad"))
	r.Bind("us_discount", Default("us_discount", "40"))
	r.Bind("discount_code", Conditional("high_discount", HighDiscount,
		Default("discount_code_short", "SHO"),
		Default("discount_code", "REG")))
	r.Bind("returnable", Default("returnable", "Y"))
	r.Bind("territory", Default("territory", "WORLD"))

	r.Bind("bisac_code", Direct("bisac_code"))
	r.Bind("audience", Default("audience", "general"))
	r.Bind("description", Completion("book_description", "{title} by {contributor}."))
	r.Bind("keywords", Completion("search_keywords", "{title}"))

	return r
}
