// Package schema defines the distribution-record output schema: a fixed,
// ordered list of field names with per-field validation requirements.
package schema

// Format classifies how a field's value is checked.
type Format string

const (
	// FormatFree places no format constraint on the value.
	FormatFree Format = "free"
	// FormatISBN13 requires a 13-digit identifier with a valid check digit.
	FormatISBN13 Format = "isbn13"
	// FormatCurrency requires a decimal amount with at most two fraction digits.
	FormatCurrency Format = "currency"
	// FormatDate requires an ISO YYYY-MM-DD date.
	FormatDate Format = "date"
	// FormatEnum requires membership in the field's fixed value set.
	FormatEnum Format = "enum"
	// FormatInt requires a non-negative integer.
	FormatInt Format = "int"
	// FormatDecimal requires a decimal number.
	FormatDecimal Format = "decimal"
)

// Field describes one output column of the distribution record.
type Field struct {
	// Name is the output field name.
	Name string

	// Required marks fields that must be populated for a valid record.
	Required bool

	// Format selects the format check applied during validation.
	Format Format

	// Enum lists the allowed values for FormatEnum fields.
	Enum []string

	// LinkedField names a companion field for cross-field checks
	// (e.g. spine_width_in is checked against page_count).
	LinkedField string

	// Description is a short human-readable note for reports.
	Description string
}

// Schema is an ordered field list. Order is the downstream feed's column
// order and must be preserved through resolution and reporting.
type Schema struct {
	fields []Field
	index  map[string]int
}

// New builds a schema from an ordered field list. A later field with a
// duplicate name replaces the earlier definition in place.
func New(fields []Field) *Schema {
	s := &Schema{index: make(map[string]int, len(fields))}
	for _, f := range fields {
		if i, ok := s.index[f.Name]; ok {
			s.fields[i] = f
			continue
		}
		s.index[f.Name] = len(s.fields)
		s.fields = append(s.fields, f)
	}
	return s
}

// Fields returns the fields in declaration order.
func (s *Schema) Fields() []Field {
	return s.fields
}

// FieldNames returns the field names in declaration order.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// Lookup returns the field definition for a name.
func (s *Schema) Lookup(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Len returns the number of fields.
func (s *Schema) Len() int {
	return len(s.fields)
}

// Bindings are the enum sets used by the default distribution schema.
var (
	BindingValues      = []string{"paperback", "hardcover", "library", "spiral", "board"}
	LanguageValues     = []string{"eng", "spa", "fre", "ger", "ita", "por"}
	ReturnableValues   = []string{"Y", "N"}
	DiscountCodeValues = []string{"REG", "SHO", "NET", "ACA"}
)

// Distribution returns the default distribution-record schema in feed column
// order.
func Distribution() *Schema {
	return New([]Field{
		{Name: "isbn13", Required: true, Format: FormatISBN13, Description: "Product identifier"},
		{Name: "title", Required: true, Format: FormatFree, Description: "Full title"},
		{Name: "subtitle", Format: FormatFree, Description: "Subtitle"},
		{Name: "contributor", Required: true, Format: FormatFree, Description: "Primary contributor"},
		{Name: "contributor_role", Format: FormatFree, Description: "Contributor role"},
		{Name: "publisher", Required: true, Format: FormatFree, Description: "Publisher name"},
		{Name: "imprint", Format: FormatFree, Description: "Imprint name"},
		{Name: "series", Format: FormatFree, Description: "Series title"},
		{Name: "edition", Format: FormatFree, Description: "Edition statement"},
		{Name: "language_code", Format: FormatEnum, Enum: LanguageValues, Description: "Language of text"},
		{Name: "pub_date", Required: true, Format: FormatDate, Description: "Publication date"},
		{Name: "on_sale_date", Format: FormatDate, Description: "On-sale date"},
		{Name: "copyright_date", Format: FormatDate, Description: "Copyright date"},
		{Name: "binding", Required: true, Format: FormatEnum, Enum: BindingValues, Description: "Binding type"},
		{Name: "page_count", Format: FormatInt, Description: "Page count"},
		{Name: "spine_width_in", Format: FormatDecimal, LinkedField: "page_count", Description: "Spine width in inches"},
		{Name: "trim_size", Format: FormatFree, Description: "Trim size"},
		{Name: "weight_lb", Format: FormatDecimal, Description: "Unit weight in pounds"},
		{Name: "carton_qty", Format: FormatInt, Description: "Units per carton"},
		{Name: "price_usd", Required: true, Format: FormatCurrency, Description: "US list price"},
		{Name: "price_cad", Required: true, Format: FormatCurrency, Description: "Canadian list price"},
		{Name: "us_discount", Format: FormatInt, Description: "US discount percentage"},
		{Name: "discount_code", Format: FormatEnum, Enum: DiscountCodeValues, Description: "Trade discount code"},
		{Name: "returnable", Format: FormatEnum, Enum: ReturnableValues, Description: "Returnable flag"},
		{Name: "territory", Format: FormatFree, Description: "Sales territory"},
		{Name: "bisac_code", Required: true, Format: FormatFree, Description: "Primary BISAC subject"},
		{Name: "audience", Format: FormatFree, Description: "Audience code"},
		{Name: "description", Format: FormatFree, Description: "Marketing description"},
		{Name: "keywords", Format: FormatFree, Description: "Search keywords"},
	})
}
