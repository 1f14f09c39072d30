package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
)

// Format identifies a report output format.
type Format string

const (
	// FormatJSON is the machine-readable JSON rendering.
	FormatJSON Format = "json"
	// FormatText is the human-readable aligned-text rendering.
	FormatText Format = "text"
)

// FormatInfo provides metadata about a report format.
type FormatInfo struct {
	// Name is the format identifier.
	Name Format

	// MIMEType is the standard MIME type.
	MIMEType string

	// Extension is the file extension (with dot).
	Extension string

	// Description describes the format.
	Description string
}

// FormatRegistry contains metadata for all supported formats.
var FormatRegistry = map[Format]FormatInfo{
	FormatJSON: {
		Name:        FormatJSON,
		MIMEType:    "application/json",
		Extension:   ".json",
		Description: "JSON - machine-readable report",
	},
	FormatText: {
		Name:        FormatText,
		MIMEType:    "text/plain",
		Extension:   ".txt",
		Description: "Text - human-readable report",
	},
}

// GetFormatInfo returns metadata for a format.
func GetFormatInfo(format Format) (FormatInfo, bool) {
	info, ok := FormatRegistry[format]
	return info, ok
}

// Write renders the report to w in the given format.
func (r *Report) Write(w io.Writer, format Format) error {
	switch format {
	case FormatJSON:
		return r.WriteJSON(w)
	case FormatText:
		return r.WriteText(w)
	default:
		return fmt.Errorf("unsupported report format %q", format)
	}
}

// WriteJSON renders the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteText renders the report as an aligned table with a statistics footer.
func (r *Report) WriteText(w io.Writer) error {
	if r.ItemID != "" {
		fmt.Fprintf(w, "Resolution report for %s\n\n", r.ItemID)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tSTRATEGY\tSTATUS\tVALUE")
	for _, f := range r.Fields {
		status := "populated"
		if f.Empty {
			status = "empty"
		}
		if f.Origin != "" && !f.Empty {
			status = fmt.Sprintf("populated (%s)", f.Origin)
		}
		strategyName := f.Strategy
		if strategyName == "" {
			strategyName = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.Field, strategyName, status, truncate(f.Value, 48))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nFields: %d  Populated: %d  Empty: %d  Unbound: %d  Completeness: %.1f%%\n",
		r.Stats.TotalFields, r.Stats.Populated, r.Stats.Empty, r.Stats.Unbound, r.Stats.Completeness)

	if len(r.Stats.ByKind) > 0 {
		kinds := make([]string, 0, len(r.Stats.ByKind))
		for k := range r.Stats.ByKind {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)

		var parts []string
		for _, k := range kinds {
			ks := r.Stats.ByKind[k]
			parts = append(parts, fmt.Sprintf("%s %d/%d", k, ks.Populated, ks.Bound))
		}
		fmt.Fprintf(w, "By kind: %s\n", strings.Join(parts, "  "))
	}

	return nil
}

// truncate shortens s to at most n runes, never splitting a multibyte rune.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
