package strategy

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/araddon/dateparse"

	"github.com/c360studio/metacast/record"
)

// isoDate is the output layout for every date field.
const isoDate = "2006-01-02"

// Year-only values are accepted within [minYear, now.Year()+maxYearAhead].
// Out-of-range years are rejected, not clamped.
const (
	minYear      = 1900
	maxYearAhead = 10
)

var yearOnlyRe = regexp.MustCompile(`^\d{4}$`)

// isoLayouts are tried before handing the value to dateparse, keeping the
// common feed formats deterministic.
var isoLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// parseFlexibleDate parses a date value in any accepted format: ISO date,
// ISO datetime with or without timezone, slash-delimited, long-form month
// names, or a bare year. A bare year means January 1 of that year and must be
// within the accepted range relative to now.
func parseFlexibleDate(value string, now time.Time) (time.Time, error) {
	if yearOnlyRe.MatchString(value) {
		year, _ := strconv.Atoi(value)
		if year < minYear || year > now.Year()+maxYearAhead {
			return time.Time{}, fmt.Errorf("year %d outside valid range [%d, %d]", year, minYear, now.Year()+maxYearAhead)
		}
		return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), nil
	}

	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}

	t, err := dateparse.ParseAny(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable date %q: %w", value, err)
	}
	return t, nil
}

func executeDate(s *Strategy, env *Env) Outcome {
	now := env.now()

	for _, field := range s.CandidateFields {
		v, ok := env.Record.Get(field)
		if !ok || v == "" {
			continue
		}

		parsed, err := parseFlexibleDate(v, now)
		if err != nil {
			env.logger().Warn("Date candidate rejected",
				"field", field,
				"value", v,
				"error", err)
			return emptyOutcome(fmt.Sprintf("date field %s: %v", field, err))
		}

		result := parsed.AddDate(0, 0, s.OffsetDays)
		return valueOutcome(result.Format(isoDate), record.OriginStrategy, field)
	}

	if s.FallbackToNow {
		result := now.AddDate(0, 0, s.OffsetDays)
		return valueOutcome(result.Format(isoDate), record.OriginStrategy, "now")
	}

	return emptyOutcome("no date candidate present")
}
