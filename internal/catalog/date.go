package catalog

import (
	"strconv"
	"strings"
	"time"
)

// dateLayouts are tried in order; Zotero dates are free text, so the list
// covers the common machine and human forms.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01",
	"2006",
	"January 2, 2006",
	"January 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"01/02/2006",
}

// ParseDate parses an ISO-ish date string. Strings that only carry a year
// somewhere in free text ("ca. 1850") resolve to January 1st of that year.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if year, ok := scanYear(s); ok {
		return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

// ParseYear returns the year of a date string.
func ParseYear(s string) (int, bool) {
	t, ok := ParseDate(s)
	if !ok {
		return 0, false
	}
	return t.Year(), true
}

// scanYear finds the first run of exactly four digits between 1000 and 2999.
func scanYear(s string) (int, bool) {
	run := 0
	for i := 0; i <= len(s); i++ {
		if i < len(s) && s[i] >= '0' && s[i] <= '9' {
			run++
			continue
		}
		if run == 4 {
			year, err := strconv.Atoi(s[i-4 : i])
			if err == nil && year >= 1000 && year <= 2999 {
				return year, true
			}
		}
		run = 0
	}
	return 0, false
}
