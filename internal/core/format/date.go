package format

import (
	"strings"
	"time"
)

// ISODateLayout is the storage and transport layout for dates.
const ISODateLayout = "2006-01-02"

const frenchDateLayout = "02/01/2006"

// ParseISODate parses YYYY-MM-DD as a local-midnight calendar date.
func ParseISODate(iso string) (time.Time, bool) {
	iso = strings.TrimSpace(iso)
	if iso == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(ISODateLayout, iso, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DateFr projects YYYY-MM-DD to DD/MM/YYYY; unparseable input yields "".
func DateFr(iso string) string {
	t, ok := ParseISODate(iso)
	if !ok {
		return ""
	}
	return t.Format(frenchDateLayout)
}

// AddDays offsets an ISO date by whole calendar days; unparseable input yields "".
func AddDays(iso string, days int) string {
	t, ok := ParseISODate(iso)
	if !ok {
		return ""
	}
	return t.AddDate(0, 0, days).Format(ISODateLayout)
}
