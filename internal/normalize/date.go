// Package normalize converts raw date, amount and type tokens into canonical values.
package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/insightdelivered/statement-ingest/internal/common"
	"github.com/insightdelivered/statement-ingest/internal/models"
)

var (
	// YYYY-MM-DD
	isoDatePattern = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	// DD/MM/YYYY or DD/MM/YY
	brDatePattern = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4}|\d{2})$`)
)

// pivotYear splits two-digit years: below it is 20YY, at or above it 19YY.
const pivotYear = 50

// ExpandYear turns a two-digit year into a four-digit one.
func ExpandYear(yy int) int {
	if yy >= 100 {
		return yy
	}
	if yy < pivotYear {
		return 2000 + yy
	}
	return 1900 + yy
}

// ParseDate reads an ISO or Brazilian date and rejects impossible calendar dates.
func ParseDate(raw string) (models.CalendarDate, error) {
	s := strings.TrimSpace(raw)

	if m := isoDatePattern.FindStringSubmatch(s); m != nil {
		return BuildDate(atoi(m[1]), atoi(m[2]), atoi(m[3]))
	}

	if m := brDatePattern.FindStringSubmatch(s); m != nil {
		year := atoi(m[3])
		if len(m[3]) == 2 {
			year = ExpandYear(year)
		}
		return BuildDate(year, atoi(m[2]), atoi(m[1]))
	}

	return models.CalendarDate{}, fmt.Errorf("%w: %q", common.ErrDateUnparseable, raw)
}

// BuildDate constructs a date and checks that time.Date did not roll it over.
func BuildDate(year, month, day int) (models.CalendarDate, error) {
	d := models.NewDate(year, time.Month(month), day)
	if d.Year() != year || int(d.Month()) != month || d.Day() != day {
		return models.CalendarDate{}, fmt.Errorf("%w: %04d-%02d-%02d is not a calendar date",
			common.ErrDateUnparseable, year, month, day)
	}
	return d, nil
}

// NormalizeDate returns the parsed date, or today and false when raw is unusable.
func NormalizeDate(raw string, today time.Time) (models.CalendarDate, bool) {
	d, err := ParseDate(raw)
	if err != nil {
		return models.DateOf(today), false
	}
	return d, true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
