package dimension

import (
	"fmt"
	"time"

	"martbuild/pkg/errors"
	"martbuild/pkg/models"
)

const naturalDateLayout = "2006-01-02"

// NaturalDateKey renders a calendar date in the form the date dimension
// indexes on
func NaturalDateKey(t time.Time) string {
	return t.Format(naturalDateLayout)
}

// Dates generates the date dimension from the configured window. Unlike the
// other dimensions it has no landing source: every row is derived from the
// start date and day count.
func (b *Builder) Dates() ([]models.DateDim, *KeyIndex, error) {
	cfg := b.dateCfg

	start, err := time.Parse(naturalDateLayout, cfg.StartDate)
	if err != nil {
		return nil, nil, errors.ConfigError(
			fmt.Sprintf("Invalid date dimension start date %q", cfg.StartDate),
			"pipeline.date_dimension.start_date",
		).WithSuggestions("Use YYYY-MM-DD format")
	}
	if cfg.Days <= 0 {
		return nil, nil, errors.ConfigError(
			fmt.Sprintf("Date dimension window must be positive, got %d", cfg.Days),
			"pipeline.date_dimension.days",
		)
	}

	weekend, err := weekendSet(cfg.WeekendDays)
	if err != nil {
		return nil, nil, err
	}

	index := NewKeyIndex("dim_date")
	rows := make([]models.DateDim, 0, cfg.Days)

	for i := 0; i < cfg.Days; i++ {
		date := start.AddDate(0, 0, i)
		_, week := date.ISOWeek()

		row := models.DateDim{
			DateKey:         surrogateDateKey(date),
			Date:            date,
			Year:            date.Year(),
			Quarter:         (int(date.Month())-1)/3 + 1,
			Month:           int(date.Month()),
			MonthName:       date.Month().String(),
			WeekOfYear:      week,
			DayOfMonth:      date.Day(),
			DayOfWeek:       isoWeekday(date.Weekday()),
			DayName:         date.Weekday().String(),
			IsWeekend:       weekend[date.Weekday()],
			IsHolidaySeason: b.isHolidaySeason(date),
		}

		if err := index.Add(NaturalDateKey(date), row.DateKey); err != nil {
			return nil, nil, err
		}
		rows = append(rows, row)
	}

	return rows, index, nil
}

// surrogateDateKey encodes a date as yyyymmdd, the conventional smart key for
// date dimensions
func surrogateDateKey(t time.Time) int64 {
	return int64(t.Year())*10000 + int64(t.Month())*100 + int64(t.Day())
}

// isoWeekday maps Go's Sunday-first weekday to ISO numbering (Monday = 1)
func isoWeekday(wd time.Weekday) int {
	if wd == time.Sunday {
		return 7
	}
	return int(wd)
}

func weekendSet(names []string) (map[time.Weekday]bool, error) {
	valid := map[string]time.Weekday{
		"Sunday":    time.Sunday,
		"Monday":    time.Monday,
		"Tuesday":   time.Tuesday,
		"Wednesday": time.Wednesday,
		"Thursday":  time.Thursday,
		"Friday":    time.Friday,
		"Saturday":  time.Saturday,
	}

	set := make(map[time.Weekday]bool, len(names))
	for _, name := range names {
		wd, ok := valid[name]
		if !ok {
			return nil, errors.ConfigError(
				fmt.Sprintf("Unknown weekend day %q", name),
				"pipeline.date_dimension.weekend_days",
			).WithSuggestions("Use full English day names, e.g. \"Saturday\"")
		}
		set[wd] = true
	}
	return set, nil
}

func (b *Builder) isHolidaySeason(date time.Time) bool {
	month := int(date.Month())
	for _, m := range b.dateCfg.HolidaySeason.FullMonths {
		if month == m {
			return true
		}
	}
	return b.dateCfg.HolidaySeason.PartialMonth != 0 &&
		month == b.dateCfg.HolidaySeason.PartialMonth &&
		date.Day() >= b.dateCfg.HolidaySeason.FromDay
}
