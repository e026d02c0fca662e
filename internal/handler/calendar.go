package handler

import (
	"fmt"
	"time"

	"github.com/dukerupert/devdiary/internal/model"
)

const monthLayout = "2006-01"

type CalendarMonth struct {
	Label string
	Month string
	Prev  string
	Next  string
	Weeks []CalendarWeek
}

type CalendarWeek struct {
	Days []CalendarDay
}

type CalendarDay struct {
	Date    string
	Day     int
	InMonth bool
	Count   int
	Today   bool
	Active  bool
	URL     string
}

// parseMonth returns the first day of the YYYY-MM month in loc, or the
// current month when v is empty.
func parseMonth(v string, now time.Time, loc *time.Location) (time.Time, error) {
	if v == "" {
		now = now.In(loc)
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc), nil
	}
	t, err := time.ParseInLocation(monthLayout, v, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("month must be YYYY-MM")
	}
	return t, nil
}

// buildCalendarMonth lays out whole Sunday-first weeks covering the month
// starting at monthStart.
func buildCalendarMonth(monthStart, now time.Time, counts []model.DayCount, activeDate string) CalendarMonth {
	monthEnd := monthStart.AddDate(0, 1, -1)
	countMap := make(map[string]int, len(counts))
	for _, c := range counts {
		countMap[c.Day] = c.Count
	}
	today := now.In(monthStart.Location()).Format(dateOnly)
	month := monthStart.Format(monthLayout)

	gridStart := monthStart.AddDate(0, 0, -int(monthStart.Weekday()))

	var weeks []CalendarWeek
	var days []CalendarDay
	for day := gridStart; ; day = day.AddDate(0, 0, 1) {
		key := day.Format(dateOnly)
		d := CalendarDay{
			Date:    key,
			Day:     day.Day(),
			InMonth: day.Month() == monthStart.Month(),
			Count:   countMap[key],
			Today:   key == today,
			Active:  key == activeDate,
		}
		if d.Count > 0 {
			d.URL = "/calendar?month=" + month + "&date=" + key
		}
		days = append(days, d)

		if len(days) == 7 {
			weeks = append(weeks, CalendarWeek{Days: days})
			days = nil
			if !day.Before(monthEnd) {
				break
			}
		}
	}

	return CalendarMonth{
		Label: monthStart.Format("January 2006"),
		Month: month,
		Prev:  monthStart.AddDate(0, -1, 0).Format(monthLayout),
		Next:  monthStart.AddDate(0, 1, 0).Format(monthLayout),
		Weeks: weeks,
	}
}
