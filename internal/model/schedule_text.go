package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

var weekdayNames = map[string]int{
	"sun": 0, "sunday": 0,
	"mon": 1, "monday": 1,
	"tue": 2, "tuesday": 2,
	"wed": 3, "wednesday": 3,
	"thu": 4, "thursday": 4,
	"fri": 5, "friday": 5,
	"sat": 6, "saturday": 6,
}

// ParseScheduleText turns a comma or space separated list into a schedule of
// the given kind. Weekdays accept names or 0-6, yearly dates are MM-DD.
func ParseScheduleText(kind, text string) (Schedule, error) {
	items := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return r == ',' || r == ' ' || r == ';'
	})
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: nothing entered", ErrInvalidSchedule)
	}

	var schedule Schedule
	switch kind {
	case ScheduleWeekly:
		days, err := collectInts(items, func(item string) (int, error) {
			if d, ok := weekdayNames[item]; ok {
				return d, nil
			}
			return strconv.Atoi(item)
		})
		if err != nil {
			return nil, err
		}
		schedule = Weekly{WeekDays: days}
	case ScheduleMonthly:
		days, err := collectInts(items, strconv.Atoi)
		if err != nil {
			return nil, err
		}
		schedule = Monthly{MonthDays: days}
	case ScheduleYearly:
		var dates []YearDate
		seen := make(map[YearDate]bool)
		for _, item := range items {
			d, err := time.Parse("01-02", item)
			if err != nil {
				d, err = time.Parse("1-2", item)
			}
			if err != nil {
				return nil, fmt.Errorf("%w: %q is not MM-DD", ErrInvalidSchedule, item)
			}
			date := YearDate{Month: int(d.Month()) - 1, Day: d.Day()}
			if !seen[date] {
				seen[date] = true
				dates = append(dates, date)
			}
		}
		schedule = Yearly{YearDates: dates}
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidSchedule, kind)
	}

	if err := schedule.Validate(); err != nil {
		return nil, err
	}
	return schedule, nil
}

func collectInts(items []string, parse func(string) (int, error)) ([]int, error) {
	seen := make(map[int]bool)
	var out []int
	for _, item := range items {
		n, err := parse(item)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a valid day", ErrInvalidSchedule, item)
		}
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Ints(out)
	return out, nil
}

// DescribeSchedule renders a schedule for people, e.g. "weekly on Mon, Thu".
func DescribeSchedule(schedule Schedule) string {
	switch s := schedule.(type) {
	case Weekly:
		names := make([]string, 0, len(s.WeekDays))
		for _, d := range s.WeekDays {
			names = append(names, time.Weekday(d).String()[:3])
		}
		return "weekly on " + strings.Join(names, ", ")
	case Monthly:
		days := make([]string, 0, len(s.MonthDays))
		for _, d := range s.MonthDays {
			days = append(days, strconv.Itoa(d))
		}
		return "monthly on day " + strings.Join(days, ", ")
	case Yearly:
		dates := make([]string, 0, len(s.YearDates))
		for _, d := range s.YearDates {
			dates = append(dates, fmt.Sprintf("%s %d", d.CalendarMonth().String()[:3], d.Day))
		}
		return "yearly on " + strings.Join(dates, ", ")
	default:
		return "no schedule"
	}
}
