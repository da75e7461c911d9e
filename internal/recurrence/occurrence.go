package recurrence

import (
	"time"

	"taskflow/internal/model"
)

// SafetyBoundYears is how far past today an occurrence may fall before it is ignored.
const SafetyBoundYears = 1

// NextOccurrence returns the earliest date strictly after `after` on which the
// schedule fires. Dates later than one year past today are never returned.
// Time of day is ignored on both inputs. Empty or out-of-range day sets yield
// false. February days above 28 are returned as-is; clamping is up to the caller.
func NextOccurrence(schedule model.Schedule, after, today time.Time) (time.Time, bool) {
	after = model.StartOfDay(after)
	limit := model.StartOfDay(today).AddDate(SafetyBoundYears, 0, 0)

	var candidates []time.Time
	switch s := schedule.(type) {
	case model.Weekly:
		candidates = weeklyCandidates(s, after)
	case model.Monthly:
		candidates = monthlyCandidates(s, after)
	case model.Yearly:
		candidates = yearlyCandidates(s, after)
	default:
		return time.Time{}, false
	}

	return earliest(candidates, limit)
}

func weeklyCandidates(s model.Weekly, after time.Time) []time.Time {
	candidates := make([]time.Time, 0, len(s.WeekDays))
	for _, weekDay := range s.WeekDays {
		if weekDay < 0 || weekDay > 6 {
			continue
		}
		candidate := after.AddDate(0, 0, 1)
		for attempts := 0; attempts < 7; attempts++ {
			if int(candidate.Weekday()) == weekDay {
				candidates = append(candidates, candidate)
				break
			}
			candidate = candidate.AddDate(0, 0, 1)
		}
	}
	return candidates
}

func monthlyCandidates(s model.Monthly, after time.Time) []time.Time {
	year, month, _ := after.Date()
	candidates := make([]time.Time, 0, len(s.MonthDays))
	for _, day := range s.MonthDays {
		if day < 1 || day > 30 {
			continue
		}
		candidate, ok := exactDate(year, month, day, after.Location())
		if !ok || !candidate.After(after) {
			// time.Date normalises month 13 into January of the next year.
			candidate, ok = exactDate(year, month+1, day, after.Location())
		}
		if ok {
			candidates = append(candidates, candidate)
		}
	}
	return candidates
}

func yearlyCandidates(s model.Yearly, after time.Time) []time.Time {
	year := after.Year()
	candidates := make([]time.Time, 0, len(s.YearDates))
	for _, date := range s.YearDates {
		if date.Month < 0 || date.Month > 11 || date.Day < 1 || date.Day > 31 {
			continue
		}
		candidate, ok := exactDate(year, date.CalendarMonth(), date.Day, after.Location())
		if !ok || !candidate.After(after) {
			candidate, ok = exactDate(year+1, date.CalendarMonth(), date.Day, after.Location())
		}
		if ok {
			candidates = append(candidates, candidate)
		}
	}
	return candidates
}

// exactDate builds the date and reports false when time.Date rolled it into
// another month (e.g. February 30 becoming March 2).
func exactDate(year int, month time.Month, day int, loc *time.Location) (time.Time, bool) {
	d := time.Date(year, month, day, 0, 0, 0, 0, loc)
	return d, d.Day() == day
}

func earliest(candidates []time.Time, limit time.Time) (time.Time, bool) {
	var best time.Time
	found := false
	for _, c := range candidates {
		if c.After(limit) {
			continue
		}
		if !found || c.Before(best) {
			best = c
			found = true
		}
	}
	return best, found
}
