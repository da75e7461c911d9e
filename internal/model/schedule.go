package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidSchedule is returned when a schedule fails validation.
var ErrInvalidSchedule = errors.New("invalid schedule")

const (
	ScheduleWeekly  = "weekly"
	ScheduleMonthly = "monthly"
	ScheduleYearly  = "yearly"
)

// Schedule is a recurrence rule. The only implementations are Weekly, Monthly and Yearly.
type Schedule interface {
	Kind() string
	Validate() error
	isSchedule()
}

// Weekly fires on the listed weekdays, 0 = Sunday.
type Weekly struct {
	WeekDays []int `json:"weekDays"`
}

// Monthly fires on the listed days of month (1-30).
type Monthly struct {
	MonthDays []int `json:"monthDays"`
}

// YearDate is a month/day pair. Month is zero-based (0 = January).
type YearDate struct {
	Month int `json:"month"`
	Day   int `json:"day"`
}

// CalendarMonth converts the zero-based month into a time.Month.
func (d YearDate) CalendarMonth() time.Month {
	return time.Month(d.Month + 1)
}

// Yearly fires on the listed calendar dates every year.
type Yearly struct {
	YearDates []YearDate `json:"yearDates"`
}

func (Weekly) Kind() string  { return ScheduleWeekly }
func (Monthly) Kind() string { return ScheduleMonthly }
func (Yearly) Kind() string  { return ScheduleYearly }

func (Weekly) isSchedule()  {}
func (Monthly) isSchedule() {}
func (Yearly) isSchedule()  {}

func (s Weekly) Validate() error {
	if len(s.WeekDays) == 0 {
		return fmt.Errorf("%w: select at least one weekday", ErrInvalidSchedule)
	}
	for _, d := range s.WeekDays {
		if d < 0 || d > 6 {
			return fmt.Errorf("%w: weekday %d out of range 0-6", ErrInvalidSchedule, d)
		}
	}
	return nil
}

func (s Monthly) Validate() error {
	if len(s.MonthDays) == 0 {
		return fmt.Errorf("%w: enter at least one day", ErrInvalidSchedule)
	}
	for _, d := range s.MonthDays {
		if d < 1 || d > 30 {
			return fmt.Errorf("%w: month day %d out of range 1-30", ErrInvalidSchedule, d)
		}
	}
	return nil
}

func (s Yearly) Validate() error {
	if len(s.YearDates) == 0 {
		return fmt.Errorf("%w: add at least one date", ErrInvalidSchedule)
	}
	for _, d := range s.YearDates {
		if d.Month < 0 || d.Month > 11 {
			return fmt.Errorf("%w: month %d out of range 0-11", ErrInvalidSchedule, d.Month)
		}
		if d.Day < 1 || d.Day > 31 {
			return fmt.Errorf("%w: day %d out of range 1-31", ErrInvalidSchedule, d.Day)
		}
	}
	return nil
}

type scheduleEnvelope struct {
	Type      string     `json:"type"`
	WeekDays  []int      `json:"weekDays,omitempty"`
	MonthDays []int      `json:"monthDays,omitempty"`
	YearDates []YearDate `json:"yearDates,omitempty"`
}

// MarshalSchedule encodes a schedule with its "type" discriminator.
func MarshalSchedule(s Schedule) ([]byte, error) {
	var env scheduleEnvelope
	switch v := s.(type) {
	case Weekly:
		env = scheduleEnvelope{Type: ScheduleWeekly, WeekDays: v.WeekDays}
	case Monthly:
		env = scheduleEnvelope{Type: ScheduleMonthly, MonthDays: v.MonthDays}
	case Yearly:
		env = scheduleEnvelope{Type: ScheduleYearly, YearDates: v.YearDates}
	case nil:
		return []byte("null"), nil
	default:
		return nil, fmt.Errorf("%w: unknown schedule %T", ErrInvalidSchedule, s)
	}
	return json.Marshal(env)
}

// UnmarshalSchedule decodes a schedule written by MarshalSchedule. A JSON null yields a nil schedule.
func UnmarshalSchedule(data []byte) (Schedule, error) {
	if string(data) == "null" || len(data) == 0 {
		return nil, nil
	}
	var env scheduleEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode schedule: %w", err)
	}
	switch env.Type {
	case ScheduleWeekly:
		return Weekly{WeekDays: env.WeekDays}, nil
	case ScheduleMonthly:
		return Monthly{MonthDays: env.MonthDays}, nil
	case ScheduleYearly:
		return Yearly{YearDates: env.YearDates}, nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidSchedule, env.Type)
	}
}
