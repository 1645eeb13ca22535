// Package countdown computes the time left until the next weekly drop.
package countdown

import "time"

// Schedule is a weekly drop moment.
type Schedule struct {
	Weekday  time.Weekday
	Hour     int
	Location *time.Location
}

// Default is Sunday at 20:00 local time.
var Default = Schedule{Weekday: time.Sunday, Hour: 20, Location: time.Local}

// Next returns the first drop moment strictly after now.
func (s Schedule) Next(now time.Time) time.Time {
	loc := s.Location
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)
	days := (int(s.Weekday) + 7 - int(now.Weekday())) % 7
	next := time.Date(now.Year(), now.Month(), now.Day()+days, s.Hour, 0, 0, 0, loc)
	if !next.After(now) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}

// Remaining is the time left split into display units.
type Remaining struct {
	Target  time.Time `json:"target"`
	Days    int       `json:"days"`
	Hours   int       `json:"hours"`
	Minutes int       `json:"minutes"`
	Seconds int       `json:"seconds"`
	Live    bool      `json:"live"`
}

// Until splits the time between now and target. Once target has passed every unit is
// zero and Live is set.
func Until(target, now time.Time) Remaining {
	d := target.Sub(now)
	if d <= 0 {
		return Remaining{Target: target, Live: true}
	}
	total := int(d / time.Second)
	return Remaining{
		Target:  target,
		Days:    total / 86400,
		Hours:   total / 3600 % 24,
		Minutes: total / 60 % 60,
		Seconds: total % 60,
	}
}
