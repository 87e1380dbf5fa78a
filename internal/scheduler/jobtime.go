package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Wildcard is the sentinel for an unset field in a time template.
// A wildcard field matches any value.
const Wildcard = -1

// JobTime is a partially-specified timestamp template parsed from
// [[[[YYYY:]MM:]DD:]hh:]mm[.ss]. Fields are concrete values or Wildcard;
// missing leading fields are wildcards, so "01:05" means "every day at
// 01:05". A template whose year is wildcard is "open" and recurs.
type JobTime struct {
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int
	Second int
}

// Parse builds a JobTime from its string form. Tokenization runs right
// to left: the text after "." is the second (0 when absent), then
// colon-separated fields from minute up to year. Unparseable or missing
// fields become wildcards.
func Parse(s string) JobTime {
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	p := &parser{s: s, end: len(s)}
	var t JobTime
	t.Second = p.next(".")
	t.Minute = p.next(":")
	t.Hour = p.next(":")
	t.Day = p.next(":")
	t.Month = p.next(":")
	t.Year = p.next(":")
	return t
}

type parser struct {
	s   string
	end int
}

// next consumes the field before the current position, delimited by delim.
func (p *parser) next(delim string) int {
	if p.end < 0 {
		return Wildcard
	}
	pos := strings.LastIndex(p.s[:p.end], delim)
	field := p.s[pos+1 : p.end]
	p.end = pos
	v, err := strconv.Atoi(field)
	if err != nil {
		return Wildcard
	}
	return v
}

// FromTime builds a fully concrete JobTime from a wall-clock instant.
func FromTime(t time.Time) JobTime {
	return JobTime{
		Year:   t.Year(),
		Month:  int(t.Month()),
		Day:    t.Day(),
		Hour:   t.Hour(),
		Minute: t.Minute(),
		Second: t.Second(),
	}
}

// IsTemplate reports whether the template is open: its most significant
// field is a wildcard, so it matches recurringly rather than once.
func (t JobTime) IsTemplate() bool {
	return t.Year == Wildcard
}

// String renders the canonical starred form, e.g. "****:**:**:01:05.00".
// Parsing the result yields an equal template: starred fields fail
// integer parsing and become wildcards again.
func (t JobTime) String() string {
	field := func(v int) string {
		if v == Wildcard {
			return "**"
		}
		return fmt.Sprintf("%02d", v)
	}
	year := "****"
	if t.Year != Wildcard {
		year = strconv.Itoa(t.Year)
	}
	return fmt.Sprintf("%s:%s:%s:%s:%s.%02d",
		year, field(t.Month), field(t.Day), field(t.Hour), field(t.Minute), t.Second)
}

// Compare orders two templates field by field from year down to second.
// A wildcard on either side makes that field equal: it does not
// disambiguate the comparison. Returns -1, 0 or 1.
func (t JobTime) Compare(other JobTime) int {
	cmp := func(a, b int) int {
		if a == Wildcard || b == Wildcard {
			return 0
		}
		switch {
		case a > b:
			return 1
		case a < b:
			return -1
		}
		return 0
	}
	for _, pair := range [][2]int{
		{t.Year, other.Year},
		{t.Month, other.Month},
		{t.Day, other.Day},
		{t.Hour, other.Hour},
		{t.Minute, other.Minute},
		{t.Second, other.Second},
	} {
		if res := cmp(pair[0], pair[1]); res != 0 {
			return res
		}
	}
	return 0
}

// CompareTime compares the template against a concrete instant.
func (t JobTime) CompareTime(instant time.Time) int {
	return t.Compare(FromTime(instant))
}

// nvl returns the field value, or the fallback when it is a wildcard.
func nvl(v, fallback int) int {
	if v == Wildcard {
		return fallback
	}
	return v
}

// Materialize fills the template's wildcards from base, producing a
// concrete instant. A nonzero shift is applied at the least specific
// wildcard position: a template concrete only down to the minute shifts
// by hours, one concrete down to the hour shifts by days, and so on. A
// fully concrete template ignores the shift.
func (t JobTime) Materialize(shift int, base time.Time) time.Time {
	if shift == 0 {
		return time.Date(
			nvl(t.Year, base.Year()),
			time.Month(nvl(t.Month, int(base.Month()))),
			nvl(t.Day, base.Day()),
			nvl(t.Hour, base.Hour()),
			nvl(t.Minute, base.Minute()),
			nvl(t.Second, 0),
			0, base.Location())
	}

	var shiftYear, shiftMonth, shiftDay, shiftHour, shiftMinute int
	if t.Year == Wildcard {
		switch {
		case t.Month != Wildcard:
			shiftYear = shift
		case t.Day != Wildcard:
			shiftMonth = shift
		case t.Hour != Wildcard:
			shiftDay = shift
		case t.Minute != Wildcard:
			shiftHour = shift
		case t.Second == Wildcard:
			shiftMinute = shift
		}
	}

	shifted := base.Add(
		time.Duration(shiftDay)*24*time.Hour +
			time.Duration(shiftHour)*time.Hour +
			time.Duration(shiftMinute)*time.Minute)

	return time.Date(
		nvl(t.Year, shifted.Year()+shiftYear),
		time.Month(nvl(t.Month, int(shifted.Month())+shiftMonth)),
		nvl(t.Day, shifted.Day()),
		nvl(t.Hour, shifted.Hour()),
		nvl(t.Minute, shifted.Minute()),
		nvl(t.Second, 0),
		0, base.Location())
}

// Duration interprets the template's concrete fields as a length of
// time. Used for period templates, where "0.30" means every 30 seconds
// and "1:00" means hourly.
func (t JobTime) Duration() time.Duration {
	return time.Duration(nvl(t.Day, 0))*24*time.Hour +
		time.Duration(nvl(t.Hour, 0))*time.Hour +
		time.Duration(nvl(t.Minute, 0))*time.Minute +
		time.Duration(nvl(t.Second, 0))*time.Second
}

// Key builds the timetable key: the template's concrete fields from the
// most significant one down to the minute, colon-separated. An open
// template yields a short key ("09:30") that recurs by suffix match; a
// concrete one yields a full key that matches exactly once.
func (t JobTime) Key() string {
	key := ""
	if t.Minute != Wildcard {
		key = fmt.Sprintf("%02d", t.Minute)
	}
	if t.Hour != Wildcard {
		key = fmt.Sprintf("%02d", t.Hour) + ":" + key
	}
	if t.Day != Wildcard {
		key = fmt.Sprintf("%02d", t.Day) + ":" + key
	}
	if t.Month != Wildcard {
		key = fmt.Sprintf("%02d", t.Month) + ":" + key
	}
	if t.Year != Wildcard {
		key = strconv.Itoa(t.Year) + ":" + key
	}
	return key
}
