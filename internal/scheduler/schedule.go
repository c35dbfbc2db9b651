package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/marketwatch/agentcore/internal/domain"
)

// cronFieldParser extracts only the minute/hour/dom/month/dow bitmasks
// from a `m h dom mon dow` expression; its own Next() is never called,
// since robfig's semantics (always step forward minute-by-minute from a
// fixed instant) differ from spec §4.E's "unspecified fields inherit
// now" rule.
var cronFieldParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// NextRun computes the next run time for s, in unix milliseconds, as of
// now (spec §4.E). Returns -1 for an At schedule whose instant has
// already passed.
func NextRun(s domain.Schedule, now time.Time) int64 {
	switch s.Kind {
	case domain.ScheduleAt:
		if s.AtMS > now.UnixMilli() {
			return s.AtMS
		}
		return -1
	case domain.ScheduleEvery:
		return nextEvery(s, now)
	case domain.ScheduleCron:
		return nextCron(s, now)
	default:
		return -1
	}
}

// nextEvery implements `anchor + floor((now-anchor)/period + 1) * period`.
func nextEvery(s domain.Schedule, now time.Time) int64 {
	if s.PeriodMS <= 0 {
		return -1
	}
	anchor := s.AnchorMS
	nowMS := now.UnixMilli()
	elapsed := nowMS - anchor
	steps := elapsed / s.PeriodMS
	if elapsed%s.PeriodMS < 0 {
		steps-- // floor, not truncation, when now is before anchor
	}
	steps++
	return anchor + steps*s.PeriodMS
}

// nextCron parses `m h dom mon dow`; any field left as `*` inherits
// now's value instead of "any", and an unparseable expression falls
// back to "next minute" (spec §4.E).
func nextCron(s domain.Schedule, now time.Time) int64 {
	now = now.UTC()
	sched, err := cronFieldParser.Parse(s.CronExpr)
	if err != nil {
		return now.Add(time.Minute).Truncate(time.Minute).UnixMilli()
	}
	spec, ok := sched.(*cron.SpecSchedule)
	if !ok {
		return now.Add(time.Minute).Truncate(time.Minute).UnixMilli()
	}

	minuteWild := isWildcardRange(spec.Minute, 0, 59)
	hourWild := isWildcardRange(spec.Hour, 0, 23)
	domWild := isWildcardRange(spec.Dom, 1, 31)
	monthWild := isWildcardRange(spec.Month, 1, 12)

	minute := fieldOrNow(spec.Minute, now.Minute(), 0, 59)
	hour := fieldOrNow(spec.Hour, now.Hour(), 0, 23)
	dom := fieldOrNow(spec.Dom, now.Day(), 1, 31)
	month := fieldOrNow(spec.Month, int(now.Month()), 1, 12)

	candidate := time.Date(now.Year(), time.Month(month), dom, hour, minute, 0, 0, now.Location())

	// A pinned dow advances candidate one day at a time until its weekday
	// equals the field's lowest weekday, whether or not dom/month are
	// pinned (the minimum contract is fixed minute-of-hour/hour-of-day;
	// dow is an extension applied on top when present).
	if !isWildcard(spec.Dow) {
		for int(candidate.Weekday()) != lowestSetBit(spec.Dow)%7 && candidate.Before(candidate.AddDate(0, 0, 7)) {
			candidate = candidate.AddDate(0, 0, 1)
		}
	}

	// A "*" field inherited now's own value, so candidate can equal or
	// trail now without any pinned field actually having passed. The
	// +1 day rollover only belongs to a pinned field whose slot for
	// today is gone; a wildcard field instead advances at its own
	// granularity.
	if !candidate.After(now) {
		switch {
		case minuteWild && hourWild && domWild && monthWild:
			candidate = candidate.Add(time.Minute)
		case minuteWild && hourWild:
			candidate = candidate.Add(time.Hour)
		default:
			candidate = candidate.AddDate(0, 0, 1)
		}
	}
	return candidate.UnixMilli()
}

// fieldOrNow returns the single numeric value a SpecSchedule bitmask
// pins a field to, or nowVal if the field is a wildcard (spec `*`,
// matching every value in [lo,hi]).
func fieldOrNow(bits uint64, nowVal, lo, hi int) int {
	if isWildcardRange(bits, lo, hi) {
		return nowVal
	}
	for v := lo; v <= hi; v++ {
		if bits&(1<<uint(v)) != 0 {
			return v
		}
	}
	return nowVal
}

func isWildcardRange(bits uint64, lo, hi int) bool {
	for v := lo; v <= hi; v++ {
		if bits&(1<<uint(v)) == 0 {
			return false
		}
	}
	return true
}

func isWildcard(bits uint64) bool {
	return isWildcardRange(bits, 0, 6)
}

func lowestSetBit(bits uint64) int {
	for v := 0; v < 64; v++ {
		if bits&(1<<uint(v)) != 0 {
			return v
		}
	}
	return 0
}
