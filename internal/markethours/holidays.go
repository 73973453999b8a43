package markethours

import "time"

// NYSE full-day holidays, computed by rule so no yearly table upkeep:
//   New Year's Day, MLK Day, Presidents' Day, Good Friday, Memorial Day,
//   Juneteenth, Independence Day, Labor Day, Thanksgiving, Christmas.
// Fixed-date holidays falling on a weekend are observed Friday/Monday.

// IsHoliday returns true if the date (in Eastern time) is an NYSE holiday.
func IsHoliday(t time.Time) bool {
	et := t.In(Eastern)
	month := et.Month()
	day := et.Day()
	weekday := et.Weekday()

	// Fixed holidays with weekend observation
	if isObservedFixed(et, time.January, 1) { // New Year's Day
		return true
	}
	if isObservedFixed(et, time.June, 19) { // Juneteenth
		return true
	}
	if isObservedFixed(et, time.July, 4) { // Independence Day
		return true
	}
	if isObservedFixed(et, time.December, 25) { // Christmas
		return true
	}

	// MLK Day: 3rd Monday in January
	if month == time.January && weekday == time.Monday && day >= 15 && day <= 21 {
		return true
	}

	// Presidents' Day: 3rd Monday in February
	if month == time.February && weekday == time.Monday && day >= 15 && day <= 21 {
		return true
	}

	// Good Friday
	gf := goodFriday(et.Year())
	if month == gf.Month() && day == gf.Day() {
		return true
	}

	// Memorial Day: last Monday in May
	if month == time.May && weekday == time.Monday && day >= 25 {
		return true
	}

	// Labor Day: 1st Monday in September
	if month == time.September && weekday == time.Monday && day <= 7 {
		return true
	}

	// Thanksgiving: 4th Thursday in November
	if month == time.November && weekday == time.Thursday && day >= 22 && day <= 28 {
		return true
	}

	return false
}

// isObservedFixed reports whether t is the observed date of a fixed holiday.
// Saturday holidays are observed the preceding Friday, Sunday holidays the
// following Monday.
func isObservedFixed(t time.Time, hm time.Month, hd int) bool {
	holiday := time.Date(t.Year(), hm, hd, 0, 0, 0, 0, Eastern)
	observed := observedDate(holiday)
	return t.Month() == observed.Month() && t.Day() == observed.Day()
}

func observedDate(holiday time.Time) time.Time {
	switch holiday.Weekday() {
	case time.Saturday:
		return holiday.AddDate(0, 0, -1)
	case time.Sunday:
		return holiday.AddDate(0, 0, 1)
	default:
		return holiday
	}
}

// goodFriday is two days before Easter Sunday.
func goodFriday(year int) time.Time {
	return computeEaster(year).AddDate(0, 0, -2)
}

// computeEaster calculates Easter Sunday with the anonymous Gregorian
// algorithm.
func computeEaster(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, Eastern)
}
