package domain

import "slices"

// doubleHours lists the 12 double-hours in traditional order with their clock ranges.
var doubleHours = [12]struct {
	branch    string
	timeRange string
}{
	{"子", "23:00-01:00"},
	{"丑", "01:00-03:00"},
	{"寅", "03:00-05:00"},
	{"卯", "05:00-07:00"},
	{"辰", "07:00-09:00"},
	{"巳", "09:00-11:00"},
	{"午", "11:00-13:00"},
	{"未", "13:00-15:00"},
	{"申", "15:00-17:00"},
	{"酉", "17:00-19:00"},
	{"戌", "19:00-21:00"},
	{"亥", "21:00-23:00"},
}

var (
	favorableHourActivities   = []string{"祈福", "求財", "出行"}
	unfavorableHourActivities = []string{"動土", "安葬"}
)

// DeriveHourly expands the day's lucky hours into one advisory per
// double-hour. Membership in favorableHours alone decides each entry's polarity.
func DeriveHourly(favorableHours []string) []HourlyAdvisory {
	return deriveHourly(favorableHours, nil)
}

func deriveHourly(favorableHours []string, clashes map[string]hourClash) []HourlyAdvisory {
	out := make([]HourlyAdvisory, 0, len(doubleHours))
	for _, h := range doubleHours {
		entry := HourlyAdvisory{
			Hour:        h.branch,
			TimeRange:   h.timeRange,
			Favorable:   []string{},
			Unfavorable: []string{},
		}
		if slices.Contains(favorableHours, h.branch) {
			entry.Favorable = slices.Clone(favorableHourActivities)
		} else {
			entry.Unfavorable = slices.Clone(unfavorableHourActivities)
		}
		if c, ok := clashes[h.branch]; ok {
			entry.Clash = c.clash
			entry.Direction = c.direction
		}
		out = append(out, entry)
	}
	return out
}
