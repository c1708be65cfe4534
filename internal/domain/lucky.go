package domain

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"
)

// EventType is an occasion a lucky-date search can be run for.
type EventType string

const (
	EventMarriage   EventType = "結婚"
	EventMoving     EventType = "搬家"
	EventOpening    EventType = "開業"
	EventTravel     EventType = "出行"
	EventRenovation EventType = "裝修"
	EventSigning    EventType = "簽約"
)

// EventTypes lists the supported events in display order.
var EventTypes = []EventType{EventMarriage, EventMoving, EventOpening, EventTravel, EventRenovation, EventSigning}

// eventActivities maps an event to the almanac activities that favor it.
var eventActivities = map[EventType][]string{
	EventMarriage:   {"嫁娶", "納采", "訂盟", "結婚姻"},
	EventMoving:     {"移徙", "入宅", "安香", "安床"},
	EventOpening:    {"開市", "開業", "立券", "交易", "納財"},
	EventTravel:     {"出行", "出火"},
	EventRenovation: {"修造", "動土", "豎柱", "上樑", "裝修"},
	EventSigning:    {"立券", "訂盟", "交易", "簽約"},
}

// blanketBan marks a day on which nothing should be started.
const blanketBan = "諸事不宜"

var monthPatternRe = regexp.MustCompile(`^\d{4}-\d{2}$`)

// DateRecommendation is one day a lucky-date search found suitable.
type DateRecommendation struct {
	Date      string `json:"date"`
	LunarDate string `json:"lunar_date"`
	Reason    string `json:"reason"`
	Rating    int    `json:"rating"`
}

// ParseEventType validates s against EventTypes.
func ParseEventType(s string) (EventType, error) {
	e := EventType(strings.TrimSpace(s))
	if _, ok := eventActivities[e]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownEvent, s)
	}
	return e, nil
}

// MonthDates returns every date of a YYYY-MM month in order.
func MonthDates(month string) ([]string, error) {
	if !monthPatternRe.MatchString(month) {
		return nil, fmt.Errorf("%w: %q is not YYYY-MM", ErrInvalidMonth, month)
	}
	first, err := time.Parse("2006-01", month)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidMonth, month, err)
	}
	var dates []string
	for d := first; d.Month() == first.Month(); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(DateLayout))
	}
	return dates, nil
}

// RecommendDate reports whether the day's almanac favors event. A day is
// suitable when at least one of the event's activities is listed under 宜
// and none of them is listed under 忌. The rating grows with the number of
// matching activities, from 3 to 5.
func RecommendDate(rec AlmanacRecord, event EventType) (DateRecommendation, bool) {
	wanted := eventActivities[event]
	if slices.Contains(rec.UnfavorableActivities, blanketBan) {
		return DateRecommendation{}, false
	}
	for _, a := range rec.UnfavorableActivities {
		if slices.Contains(wanted, a) {
			return DateRecommendation{}, false
		}
	}

	var matched []string
	for _, a := range rec.FavorableActivities {
		if slices.Contains(wanted, a) && !slices.Contains(matched, a) {
			matched = append(matched, a)
		}
	}
	if len(matched) == 0 {
		return DateRecommendation{}, false
	}

	return DateRecommendation{
		Date:      rec.Date,
		LunarDate: orDefault(rec.LunarMonthDay, "農曆日期"),
		Reason:    "宜" + strings.Join(matched, "、"),
		Rating:    min(5, 2+len(matched)),
	}, true
}

// RankRecommendations orders recs by rating, best first, then by date.
func RankRecommendations(recs []DateRecommendation) {
	slices.SortStableFunc(recs, func(a, b DateRecommendation) int {
		if c := cmp.Compare(b.Rating, a.Rating); c != 0 {
			return c
		}
		return strings.Compare(a.Date, b.Date)
	})
}
