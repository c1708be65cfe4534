package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEventType(t *testing.T) {
	for _, e := range EventTypes {
		got, err := ParseEventType(string(e))
		require.NoError(t, err)
		assert.Equal(t, e, got)
	}

	_, err := ParseEventType("生日")
	assert.True(t, errors.Is(err, ErrUnknownEvent))
}

func TestMonthDates(t *testing.T) {
	dates, err := MonthDates("2024-02")
	require.NoError(t, err)
	require.Len(t, dates, 29)
	assert.Equal(t, "2024-02-01", dates[0])
	assert.Equal(t, "2024-02-29", dates[28])

	for _, bad := range []string{"2024-2", "2024-13", "2024-02-01", ""} {
		_, err := MonthDates(bad)
		assert.ErrorIs(t, err, ErrInvalidMonth, bad)
	}
}

func TestRecommendDate(t *testing.T) {
	tests := []struct {
		name   string
		fav    []string
		unfav  []string
		ok     bool
		reason string
		rating int
	}{
		{"one match", []string{"祭祀", "嫁娶"}, []string{"動土"}, true, "宜嫁娶", 3},
		{"several matches", []string{"納采", "嫁娶", "訂盟"}, nil, true, "宜納采、嫁娶、訂盟", 5},
		{"no match", []string{"祭祀", "祈福"}, nil, false, "", 0},
		{"banned under 忌", []string{"嫁娶"}, []string{"納采"}, false, "", 0},
		{"nothing advisable", []string{"嫁娶"}, []string{"諸事不宜"}, false, "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := AlmanacRecord{
				Date:                  "2025-03-05",
				LunarMonthDay:         "二月初六",
				FavorableActivities:   tt.fav,
				UnfavorableActivities: tt.unfav,
			}
			got, ok := RecommendDate(rec, EventMarriage)
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, DateRecommendation{Date: "2025-03-05", LunarDate: "二月初六", Reason: tt.reason, Rating: tt.rating}, got)
		})
	}
}

func TestRankRecommendations(t *testing.T) {
	recs := []DateRecommendation{
		{Date: "2025-03-09", Rating: 3},
		{Date: "2025-03-02", Rating: 4},
		{Date: "2025-03-01", Rating: 3},
	}
	RankRecommendations(recs)
	assert.Equal(t, []string{"2025-03-02", "2025-03-01", "2025-03-09"},
		[]string{recs[0].Date, recs[1].Date, recs[2].Date})
}
