package domain

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveHourly_FixedOrderAndRanges(t *testing.T) {
	got := DeriveHourly(nil)

	require.Len(t, got, 12)
	order := make([]string, 0, 12)
	for _, h := range got {
		order = append(order, h.Hour)
	}
	assert.Equal(t, []string{"子", "丑", "寅", "卯", "辰", "巳", "午", "未", "申", "酉", "戌", "亥"}, order)
	assert.Equal(t, "23:00-01:00", got[0].TimeRange)
	assert.Equal(t, "11:00-13:00", got[6].TimeRange)
	assert.Equal(t, "21:00-23:00", got[11].TimeRange)
}

func TestDeriveHourly_PolarityFollowsMembership(t *testing.T) {
	sets := [][]string{
		nil,
		{"子"},
		{"子", "丑", "寅"},
		{"卯", "午", "酉", "亥"},
		{"子", "丑", "寅", "卯", "辰", "巳", "午", "未", "申", "酉", "戌", "亥"},
		{"甲", "子時"},
	}
	for _, favorable := range sets {
		for _, h := range DeriveHourly(favorable) {
			lucky := slices.Contains(favorable, h.Hour)
			if lucky {
				assert.Equal(t, []string{"祈福", "求財", "出行"}, h.Favorable, h.Hour)
				assert.Empty(t, h.Unfavorable, h.Hour)
			} else {
				assert.Empty(t, h.Favorable, h.Hour)
				assert.Equal(t, []string{"動土", "安葬"}, h.Unfavorable, h.Hour)
			}
			assert.NotNil(t, h.Favorable)
			assert.NotNil(t, h.Unfavorable)
			assert.Empty(t, h.Clash)
			assert.Empty(t, h.Direction)
		}
	}
}

func TestDeriveHourly_EntriesDoNotShareSlices(t *testing.T) {
	got := DeriveHourly([]string{"子", "丑"})
	got[0].Favorable[0] = "changed"

	assert.Equal(t, "祈福", got[1].Favorable[0])
	assert.Equal(t, "祈福", DeriveHourly([]string{"子"})[0].Favorable[0])
}

func TestDeriveHourly_CarriesClashes(t *testing.T) {
	got := deriveHourly([]string{"午"}, map[string]hourClash{
		"午": {clash: "沖鼠", direction: "煞北"},
	})

	assert.Equal(t, "沖鼠", got[6].Clash)
	assert.Equal(t, "煞北", got[6].Direction)
	assert.Empty(t, got[0].Clash)
}
