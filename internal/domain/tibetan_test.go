package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestConvertTibetan_NewYearsDay(t *testing.T) {
	rec := ConvertTibetan(day(2025, time.January, 1))

	assert.Equal(t, "木蛇年", rec.YearName)
	assert.Equal(t, "二月", rec.MonthName)
	assert.Equal(t, 16, rec.DayNumber)
	assert.Equal(t, "十六", rec.DayName)
	assert.Equal(t, "木蛇年 二月十六", rec.Label)
	assert.Equal(t, "星期三", rec.Weekday)
	assert.Equal(t, "婁", rec.Constellation)
	assert.Equal(t, "懷德", rec.YogaName)
	assert.Empty(t, rec.Observance)
	assert.Empty(t, rec.MeritMultiplier)
	assert.Equal(t, []string{"日常修持", "行善積德"}, rec.Auspicious)
	assert.Equal(t, []string{}, rec.Inauspicious)
	assert.Equal(t, "平常日，可剪可不剪", rec.Haircut)
	assert.Equal(t, "平常日：可懸掛", rec.WindHorse)
}

func TestConvertTibetan_FullMoonObservance(t *testing.T) {
	rec := ConvertTibetan(day(2025, time.November, 26))

	assert.Equal(t, 15, rec.DayNumber)
	assert.Equal(t, "十五", rec.DayName)
	assert.Equal(t, "正月", rec.MonthName)
	assert.Contains(t, rec.Observance, "阿彌陀佛")
	assert.Equal(t, "百萬倍", rec.MeritMultiplier)
	assert.Equal(t, "增上福報", rec.Haircut)
	assert.Equal(t, "極吉：懸掛經幡、升起風馬，功德倍增", rec.WindHorse)
	assert.Equal(t, []string{"修法", "供養", "放生", "佈施", "持咒", "誦經"}, rec.Auspicious)
}

func TestConvertTibetan_DayWithoutObservance(t *testing.T) {
	rec := ConvertTibetan(day(2025, time.November, 13))

	assert.Equal(t, 2, rec.DayNumber)
	assert.Equal(t, "初二", rec.DayName)
	assert.Empty(t, rec.Observance)
	assert.Empty(t, rec.MeritMultiplier)
}

func TestConvertTibetan_YearOutsideTable(t *testing.T) {
	rec := ConvertTibetan(day(2040, time.March, 1))
	assert.Equal(t, "2040年", rec.YearName)
}

func TestConvertTibetan_LeapYearEnd(t *testing.T) {
	rec := ConvertTibetan(day(2024, time.December, 31))

	assert.Equal(t, "木龍年", rec.YearName)
	assert.Equal(t, "二月", rec.MonthName)
	assert.Equal(t, 21, rec.DayNumber)
	assert.Equal(t, "廿一", rec.DayName)
}

func TestConvertTibetan_Deterministic(t *testing.T) {
	d := day(2026, time.August, 8)

	a, err := json.Marshal(ConvertTibetan(d))
	require.NoError(t, err)
	b, err := json.Marshal(ConvertTibetan(d))
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestConvertTibetan_AllDaysInRange(t *testing.T) {
	start := day(2025, time.January, 1)
	for i := range 366 {
		rec := ConvertTibetan(start.AddDate(0, 0, i))
		assert.GreaterOrEqual(t, rec.DayNumber, 1)
		assert.LessOrEqual(t, rec.DayNumber, 30)
		assert.NotEmpty(t, rec.MonthName)
		assert.NotEmpty(t, rec.DayName)
		assert.NotEmpty(t, rec.Constellation)
		assert.NotEmpty(t, rec.YogaName)
	}
}

func TestTibetanDayName(t *testing.T) {
	tests := map[int]string{
		1:  "初一",
		9:  "初九",
		10: "初十",
		11: "十一",
		15: "十五",
		19: "十九",
		20: "二十",
		21: "廿一",
		23: "廿三",
		29: "廿九",
		30: "三十",
	}
	for n, want := range tests {
		assert.Equal(t, want, TibetanDayName(n), "day %d", n)
	}
}

func TestObservanceFor(t *testing.T) {
	obs, merit := ObservanceFor(15)
	assert.Equal(t, "阿彌陀佛節日 · 作何善惡成百萬倍", obs)
	assert.Equal(t, "百萬倍", merit)

	obs, merit = ObservanceFor(25)
	assert.Equal(t, "空行母薈供日", obs)
	assert.Empty(t, merit, "label without a merit clause")

	obs, merit = ObservanceFor(2)
	assert.Empty(t, obs)
	assert.Empty(t, merit)
}

func TestTraditionalActivityTables(t *testing.T) {
	assert.Equal(t, "增長壽命", HaircutAdvice(1))
	assert.Equal(t, "招致爭鬥", HaircutAdvice(30))
	assert.Equal(t, "平常日，可剪可不剪", HaircutAdvice(6))

	assert.Equal(t, "吉：適合懸掛新經幡", WindHorseAdvice(12))
	assert.Equal(t, "不宜：暫緩懸掛", WindHorseAdvice(19))

	assert.Equal(t, []string{"剪髮", "沐浴", "修房", "遷居"}, auspiciousPractices(20))
	assert.Equal(t, []string{"重要決策", "簽約", "遠行"}, inauspiciousPractices(9))
	assert.Equal(t, []string{"殺生", "飲酒", "爭執"}, inauspiciousPractices(14))
}
