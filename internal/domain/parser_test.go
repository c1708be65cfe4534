package domain

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return string(data)
}

func TestParse_StructuredPage(t *testing.T) {
	rec, defaulted := ParseReport(readFixture(t, "structured.html"), "2025-03-05")

	assert.Empty(t, defaulted)
	assert.Equal(t, "2025-03-05", rec.Date)
	assert.Equal(t, "二月初六", rec.LunarMonthDay)
	assert.Equal(t, StemBranch{Year: "乙巳蛇年", Month: "己卯月", Day: "丙戌日"}, rec.StemBranch)
	assert.Equal(t, "蛇", rec.ZodiacAnimal)
	assert.Equal(t, "驚蟄", rec.SolarTerm)
	assert.Equal(t, []string{"祭祀", "祈福", "求嗣", "出行"}, rec.FavorableActivities)
	assert.Equal(t, []string{"開市", "動土", "安葬"}, rec.UnfavorableActivities)
	assert.Equal(t, "庚辰龍", rec.ClashAnimal)
	assert.Equal(t, "北方", rec.ClashDirection)
	assert.Equal(t, []string{"天德", "月德", "天恩"}, rec.AuspiciousSpirits)
	assert.Equal(t, []string{"月破", "大耗"}, rec.InauspiciousSpirits)
	assert.Equal(t, SpiritDirections{Joy: "西南方", Wealth: "正西方", Fortune: "東方"}, rec.DirectionalSpirits)
	assert.Equal(t, "碓磨廁 外東南", rec.FetalSpiritLocation)
	assert.Equal(t, []string{"子", "丑", "卯", "午", "申", "酉"}, rec.FavorableHours)
	assert.Equal(t, "丙不修灶必見災殃 戌不吃犬作怪上床", rec.HundredTaboos)

	require.Len(t, rec.HourlyAdvisory, 12)
	assert.Equal(t, "沖馬", rec.HourlyAdvisory[0].Clash)
	assert.Equal(t, "煞南", rec.HourlyAdvisory[0].Direction)
	assert.Equal(t, "沖羊", rec.HourlyAdvisory[1].Clash)
	assert.Equal(t, "煞東", rec.HourlyAdvisory[1].Direction)
	assert.Empty(t, rec.HourlyAdvisory[2].Clash)
}

func TestParse_LoosePage(t *testing.T) {
	rec, defaulted := ParseReport(readFixture(t, "loose.html"), "2025-06-21")

	assert.Empty(t, defaulted)
	assert.Equal(t, "五月廿六", rec.LunarMonthDay)
	assert.Equal(t, StemBranch{Year: "乙巳年", Month: "壬午月", Day: "庚子日"}, rec.StemBranch)
	assert.Equal(t, "蛇", rec.ZodiacAnimal, "zodiac from the year branch when the animal is absent")
	assert.Equal(t, "夏至", rec.SolarTerm)
	assert.Equal(t, []string{"嫁娶", "納采", "祭祀"}, rec.FavorableActivities)
	assert.Equal(t, []string{"安葬", "破土"}, rec.UnfavorableActivities)
	assert.Equal(t, "甲午馬", rec.ClashAnimal)
	assert.Equal(t, "南方", rec.ClashDirection)
	assert.Equal(t, []string{"天德", "月空"}, rec.AuspiciousSpirits)
	assert.Equal(t, []string{"五虛", "九空"}, rec.InauspiciousSpirits)
	assert.Equal(t, SpiritDirections{Joy: "西北方", Wealth: "正東方", Fortune: "西南方"}, rec.DirectionalSpirits)
	assert.Equal(t, "占門碓 外東北", rec.FetalSpiritLocation)
	assert.Equal(t, []string{"子", "卯", "巳"}, rec.FavorableHours)
	assert.Equal(t, "庚不經絡織機虛張 子不問卜自惹禍殃", rec.HundredTaboos)
}

func TestParse_EmptyMarkupUsesDefaults(t *testing.T) {
	rec, defaulted := ParseReport("", "2025-03-05")

	want := AlmanacRecord{
		Date:                  "2025-03-05",
		LunarMonthDay:         "農曆日期",
		StemBranch:            StemBranch{Year: "年", Month: "月", Day: "日"},
		ZodiacAnimal:          "蛇",
		FavorableActivities:   []string{"祭祀", "祈福"},
		UnfavorableActivities: []string{"開市", "動土"},
		AuspiciousSpirits:     []string{},
		InauspiciousSpirits:   []string{},
		DirectionalSpirits:    SpiritDirections{Joy: "東方", Wealth: "西方", Fortune: "南方"},
		FavorableHours:        []string{"子", "丑", "寅"},
		HourlyAdvisory:        DeriveHourly([]string{"子", "丑", "寅"}),
	}
	if diff := cmp.Diff(want, rec); diff != "" {
		t.Errorf("Parse(\"\") mismatch (-want +got):\n%s", diff)
	}

	assert.Contains(t, defaulted, FieldFavorable)
	assert.Contains(t, defaulted, FieldZodiacAnimal)
	assert.NotContains(t, defaulted, FieldSolarTerm, "solar term is optional")
}

func TestParse_NeverReturnsNilLists(t *testing.T) {
	inputs := []string{
		"",
		"<html>",
		"<<<>>>",
		"<dl><dt>宜</dt></dl>",
		"宜 餘事勿取 忌",
		"吉時 午未申",
	}
	for _, in := range inputs {
		rec := Parse(in, "not-a-date")
		assert.NotNil(t, rec.FavorableActivities, in)
		assert.NotNil(t, rec.UnfavorableActivities, in)
		assert.NotNil(t, rec.AuspiciousSpirits, in)
		assert.NotNil(t, rec.InauspiciousSpirits, in)
		assert.NotNil(t, rec.FavorableHours, in)
		assert.Len(t, rec.HourlyAdvisory, 12, in)
	}
}

func TestParse_DropsBoilerplateFromSections(t *testing.T) {
	markup := `<div>宜 沐浴、掃舍、餘事勿取 忌 諸事不宜 沖 (丁卯)兔 煞東方</div>`

	rec := Parse(markup, "2025-03-05")

	assert.Equal(t, []string{"沐浴", "掃舍"}, rec.FavorableActivities)
	assert.NotContains(t, rec.FavorableActivities, "餘事勿取")
	assert.Equal(t, []string{"諸事不宜"}, rec.UnfavorableActivities)
	assert.Equal(t, "丁卯兔", rec.ClashAnimal)
	assert.Equal(t, "東方", rec.ClashDirection)
}

func TestParse_LooseSectionsStopAtNextLabel(t *testing.T) {
	markup := `<p>宜：祭祀，祈福·出行 餘事勿取 忌：動土、安葬</p><p>吉時：子、丑</p>`

	rec := Parse(markup, "2025-03-05")

	assert.Equal(t, []string{"祭祀", "祈福", "出行"}, rec.FavorableActivities)
	assert.Equal(t, []string{"動土", "安葬"}, rec.UnfavorableActivities)
	assert.Equal(t, []string{"子", "丑"}, rec.FavorableHours)
}

func TestParse_LooseSectionStops(t *testing.T) {
	tests := []struct {
		name string
		next string
	}{
		{"lucky hours", "吉時 午"},
		{"joy spirit", "喜神 東北"},
		{"wealth spirit", "財神 正北"},
		{"fortune spirit", "福神 西南"},
		{"fetal spirit", "胎神 房床"},
		{"taboos", "彭祖百忌 甲不開倉"},
		{"solar term", "節氣 清明"},
		{"auspicious spirits", "吉神 天德"},
		{"inauspicious spirits", "凶煞 月破"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Parse("<div>宜 嫁娶 忌 動土 "+tt.next+"</div>", "2025-03-05")
			assert.Equal(t, []string{"嫁娶"}, rec.FavorableActivities)
			assert.Equal(t, []string{"動土"}, rec.UnfavorableActivities)
		})
	}
}

func TestParse_HourClashStaysOnItsRow(t *testing.T) {
	markup := `<table>
<tr><td>子時</td><td>23:00-01:00</td><td></td></tr>
<tr><td>丑時</td><td>01:00-03:00</td><td>沖羊 煞東</td></tr>
<tr><td>寅時</td><td>03:00-05:00</td><td>沖猴 煞北</td></tr>
</table>`

	rec := Parse(markup, "2025-03-05")

	require.Len(t, rec.HourlyAdvisory, 12)
	assert.Empty(t, rec.HourlyAdvisory[0].Clash)
	assert.Empty(t, rec.HourlyAdvisory[0].Direction)
	assert.Equal(t, "沖羊", rec.HourlyAdvisory[1].Clash)
	assert.Equal(t, "煞東", rec.HourlyAdvisory[1].Direction)
	assert.Equal(t, "沖猴", rec.HourlyAdvisory[2].Clash)
	assert.Equal(t, "煞北", rec.HourlyAdvisory[2].Direction)
}

func TestParse_OnlyBoilerplateFallsBackToDefault(t *testing.T) {
	markup := `<dl><dt>宜</dt><dd>餘事勿取</dd></dl>`

	rec, defaulted := ParseReport(markup, "2025-03-05")

	assert.Equal(t, []string{"祭祀", "祈福"}, rec.FavorableActivities)
	assert.Contains(t, defaulted, FieldFavorable)
}

func TestParse_FavorableHourTokens(t *testing.T) {
	tests := []struct {
		name string
		dd   string
		want []string
	}{
		{"single glyphs", "子、丑、卯", []string{"子", "丑", "卯"}},
		{"hour suffix", "辰時 巳時", []string{"辰", "巳"}},
		{"rejects non-branch", "子、甲、午", []string{"子", "午"}},
		{"multi-char tokens fall back to default", "子丑 寅卯", []string{"子", "丑", "寅"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Parse("<dl><dt>吉時</dt><dd>"+tt.dd+"</dd></dl>", "2025-03-05")
			assert.Equal(t, tt.want, rec.FavorableHours)
		})
	}
}

func TestParse_SolarTermMustBeKnown(t *testing.T) {
	rec := Parse("<dl><dt>節氣</dt><dd>無</dd></dl>", "2025-03-05")
	assert.Empty(t, rec.SolarTerm)

	rec = Parse("<p>節氣 清明 04/04 21:48</p>", "2025-04-04")
	assert.Equal(t, "清明", rec.SolarTerm)
}

func TestParse_StrictTierWinsOverText(t *testing.T) {
	markup := `<p>宜 嫁娶</p><dl><dt>宜</dt><dd>開光、納財</dd></dl>`

	rec := Parse(markup, "2025-03-05")

	assert.Equal(t, []string{"開光", "納財"}, rec.FavorableActivities)
}

func TestZodiacFromDate(t *testing.T) {
	assert.Equal(t, "龍", zodiacFromDate("2024-07-01"))
	assert.Equal(t, "蛇", zodiacFromDate("2025-07-01"))
	assert.Equal(t, "馬", zodiacFromDate("2026-07-01"))
	assert.Empty(t, zodiacFromDate("bogus"))
}

func TestNormalizeDirection(t *testing.T) {
	assert.Equal(t, "東北方", normalizeDirection("東北"))
	assert.Equal(t, "正南方", normalizeDirection("正南方"))
	assert.Equal(t, "西方", normalizeDirection("煞西"))
	assert.Empty(t, normalizeDirection("未知"))
}

func TestFlattenMarkup(t *testing.T) {
	in := "<script>var a = 1;</script><p>宜&nbsp;祭祀</p>\n\n<!-- x --><b>忌</b>"
	assert.Equal(t, "宜 祭祀 忌", FlattenMarkup(in))
}

func TestParse_HourTokensMayCarryShi(t *testing.T) {
	rec := Parse(`<dl><dt>吉時</dt><dd>子時、丑時、寅、甲時</dd></dl>`, "2025-03-05")
	assert.Equal(t, []string{"子", "丑", "寅"}, rec.FavorableHours)
}
