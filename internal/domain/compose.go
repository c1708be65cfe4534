package domain

import "slices"

// Display defaults used when a composed field would otherwise be blank.
const (
	FallbackCommentaryText = "請參考黃曆宜忌"
	placeholder            = "未載"
)

// FallbackCommentary is the static commentary used when the generative
// service is disabled, unavailable or returns something unusable.
func FallbackCommentary() Commentary {
	return Commentary{
		Analysis:       FallbackCommentaryText,
		PracticeAdvice: FallbackCommentaryText,
		DailyAdvice:    FallbackCommentaryText,
		Source:         CommentarySourceFallback,
	}
}

// Compose merges an almanac, its Tibetan projection and commentary into the
// display record. Every string field is non-empty and every list non-nil,
// except SolarTerm, which is only present on solar-term days.
func Compose(almanac AlmanacRecord, tibetan TibetanDateRecord, commentary Commentary) AdvisoryRecord {
	a := almanac
	a.LunarMonthDay = orDefault(a.LunarMonthDay, "農曆日期")
	a.StemBranch.Year = orDefault(a.StemBranch.Year, "年")
	a.StemBranch.Month = orDefault(a.StemBranch.Month, "月")
	a.StemBranch.Day = orDefault(a.StemBranch.Day, "日")
	a.ZodiacAnimal = orDefault(a.ZodiacAnimal, placeholder)
	a.FavorableActivities = listOrDefault(a.FavorableActivities, "祭祀", "祈福")
	a.UnfavorableActivities = listOrDefault(a.UnfavorableActivities, "開市", "動土")
	a.ClashAnimal = orDefault(a.ClashAnimal, placeholder)
	a.ClashDirection = orDefault(a.ClashDirection, placeholder)
	a.AuspiciousSpirits = listOrDefault(a.AuspiciousSpirits)
	a.InauspiciousSpirits = listOrDefault(a.InauspiciousSpirits)
	a.DirectionalSpirits.Joy = orDefault(a.DirectionalSpirits.Joy, "東方")
	a.DirectionalSpirits.Wealth = orDefault(a.DirectionalSpirits.Wealth, "西方")
	a.DirectionalSpirits.Fortune = orDefault(a.DirectionalSpirits.Fortune, "南方")
	a.FetalSpiritLocation = orDefault(a.FetalSpiritLocation, placeholder)
	a.FavorableHours = listOrDefault(a.FavorableHours, "子", "丑", "寅")
	a.HundredTaboos = orDefault(a.HundredTaboos, placeholder)
	if len(a.HourlyAdvisory) != len(doubleHours) {
		a.HourlyAdvisory = DeriveHourly(a.FavorableHours)
	} else {
		a.HourlyAdvisory = slices.Clone(a.HourlyAdvisory)
	}

	t := tibetan
	t.Label = orDefault(t.Label, placeholder)
	t.YearName = orDefault(t.YearName, placeholder)
	t.MonthName = orDefault(t.MonthName, placeholder)
	t.DayName = orDefault(t.DayName, placeholder)
	t.Weekday = orDefault(t.Weekday, placeholder)
	t.Constellation = orDefault(t.Constellation, placeholder)
	t.YogaName = orDefault(t.YogaName, placeholder)
	t.Auspicious = listOrDefault(t.Auspicious)
	t.Inauspicious = listOrDefault(t.Inauspicious)
	t.Haircut = orDefault(t.Haircut, haircutOrdinary)
	t.WindHorse = orDefault(t.WindHorse, "平常日：可懸掛")

	source := commentary.Source
	if source == "" {
		source = CommentarySourceFallback
	}

	return AdvisoryRecord{
		AlmanacRecord: a,
		Tibetan: TibetanAdvisory{
			TibetanDateRecord: t,
			Analysis:          orDefault(commentary.Analysis, FallbackCommentaryText),
			PracticeAdvice:    orDefault(commentary.PracticeAdvice, FallbackCommentaryText),
		},
		DailyAdvice:      orDefault(commentary.DailyAdvice, FallbackCommentaryText),
		CommentarySource: source,
		GeneratedAt:      now(),
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func listOrDefault(items []string, def ...string) []string {
	if len(items) == 0 {
		if def == nil {
			return []string{}
		}
		return slices.Clone(def)
	}
	return slices.Clone(items)
}
