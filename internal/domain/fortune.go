package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	fortuneScoreNeutral = 60
	fortuneScoreClash   = 40
)

// ZodiacFortune is the daily fortune for one zodiac animal.
type ZodiacFortune struct {
	Zodiac          string `json:"zodiac"`
	Date            string `json:"date"`
	Overall         string `json:"overall"`
	Wealth          string `json:"wealth"`
	Love            string `json:"love"`
	Career          string `json:"career"`
	Score           int    `json:"score"`
	Monthly         string `json:"monthly"`
	ElementAnalysis string `json:"element_analysis"`
	Source          string `json:"source"`
}

// ParseZodiac validates s as one of the 12 zodiac animals.
func ParseZodiac(s string) (string, error) {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) != 1 || !strings.Contains(animals, s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidZodiac, s)
	}
	return s, nil
}

// FallbackFortune is the static fortune used when the generative service is
// disabled or unavailable. An animal clashed by the day gets a warning and a
// lower score.
func FallbackFortune(zodiac string, almanac AlmanacRecord) ZodiacFortune {
	f := ZodiacFortune{
		Zodiac:          zodiac,
		Date:            almanac.Date,
		Overall:         FallbackCommentaryText,
		Wealth:          FallbackCommentaryText,
		Love:            FallbackCommentaryText,
		Career:          FallbackCommentaryText,
		Score:           fortuneScoreNeutral,
		Monthly:         FallbackCommentaryText,
		ElementAnalysis: FallbackCommentaryText,
		Source:          CommentarySourceFallback,
	}
	if strings.HasSuffix(almanac.ClashAnimal, zodiac) {
		f.Overall = "今日沖" + zodiac + "，宜守不宜進。"
		f.Score = fortuneScoreClash
	}
	return f
}

// ComposeFortune fills every blank field of f from fallback. A score outside
// 1..100 is replaced or capped.
func ComposeFortune(f, fallback ZodiacFortune) ZodiacFortune {
	out := f
	out.Zodiac = fallback.Zodiac
	out.Date = fallback.Date
	out.Overall = orDefault(f.Overall, fallback.Overall)
	out.Wealth = orDefault(f.Wealth, fallback.Wealth)
	out.Love = orDefault(f.Love, fallback.Love)
	out.Career = orDefault(f.Career, fallback.Career)
	out.Monthly = orDefault(f.Monthly, fallback.Monthly)
	out.ElementAnalysis = orDefault(f.ElementAnalysis, fallback.ElementAnalysis)
	if out.Score <= 0 {
		out.Score = fallback.Score
	}
	out.Score = min(out.Score, 100)
	out.Source = orDefault(f.Source, fallback.Source)
	return out
}
