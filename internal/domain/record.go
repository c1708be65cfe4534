package domain

import (
	"context"
	"time"
)

// StemBranch holds the three sexagenary-cycle labels printed for a day.
type StemBranch struct {
	Year  string `json:"year"`
	Month string `json:"month"`
	Day   string `json:"day"`
}

// SpiritDirections holds the compass directions of the joy, wealth and
// fortune spirits for the day.
type SpiritDirections struct {
	Joy     string `json:"joy"`
	Wealth  string `json:"wealth"`
	Fortune string `json:"fortune"`
}

// HourlyAdvisory is the advice for one double-hour.
type HourlyAdvisory struct {
	Hour        string   `json:"hour"`
	TimeRange   string   `json:"time_range"`
	Favorable   []string `json:"favorable"`
	Unfavorable []string `json:"unfavorable"`
	Clash       string   `json:"clash,omitempty"`
	Direction   string   `json:"direction,omitempty"`
}

// AlmanacRecord is one calendar date's almanac, as scraped from the upstream page.
type AlmanacRecord struct {
	Date                  string           `json:"date"`
	LunarMonthDay         string           `json:"lunar_month_day"`
	StemBranch            StemBranch       `json:"stem_branch"`
	ZodiacAnimal          string           `json:"zodiac_animal"`
	SolarTerm             string           `json:"solar_term,omitempty"`
	FavorableActivities   []string         `json:"favorable_activities"`
	UnfavorableActivities []string         `json:"unfavorable_activities"`
	ClashAnimal           string           `json:"clash_animal"`
	ClashDirection        string           `json:"clash_direction"`
	AuspiciousSpirits     []string         `json:"auspicious_spirits"`
	InauspiciousSpirits   []string         `json:"inauspicious_spirits"`
	DirectionalSpirits    SpiritDirections `json:"directional_spirits"`
	FetalSpiritLocation   string           `json:"fetal_spirit_location"`
	FavorableHours        []string         `json:"favorable_hours"`
	HundredTaboos         string           `json:"hundred_taboos"`
	HourlyAdvisory        []HourlyAdvisory `json:"hourly_advisory"`
}

// TibetanDateRecord is the approximate Tibetan-calendar projection of a solar date.
type TibetanDateRecord struct {
	Label           string   `json:"label"`
	YearName        string   `json:"year_name"`
	MonthName       string   `json:"month_name"`
	DayName         string   `json:"day_name"`
	DayNumber       int      `json:"day_number"`
	Weekday         string   `json:"weekday"`
	Constellation   string   `json:"constellation"`
	YogaName        string   `json:"yoga_name"`
	Observance      string   `json:"observance,omitempty"`
	MeritMultiplier string   `json:"merit_multiplier,omitempty"`
	SpecialEvent    string   `json:"special_event,omitempty"`
	Auspicious      []string `json:"auspicious"`
	Inauspicious    []string `json:"inauspicious"`
	Haircut         string   `json:"haircut"`
	WindHorse       string   `json:"wind_horse"`
}

// Commentary sources.
const (
	CommentarySourceModel    = "model"
	CommentarySourceFallback = "fallback"
)

// Commentary is the opaque text returned by the generative collaborator.
type Commentary struct {
	Analysis       string `json:"analysis"`
	PracticeAdvice string `json:"practice_advice"`
	DailyAdvice    string `json:"daily_advice"`
	Source         string `json:"source"`
}

// TibetanAdvisory groups the Tibetan projection with the commentary written about it.
type TibetanAdvisory struct {
	TibetanDateRecord
	Analysis       string `json:"analysis"`
	PracticeAdvice string `json:"practice_advice"`
}

// AdvisoryRecord is the composed display record handed to consumers.
type AdvisoryRecord struct {
	AlmanacRecord
	Tibetan          TibetanAdvisory `json:"tibetan"`
	DailyAdvice      string          `json:"daily_advice"`
	CommentarySource string          `json:"commentary_source"`
	GeneratedAt      time.Time       `json:"generated_at"`
}

// Observance is the supplementary data returned by an ObservanceLookup.
type Observance struct {
	DayName         string
	Observance      string
	MeritMultiplier string
	SpecialEvent    string
}

// DateRequest is the payload of a message on the request topic.
type DateRequest struct {
	Date string `json:"date"`
}

// RawMessage represents an unprocessed message from the source topic.
type RawMessage struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}
