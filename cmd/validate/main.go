// Command validate performs integrity checks on an advisory fixture produced
// by genfixture: record shape and defaults, double-hour expansion, Tibetan
// projection and commentary fallback. When the source pages are available it
// also re-parses them and compares the result field by field.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -fixture data/fixtures/advisories.json \
//	  -html-dir data/pages
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/couchcryptid/almanac-etl-service/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jonboulle/clockwork"
)

// generatedAt matches the fixed clock used by genfixture.
var generatedAt = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

var hourOrder = []string{"子", "丑", "寅", "卯", "辰", "巳", "午", "未", "申", "酉", "戌", "亥"}

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	fixture := flag.String("fixture", "", "path to the advisory JSON fixture")
	htmlDir := flag.String("html-dir", "", "optional directory of the source pages (YYYY-MM-DD.html)")
	flag.Parse()

	if *fixture == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*fixture, *htmlDir); code != 0 {
		os.Exit(code)
	}
}

func run(fixturePath, htmlDir string) int {
	domain.SetClock(clockwork.NewFakeClockAt(generatedAt))
	defer domain.SetClock(nil)

	fmt.Println("=== Almanac Advisory Validation ===")
	fmt.Println()

	advisories, err := loadJSON[domain.AdvisoryRecord](fixturePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load fixture: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateShape(advisories),
		validateHourly(advisories),
		validateTibetan(advisories),
		validateCommentary(advisories),
	}
	if htmlDir != "" {
		phases = append(phases, validateParserParity(advisories, htmlDir))
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d advisories\n", len(advisories))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func loadJSON[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ── Phase 1: record shape ──

func validateShape(advisories []domain.AdvisoryRecord) *phase {
	p := &phase{name: "Phase 1: Record shape and defaults"}
	seen := map[string]bool{}
	for i := range advisories {
		a := &advisories[i]
		if _, err := domain.ParseDate(a.Date); err != nil {
			p.errorf("record %d: %v", i, err)
			continue
		}
		if seen[a.Date] {
			p.errorf("%s: duplicate date", a.Date)
		}
		seen[a.Date] = true

		required := map[string]string{
			"lunar_month_day":       a.LunarMonthDay,
			"stem_branch.year":      a.StemBranch.Year,
			"stem_branch.month":     a.StemBranch.Month,
			"stem_branch.day":       a.StemBranch.Day,
			"zodiac_animal":         a.ZodiacAnimal,
			"clash_animal":          a.ClashAnimal,
			"clash_direction":       a.ClashDirection,
			"directional.joy":       a.DirectionalSpirits.Joy,
			"directional.wealth":    a.DirectionalSpirits.Wealth,
			"directional.fortune":   a.DirectionalSpirits.Fortune,
			"fetal_spirit_location": a.FetalSpiritLocation,
			"hundred_taboos":        a.HundredTaboos,
			"daily_advice":          a.DailyAdvice,
			"commentary_source":     a.CommentarySource,
		}
		for field, v := range required {
			if v == "" {
				p.errorf("%s: %s is empty", a.Date, field)
			}
		}

		lists := map[string][]string{
			"favorable_activities":   a.FavorableActivities,
			"unfavorable_activities": a.UnfavorableActivities,
			"auspicious_spirits":     a.AuspiciousSpirits,
			"inauspicious_spirits":   a.InauspiciousSpirits,
			"favorable_hours":        a.FavorableHours,
		}
		for field, v := range lists {
			if v == nil {
				p.errorf("%s: %s is null", a.Date, field)
			}
			if slices.Contains(v, "餘事勿取") {
				p.errorf("%s: %s contains boilerplate", a.Date, field)
			}
		}
		if len(a.FavorableActivities) == 0 {
			p.errorf("%s: favorable_activities is empty", a.Date)
		}
		if !a.GeneratedAt.Equal(generatedAt) {
			p.errorf("%s: generated_at %s, want %s", a.Date, a.GeneratedAt, generatedAt)
		}
	}
	return p
}

// ── Phase 2: double-hour expansion ──

func validateHourly(advisories []domain.AdvisoryRecord) *phase {
	p := &phase{name: "Phase 2: Double-hour expansion"}
	for i := range advisories {
		a := &advisories[i]
		if len(a.HourlyAdvisory) != len(hourOrder) {
			p.errorf("%s: %d hourly entries, want %d", a.Date, len(a.HourlyAdvisory), len(hourOrder))
			continue
		}
		for j, h := range a.HourlyAdvisory {
			if h.Hour != hourOrder[j] {
				p.errorf("%s: hour %d is %q, want %q", a.Date, j, h.Hour, hourOrder[j])
			}
			if h.TimeRange == "" {
				p.errorf("%s: hour %s has no time range", a.Date, h.Hour)
			}
			lucky := slices.Contains(a.FavorableHours, h.Hour)
			if lucky && len(h.Favorable) == 0 {
				p.errorf("%s: lucky hour %s has no favorable activities", a.Date, h.Hour)
			}
			if !lucky && len(h.Unfavorable) == 0 {
				p.errorf("%s: ordinary hour %s has no unfavorable activities", a.Date, h.Hour)
			}
		}
	}
	return p
}

// ── Phase 3: Tibetan projection ──

func validateTibetan(advisories []domain.AdvisoryRecord) *phase {
	p := &phase{name: "Phase 3: Tibetan projection"}
	for i := range advisories {
		a := &advisories[i]
		day, err := domain.ParseDate(a.Date)
		if err != nil {
			continue
		}
		t := a.Tibetan.TibetanDateRecord
		if t.DayNumber < 1 || t.DayNumber > 30 {
			p.errorf("%s: tibetan day %d out of range", a.Date, t.DayNumber)
		}

		want := domain.ConvertTibetan(day)
		// Observance fields may be overridden by the online lookup.
		want.Observance, want.MeritMultiplier, want.SpecialEvent = t.Observance, t.MeritMultiplier, t.SpecialEvent
		if diff := cmp.Diff(want, t, cmpopts.EquateEmpty()); diff != "" {
			p.errorf("%s: tibetan mismatch (-want +got):\n%s", a.Date, diff)
		}
	}
	return p
}

// ── Phase 4: commentary ──

func validateCommentary(advisories []domain.AdvisoryRecord) *phase {
	p := &phase{name: "Phase 4: Commentary source and fallback"}
	for i := range advisories {
		a := &advisories[i]
		switch a.CommentarySource {
		case domain.CommentarySourceFallback:
			for field, v := range map[string]string{
				"daily_advice":            a.DailyAdvice,
				"tibetan.analysis":        a.Tibetan.Analysis,
				"tibetan.practice_advice": a.Tibetan.PracticeAdvice,
			} {
				if v != domain.FallbackCommentaryText {
					p.errorf("%s: fallback record has %s %q", a.Date, field, v)
				}
			}
		case domain.CommentarySourceModel:
			if a.Tibetan.Analysis == "" || a.DailyAdvice == "" {
				p.errorf("%s: model record has empty commentary", a.Date)
			}
		default:
			p.errorf("%s: unknown commentary source %q", a.Date, a.CommentarySource)
		}
	}
	return p
}

// ── Phase 5: parser parity ──

func validateParserParity(advisories []domain.AdvisoryRecord, htmlDir string) *phase {
	p := &phase{name: "Phase 5: Parser parity with source pages"}
	for i := range advisories {
		a := &advisories[i]
		day, err := domain.ParseDate(a.Date)
		if err != nil {
			continue
		}
		markup, err := os.ReadFile(filepath.Join(htmlDir, a.Date+".html"))
		if err != nil {
			p.errorf("%s: %v", a.Date, err)
			continue
		}
		want := domain.Compose(domain.Parse(string(markup), a.Date), domain.ConvertTibetan(day), domain.FallbackCommentary())
		if diff := cmp.Diff(want.AlmanacRecord, a.AlmanacRecord, cmpopts.EquateEmpty()); diff != "" {
			p.errorf("%s: almanac mismatch (-reparsed +fixture):\n%s", a.Date, diff)
		}
	}
	return p
}
