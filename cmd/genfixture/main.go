// Command genfixture reads saved almanac pages and generates an advisory
// fixture for downstream test suites. It uses the actual domain package so the
// fixture matches real pipeline output, with a fixed clock and the fallback
// commentary so the result is reproducible.
//
// Pages are named after the date they describe (2025-03-05.html).
//
// Usage:
//
//	go run ./cmd/genfixture \
//	  -html-dir data/pages \
//	  -out data/fixtures/advisories.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/couchcryptid/almanac-etl-service/internal/domain"
	"github.com/jonboulle/clockwork"
)

// generatedAt is the fixed GeneratedAt stamp for every fixture record.
var generatedAt = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	htmlDir := flag.String("html-dir", "", "directory of saved almanac pages named YYYY-MM-DD.html")
	out := flag.String("out", "", "output path for the advisory JSON fixture")
	flag.Parse()

	if *htmlDir == "" || *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -html-dir, -out")
	}

	domain.SetClock(clockwork.NewFakeClockAt(generatedAt))
	defer domain.SetClock(nil)

	pages, err := listPages(*htmlDir)
	if err != nil {
		return err
	}
	if len(pages) == 0 {
		return fmt.Errorf("no YYYY-MM-DD.html pages in %s", *htmlDir)
	}

	advisories := make([]domain.AdvisoryRecord, 0, len(pages))
	fallbacks := map[string]int{}
	for _, date := range pages {
		rec, defaulted, err := buildAdvisory(filepath.Join(*htmlDir, date+".html"), date)
		if err != nil {
			return fmt.Errorf("processing %s: %w", date, err)
		}
		for _, f := range defaulted {
			fallbacks[f]++
		}
		advisories = append(advisories, rec)
		log.Printf("%s: %d fields defaulted", date, len(defaulted))
	}

	if err := writeJSON(*out, advisories); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote fixture: %s (%d records)", *out, len(advisories))

	printStats(advisories, fallbacks)
	return nil
}

// listPages returns the dates of all pages in dir, sorted.
func listPages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var dates []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".html") {
			continue
		}
		date := strings.TrimSuffix(name, ".html")
		if _, err := domain.ParseDate(date); err != nil {
			log.Printf("skipping %s: %v", name, err)
			continue
		}
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates, nil
}

func buildAdvisory(path, date string) (domain.AdvisoryRecord, []string, error) {
	day, err := domain.ParseDate(date)
	if err != nil {
		return domain.AdvisoryRecord{}, nil, err
	}
	markup, err := os.ReadFile(path)
	if err != nil {
		return domain.AdvisoryRecord{}, nil, fmt.Errorf("read page: %w", err)
	}
	almanac, defaulted := domain.ParseReport(string(markup), date)
	rec := domain.Compose(almanac, domain.ConvertTibetan(day), domain.FallbackCommentary())
	return rec, defaulted, nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func printStats(advisories []domain.AdvisoryRecord, fallbacks map[string]int) {
	fmt.Println()
	fmt.Println("=== Fixture Summary ===")
	fmt.Printf("records:        %d\n", len(advisories))

	var solarTerms, observances int
	zodiac := map[string]int{}
	for i := range advisories {
		a := &advisories[i]
		if a.SolarTerm != "" {
			solarTerms++
		}
		if a.Tibetan.Observance != "" {
			observances++
		}
		zodiac[a.ZodiacAnimal]++
	}
	fmt.Printf("solar terms:    %d\n", solarTerms)
	fmt.Printf("observances:    %d\n", observances)

	animals := make([]string, 0, len(zodiac))
	for k := range zodiac {
		animals = append(animals, k)
	}
	sort.Strings(animals)
	for _, k := range animals {
		fmt.Printf("  zodiac %s: %d\n", k, zodiac[k])
	}

	if len(fallbacks) == 0 {
		fmt.Println("field fallbacks: none")
		return
	}
	fields := make([]string, 0, len(fallbacks))
	for f := range fallbacks {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	fmt.Println("field fallbacks:")
	for _, f := range fields {
		fmt.Printf("  %-24s %d\n", f, fallbacks[f])
	}
}
