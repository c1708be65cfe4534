package domain

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// Field names reported by ParseReport when an extractor chain falls through
// to its default.
const (
	FieldLunarMonthDay       = "lunar_month_day"
	FieldStemBranchYear      = "stem_branch_year"
	FieldStemBranchMonth     = "stem_branch_month"
	FieldStemBranchDay       = "stem_branch_day"
	FieldZodiacAnimal        = "zodiac_animal"
	FieldSolarTerm           = "solar_term"
	FieldFavorable           = "favorable_activities"
	FieldUnfavorable         = "unfavorable_activities"
	FieldClashAnimal         = "clash_animal"
	FieldClashDirection      = "clash_direction"
	FieldAuspiciousSpirits   = "auspicious_spirits"
	FieldInauspiciousSpirits = "inauspicious_spirits"
	FieldJoyDirection        = "joy_direction"
	FieldWealthDirection     = "wealth_direction"
	FieldFortuneDirection    = "fortune_direction"
	FieldFetalSpirit         = "fetal_spirit_location"
	FieldFavorableHours      = "favorable_hours"
	FieldHundredTaboos       = "hundred_taboos"
)

// boilerplatePhrase closes most favorable-activity lists upstream and is not
// itself an activity.
const boilerplatePhrase = "餘事勿取"

const (
	stems    = "甲乙丙丁戊己庚辛壬癸"
	branches = "子丑寅卯辰巳午未申酉戌亥"
	animals  = "鼠牛虎兔龍蛇馬羊猴雞狗豬"
)

// fieldLabels are the headings of the almanac page. A loose-text section ends
// where the next heading starts.
var fieldLabels = []string{
	"吉時", "凶時", "喜神", "財神", "福神", "胎神", "彭祖", "節氣",
	"吉神", "凶煞", "凶神", "方位", "沖", "煞", "宜", "忌",
}

var solarTerms = []string{
	"立春", "雨水", "驚蟄", "春分", "清明", "穀雨",
	"立夏", "小滿", "芒種", "夏至", "小暑", "大暑",
	"立秋", "處暑", "白露", "秋分", "寒露", "霜降",
	"立冬", "小雪", "大雪", "冬至", "小寒", "大寒",
}

var (
	scriptRe     = regexp.MustCompile(`(?is)<script\b.*?</script>|<style\b.*?</style>|<!--.*?-->`)
	tagRe        = regexp.MustCompile(`<[^>]*>`)
	spaceRe      = regexp.MustCompile(`[\s\x{00a0}\x{3000}]+`)
	listSepRe    = regexp.MustCompile(`[、，,·\s\x{00a0}\x{3000}]+`)
	yearRe       = regexp.MustCompile(`[` + stems + `][` + branches + `][` + animals + `]?年`)
	monthRe      = regexp.MustCompile(`[` + stems + `][` + branches + `]月`)
	dayRe        = regexp.MustCompile(`[` + stems + `][` + branches + `]日`)
	lunarRe      = regexp.MustCompile(`農曆\s*[:：]?\s*(\p{Han}+月\p{Han}+)`)
	solarTermRe  = regexp.MustCompile(`節氣\s*[:：]?\s*(\p{Han}{2})`)
	clashRe      = regexp.MustCompile(`(?:^|[^\p{Han}])沖\s*([\(（]\p{Han}+[\)）]\s*\p{Han})`)
	clashDirRe   = regexp.MustCompile(`(?:^|[^\p{Han}])煞\s*[:：]?\s*(正?[東南西北]{1,2}方)`)
	taboosRe     = regexp.MustCompile(`彭祖百忌\s*[:：]?\s*([\p{Han}；;，, ]+)`)
	hourMarkRe   = regexp.MustCompile(`[` + branches + `]時`)
	hourClashRe  = regexp.MustCompile(`(沖\s*\p{Han})\s*(煞\s*[東南西北]{1,2})`)
	labelStopRe  = regexp.MustCompile(`(?:^|[\s、，,·；\x{3000}])(?:` + strings.Join(fieldLabels, "|") + `)`)
	clashTrimmer = strings.NewReplacer("(", "", ")", "", "（", "", "）", "", " ", "")
)

// page holds the three views of the markup the extractors work on.
type page struct {
	markup string
	text   string
	terms  map[string]string
}

func newPage(markup string) *page {
	p := &page{
		markup: markup,
		text:   FlattenMarkup(markup),
		terms:  make(map[string]string),
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return p
	}
	doc.Find("dt").Each(func(_ int, dt *goquery.Selection) {
		label := squash(dt.Text())
		if label == "" {
			return
		}
		if _, seen := p.terms[label]; seen {
			return
		}
		dd := dt.NextFiltered("dd")
		if dd.Length() == 0 {
			return
		}
		p.terms[label] = squash(dd.Text())
	})
	return p
}

// FlattenMarkup strips scripts, styles, comments and tags from markup,
// decodes entities and collapses whitespace to single spaces.
func FlattenMarkup(markup string) string {
	s := scriptRe.ReplaceAllString(markup, " ")
	s = tagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return squash(s)
}

func squash(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// An extractor returns the raw span for a field, or "" when its pattern
// does not apply to the page.
type extractor func(p *page) string

// term reads the <dd> following the first <dt> whose text equals one of labels.
func term(labels ...string) extractor {
	return func(p *page) string {
		for _, l := range labels {
			if v := p.terms[l]; v != "" {
				return v
			}
		}
		return ""
	}
}

// markupDD matches a label/value definition pair directly in the raw markup,
// for pages goquery cannot make sense of.
func markupDD(label string) extractor {
	re := regexp.MustCompile(regexp.QuoteMeta(label) + `\s*</dt>\s*<dd[^>]*>([^<]+)<`)
	return func(p *page) string {
		if m := re.FindStringSubmatch(p.markup); m != nil {
			return squash(html.UnescapeString(m[1]))
		}
		return ""
	}
}

// text applies re to the flattened page text and returns its first group,
// or the whole match when re has no groups.
func text(re *regexp.Regexp) extractor {
	return func(p *page) string {
		m := re.FindStringSubmatch(p.text)
		switch {
		case m == nil:
			return ""
		case len(m) > 1:
			return strings.TrimSpace(m[1])
		default:
			return m[0]
		}
	}
}

// section captures the run of Han text following a standalone label in the
// flattened text, cut where the next field label begins.
func section(label string) extractor {
	re := regexp.MustCompile(`(?:^|[^\p{Han}])(?:` + label + `)\s*[:：]?\s*([\p{Han}、，,·；\s\x{3000}]+)`)
	return func(p *page) string {
		m := re.FindStringSubmatch(p.text)
		if m == nil {
			return ""
		}
		span := m[1]
		if loc := labelStopRe.FindStringIndex(span); loc != nil {
			span = span[:loc[0]]
		}
		return strings.TrimSpace(span)
	}
}

// fieldRule binds one record field to its ordered extractor chain.
type fieldRule struct {
	field      string
	extractors []extractor
	list       bool
	optional   bool

	// accept normalizes a scalar value or a single list token; "" rejects it.
	accept func(string) string

	def     string
	defList []string
	assign  func(rec *AlmanacRecord, v string, items []string)
}

func (r fieldRule) resolve(p *page) (string, []string, bool) {
	for _, extract := range r.extractors {
		span := extract(p)
		if span == "" {
			continue
		}
		if !r.list {
			if v := r.accept(span); v != "" {
				return v, nil, true
			}
			continue
		}
		if items := splitList(span, r.accept); len(items) > 0 {
			return "", items, true
		}
	}
	return r.def, append([]string{}, r.defList...), false
}

func splitList(span string, accept func(string) string) []string {
	var items []string
	for _, tok := range listSepRe.Split(span, -1) {
		tok = strings.TrimSpace(tok)
		if tok == "" || tok == boilerplatePhrase {
			continue
		}
		if v := accept(tok); v != "" {
			items = append(items, v)
		}
	}
	return items
}

var fieldRules = []fieldRule{
	{
		field:      FieldLunarMonthDay,
		extractors: []extractor{term("農曆"), markupDD("農曆"), text(lunarRe)},
		accept:     strings.TrimSpace,
		def:        "農曆日期",
		assign:     func(rec *AlmanacRecord, v string, _ []string) { rec.LunarMonthDay = v },
	},
	{
		field:      FieldStemBranchYear,
		extractors: []extractor{text(yearRe)},
		accept:     strings.TrimSpace,
		def:        "年",
		assign:     func(rec *AlmanacRecord, v string, _ []string) { rec.StemBranch.Year = v },
	},
	{
		field:      FieldStemBranchMonth,
		extractors: []extractor{text(monthRe)},
		accept:     strings.TrimSpace,
		def:        "月",
		assign:     func(rec *AlmanacRecord, v string, _ []string) { rec.StemBranch.Month = v },
	},
	{
		field:      FieldStemBranchDay,
		extractors: []extractor{text(dayRe)},
		accept:     strings.TrimSpace,
		def:        "日",
		assign:     func(rec *AlmanacRecord, v string, _ []string) { rec.StemBranch.Day = v },
	},
	{
		field:      FieldSolarTerm,
		extractors: []extractor{term("節氣"), text(solarTermRe)},
		accept:     findSolarTerm,
		optional:   true,
		assign:     func(rec *AlmanacRecord, v string, _ []string) { rec.SolarTerm = v },
	},
	{
		field:      FieldFavorable,
		extractors: []extractor{term("宜"), markupDD("宜"), section("宜")},
		list:       true,
		accept:     strings.TrimSpace,
		defList:    []string{"祭祀", "祈福"},
		assign:     func(rec *AlmanacRecord, _ string, items []string) { rec.FavorableActivities = items },
	},
	{
		field:      FieldUnfavorable,
		extractors: []extractor{term("忌"), markupDD("忌"), section("忌")},
		list:       true,
		accept:     strings.TrimSpace,
		defList:    []string{"開市", "動土"},
		assign:     func(rec *AlmanacRecord, _ string, items []string) { rec.UnfavorableActivities = items },
	},
	{
		field:      FieldClashAnimal,
		extractors: []extractor{term("沖"), markupDD("沖"), text(clashRe)},
		accept:     normalizeClash,
		assign:     func(rec *AlmanacRecord, v string, _ []string) { rec.ClashAnimal = v },
	},
	{
		field:      FieldClashDirection,
		extractors: []extractor{term("煞"), markupDD("煞"), text(clashDirRe)},
		accept:     normalizeDirection,
		assign:     func(rec *AlmanacRecord, v string, _ []string) { rec.ClashDirection = v },
	},
	{
		field:      FieldAuspiciousSpirits,
		extractors: []extractor{term("吉神", "吉神宜趨"), markupDD("吉神"), section("吉神(?:宜趨)?")},
		list:       true,
		accept:     strings.TrimSpace,
		assign:     func(rec *AlmanacRecord, _ string, items []string) { rec.AuspiciousSpirits = items },
	},
	{
		field:      FieldInauspiciousSpirits,
		extractors: []extractor{term("凶煞", "凶神宜忌", "凶神"), markupDD("凶煞"), section("凶(?:煞|神宜忌|神)")},
		list:       true,
		accept:     strings.TrimSpace,
		assign:     func(rec *AlmanacRecord, _ string, items []string) { rec.InauspiciousSpirits = items },
	},
	{
		field:      FieldJoyDirection,
		extractors: directionExtractors("喜神"),
		accept:     normalizeDirection,
		def:        "東方",
		assign:     func(rec *AlmanacRecord, v string, _ []string) { rec.DirectionalSpirits.Joy = v },
	},
	{
		field:      FieldWealthDirection,
		extractors: directionExtractors("財神"),
		accept:     normalizeDirection,
		def:        "西方",
		assign:     func(rec *AlmanacRecord, v string, _ []string) { rec.DirectionalSpirits.Wealth = v },
	},
	{
		field:      FieldFortuneDirection,
		extractors: directionExtractors("福神"),
		accept:     normalizeDirection,
		def:        "南方",
		assign:     func(rec *AlmanacRecord, v string, _ []string) { rec.DirectionalSpirits.Fortune = v },
	},
	{
		field:      FieldFetalSpirit,
		extractors: []extractor{term("胎神"), markupDD("胎神"), section("胎神")},
		accept:     squash,
		assign:     func(rec *AlmanacRecord, v string, _ []string) { rec.FetalSpiritLocation = v },
	},
	{
		field:      FieldFavorableHours,
		extractors: []extractor{term("吉時"), markupDD("吉時"), section("吉時")},
		list:       true,
		accept:     acceptHourBranch,
		defList:    []string{"子", "丑", "寅"},
		assign:     func(rec *AlmanacRecord, _ string, items []string) { rec.FavorableHours = items },
	},
	{
		field:      FieldHundredTaboos,
		extractors: []extractor{term("彭祖百忌"), markupDD("彭祖百忌"), text(taboosRe)},
		accept:     squash,
		assign:     func(rec *AlmanacRecord, v string, _ []string) { rec.HundredTaboos = v },
	},
}

func directionExtractors(spirit string) []extractor {
	re := regexp.MustCompile(spirit + `\s*[:：]?\s*(?:位於|在)?\s*(正?[東南西北]{1,2}方?)`)
	return []extractor{term(spirit), text(re)}
}

// Parse extracts an AlmanacRecord from raw markup. It never fails: each
// field that cannot be extracted takes its default.
func Parse(markup, date string) AlmanacRecord {
	rec, _ := ParseReport(markup, date)
	return rec
}

// ParseReport is Parse that also returns the names of the fields that fell
// back to their defaults.
func ParseReport(markup, date string) (AlmanacRecord, []string) {
	p := newPage(markup)
	rec := AlmanacRecord{Date: date}
	var defaulted []string
	for _, rule := range fieldRules {
		v, items, ok := rule.resolve(p)
		if !ok && !rule.optional {
			defaulted = append(defaulted, rule.field)
		}
		if rule.list && items == nil {
			items = []string{}
		}
		rule.assign(&rec, v, items)
	}

	zodiac, ok := zodiacFromYear(rec.StemBranch.Year)
	if !ok {
		zodiac = zodiacFromDate(date)
		defaulted = append(defaulted, FieldZodiacAnimal)
	}
	rec.ZodiacAnimal = zodiac

	rec.HourlyAdvisory = deriveHourly(rec.FavorableHours, hourClashes(p.text))
	return rec, defaulted
}

func findSolarTerm(s string) string {
	best, at := "", -1
	for _, name := range solarTerms {
		if i := strings.Index(s, name); i >= 0 && (at < 0 || i < at) {
			best, at = name, i
		}
	}
	return best
}

func normalizeClash(s string) string {
	return clashTrimmer.Replace(squash(s))
}

// normalizeDirection keeps a compass label and gives it the 方 suffix.
func normalizeDirection(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "煞")
	s = strings.TrimSpace(s)
	if s == "" || !strings.ContainsAny(s, "東南西北") {
		return ""
	}
	if !strings.HasSuffix(s, "方") {
		s += "方"
	}
	return s
}

func acceptHourBranch(tok string) string {
	tok = strings.TrimSuffix(tok, "時")
	if utf8.RuneCountInString(tok) != 1 || !strings.Contains(branches, tok) {
		return ""
	}
	return tok
}

func zodiacFromYear(year string) (string, bool) {
	runes := []rune(year)
	if len(runes) < 3 || !strings.ContainsRune(branches, runes[1]) {
		return "", false
	}
	if len(runes) == 4 {
		return string(runes[2]), true
	}
	return branchAnimal(runes[1]), true
}

// zodiacFromDate approximates the zodiac from the solar year; it ignores
// that the lunar year turns over in late January or February.
func zodiacFromDate(date string) string {
	t, err := ParseDate(date)
	if err != nil {
		return ""
	}
	idx := ((t.Year()-4)%12 + 12) % 12
	return string([]rune(animals)[idx])
}

func branchAnimal(b rune) string {
	for i, r := range []rune(branches) {
		if r == b {
			return string([]rune(animals)[i])
		}
	}
	return ""
}

type hourClash struct {
	clash     string
	direction string
}

// hourClashes collects per-hour "子時 … 沖馬 煞南" annotations. Each hour
// only sees the text up to the next hour marker.
func hourClashes(text string) map[string]hourClash {
	out := make(map[string]hourClash)
	marks := hourMarkRe.FindAllStringIndex(text, -1)
	for i, loc := range marks {
		hour := text[loc[0] : loc[1]-len("時")]
		if _, seen := out[hour]; seen {
			continue
		}
		end := len(text)
		if i+1 < len(marks) {
			end = marks[i+1][0]
		}
		row := truncateRunes(text[loc[1]:end], hourRowRunes)
		m := hourClashRe.FindStringSubmatch(row)
		if m == nil {
			continue
		}
		out[hour] = hourClash{
			clash:     strings.ReplaceAll(m[1], " ", ""),
			direction: strings.ReplaceAll(m[2], " ", ""),
		}
	}
	return out
}

// hourRowRunes bounds how far past its marker an hour row is searched.
const hourRowRunes = 40

func truncateRunes(s string, n int) string {
	for i := range s {
		if n == 0 {
			return s[:i]
		}
		n--
	}
	return s
}
