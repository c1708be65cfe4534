package zangli

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/couchcryptid/almanac-etl-service/internal/domain"
)

// pageText flattens the calendar page into one line of text in which table
// cells are separated by "|".
func pageText(markup string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return domain.FlattenMarkup(markup)
	}
	doc.Find("script, style, noscript").Remove()
	doc.Find("td, th").AfterHtml(" | ")
	doc.Find("tr, p, div, li, br, h1, h2, h3, h4, h5, caption").AfterHtml(" ")
	return whitespace.ReplaceAllString(strings.TrimSpace(doc.Text()), " ")
}

var whitespace = regexp.MustCompile(`[\s\x{00a0}\x{3000}]+`)

const tibetanDayPattern = `(?:初[一二三四五六七八九十]|十[一二三四五六七八九]?|二十|廿[一二三四五六七八九]?|三十)`

var (
	leadingDay = regexp.MustCompile(`^([闰閏])?(` + tibetanDayPattern + `)`)
	meritRe    = regexp.MustCompile(`作何善[恶惡]成(.+?倍)`)
	eclipseRe  = regexp.MustCompile(`(?:日环食|日環食|日全食|月全食|月偏食)[^|]*`)
	uposatha   = regexp.MustCompile(`初八|十五|廿三|三十`)
	nextDay    = regexp.MustCompile(`\s\d{1,2}\s+[闰閏]?` + tibetanDayPattern)
)

// observances lists the recognized festival phrases in the order they are
// reported. Both simplified and traditional spellings are matched.
var observances = []*regexp.Regexp{
	regexp.MustCompile(`阿[弥彌]陀佛[节節]日`),
	regexp.MustCompile(`[药藥][师師]佛[节節]日`),
	regexp.MustCompile(`[释釋]迦牟尼佛[节節]日`),
	regexp.MustCompile(`[释釋]迦牟尼佛\s*成道日涅槃日`),
	regexp.MustCompile(`[释釋]迦牟尼佛\s*初[转轉]法[轮輪]日`),
	regexp.MustCompile(`[释釋]迦牟尼佛\s*天降日`),
	regexp.MustCompile(`[释釋]迦牟尼佛\s*入胎日`),
	regexp.MustCompile(`[释釋]迦牟尼佛[诞誕]辰`),
	regexp.MustCompile(`[观觀]音菩[萨薩][节節]日`),
	regexp.MustCompile(`地藏王菩[萨薩][节節]日`),
	regexp.MustCompile(`[莲蓮][师師][荟薈]供日`),
	regexp.MustCompile(`空行母[荟薈]供日`),
	regexp.MustCompile(`[禅禪]定[胜勝]王佛[节節]日`),
	regexp.MustCompile(`神[变變][节節]`),
}

var traditional = strings.NewReplacer(
	"弥", "彌",
	"药", "藥",
	"师", "師",
	"释", "釋",
	"观", "觀",
	"萨", "薩",
	"莲", "蓮",
	"荟", "薈",
	"禅", "禪",
	"胜", "勝",
	"节", "節",
	"变", "變",
	"转", "轉",
	"轮", "輪",
	"诞", "誕",
	"环", "環",
	"万", "萬",
	"亿", "億",
	"闰", "閏",
	"成道日涅槃日", "成道日、涅槃日",
)

// parseObservance finds the entry for one solar day in the flattened yearly
// page. Day entries look like "| 3 十五 阿弥陀佛节日 作何善恶成百万倍 |",
// with the solar day optionally in its own cell.
func parseObservance(text string, year, month, day int) domain.Observance {
	section := monthSection(text, year, month)
	if section == "" {
		return domain.Observance{}
	}

	dayRe := regexp.MustCompile(fmt.Sprintf(`(?:^|[\s|])%d[\s|]+([闰閏]?%s[^|]*)`, day, tibetanDayPattern))
	m := dayRe.FindStringSubmatch(section)
	if m == nil {
		return domain.Observance{}
	}
	content := m[1]
	if loc := nextDay.FindStringIndex(content); loc != nil {
		content = content[:loc[0]]
	}
	content = strings.TrimSpace(content)

	var obs domain.Observance
	if dm := leadingDay.FindStringSubmatch(content); dm != nil {
		obs.DayName = traditional.Replace(dm[1] + dm[2])
	}

	var labels []string
	for _, re := range observances {
		if found := re.FindString(content); found != "" {
			labels = append(labels, traditional.Replace(whitespace.ReplaceAllString(found, "")))
		}
	}
	if strings.Contains(obs.DayName, "十五") {
		labels = append(labels, "月圓日")
	}
	if uposatha.MatchString(obs.DayName) {
		labels = append(labels, "布薩日")
	}
	obs.Observance = strings.Join(labels, "、")

	if mm := meritRe.FindStringSubmatch(content); mm != nil {
		obs.MeritMultiplier = traditional.Replace(strings.TrimSpace(mm[1]))
	}
	if ev := eclipseRe.FindString(content); ev != "" {
		obs.SpecialEvent = traditional.Replace(strings.TrimSpace(ev))
	}
	return obs
}

// monthSection returns the text between the "YYYY年M月" header and the next
// month's header, or "" when the header is missing.
func monthSection(text string, year, month int) string {
	header := fmt.Sprintf("%d年%d月", year, month)
	start := strings.Index(text, header)
	if start < 0 {
		return ""
	}
	rest := text[start+len(header):]
	if month < 12 {
		if end := strings.Index(rest, fmt.Sprintf("%d年%d月", year, month+1)); end >= 0 {
			rest = rest[:end]
		}
	}
	return rest
}
