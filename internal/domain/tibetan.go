package domain

import (
	"regexp"
	"slices"
	"strconv"
	"time"
)

// Tibetan calendar projection constants. The +45 day lead over a 360 day
// year is an approximation with no leap months or leap days; output must
// stay stable for the same input.
const (
	tibetanDayOffset  = 45
	tibetanYearLength = 360
	tibetanMonthDays  = 30
)

var tibetanYearNames = map[int]string{
	2024: "木龍年",
	2025: "木蛇年",
	2026: "火馬年",
	2027: "火羊年",
	2028: "土猴年",
	2029: "土雞年",
	2030: "鐵狗年",
	2031: "鐵豬年",
}

var tibetanMonthNames = [12]string{
	"正月", "二月", "三月", "四月", "五月", "六月",
	"七月", "八月", "九月", "十月", "十一月", "十二月",
}

var weekdayNames = [7]string{"星期日", "星期一", "星期二", "星期三", "星期四", "星期五", "星期六"}

// lunarMansions is the 28-fold constellation cycle.
var lunarMansions = [28]string{
	"角", "亢", "氐", "房", "心", "尾", "箕",
	"斗", "牛", "女", "虛", "危", "室", "壁",
	"奎", "婁", "胃", "昴", "畢", "觜", "參",
	"井", "鬼", "柳", "星", "張", "翼", "軫",
}

var yogaNames = [27]string{
	"駿足", "福德", "成就", "吉祥", "光輝", "金剛", "毒害",
	"持節", "事業", "奮威", "妙花", "善相", "堅固", "正念",
	"平順", "懷德", "幻惑", "極惡", "善戲", "調伏", "鐵鉤",
	"熾盛", "分散", "常住", "具光", "和合", "貪欲",
}

// observanceDays maps a Tibetan day number to its Buddhist feast-day label.
var observanceDays = map[int]string{
	1:  "禪定勝王佛節日 · 作何善惡成百倍",
	8:  "藥師佛節日 · 作何善惡成千倍",
	10: "蓮師薈供日 · 作何善惡成十萬倍",
	15: "阿彌陀佛節日 · 作何善惡成百萬倍",
	18: "觀音菩薩節日 · 作何善惡成千萬倍",
	21: "地藏王菩薩節日 · 作何善惡成億倍",
	25: "空行母薈供日",
	30: "釋迦牟尼佛節日 · 作何善惡成九億倍",
}

var meritRe = regexp.MustCompile(`作何善惡成(.+倍)`)

var (
	practiceDays  = []int{1, 8, 10, 15, 25, 30}
	groomingDays  = []int{5, 12, 20, 28}
	cautionDays   = []int{9, 19, 29}
	restraintDays = []int{4, 14, 24}
)

var haircutAdvice = map[int]string{
	1:  "增長壽命",
	2:  "招致疾病",
	3:  "增長財富",
	4:  "招損財產",
	5:  "增益智慧",
	8:  "吉祥如意",
	9:  "招邪惡事",
	10: "增長福德",
	11: "減損壽命",
	13: "修持順緣",
	15: "增上福報",
	18: "增益財富",
	21: "招致疾病",
	22: "財富增長",
	25: "獲得成就",
	27: "招致惡運",
	30: "招致爭鬥",
}

const haircutOrdinary = "平常日，可剪可不剪"

// ConvertTibetan projects a solar date onto the approximate Tibetan calendar.
// It is pure and total.
func ConvertTibetan(date time.Time) TibetanDateRecord {
	year := date.Year()
	yearName, ok := tibetanYearNames[year]
	if !ok {
		yearName = strconv.Itoa(year) + "年"
	}

	dayOfYear := date.YearDay() - 1
	tibetanDayOfYear := (dayOfYear + tibetanDayOffset) % tibetanYearLength
	monthIdx := min(tibetanDayOfYear/tibetanMonthDays, len(tibetanMonthNames)-1)
	dayNum := tibetanDayOfYear%tibetanMonthDays + 1

	monthName := tibetanMonthNames[monthIdx]
	dayName := TibetanDayName(dayNum)
	observance, merit := ObservanceFor(dayNum)

	return TibetanDateRecord{
		Label:           yearName + " " + monthName + dayName,
		YearName:        yearName,
		MonthName:       monthName,
		DayName:         dayName,
		DayNumber:       dayNum,
		Weekday:         weekdayNames[date.Weekday()],
		Constellation:   lunarMansions[(dayNum-1)%len(lunarMansions)],
		YogaName:        yogaNames[(dayNum-1)%len(yogaNames)],
		Observance:      observance,
		MeritMultiplier: merit,
		Auspicious:      auspiciousPractices(dayNum),
		Inauspicious:    inauspiciousPractices(dayNum),
		Haircut:         HaircutAdvice(dayNum),
		WindHorse:       WindHorseAdvice(dayNum),
	}
}

var digitNames = [10]string{"", "一", "二", "三", "四", "五", "六", "七", "八", "九"}

// TibetanDayName renders a day number 1..30 in the traditional form.
func TibetanDayName(day int) string {
	switch {
	case day == 10:
		return "初十"
	case day == 20:
		return "二十"
	case day >= 30:
		return "三十"
	case day < 1:
		return ""
	case day < 10:
		return "初" + digitNames[day]
	case day < 20:
		return "十" + digitNames[day-10]
	default:
		return "廿" + digitNames[day-20]
	}
}

// ObservanceFor returns the feast-day label and merit multiplier for a
// Tibetan day number, or empty strings when the day has none.
func ObservanceFor(day int) (observance, merit string) {
	observance, ok := observanceDays[day]
	if !ok {
		return "", ""
	}
	return observance, MeritMultiplier(observance)
}

// MeritMultiplier extracts the trailing "成X倍" clause of an observance label.
func MeritMultiplier(label string) string {
	if m := meritRe.FindStringSubmatch(label); m != nil {
		return m[1]
	}
	return ""
}

func auspiciousPractices(day int) []string {
	switch {
	case slices.Contains(practiceDays, day):
		return []string{"修法", "供養", "放生", "佈施", "持咒", "誦經"}
	case slices.Contains(groomingDays, day):
		return []string{"剪髮", "沐浴", "修房", "遷居"}
	default:
		return []string{"日常修持", "行善積德"}
	}
}

func inauspiciousPractices(day int) []string {
	switch {
	case slices.Contains(cautionDays, day):
		return []string{"重要決策", "簽約", "遠行"}
	case slices.Contains(restraintDays, day):
		return []string{"殺生", "飲酒", "爭執"}
	default:
		return []string{}
	}
}

// HaircutAdvice returns the traditional outcome of cutting hair on a Tibetan day.
func HaircutAdvice(day int) string {
	if v, ok := haircutAdvice[day]; ok {
		return v
	}
	return haircutOrdinary
}

// WindHorseAdvice rates a Tibetan day for hanging prayer flags.
func WindHorseAdvice(day int) string {
	switch {
	case slices.Contains(practiceDays, day):
		return "極吉：懸掛經幡、升起風馬，功德倍增"
	case slices.Contains(groomingDays, day):
		return "吉：適合懸掛新經幡"
	case slices.Contains(cautionDays, day):
		return "不宜：暫緩懸掛"
	default:
		return "平常日：可懸掛"
	}
}
