// Package domain models Chinese almanac (黃曆) records and their approximate
// Tibetan-calendar projection.
//
// # Data Source
//
// Almanac pages come from a public almanac site keyed by date
// (https://www.goodaytw.com/YYYY-MM-DD). The markup is unversioned and has
// drifted over time, so [Parse] reads it through three views, strict to loose:
//
//	1. <dt>label</dt><dd>value</dd> definition pairs (goquery)
//	2. the same pairs matched directly in the raw markup
//	3. label-anchored patterns over the flattened page text
//
// Each field has an ordered extractor chain; the first extractor that yields a
// usable value wins and a missing field takes a fixed default. Parsing never
// fails.
//
// # Almanac Conventions
//
// Stem-branch labels:
//
//	Two characters from the sexagenary cycle, a heavenly stem (甲乙丙丁戊己庚辛壬癸)
//	then an earthly branch (子丑寅卯辰巳午未申酉戌亥), suffixed with 年, 月 or 日.
//	The year label may carry the zodiac animal: "乙巳蛇年".
//
// Double-hours:
//
//	The day has 12 two-hour blocks named after the branches, starting with
//	子 at 23:00-01:00. Lucky hours (吉時) are listed as single branch glyphs.
//
// List fields:
//
//	Activities and spirits are separated by 、 ， , · or whitespace. The closing
//	phrase 餘事勿取 ("nothing else recommended") is not an activity and is dropped.
//
// Directions:
//
//	Compass labels are normalized to end in 方: "東北" → "東北方".
//
// # Tibetan Projection
//
// [ConvertTibetan] is a documented approximation, not a lunisolar calendar:
// day-of-year plus 45, modulo 360, split into twelve 30-day months. It has no
// leap months or leap days. The constellation (28) and yoga (27) cycles and
// the observance table are keyed by the resulting day number. Keep the
// arithmetic stable; cached and fixture output depends on it.
package domain
