package intent

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	MinKeywordRunes = 2
	MaxKeywordRunes = 20
)

// fillerPhrases are stripped from a seat question before the remainder is
// used as a guest name.
var fillerPhrases = []string{
	"我要找", "幫我找", "請幫我找", "找一下", "查一下", "查詢", "查",
	"請問", "問", "麻煩", "謝謝", "你好", "您好",
	"座位", "位置", "位子", "座", "位", "桌", "第幾桌", "哪一桌", "哪桌", "幾桌",
	"坐在哪裡", "坐在哪", "在哪裡", "在哪", "坐哪裡", "坐哪",
	"我的", "我座", "我坐", "我", "的", "的位子", "的座位", "嗎", "呢",
}

var (
	fillerPattern = buildAlternation(fillerPhrases)

	// Keep letters, digits, marks, underscore, CJK ideographs, whitespace,
	// hyphen and period.
	disallowedChars = regexp.MustCompile(`[^\p{L}\p{N}\p{M}_\s.\-\x{4e00}-\x{9fff}]`)
)

// buildAlternation joins phrases longest first so that a long phrase such as
// 坐哪裡 is removed whole instead of leaving 裡 behind after 坐哪 matches.
func buildAlternation(phrases []string) *regexp.Regexp {
	sorted := make([]string, len(phrases))
	copy(sorted, phrases)
	sort.SliceStable(sorted, func(i, j int) bool {
		return utf8.RuneCountInString(sorted[i]) > utf8.RuneCountInString(sorted[j])
	})
	quoted := make([]string, len(sorted))
	for i, p := range sorted {
		quoted[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile(strings.Join(quoted, "|"))
}

// ExtractKeyword pulls a candidate guest name out of a seat question. The
// boolean is false when nothing usable is left, which callers treat
// differently from a name that matches no guest.
func ExtractKeyword(text string) (string, bool) {
	text = fillerPattern.ReplaceAllString(text, "")
	text = disallowedChars.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)

	if !ValidKeywordLength(text) {
		return "", false
	}
	return text, true
}

// ValidKeywordLength reports whether keyword is between MinKeywordRunes and
// MaxKeywordRunes characters long.
func ValidKeywordLength(keyword string) bool {
	n := utf8.RuneCountInString(keyword)
	return n >= MinKeywordRunes && n <= MaxKeywordRunes
}
