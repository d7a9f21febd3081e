package analyzer

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// TopKeywords is how many rows the keyword table shows
const TopKeywords = 20

var (
	lineBreakRe   = regexp.MustCompile(`[\n\r]`)
	digitRe       = regexp.MustCompile(`[0-9０-９]`)
	punctuationRe = regexp.MustCompile(`[、。,.!！?？"“”'’・/()（）【】『』\[\]{}]`)
	// matches what a JavaScript \s matches, which is wider than RE2's
	whitespaceRe = regexp.MustCompile(`[\s\x{000B}\p{Zs}\x{2028}\x{2029}\x{FEFF}]+`)
)

// Tokens that survive cleaning but are never words: colon look-alikes and
// fragments of inline scripts.
var keywordStoplist = map[string]struct{}{
	":":        {},
	"：":        {},
	"::":       {},
	"const":    {},
	"function": {},
	"var":      {},
	"=>":       {},
	"===":      {},
	"&&":       {},
	"||":       {},
}

// KeywordFrequency counts tokens in body text, remembering the order in
// which each token was first seen.
type KeywordFrequency struct {
	counts map[string]int
	order  []string
}

// ExtractKeywords tokenizes text and counts every kept token.
// Counting is case-sensitive.
func ExtractKeywords(text string) *KeywordFrequency {
	kf := &KeywordFrequency{counts: make(map[string]int)}
	for _, token := range tokenize(text) {
		if _, seen := kf.counts[token]; !seen {
			kf.order = append(kf.order, token)
		}
		kf.counts[token]++
	}
	return kf
}

func tokenize(text string) []string {
	cleaned := lineBreakRe.ReplaceAllString(text, " ")
	cleaned = digitRe.ReplaceAllString(cleaned, "")
	cleaned = punctuationRe.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(whitespaceRe.ReplaceAllString(cleaned, " "))
	if cleaned == "" {
		return nil
	}

	tokens := make([]string, 0)
	for _, word := range strings.Split(cleaned, " ") {
		if keepToken(word) {
			tokens = append(tokens, word)
		}
	}
	return tokens
}

// keepToken drops tokens under two characters, which also removes every
// single Latin letter, and anything on the stoplist.
func keepToken(word string) bool {
	if utf8.RuneCountInString(word) < 2 {
		return false
	}
	_, stop := keywordStoplist[word]
	return !stop
}

// Counts returns a copy of the full token to count mapping
func (kf *KeywordFrequency) Counts() map[string]int {
	counts := make(map[string]int, len(kf.counts))
	for token, n := range kf.counts {
		counts[token] = n
	}
	return counts
}

// Len is the number of distinct tokens
func (kf *KeywordFrequency) Len() int {
	return len(kf.order)
}

// Top returns the n most frequent tokens. Ties keep first-seen order.
func (kf *KeywordFrequency) Top(n int) []KeywordCount {
	rows := make([]KeywordCount, 0, len(kf.order))
	for _, token := range kf.order {
		rows = append(rows, KeywordCount{Word: token, Count: kf.counts[token]})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Count > rows[j].Count
	})

	if n >= 0 && n < len(rows) {
		rows = rows[:n]
	}
	return rows
}
