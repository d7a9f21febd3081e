package analyzer

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type intentRule struct {
	category    IntentCategory
	label       string
	triggers    []string
	explanation string
}

// intentRules are tried in order; the first rule with a matching trigger wins
var intentRules = []intentRule{
	{
		category:    IntentKnow,
		label:       "Know",
		triggers:    []string{"とは", "意味", "方法", "やり方", "相場"},
		explanation: "The searcher wants to learn about something.",
	},
	{
		category:    IntentDo,
		label:       "Do",
		triggers:    []string{"予約", "申込み", "査定", "問い合わせ"},
		explanation: "The searcher wants to take an action.",
	},
	{
		category:    IntentGo,
		label:       "Go",
		triggers:    []string{"店舗", "アクセス", "営業時間"},
		explanation: "The searcher is looking for a place or how to get there.",
	},
	{
		category:    IntentBuy,
		label:       "Buy",
		triggers:    []string{"購入", "買う", "料金", "値段"},
		explanation: "The searcher has a strong intent to purchase.",
	},
}

var (
	unclassifiedIntent = IntentResult{
		Category:    IntentUnclassified,
		Label:       "Unclassified",
		Explanation: "No keyword was entered.",
	}
	generalIntent = IntentResult{
		Category:    IntentKnow,
		Label:       "Know",
		Explanation: "A general information-gathering search.",
	}
)

// ClassifyIntent maps a keyword to a search-intent category
func ClassifyIntent(keyword string) IntentResult {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return unclassifiedIntent
	}

	lowered := cases.Lower(language.Und).String(keyword)
	for _, rule := range intentRules {
		for _, trigger := range rule.triggers {
			if strings.Contains(lowered, trigger) {
				return IntentResult{
					Category:    rule.category,
					Label:       rule.label,
					Explanation: rule.explanation,
				}
			}
		}
	}

	return generalIntent
}
