package analyzer

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func TestExtractKeywordsCleansText(t *testing.T) {
	text := "Go 2024年 Go、言語。A b ｂ ＡＢ const 東京\n東京 (テスト) テスト １２３ : ： \"quoted\""
	kf := ExtractKeywords(text)

	want := []KeywordCount{
		{"Go", 2},
		{"東京", 2},
		{"テスト", 2},
		{"言語", 1},
		{"ＡＢ", 1},
		{"quoted", 1},
	}
	if got := kf.Top(TopKeywords); !reflect.DeepEqual(got, want) {
		t.Fatalf("top = %v\nwant  %v", got, want)
	}

	counts := kf.Counts()
	for _, dropped := range []string{"", "A", "b", "ｂ", "年", "const", ":", "：", "2024年", "１２３"} {
		if _, ok := counts[dropped]; ok {
			t.Errorf("token %q should have been dropped", dropped)
		}
	}
}

func TestExtractKeywordsNeverEmitsEmptyToken(t *testing.T) {
	for _, text := range []string{"", "   ", "123 ４５６", "。、！？", "A", "a\n\r\nb"} {
		kf := ExtractKeywords(text)
		if kf.Len() != 0 {
			t.Errorf("ExtractKeywords(%q) = %v, want nothing", text, kf.Counts())
		}
	}
}

func TestExtractKeywordsIsCaseSensitive(t *testing.T) {
	counts := ExtractKeywords("Go go GO go").Counts()
	want := map[string]int{"Go": 1, "go": 2, "GO": 1}
	if !reflect.DeepEqual(counts, want) {
		t.Fatalf("counts = %v, want %v", counts, want)
	}
}

func TestTopKeepsFirstSeenOrderOnTies(t *testing.T) {
	kf := ExtractKeywords("beta alpha beta alpha gamma delta gamma")
	want := []KeywordCount{{"beta", 2}, {"alpha", 2}, {"gamma", 2}, {"delta", 1}}
	if got := kf.Top(10); !reflect.DeepEqual(got, want) {
		t.Fatalf("top = %v, want %v", got, want)
	}
}

func TestTopIsCapped(t *testing.T) {
	var words []string
	for i := 0; i < 25; i++ {
		words = append(words, fmt.Sprintf("word%c%c", 'a'+i%26, 'a'+i/26))
	}
	kf := ExtractKeywords(strings.Join(words, " "))
	if kf.Len() != 25 {
		t.Fatalf("distinct tokens = %d, want 25", kf.Len())
	}
	if got := len(kf.Top(TopKeywords)); got != TopKeywords {
		t.Fatalf("top rows = %d, want %d", got, TopKeywords)
	}
}

func TestIdeographicSpaceSplitsTokens(t *testing.T) {
	counts := ExtractKeywords("検索　意図").Counts()
	if counts["検索"] != 1 || counts["意図"] != 1 {
		t.Fatalf("counts = %v", counts)
	}
}

func TestUnicodeSeparatorsSplitTokens(t *testing.T) {
	for _, sep := range []string{"\v", "\u2028", "\u2029", "\u00a0", "\ufeff"} {
		counts := ExtractKeywords("検索" + sep + "意図").Counts()
		if counts["検索"] != 1 || counts["意図"] != 1 || len(counts) != 2 {
			t.Errorf("separator %q: counts = %v", sep, counts)
		}
	}
}
