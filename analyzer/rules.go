package analyzer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Thresholds are the product tuning constants behind every ladder
type Thresholds struct {
	TitleMinChars        int
	TitleMaxChars        int
	DescriptionMinChars  int
	DescriptionMaxChars  int
	AltMissingRatio      float64
	LinksGood            int
	BodyCautionChars     int
	BodyGoodChars        int
	SizeAttrMissingRatio float64
	LazyGoodRatio        float64
	ResourceCaution      int
	ResourcePoor         int
	HTMLGoodBytes        int
	HTMLCautionBytes     int
}

// DefaultThresholds returns the cutoffs the service ships with
func DefaultThresholds() Thresholds {
	return Thresholds{
		TitleMinChars:        30,
		TitleMaxChars:        60,
		DescriptionMinChars:  80,
		DescriptionMaxChars:  180,
		AltMissingRatio:      0.3,
		LinksGood:            5,
		BodyCautionChars:     300,
		BodyGoodChars:        800,
		SizeAttrMissingRatio: 0.3,
		LazyGoodRatio:        0.5,
		ResourceCaution:      10,
		ResourcePoor:         20,
		HTMLGoodBytes:        100 * 1024,
		HTMLCautionBytes:     300 * 1024,
	}
}

// measure is the quantity a ladder is evaluated against
type measure struct {
	n     int
	total int
	text  string
	ok    bool
}

// step is one rung of a ladder. The first rung whose when matches wins.
type step struct {
	when    func(m measure, t Thresholds) bool
	status  Status
	score   int
	message func(m measure, t Thresholds) string
}

type rule struct {
	aspect  Aspect
	label   string
	group   Group
	measure func(s DocumentSignals) measure
	detail  func(m measure) string
	steps   []step
}

func always(measure, Thresholds) bool { return true }

func fixed(msg string) func(measure, Thresholds) string {
	return func(measure, Thresholds) string { return msg }
}

func counted(format string) func(measure, Thresholds) string {
	return func(m measure, _ Thresholds) string { return fmt.Sprintf(format, m.n) }
}

func textOrNone(m measure) string {
	if m.text == "" {
		return NotFound
	}
	return m.text
}

// exceedsShare reports whether part is more than ratio of whole
func exceedsShare(part, whole int, ratio float64) bool {
	return float64(part) > float64(whole)*ratio
}

// ruleTable holds every aspect check in report order. Adding an aspect
// means adding an entry here.
var ruleTable = []rule{
	{
		aspect:  AspectTitle,
		label:   "Title",
		group:   GroupBasic,
		measure: func(s DocumentSignals) measure { return measure{n: utf8.RuneCountInString(s.Title), text: s.Title} },
		detail:  textOrNone,
		steps: []step{
			{func(m measure, _ Thresholds) bool { return m.text == "" }, StatusPoor, 0, fixed("The page has no title.")},
			{func(m measure, t Thresholds) bool { return m.n < t.TitleMinChars }, StatusCaution, 10, func(_ measure, t Thresholds) string {
				return fmt.Sprintf("The title is too short (%d-%d characters recommended).", t.TitleMinChars, t.TitleMaxChars)
			}},
			{func(m measure, t Thresholds) bool { return m.n > t.TitleMaxChars }, StatusCaution, 10, fixed("The title is too long and will be truncated in search results.")},
			{always, StatusGood, 20, fixed("The title length is good.")},
		},
	},
	{
		aspect: AspectDescription,
		label:  "Description",
		group:  GroupBasic,
		measure: func(s DocumentSignals) measure {
			return measure{n: utf8.RuneCountInString(s.Description), text: s.Description}
		},
		detail: textOrNone,
		steps: []step{
			{func(m measure, _ Thresholds) bool { return m.text == "" }, StatusPoor, 0, fixed("The page has no meta description.")},
			{func(m measure, t Thresholds) bool { return m.n < t.DescriptionMinChars }, StatusCaution, 10, fixed("The meta description is too short.")},
			{func(m measure, t Thresholds) bool { return m.n > t.DescriptionMaxChars }, StatusCaution, 10, fixed("The meta description is too long.")},
			{always, StatusGood, 20, fixed("The meta description length is good.")},
		},
	},
	{
		aspect:  AspectH1,
		label:   "H1",
		group:   GroupBasic,
		measure: func(s DocumentSignals) measure { return measure{n: s.H1Count, text: s.H1Text} },
		detail:  textOrNone,
		steps: []step{
			{func(m measure, _ Thresholds) bool { return m.n == 0 }, StatusPoor, 0, fixed("The page has no H1 tag.")},
			{func(m measure, _ Thresholds) bool { return m.n > 1 }, StatusCaution, 10, counted("The page has %d H1 tags.")},
			{always, StatusGood, 15, fixed("The H1 is set correctly.")},
		},
	},
	{
		aspect: AspectAltCoverage,
		label:  "Image alt",
		group:  GroupBasic,
		measure: func(s DocumentSignals) measure {
			missing := 0
			for _, img := range s.Images {
				if !img.HasAlt {
					missing++
				}
			}
			return measure{n: missing, total: len(s.Images)}
		},
		detail: func(m measure) string { return fmt.Sprintf("Missing: %d of %d", m.n, m.total) },
		steps: []step{
			{func(m measure, _ Thresholds) bool { return m.n == 0 }, StatusGood, 15, fixed("Every image has alt text.")},
			{func(m measure, t Thresholds) bool { return !exceedsShare(m.n, m.total, t.AltMissingRatio) }, StatusCaution, 7, counted("%d images have no alt text.")},
			{always, StatusPoor, 0, counted("%d images have no alt text.")},
		},
	},
	{
		aspect: AspectStructuredData,
		label:  "Structured data (JSON-LD)",
		group:  GroupBasic,
		measure: func(s DocumentSignals) measure {
			return measure{n: len(s.StructuredDataTypes), text: strings.Join(s.StructuredDataTypes, ", ")}
		},
		detail: textOrNone,
		steps: []step{
			{func(m measure, _ Thresholds) bool { return m.n >= 1 }, StatusGood, 15, counted("%d structured data types detected.")},
			{always, StatusPoor, 0, fixed("No structured data detected.")},
		},
	},
	{
		aspect:  AspectCanonical,
		label:   "Canonical",
		group:   GroupBasic,
		measure: func(s DocumentSignals) measure { return measure{text: s.CanonicalURL} },
		detail:  textOrNone,
		steps: []step{
			{func(m measure, _ Thresholds) bool { return m.text != "" }, StatusGood, 10, fixed("A canonical URL is declared.")},
			{always, StatusPoor, 0, fixed("No canonical URL is declared.")},
		},
	},
	{
		aspect:  AspectOGImage,
		label:   "OGP (og:image)",
		group:   GroupBasic,
		measure: func(s DocumentSignals) measure { return measure{text: s.OGImage} },
		detail:  textOrNone,
		steps: []step{
			{func(m measure, _ Thresholds) bool { return m.text != "" }, StatusGood, 5, fixed("An og:image is set.")},
			{always, StatusPoor, 0, fixed("No og:image is set.")},
		},
	},
	{
		aspect: AspectHeadingHierarchy,
		label:  "Heading structure",
		group:  GroupAdvanced,
		measure: func(s DocumentSignals) measure {
			ok := true
			seq := s.HeadingTagSequence
			for i := 0; i+1 < len(seq); i++ {
				if seq[i+1]-seq[i] > 1 {
					ok = false
				}
			}
			return measure{n: len(seq), ok: ok}
		},
		detail: func(m measure) string { return fmt.Sprintf("%d headings", m.n) },
		steps: []step{
			{func(m measure, _ Thresholds) bool { return m.n <= 1 }, StatusPoor, 0, fixed("The page has too few headings.")},
			{func(m measure, _ Thresholds) bool { return m.ok }, StatusGood, 15, fixed("The heading hierarchy is well ordered.")},
			{always, StatusCaution, 7, fixed("The heading hierarchy skips levels.")},
		},
	},
	{
		aspect:  AspectInternalLinks,
		label:   "Internal links",
		group:   GroupAdvanced,
		measure: func(s DocumentSignals) measure { return measure{n: s.AnchorCount} },
		detail:  func(m measure) string { return fmt.Sprintf("%d links", m.n) },
		steps: []step{
			{func(m measure, _ Thresholds) bool { return m.n == 0 }, StatusPoor, 0, fixed("The page has no internal links.")},
			{func(m measure, t Thresholds) bool { return m.n < t.LinksGood }, StatusCaution, 7, counted("The page has few internal links (%d).")},
			{always, StatusGood, 15, counted("The page has enough internal links (%d).")},
		},
	},
	{
		aspect: AspectBodyLength,
		label:  "Body text",
		group:  GroupAdvanced,
		measure: func(s DocumentSignals) measure {
			n := 0
			for _, r := range s.BodyPlainText {
				if !unicode.IsSpace(r) {
					n++
				}
			}
			return measure{n: n}
		},
		detail: func(m measure) string { return fmt.Sprintf("%d characters", m.n) },
		steps: []step{
			{func(m measure, t Thresholds) bool { return m.n < t.BodyCautionChars }, StatusPoor, 0, counted("The body text is far too short (%d characters).")},
			{func(m measure, t Thresholds) bool { return m.n < t.BodyGoodChars }, StatusCaution, 7, counted("The body text is on the short side (%d characters).")},
			{always, StatusGood, 15, counted("The body text is sufficient (%d characters).")},
		},
	},
	{
		aspect:  AspectIndexability,
		label:   "noindex / nofollow",
		group:   GroupAdvanced,
		measure: func(s DocumentSignals) measure { return measure{text: s.RobotsDirective} },
		detail:  textOrNone,
		steps: []step{
			{func(m measure, _ Thresholds) bool { return containsFold(m.text, "noindex") }, StatusPoor, 0, fixed("The page is marked noindex.")},
			{func(m measure, _ Thresholds) bool { return containsFold(m.text, "nofollow") }, StatusCaution, 7, fixed("The page is marked nofollow.")},
			{always, StatusGood, 15, fixed("The page can be indexed.")},
		},
	},
	{
		aspect: AspectImageSizeAttrs,
		label:  "Image size attributes",
		group:  GroupTechnical,
		measure: func(s DocumentSignals) measure {
			missing := 0
			for _, img := range s.Images {
				if !img.HasWidth || !img.HasHeight {
					missing++
				}
			}
			return measure{n: missing, total: len(s.Images)}
		},
		detail: func(m measure) string { return fmt.Sprintf("Missing: %d of %d", m.n, m.total) },
		steps: []step{
			{func(m measure, _ Thresholds) bool { return m.n == 0 }, StatusGood, 15, fixed("Every image has width and height.")},
			{func(m measure, t Thresholds) bool { return !exceedsShare(m.n, m.total, t.SizeAttrMissingRatio) }, StatusCaution, 7, counted("%d images lack size attributes.")},
			{always, StatusPoor, 0, counted("%d images have no size attributes.")},
		},
	},
	{
		aspect: AspectLazyLoad,
		label:  "Lazy loading",
		group:  GroupTechnical,
		measure: func(s DocumentSignals) measure {
			lazy := 0
			for _, img := range s.Images {
				if img.IsLazy {
					lazy++
				}
			}
			return measure{n: lazy, total: len(s.Images)}
		},
		detail: func(m measure) string { return fmt.Sprintf("Lazy: %d of %d", m.n, m.total) },
		steps: []step{
			{func(m measure, _ Thresholds) bool { return m.total == 0 }, StatusGood, 15, fixed("The page has no images to lazy-load.")},
			{func(m measure, _ Thresholds) bool { return m.n == 0 }, StatusPoor, 0, fixed("No images use lazy loading.")},
			{func(m measure, t Thresholds) bool { return float64(m.n) < float64(m.total)*t.LazyGoodRatio }, StatusCaution, 7, counted("Only some images use lazy loading (%d).")},
			{always, StatusGood, 15, fixed("Lazy loading is applied well.")},
		},
	},
	{
		aspect: AspectResourceCount,
		label:  "CSS / JS resources",
		group:  GroupTechnical,
		measure: func(s DocumentSignals) measure {
			return measure{
				n:    s.StylesheetCount + s.ScriptWithSrcCount,
				text: fmt.Sprintf("CSS: %d / JS: %d", s.StylesheetCount, s.ScriptWithSrcCount),
			}
		},
		detail: textOrNone,
		steps: []step{
			{func(m measure, t Thresholds) bool { return m.n > t.ResourcePoor }, StatusPoor, 0, counted("Too many external resources (%d).")},
			{func(m measure, t Thresholds) bool { return m.n > t.ResourceCaution }, StatusCaution, 7, counted("Somewhat many external resources (%d).")},
			{always, StatusGood, 15, counted("The number of external resources is fine (%d).")},
		},
	},
	{
		aspect:  AspectHTMLSize,
		label:   "HTML size",
		group:   GroupTechnical,
		measure: func(s DocumentSignals) measure { return measure{n: s.SerializedHTMLByteSize} },
		detail:  func(m measure) string { return fmt.Sprintf("%d KB", (m.n+512)/1024) },
		steps: []step{
			{func(m measure, t Thresholds) bool { return m.n < t.HTMLGoodBytes }, StatusGood, 15, fixed("The page weight is light.")},
			{func(m measure, t Thresholds) bool { return m.n < t.HTMLCautionBytes }, StatusCaution, 7, fixed("The page is a little heavy.")},
			{always, StatusPoor, 0, fixed("The page is heavy.")},
		},
	},
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), substr)
}

// Aspects lists every checked aspect in report order
func Aspects() []Aspect {
	aspects := make([]Aspect, len(ruleTable))
	for i, r := range ruleTable {
		aspects[i] = r.aspect
	}
	return aspects
}

// Evaluate runs every rule against the signals. Each rule is total and
// independent of the others.
func Evaluate(signals DocumentSignals, t Thresholds) map[Aspect]SignalResult {
	results := make(map[Aspect]SignalResult, len(ruleTable))
	for _, r := range ruleTable {
		results[r.aspect] = r.evaluate(signals, t)
	}
	return results
}

func (r rule) evaluate(signals DocumentSignals, t Thresholds) SignalResult {
	m := r.measure(signals)
	for _, s := range r.steps {
		if !s.when(m, t) {
			continue
		}
		return SignalResult{
			Label:   r.label,
			Group:   r.group,
			Status:  s.status,
			Message: s.message(m, t),
			Detail:  r.detail(m),
			Score:   s.score,
		}
	}
	// unreachable: every ladder ends with an always rung
	return SignalResult{Label: r.label, Group: r.group, Status: StatusPoor, Detail: r.detail(m)}
}
