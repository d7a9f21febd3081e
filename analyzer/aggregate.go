package analyzer

import "strings"

// MaxScore is the ceiling of the headline score; the basic weights sum to it
const MaxScore = 100

// Score bands, matching the colours of the radial score chart
const (
	BandGood = "good"
	BandFair = "fair"
	BandPoor = "poor"
)

// basicAspects are the only aspects summed into the headline score
var basicAspects = []Aspect{
	AspectTitle,
	AspectDescription,
	AspectH1,
	AspectAltCoverage,
	AspectStructuredData,
	AspectCanonical,
	AspectOGImage,
}

// commentClause is the sentence picked for one aspect depending on whether
// it reached its good tier.
type commentClause struct {
	aspect Aspect
	weak   string
	fine   string
}

var commentClauses = []commentClause{
	{AspectTitle, "the title has room for improvement.", "the title is well chosen."},
	{AspectDescription, " Optimizing the meta description would help.", " The meta description is in good shape."},
	{AspectH1, " The H1 tag needs attention.", " The H1 is set appropriately."},
	{AspectAltCoverage, " Some images are missing alt text.", ""},
	{AspectInternalLinks, " Internal links are lacking.", " Internal linking is adequate."},
	{AspectBodyLength, " The body text is on the thin side.", " The body text is sufficient."},
	{AspectIndexability, " The indexing directives need a look.", ""},
}

const (
	commentOpening = "Overall, "
	commentClosing = " On the whole, the SEO basics are in place."
)

// TotalScore sums the basic aspect scores
func TotalScore(results map[Aspect]SignalResult) int {
	total := 0
	for _, aspect := range basicAspects {
		total += results[aspect].Score
	}
	return total
}

// PriorityFor maps a sub-score to how urgently it should be fixed
func PriorityFor(score int) Priority {
	switch {
	case score == 0:
		return PriorityHigh
	case score <= 10:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// BandFor places a headline score into the chart's colour band
func BandFor(total int) string {
	switch {
	case total >= 80:
		return BandGood
	case total >= 40:
		return BandFair
	default:
		return BandPoor
	}
}

// SummaryComment builds the closing remark from the sub-score pattern.
// Clause order is fixed, so equal inputs always give an equal comment.
func SummaryComment(results map[Aspect]SignalResult) string {
	var b strings.Builder
	b.WriteString(commentOpening)
	for _, c := range commentClauses {
		if results[c.aspect].Status == StatusGood {
			b.WriteString(c.fine)
		} else {
			b.WriteString(c.weak)
		}
	}
	b.WriteString(commentClosing)
	return b.String()
}

// BuildReport aggregates per-aspect results into a report
func BuildReport(results map[Aspect]SignalResult) DiagnosticReport {
	priorities := make(map[Aspect]Priority, len(results))
	for aspect, result := range results {
		priorities[aspect] = PriorityFor(result.Score)
	}

	total := TotalScore(results)
	return DiagnosticReport{
		TotalScore:       total,
		MaxScore:         MaxScore,
		Band:             BandFor(total),
		Results:          results,
		PriorityByAspect: priorities,
		SummaryComment:   SummaryComment(results),
	}
}
