package analyzer

// Status is the verdict of a single aspect check
type Status string

const (
	StatusGood    Status = "good"
	StatusCaution Status = "caution"
	StatusPoor    Status = "poor"
)

// Priority is the urgency derived from an aspect's score
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Group tells whether an aspect counts toward the headline score
type Group string

const (
	GroupBasic     Group = "basic"
	GroupAdvanced  Group = "advanced"
	GroupTechnical Group = "technical"
)

// Aspect names one independently scored facet of a document
type Aspect string

const (
	AspectTitle            Aspect = "title"
	AspectDescription      Aspect = "description"
	AspectH1               Aspect = "h1"
	AspectAltCoverage      Aspect = "altCoverage"
	AspectStructuredData   Aspect = "structuredData"
	AspectCanonical        Aspect = "canonical"
	AspectOGImage          Aspect = "ogImage"
	AspectHeadingHierarchy Aspect = "headingHierarchy"
	AspectInternalLinks    Aspect = "internalLinks"
	AspectBodyLength       Aspect = "bodyLength"
	AspectIndexability     Aspect = "indexability"
	AspectImageSizeAttrs   Aspect = "imageSizeAttrs"
	AspectLazyLoad         Aspect = "lazyLoad"
	AspectResourceCount    Aspect = "resourceCount"
	AspectHTMLSize         Aspect = "htmlSize"
)

// NotFound is shown in place of a missing value
const NotFound = "none"

// ImageSignal holds the attributes of one <img> that the checks care about
type ImageSignal struct {
	HasAlt    bool `json:"hasAlt"`
	HasWidth  bool `json:"hasWidth"`
	HasHeight bool `json:"hasHeight"`
	IsLazy    bool `json:"isLazy"`
}

// DocumentSignals is the snapshot of raw facts read once from a document.
// Empty strings mean the facet is absent.
type DocumentSignals struct {
	Title                  string        `json:"title"`
	Description            string        `json:"description"`
	H1Text                 string        `json:"h1Text"`
	H1Count                int           `json:"h1Count"`
	HeadingTagSequence     []int         `json:"headingTagSequence"`
	Images                 []ImageSignal `json:"images"`
	StructuredDataTypes    []string      `json:"structuredDataTypes"`
	CanonicalURL           string        `json:"canonicalUrl"`
	OGTitle                string        `json:"ogTitle"`
	OGDescription          string        `json:"ogDescription"`
	OGImage                string        `json:"ogImage"`
	AnchorCount            int           `json:"anchorCount"`
	BodyPlainText          string        `json:"-"`
	RobotsDirective        string        `json:"robotsDirective"`
	StylesheetCount        int           `json:"stylesheetCount"`
	ScriptWithSrcCount     int           `json:"scriptWithSrcCount"`
	SerializedHTMLByteSize int           `json:"serializedHtmlByteSize"`
}

// SignalResult is the outcome of one aspect check
type SignalResult struct {
	Label   string `json:"label"`
	Group   Group  `json:"group"`
	Status  Status `json:"status"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
	Score   int    `json:"score"`
}

// DiagnosticReport aggregates the per-aspect results of one run
type DiagnosticReport struct {
	TotalScore       int                     `json:"totalScore"`
	MaxScore         int                     `json:"maxScore"`
	Band             string                  `json:"band"`
	Results          map[Aspect]SignalResult `json:"results"`
	PriorityByAspect map[Aspect]Priority     `json:"priorityByAspect"`
	SummaryComment   string                  `json:"summaryComment"`
}

// KeywordCount is one row of the ranked keyword table
type KeywordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// IntentCategory is a search-intent class
type IntentCategory string

const (
	IntentUnclassified IntentCategory = "unclassified"
	IntentKnow         IntentCategory = "know"
	IntentDo           IntentCategory = "do"
	IntentGo           IntentCategory = "go"
	IntentBuy          IntentCategory = "buy"
)

// IntentResult is the classification of a keyword
type IntentResult struct {
	Category    IntentCategory `json:"category"`
	Label       string         `json:"label"`
	Explanation string         `json:"explanation"`
}

// Result is everything one diagnostic run produces
type Result struct {
	URL           string           `json:"url,omitempty"`
	Keyword       string           `json:"keyword"`
	Report        DiagnosticReport `json:"report"`
	Keywords      []KeywordCount   `json:"keywords"`
	KeywordCounts map[string]int   `json:"keywordCounts"`
	Intent        IntentResult     `json:"intent"`
	Suggestions   []string         `json:"suggestions"`
}
