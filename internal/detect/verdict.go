package detect

// Label is the three-way emotion scheme every signal source maps into.
type Label string

const (
	// LabelNeutral means no opinion, or a calm signal.
	LabelNeutral Label = "neutral"

	// LabelPositive means a clearly non-distressed signal.
	LabelPositive Label = "positive"

	// LabelDistressed means the source asserts distress.
	LabelDistressed Label = "distressed"
)

// Fused-confidence policy. Fixed constants per decision path, on purpose:
// callers and alert history expose these values, so changing them is a
// product decision, not a tuning knob.
const (
	ConfidenceKeyword = 0.9
	ConfidenceEmotion = 0.7
	ConfidenceNone    = 0.2
)

// SignalVerdict is one source's partial opinion about a sample.
type SignalVerdict struct {
	Source     string  `json:"source"`
	Label      Label   `json:"label"`
	Confidence float64 `json:"confidence"`
	Detail     string  `json:"detail,omitempty"`
}

// DetectionResult is the fused decision for one analysis request.
type DetectionResult struct {
	Transcript       string           `json:"transcript"`
	DistressDetected bool             `json:"distress_detected"`
	Confidence       float64          `json:"confidence"`
	Emotion          string           `json:"emotion"`
	Reason           string           `json:"reason"`
	Votes            map[string]Label `json:"votes"`
}

// Sample is one analysis input. Volume and Pitch are optional acoustic
// features extracted upstream; Audio carries raw samples when the request
// came from the audio endpoint.
type Sample struct {
	Transcript string
	Volume     *float64
	Pitch      *float64
	Audio      []float32
	SampleRate int
}
