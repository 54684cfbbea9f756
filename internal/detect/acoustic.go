package detect

import "context"

// Acoustic thresholds above which a voice sample votes Distressed on its
// own, without any transcript.
const (
	volumeThreshold = 0.7
	pitchThreshold  = 250
)

// AcousticScorer votes on raw volume/pitch features. It is the fallback
// voter that still works when every classifier model failed to load.
type AcousticScorer struct{}

// NewAcousticScorer creates the threshold-based acoustic scorer.
func NewAcousticScorer() *AcousticScorer { return &AcousticScorer{} }

// Name implements Scorer.
func (a *AcousticScorer) Name() string { return "acoustic" }

// Available implements Scorer.
func (a *AcousticScorer) Available() bool { return true }

// Score votes Distressed when volume or pitch exceed their thresholds,
// Neutral otherwise (including when neither feature was supplied).
func (a *AcousticScorer) Score(_ context.Context, s Sample) SignalVerdict {
	if (s.Volume != nil && *s.Volume > volumeThreshold) || (s.Pitch != nil && *s.Pitch > pitchThreshold) {
		return SignalVerdict{
			Source:     a.Name(),
			Label:      LabelDistressed,
			Confidence: ConfidenceEmotion,
			Detail:     "volume/pitch over threshold",
		}
	}
	return SignalVerdict{Source: a.Name(), Label: LabelNeutral, Confidence: ConfidenceNone}
}
