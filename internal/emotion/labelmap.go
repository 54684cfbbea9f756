package emotion

import "github.com/linnemanlabs/beacon/internal/detect"

// LabelMap folds a model's native emotion vocabulary into the three-way
// vote labels. Unknown emotions map to neutral.
type LabelMap map[string]detect.Label

// Map resolves a raw model label.
func (m LabelMap) Map(raw string) detect.Label {
	if mapped, ok := m[raw]; ok {
		return mapped
	}
	return detect.LabelNeutral
}

// CremaLabelMap covers the CREMA-D emotion set.
var CremaLabelMap = LabelMap{
	"neutral":  detect.LabelNeutral,
	"happy":    detect.LabelPositive,
	"sad":      detect.LabelDistressed,
	"angry":    detect.LabelDistressed,
	"fear":     detect.LabelDistressed,
	"disgust":  detect.LabelDistressed,
	"surprise": detect.LabelPositive,
}

// RavdessLabelMap covers the RAVDESS emotion set, which adds "calm".
var RavdessLabelMap = LabelMap{
	"neutral":  detect.LabelNeutral,
	"calm":     detect.LabelNeutral,
	"happy":    detect.LabelPositive,
	"sad":      detect.LabelDistressed,
	"angry":    detect.LabelDistressed,
	"fear":     detect.LabelDistressed,
	"disgust":  detect.LabelDistressed,
	"surprise": detect.LabelPositive,
}

// Wav2Vec2LabelMap covers the xlsr speech emotion model's output classes.
var Wav2Vec2LabelMap = LabelMap{
	"neutral":   detect.LabelNeutral,
	"calm":      detect.LabelPositive,
	"angry":     detect.LabelDistressed,
	"disgust":   detect.LabelDistressed,
	"fearful":   detect.LabelDistressed,
	"sad":       detect.LabelDistressed,
	"happy":     detect.LabelPositive,
	"surprised": detect.LabelPositive,
}
