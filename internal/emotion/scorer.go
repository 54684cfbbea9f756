package emotion

import (
	"context"
	"math"
	"os"
	"path/filepath"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/beacon/internal/detect"
)

// Inference is the model surface the scorer needs; *Model implements it.
type Inference interface {
	Labels() []string
	Infer(features []float32) ([]float32, error)
}

// Scorer adapts one emotion classifier to the detection engine's voting
// interface. A scorer whose model failed to load reports itself as
// unavailable and is skipped by the engine.
type Scorer struct {
	name   string
	model  Inference
	mapper LabelMap
	logger log.Logger
}

// NewScorer wraps a loaded model. model may be nil for a classifier that
// could not be loaded.
func NewScorer(name string, model Inference, mapper LabelMap, logger log.Logger) *Scorer {
	if logger == nil {
		logger = log.Nop()
	}
	return &Scorer{name: name, model: model, mapper: mapper, logger: logger}
}

func (s *Scorer) Name() string { return s.name }

// Available reports whether the underlying model loaded.
func (s *Scorer) Available() bool { return s.model != nil }

// Score classifies the sample's audio. Inference failures degrade to a
// neutral vote rather than breaking the detection pass.
func (s *Scorer) Score(ctx context.Context, sample detect.Sample) detect.SignalVerdict {
	neutral := detect.SignalVerdict{Source: s.name, Label: detect.LabelNeutral}
	if s.model == nil || len(sample.Audio) == 0 {
		return neutral
	}

	logits, err := s.model.Infer(sample.Audio)
	if err != nil {
		s.logger.Error(ctx, err, "emotion inference failed, voting neutral", "classifier", s.name)
		return neutral
	}

	idx, prob := argmaxSoftmax(logits)
	labels := s.model.Labels()
	if idx < 0 || idx >= len(labels) {
		return neutral
	}
	raw := labels[idx]

	return detect.SignalVerdict{
		Source:     s.name,
		Label:      s.mapper.Map(raw),
		Confidence: prob,
		Detail:     raw,
	}
}

// argmaxSoftmax returns the winning index and its softmax probability.
func argmaxSoftmax(logits []float32) (int, float64) {
	if len(logits) == 0 {
		return -1, 0
	}
	best := 0
	for i, v := range logits {
		if v > logits[best] {
			best = i
		}
	}

	var sum float64
	for _, v := range logits {
		sum += math.Exp(float64(v - logits[best]))
	}
	return best, 1 / sum
}

// bundle describes one of the known classifier bundles under the model
// directory.
type bundle struct {
	name     string
	file     string
	inputLen int
	mapper   LabelMap
}

var bundles = []bundle{
	{name: "crema", file: "crema.onnx", inputLen: 53, mapper: CremaLabelMap},
	{name: "ravdess", file: "ravdess.onnx", inputLen: 40, mapper: RavdessLabelMap},
	{name: "wav2vec2", file: "wav2vec2.onnx", inputLen: 16000, mapper: Wav2Vec2LabelMap},
}

// LoadScorers opens every classifier bundle found under modelDir, in the
// fixed vote priority order. Bundles that are missing or fail to load
// still yield a scorer, marked unavailable, so the vote roster is stable.
func LoadScorers(modelDir string, logger log.Logger) []*Scorer {
	if logger == nil {
		logger = log.Nop()
	}
	ctx := context.Background()

	out := make([]*Scorer, 0, len(bundles))
	for _, b := range bundles {
		path := filepath.Join(modelDir, b.name, b.file)
		if modelDir == "" {
			out = append(out, NewScorer(b.name, nil, b.mapper, logger))
			continue
		}
		if _, err := os.Stat(path); err != nil {
			logger.Info(ctx, "emotion model not found, classifier disabled",
				"classifier", b.name, "path", path)
			out = append(out, NewScorer(b.name, nil, b.mapper, logger))
			continue
		}
		m, err := LoadModel(ModelConfig{ModelPath: path, InputLen: b.inputLen})
		if err != nil {
			logger.Error(ctx, err, "emotion model failed to load, classifier disabled",
				"classifier", b.name)
			out = append(out, NewScorer(b.name, nil, b.mapper, logger))
			continue
		}
		logger.Info(ctx, "emotion model loaded", "classifier", b.name, "path", path)
		out = append(out, NewScorer(b.name, m, b.mapper, logger))
	}
	return out
}
