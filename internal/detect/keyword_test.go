package detect

import (
	"context"
	"testing"
)

func TestKeywordScorer_WholeWordOnly(t *testing.T) {
	t.Parallel()

	k := NewKeywordScorer(nil)

	tests := []struct {
		transcript string
		want       Label
		detail     string
	}{
		{"please help me", LabelDistressed, "help"},
		{"the helper arrived", LabelNeutral, ""},
		{"HELP!", LabelDistressed, "help"},
		{"there is a fire downstairs", LabelDistressed, "fire"},
		{"fireplace is warm", LabelNeutral, ""},
		{"", LabelNeutral, ""},
		{"a lovely afternoon", LabelNeutral, ""},
	}

	for _, tt := range tests {
		t.Run(tt.transcript, func(t *testing.T) {
			t.Parallel()

			v := k.Score(context.Background(), Sample{Transcript: tt.transcript})
			if v.Label != tt.want {
				t.Errorf("label = %q, want %q", v.Label, tt.want)
			}
			if v.Detail != tt.detail {
				t.Errorf("detail = %q, want %q", v.Detail, tt.detail)
			}
		})
	}
}

func TestKeywordScorer_CustomVocabulary(t *testing.T) {
	t.Parallel()

	k := NewKeywordScorer([]string{"mayday"})

	v := k.Score(context.Background(), Sample{Transcript: "mayday mayday"})
	if v.Label != LabelDistressed {
		t.Fatalf("label = %q, want distressed", v.Label)
	}
	if v.Detail != "mayday" {
		t.Errorf("detail = %q, want %q", v.Detail, "mayday")
	}

	v = k.Score(context.Background(), Sample{Transcript: "please help me"})
	if v.Label != LabelNeutral {
		t.Errorf("default vocabulary should not apply with an override, got %q", v.Label)
	}
}

func TestAcousticScorer_Thresholds(t *testing.T) {
	t.Parallel()

	a := NewAcousticScorer()

	loud := 0.8
	quiet := 0.3
	high := 300.0
	low := 180.0

	if v := a.Score(context.Background(), Sample{Volume: &loud}); v.Label != LabelDistressed {
		t.Errorf("loud volume: label = %q, want distressed", v.Label)
	}
	if v := a.Score(context.Background(), Sample{Pitch: &high}); v.Label != LabelDistressed {
		t.Errorf("high pitch: label = %q, want distressed", v.Label)
	}
	if v := a.Score(context.Background(), Sample{Volume: &quiet, Pitch: &low}); v.Label != LabelNeutral {
		t.Errorf("quiet and low: label = %q, want neutral", v.Label)
	}
	if v := a.Score(context.Background(), Sample{}); v.Label != LabelNeutral {
		t.Errorf("no features: label = %q, want neutral", v.Label)
	}
}
