package detect

import (
	"context"
	"regexp"
	"strings"
)

// DefaultVocabulary is the distress vocabulary used when no override is
// configured.
var DefaultVocabulary = []string{"help", "fire", "stop", "danger", "emergency", "hurt", "attack"}

// KeywordScorer matches a transcript against a fixed distress vocabulary.
// Matching is case-insensitive and whole-word only: "helper" must not match
// "help".
type KeywordScorer struct {
	terms    []string
	patterns []*regexp.Regexp
}

// NewKeywordScorer compiles whole-word patterns for each vocabulary term.
// An empty vocabulary falls back to DefaultVocabulary.
func NewKeywordScorer(vocabulary []string) *KeywordScorer {
	if len(vocabulary) == 0 {
		vocabulary = DefaultVocabulary
	}
	k := &KeywordScorer{}
	for _, term := range vocabulary {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		k.terms = append(k.terms, term)
		k.patterns = append(k.patterns, regexp.MustCompile(`\b`+regexp.QuoteMeta(term)+`\b`))
	}
	return k
}

// Name implements Scorer.
func (k *KeywordScorer) Name() string { return "keywords" }

// Available implements Scorer. The vocabulary is static, so the scorer is
// always available.
func (k *KeywordScorer) Available() bool { return len(k.terms) > 0 }

// Score reports Distressed with the matched term in Detail if any
// vocabulary word appears as a whole word in the transcript.
func (k *KeywordScorer) Score(_ context.Context, s Sample) SignalVerdict {
	transcript := strings.ToLower(s.Transcript)
	for i, p := range k.patterns {
		if p.MatchString(transcript) {
			return SignalVerdict{
				Source:     k.Name(),
				Label:      LabelDistressed,
				Confidence: ConfidenceKeyword,
				Detail:     k.terms[i],
			}
		}
	}
	return SignalVerdict{Source: k.Name(), Label: LabelNeutral, Confidence: ConfidenceNone}
}
