package detect

import (
	"context"
	"fmt"

	"github.com/linnemanlabs/go-core/log"
)

// Engine runs every available scorer over a sample and fuses the verdicts
// into one DetectionResult. The keyword scorer is held apart from the
// voters: keyword evidence is the most trustworthy source and short-circuits
// the emotion vote.
type Engine struct {
	keywords *KeywordScorer
	voters   *Registry
	logger   log.Logger
}

// NewEngine creates a fusion engine. The registry's order is the classifier
// priority order used to break emotion-vote ties.
func NewEngine(keywords *KeywordScorer, voters *Registry, logger log.Logger) *Engine {
	if logger == nil {
		logger = log.Nop()
	}
	return &Engine{
		keywords: keywords,
		voters:   voters,
		logger:   logger,
	}
}

// Analyze scores the sample with every available source and fuses the
// verdicts. It never fails: sources that cannot form an opinion vote
// Neutral.
func (e *Engine) Analyze(ctx context.Context, s Sample) DetectionResult {
	keyword := e.keywords.Score(ctx, s)

	var votes []SignalVerdict
	for _, sc := range e.voters.Scorers() {
		if !sc.Available() {
			continue
		}
		votes = append(votes, sc.Score(ctx, s))
	}

	result := Fuse(s.Transcript, keyword, votes)

	e.logger.Info(ctx, "analysis complete",
		"distress_detected", result.DistressDetected,
		"confidence", result.Confidence,
		"emotion", result.Emotion,
		"reason", result.Reason,
	)
	return result
}

// Fuse combines the keyword verdict and the ordered emotion votes into one
// decision. Policy, first match wins:
//
//  1. keyword Distressed -> detected at ConfidenceKeyword, reason names the
//     matched term
//  2. emotion vote Distressed -> detected at ConfidenceEmotion
//  3. otherwise -> not detected, ConfidenceNone
//
// Votes must be in classifier priority order; ties in the emotion tally are
// broken by the earliest vote holding a tied label.
func Fuse(transcript string, keyword SignalVerdict, votes []SignalVerdict) DetectionResult {
	emotion := emotionVote(votes)

	perSource := make(map[string]Label, len(votes)+1)
	perSource[keyword.Source] = keyword.Label
	for _, v := range votes {
		perSource[v.Source] = v.Label
	}

	result := DetectionResult{
		Transcript: transcript,
		Emotion:    string(emotion),
		Votes:      perSource,
	}

	switch {
	case keyword.Label == LabelDistressed:
		result.DistressDetected = true
		result.Confidence = ConfidenceKeyword
		result.Reason = fmt.Sprintf("keyword: '%s'", keyword.Detail)
	case emotion == LabelDistressed:
		result.DistressDetected = true
		result.Confidence = ConfidenceEmotion
		result.Reason = fmt.Sprintf("emotion: '%s'", emotion)
	default:
		result.Confidence = ConfidenceNone
		result.Reason = "no keyword"
	}
	return result
}

// emotionVote tallies vote labels and returns the majority, breaking ties
// by priority order. No votes at all means Neutral.
func emotionVote(votes []SignalVerdict) Label {
	if len(votes) == 0 {
		return LabelNeutral
	}

	counts := make(map[Label]int, 3)
	for _, v := range votes {
		counts[v.Label]++
	}

	best := 0
	for _, n := range counts {
		if n > best {
			best = n
		}
	}

	// First vote in priority order whose label holds the top count wins.
	for _, v := range votes {
		if counts[v.Label] == best {
			return v.Label
		}
	}
	return LabelNeutral
}
