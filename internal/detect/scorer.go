package detect

import (
	"time"

	"github.com/nhle/inbox-calendar/internal/model"
)

// keywordSaturation is the match count at which the keyword score
// reaches its maximum.
const keywordSaturation = 3.0

// Result is the outcome of scoring a single message.
type Result struct {
	// IsEvent reports whether the message cleared the confidence
	// threshold and produced a candidate.
	IsEvent bool

	// Confidence is the combined heuristic score in [0.0, 1.0],
	// populated whether or not the message was accepted.
	Confidence float64

	// Candidate is the structured extraction, nil unless IsEvent.
	Candidate *model.EventCandidate
}

// Scorer turns raw messages into event candidates using keyword
// density and date extraction. Scoring is side-effect free and never
// fails: degenerate input simply scores low.
type Scorer struct {
	keywords  map[string]struct{}
	threshold float64
	now       func() time.Time
}

// NewScorer creates a Scorer from detector configuration. Empty
// keyword lists fall back to DefaultKeywords; a zero threshold falls
// back to 0.6.
func NewScorer(cfg model.DetectorConfig) *Scorer {
	words := cfg.Keywords
	if len(words) == 0 {
		words = DefaultKeywords
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}

	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = 0.6
	}

	return &Scorer{
		keywords:  set,
		threshold: threshold,
		now:       time.Now,
	}
}

// WithClock overrides the scorer's time source. Used by tests to make
// relative dates like "tomorrow" deterministic.
func (s *Scorer) WithClock(now func() time.Time) *Scorer {
	s.now = now
	return s
}

// Score evaluates one message. The keyword score saturates at three
// matches; the date score is binary on extraction success. A candidate
// is produced only when confidence clears the threshold AND a date was
// extracted — a date alone is never sufficient.
func (s *Scorer) Score(msg model.Message) Result {
	matches := 0
	for tok := range Normalize(msg.Subject, msg.Body) {
		if _, ok := s.keywords[tok]; ok {
			matches++
		}
	}

	keywordScore := float64(matches) / keywordSaturation
	if keywordScore > 1.0 {
		keywordScore = 1.0
	}

	now := s.now()
	start, dateFound := ExtractTime(msg.Subject+" "+msg.Body, now)

	dateScore := 0.0
	if dateFound {
		dateScore = 1.0
	}

	confidence := 0.6*keywordScore + 0.4*dateScore
	if confidence > 1.0 {
		confidence = 1.0
	}

	if confidence < s.threshold || !dateFound {
		return Result{Confidence: confidence}
	}

	title := msg.Subject
	if title == "" {
		title = "New Event"
	}

	return Result{
		IsEvent:    true,
		Confidence: confidence,
		Candidate: &model.EventCandidate{
			SourceMessageID: msg.ID,
			Title:           title,
			Description:     msg.Body,
			StartTime:       start,
			EndTime:         start.Add(time.Hour),
			Confidence:      confidence,
			Status:          model.StatusPending,
			DetectedAt:      now,
		},
	}
}
