package detect

import (
	"testing"
	"time"

	"github.com/nhle/inbox-calendar/internal/model"
)

func testScorer(cfg model.DetectorConfig) *Scorer {
	return NewScorer(cfg).WithClock(func() time.Time { return testNow })
}

func TestScoreAcceptsMeetingMail(t *testing.T) {
	s := testScorer(model.DetectorConfig{})

	res := s.Score(model.Message{
		ID:      "msg-1",
		Subject: "Team Meeting Tomorrow",
		Body:    "Let's schedule a call for tomorrow at 2 PM.",
	})

	if !res.IsEvent {
		t.Fatalf("expected an event, confidence = %f", res.Confidence)
	}
	if res.Confidence < 0.99 || res.Confidence > 1.0 {
		t.Fatalf("confidence = %f, want 1.0", res.Confidence)
	}

	cand := res.Candidate
	if cand == nil {
		t.Fatal("candidate is nil")
	}
	if cand.SourceMessageID != "msg-1" {
		t.Errorf("source message id = %q", cand.SourceMessageID)
	}
	if cand.Title != "Team Meeting Tomorrow" {
		t.Errorf("title = %q", cand.Title)
	}
	if cand.Status != model.StatusPending {
		t.Errorf("status = %q, want pending", cand.Status)
	}

	wantStart := time.Date(2025, time.June, 2, 14, 0, 0, 0, time.UTC)
	if !cand.StartTime.Equal(wantStart) {
		t.Errorf("start = %v, want %v", cand.StartTime, wantStart)
	}
	if !cand.EndTime.Equal(wantStart.Add(time.Hour)) {
		t.Errorf("end = %v, want start + 1h", cand.EndTime)
	}
}

func TestScoreRejectsNewsletter(t *testing.T) {
	s := testScorer(model.DetectorConfig{})

	res := s.Score(model.Message{
		ID:      "msg-2",
		Subject: "Weekly Digest",
		Body:    "Top stories: new product launches and an interview.",
	})

	if res.IsEvent {
		t.Fatalf("newsletter scored as event: %+v", res.Candidate)
	}
	if res.Candidate != nil {
		t.Fatal("rejected result carries a candidate")
	}
	if res.Confidence != 0 {
		t.Errorf("confidence = %f, want 0", res.Confidence)
	}
}

func TestScoreRejectsDateWithoutKeywords(t *testing.T) {
	s := testScorer(model.DetectorConfig{})

	res := s.Score(model.Message{
		ID:   "msg-3",
		Body: "see the attached report from 2025-06-05",
	})

	if res.IsEvent {
		t.Fatal("date alone should not produce an event")
	}
	if res.Confidence < 0.39 || res.Confidence > 0.41 {
		t.Errorf("confidence = %f, want ~0.4", res.Confidence)
	}
}

func TestScoreRejectsKeywordsWithoutDate(t *testing.T) {
	s := testScorer(model.DetectorConfig{})

	res := s.Score(model.Message{
		ID:   "msg-4",
		Body: "meeting notes: call summary, conference recap, schedule talk",
	})

	// Keyword score saturates, but with no extractable date the
	// candidate is rejected regardless of confidence.
	if res.IsEvent {
		t.Fatalf("dateless message scored as event: %+v", res.Candidate)
	}
}

func TestScoreDefaultTitle(t *testing.T) {
	s := testScorer(model.DetectorConfig{})

	res := s.Score(model.Message{
		ID:   "msg-5",
		Body: "schedule a quick call and a meeting tomorrow at 2 pm",
	})

	if !res.IsEvent {
		t.Fatalf("expected an event, confidence = %f", res.Confidence)
	}
	if res.Candidate.Title != "New Event" {
		t.Errorf("title = %q, want New Event", res.Candidate.Title)
	}
}

func TestScoreCustomKeywordsAndThreshold(t *testing.T) {
	s := testScorer(model.DetectorConfig{
		Threshold: 0.3,
		Keywords:  []string{"standup"},
	})

	res := s.Score(model.Message{
		ID:      "msg-6",
		Subject: "Standup",
		Body:    "daily standup tomorrow at 9 am",
	})

	if !res.IsEvent {
		t.Fatalf("expected an event, confidence = %f", res.Confidence)
	}
	if res.Confidence > 1.0 {
		t.Errorf("confidence = %f exceeds 1.0", res.Confidence)
	}
}
