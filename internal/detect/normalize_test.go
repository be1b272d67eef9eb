package detect

import (
	"slices"
	"testing"
)

func TestNormalizeDropsStopwords(t *testing.T) {
	got := slices.Collect(Normalize("The Meeting", "is about the budget"))
	want := []string{"meeting", "budget"}
	if !slices.Equal(got, want) {
		t.Fatalf("tokens = %v, want %v", got, want)
	}
}

func TestNormalizeLowercasesAndSplits(t *testing.T) {
	got := slices.Collect(Normalize("Project-Kickoff CALL", ""))
	want := []string{"project", "kickoff", "call"}
	if !slices.Equal(got, want) {
		t.Fatalf("tokens = %v, want %v", got, want)
	}
}

func TestNormalizeKeepsApostrophes(t *testing.T) {
	// "let's" is a stop-word; "team's" is content.
	got := slices.Collect(Normalize("", "let's review the team's schedule"))
	want := []string{"review", "team's", "schedule"}
	if !slices.Equal(got, want) {
		t.Fatalf("tokens = %v, want %v", got, want)
	}
}

func TestNormalizeEmptyInput(t *testing.T) {
	if got := slices.Collect(Normalize("", "")); len(got) != 0 {
		t.Fatalf("tokens = %v, want none", got)
	}
}

func TestNormalizeStopsEarly(t *testing.T) {
	count := 0
	for range Normalize("one two three four", "") {
		count++
		if count == 2 {
			break
		}
	}
	if count != 2 {
		t.Fatalf("consumed %d tokens, want 2", count)
	}
}
