package accuracy

import (
	"math"
	"testing"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestScore_ExactMatch(t *testing.T) {
	report := Score("the quick brown fox", "the quick brown fox")

	if !approx(report.MatchScore, 1) {
		t.Errorf("Expected match score 1, got %f", report.MatchScore)
	}
	if !approx(report.WER, 0) {
		t.Errorf("Expected WER 0, got %f", report.WER)
	}
	if !approx(report.CER, 0) {
		t.Errorf("Expected CER 0, got %f", report.CER)
	}
}

func TestScore_WhitespaceNormalized(t *testing.T) {
	report := Score("  the   quick\nbrown fox ", "the quick brown fox")

	if !approx(report.MatchScore, 1) {
		t.Errorf("Expected normalization to remove whitespace differences, got score %f", report.MatchScore)
	}
	if !approx(report.WER, 0) {
		t.Errorf("Expected WER 0 after normalization, got %f", report.WER)
	}
}

func TestScore_EmptyExpected(t *testing.T) {
	report := Score("", "whatever came out")
	if report != (Report{}) {
		t.Errorf("Expected zero report for empty transcript, got %+v", report)
	}

	report = Score("   \n\t ", "whatever")
	if report != (Report{}) {
		t.Errorf("Expected zero report for whitespace-only transcript, got %+v", report)
	}
}

func TestScore_CompleteMismatch(t *testing.T) {
	report := Score("aaaa", "bbbb")

	if !approx(report.MatchScore, 0) {
		t.Errorf("Expected match score 0 for disjoint strings, got %f", report.MatchScore)
	}
	if !approx(report.CER, 1) {
		t.Errorf("Expected CER 1, got %f", report.CER)
	}
}

func TestScore_PartialMatch(t *testing.T) {
	// One substitution out of five characters.
	report := Score("hello", "hallo")

	if !approx(report.MatchScore, 0.8) {
		t.Errorf("Expected match score 0.8, got %f", report.MatchScore)
	}
	if !approx(report.CER, 0.2) {
		t.Errorf("Expected CER 0.2, got %f", report.CER)
	}
}

func TestScore_EmptyRecognition(t *testing.T) {
	report := Score("hello world", "")

	if !approx(report.MatchScore, 0) {
		t.Errorf("Expected match score 0 for empty recognition, got %f", report.MatchScore)
	}
	if report.CER <= 0 {
		t.Errorf("Expected positive CER, got %f", report.CER)
	}
}

func TestScore_BoundedScores(t *testing.T) {
	// Recognition far longer than the reference must not push scores
	// outside their ranges.
	report := Score("hi", "a very long unrelated stream of recognized words")

	if report.MatchScore < 0 || report.MatchScore > 1 {
		t.Errorf("Match score out of range: %f", report.MatchScore)
	}
}
