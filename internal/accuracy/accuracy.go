// Package accuracy scores recognized text against a caller-supplied expected
// transcript. Scores travel in result metadata and never affect dispatch.
package accuracy

import (
	"strings"

	"github.com/arbovm/levenshtein"
	"github.com/codycollier/wer"
)

// Report carries the comparison scores for one recognition result.
type Report struct {
	MatchScore float64 `json:"match_score"`
	WER        float64 `json:"word_error_rate"`
	CER        float64 `json:"character_error_rate"`
}

// Score compares recognized text against the expected transcript. Both sides
// are whitespace-normalized before comparison; an empty expected transcript
// yields the zero report.
func Score(expected, recognized string) Report {
	expected = normalize(expected)
	recognized = normalize(recognized)
	if expected == "" {
		return Report{}
	}

	return Report{
		MatchScore: matchScore(expected, recognized),
		WER:        wordErrorRate(expected, recognized),
		CER:        characterErrorRate(expected, recognized),
	}
}

// matchScore is 1 minus the normalized character edit distance, clamped to [0,1].
func matchScore(expected, recognized string) float64 {
	dist := levenshtein.Distance(expected, recognized)
	longest := len([]rune(expected))
	if l := len([]rune(recognized)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 1
	}
	score := 1 - float64(dist)/float64(longest)
	if score < 0 {
		return 0
	}
	return score
}

func wordErrorRate(expected, recognized string) float64 {
	ref := strings.Fields(expected)
	hyp := strings.Fields(recognized)
	rate, _ := wer.WER(ref, hyp)
	return rate
}

// characterErrorRate is the character edit distance over the reference length.
func characterErrorRate(expected, recognized string) float64 {
	refLen := len([]rune(expected))
	if refLen == 0 {
		return 0
	}
	return float64(levenshtein.Distance(expected, recognized)) / float64(refLen)
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
