package render

import "unicode"

const (
	// Baseline reading speed for prose, in words per minute.
	baseWordsPerMinute = 200
	// Each step of technical difficulty slows the reader down by this many words per minute.
	difficultyPenalty = 25
	// Posts here are technical writing of moderate difficulty.
	technicalDifficulty = 2
)

// ReadTime estimates the minutes needed to read text, truncated to a whole minute.
// Very short texts estimate to 0.
func ReadTime(text []byte) int {
	return ReadTimeWithDifficulty(text, technicalDifficulty)
}

func ReadTimeWithDifficulty(text []byte, difficulty int) int {
	wpm := baseWordsPerMinute - difficultyPenalty*difficulty
	if wpm < difficultyPenalty {
		wpm = difficultyPenalty
	}

	seconds := CountWords(text) * 60 / wpm
	return seconds / 60
}

// CountWords counts runs of non-space characters.
func CountWords(text []byte) int {
	words := 0
	inWord := false
	for _, r := range string(text) {
		if unicode.IsSpace(r) {
			inWord = false
			continue
		}
		if !inWord {
			words++
			inWord = true
		}
	}
	return words
}
