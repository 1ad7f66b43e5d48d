package rag

import "math"

// defaultCharsPerToken is a conservative ratio for English prose.
const defaultCharsPerToken = 3.5

// TokenEstimator estimates token counts from text length. Exact tokenization
// lives on the inference server; a chars-per-token ratio is close enough for
// budget logging and output caps.
type TokenEstimator struct {
	charsPerToken float64
}

// NewTokenEstimator creates an estimator with the default ratio.
func NewTokenEstimator() *TokenEstimator {
	return &TokenEstimator{charsPerToken: defaultCharsPerToken}
}

// Estimate returns the approximate token count of text.
func (e *TokenEstimator) Estimate(text string) int {
	if len(text) == 0 {
		return 0
	}
	return int(math.Ceil(float64(len(text)) / e.charsPerToken))
}
