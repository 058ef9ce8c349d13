// Package tokens estimates the token footprint of request text.
//
// Estimates are heuristic: roughly four characters per token for natural
// language, with an upward correction for code-heavy text. Exact counts
// depend on each provider's tokenizer and are out of scope here; the router
// only needs a capacity-comparable figure.
package tokens

import (
	"math"
	"strings"
	"unicode/utf8"
)

// Provenance records how a context estimate was obtained.
type Provenance string

const (
	// ProvenanceMeasured marks counts supplied by the caller (e.g. from a
	// fragment pipeline that already counted its context).
	ProvenanceMeasured Provenance = "measured"

	// ProvenanceHeuristic marks counts derived from the text itself.
	ProvenanceHeuristic Provenance = "heuristic"
)

// ContextEstimate is an approximate token count for a request.
type ContextEstimate struct {
	Tokens     int        `json:"tokens"`
	Provenance Provenance `json:"provenance"`
}

const (
	// DefaultCharsPerToken is the character-to-token ratio for natural
	// language text. Roughly four characters equal one token.
	DefaultCharsPerToken = 4

	// DefaultCodeMultiplier corrects for code-heavy text, which tokenizes
	// denser than prose.
	DefaultCodeMultiplier = 1.2

	// DefaultProjectFloor is the minimum estimate applied when the request
	// references an external multi-file project. The literal prompt
	// under-represents the true workload in that case.
	DefaultProjectFloor = 50000
)

// EstimateOptions carries caller-supplied signals about the request text.
type EstimateOptions struct {
	// IsCode marks the text as code regardless of the heuristic.
	IsCode bool

	// LargeProject marks the request as referencing an external multi-file
	// project rather than inline text.
	LargeProject bool
}

// Estimator turns raw text into an approximate token count. The zero value
// is not usable; construct with NewEstimator.
type Estimator struct {
	charsPerToken  int
	codeMultiplier float64
	projectFloor   int
}

// NewEstimator creates an estimator with the default ratio, multiplier and
// floor.
func NewEstimator() *Estimator {
	return NewEstimatorWith(DefaultCharsPerToken, DefaultCodeMultiplier, DefaultProjectFloor)
}

// NewEstimatorWith creates an estimator with a custom character-to-token
// ratio, code multiplier and large-project floor. Non-positive values fall
// back to the defaults.
func NewEstimatorWith(charsPerToken int, codeMultiplier float64, projectFloor int) *Estimator {
	if charsPerToken <= 0 {
		charsPerToken = DefaultCharsPerToken
	}
	if codeMultiplier <= 0 {
		codeMultiplier = DefaultCodeMultiplier
	}
	if projectFloor <= 0 {
		projectFloor = DefaultProjectFloor
	}
	return &Estimator{
		charsPerToken:  charsPerToken,
		codeMultiplier: codeMultiplier,
		projectFloor:   projectFloor,
	}
}

// Estimate computes an approximate token count for text. The result is
// always at least 1; empty text estimates to 1. Pure function, safe for
// concurrent use.
func (e *Estimator) Estimate(text string, opts EstimateOptions) ContextEstimate {
	runes := utf8.RuneCountInString(text)
	count := int(math.Ceil(float64(runes) / float64(e.charsPerToken)))

	if opts.IsCode || LooksTechnical(text) {
		count = int(math.Ceil(float64(count) * e.codeMultiplier))
	}

	if opts.LargeProject && count < e.projectFloor {
		count = e.projectFloor
	}

	if count < 1 {
		count = 1
	}

	return ContextEstimate{Tokens: count, Provenance: ProvenanceHeuristic}
}

// Measured wraps a caller-supplied token count as a measured estimate.
// Non-positive counts are clamped to 1.
func Measured(tokens int) ContextEstimate {
	if tokens < 1 {
		tokens = 1
	}
	return ContextEstimate{Tokens: tokens, Provenance: ProvenanceMeasured}
}

// technicalThreshold is the proportion of code-like lines above which text
// is treated as technical content.
const technicalThreshold = 0.3

// LooksTechnical reports whether text reads like code rather than prose,
// based on the proportion of lines with code-like punctuation density.
func LooksTechnical(text string) bool {
	if text == "" {
		return false
	}

	lines := strings.Split(text, "\n")
	var nonEmpty, codeLike int
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		nonEmpty++
		if isCodeLike(trimmed) {
			codeLike++
		}
	}

	if nonEmpty == 0 {
		return false
	}
	return float64(codeLike)/float64(nonEmpty) >= technicalThreshold
}

// isCodeLike reports whether a single line carries the punctuation density
// typical of source code.
func isCodeLike(line string) bool {
	var punct int
	for _, r := range line {
		switch r {
		case '{', '}', '(', ')', '[', ']', ';', '=', '<', '>', ':', '/', '*', '#':
			punct++
		}
	}
	if punct == 0 {
		return false
	}
	return float64(punct)/float64(utf8.RuneCountInString(line)) >= 0.05
}
