// Package qclass classifies a canonicalized query by shape so the fusion
// stage can pick lexical/semantic weights.
package qclass

import (
	"regexp"
	"strings"
)

// Class labels a canonicalized query by shape.
type Class int

const (
	// Empty means the canonical string has no non-space characters.
	Empty Class = iota
	// Identifier means the query matches an identifier or ticker shape.
	Identifier
	// Short means non-empty, non-Identifier, at most 3 tokens.
	Short
	// NaturalLanguage is everything else non-empty.
	NaturalLanguage
)

func (c Class) String() string {
	switch c {
	case Empty:
		return "Empty"
	case Identifier:
		return "Identifier"
	case Short:
		return "Short"
	case NaturalLanguage:
		return "NaturalLanguage"
	default:
		return "Unknown"
	}
}

var (
	identifierShape = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_./-]*$`)
	tickerShape     = regexp.MustCompile(`^[A-Z]{1,5}$`)
)

// Classify assigns exactly one Class to a canonical query string.
func Classify(canonQuery string) Class {
	if strings.TrimSpace(canonQuery) == "" {
		return Empty
	}

	if isIdentifier(canonQuery) {
		return Identifier
	}

	tokens := strings.Fields(canonQuery)
	if len(tokens) <= 3 {
		return Short
	}

	return NaturalLanguage
}

func isIdentifier(s string) bool {
	if strings.ContainsAny(s, " \t\n\r") {
		return false
	}
	if identifierShape.MatchString(s) {
		return true
	}
	return tickerShape.MatchString(s)
}

// Weights returns the (lexical, semantic) fusion weights for a class.
// Empty has no defined weights; callers must short-circuit before fusion.
func Weights(c Class) (lexical, semantic float64) {
	switch c {
	case Identifier:
		return 0.7, 0.3
	case Short:
		return 0.5, 0.5
	case NaturalLanguage:
		return 0.3, 0.7
	default:
		return 0, 0
	}
}
