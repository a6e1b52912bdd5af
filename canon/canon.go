// Package canon implements the fixed text-normalization pipeline applied to
// both queries and documents before embedding and tokenization.
package canon

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// CodeSentinel replaces fenced or indented code blocks in the canonical form.
const CodeSentinel = "⟪code⟫"

var (
	atxHeading     = regexp.MustCompile(`(?m)^[ \t]{0,3}#{1,6}[ \t]*(.*?)[ \t]*#*[ \t]*$`)
	setextHeading  = regexp.MustCompile(`(?m)^(.+)\n[ \t]{0,3}(=+|-+)[ \t]*$`)
	boldItalic     = regexp.MustCompile(`(\*\*\*|___|\*\*|__|\*|_|~~)`)
	fencedCode     = regexp.MustCompile("(?s)```.*?```|~~~.*?~~~")
	indentedCode   = regexp.MustCompile(`(?m)^(?: {4}|\t)[ \t]*\S.*$(?:\n(?: {4}|\t).*$)*`)
	importLine     = regexp.MustCompile(`(?i)^\s*(import\s|from\s.+\simport\b|#include\b|use\s)`)
	whitespaceRuns = regexp.MustCompile(`\s+`)
)

// Canonicalize normalizes text into the comparable canonical form consumed
// by both embedders and the lexical tokenizer. It is idempotent.
func Canonicalize(text string) string {
	s := norm.NFC.String(text)

	s = setextHeading.ReplaceAllString(s, "$1")
	s = atxHeading.ReplaceAllString(s, "$1")

	s = boldItalic.ReplaceAllString(s, "")

	s = fencedCode.ReplaceAllString(s, CodeSentinel)
	s = indentedCode.ReplaceAllString(s, CodeSentinel)

	s = dropImportRuns(s)

	s = whitespaceRuns.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// dropImportRuns removes any contiguous run of 3 or more lines that each
// look like an import-style declaration.
func dropImportRuns(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))

	i := 0
	for i < len(lines) {
		if importLine.MatchString(lines[i]) {
			j := i
			for j < len(lines) && importLine.MatchString(lines[j]) {
				j++
			}
			if j-i >= 3 {
				i = j
				continue
			}
		}
		out = append(out, lines[i])
		i++
	}
	return strings.Join(out, "\n")
}
