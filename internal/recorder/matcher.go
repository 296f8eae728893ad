package recorder

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// SimilarityThreshold is the minimum token-Jaccard score accepted by the fuzzy tier
const SimilarityThreshold = 0.8

const previewLength = 80

// normalizePrompt is the canonical form hashed into promptHash
func normalizePrompt(text string) string {
	return strings.TrimSpace(norm.NFC.String(text))
}

// HashPrompt computes the content fingerprint of a prompt.
// It depends on the prompt text only.
func HashPrompt(prompt string) string {
	hash := sha256.Sum256([]byte(normalizePrompt(prompt)))
	return hex.EncodeToString(hash[:])
}

// HashContext fingerprints the scope a prompt was issued in
func HashContext(callerID, callKind, context string) string {
	hash := sha256.Sum256([]byte(callerID + "|" + callKind + "|" + normalizePrompt(context)))
	return hex.EncodeToString(hash[:])
}

// ShortHash returns the first 8 chars of a fingerprint (keeps diagnostics readable)
func ShortHash(hash string) string {
	if len(hash) <= 8 {
		return hash
	}
	return hash[:8]
}

// Tokenize splits text on whitespace after Unicode case folding
func Tokenize(text string) map[string]struct{} {
	folded := cases.Fold().String(norm.NFC.String(text))
	fields := strings.Fields(folded)
	tokens := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		tokens[f] = struct{}{}
	}
	return tokens
}

// JaccardSimilarity computes |A∩B|/|A∪B| over whitespace tokens.
// Two empty texts are identical (1.0).
func JaccardSimilarity(a, b string) float64 {
	return jaccard(Tokenize(a), Tokenize(b))
}

func jaccard(ta, tb map[string]struct{}) float64 {
	if len(ta) == 0 && len(tb) == 0 {
		return 1
	}
	intersection := 0
	for t := range ta {
		if _, ok := tb[t]; ok {
			intersection++
		}
	}
	union := len(ta) + len(tb) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// Preview truncates a prompt for log and error output
func Preview(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= previewLength {
		return text
	}
	return string(runes[:previewLength]) + "..."
}
