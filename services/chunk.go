package services

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"secondbrain/models"
)

// ChunkText splits text into fixed-size rune windows with overlap. Indices
// are contiguous starting at 0 and consecutive chunks share exactly overlap
// runes, except that the final chunk may be shorter. maxLen > overlap
// guarantees the start offset strictly increases, so the loop terminates.
func ChunkText(text string, maxLen, overlap int) ([]models.Chunk, error) {
	if maxLen <= 0 {
		return nil, NewValidationError("chunk max length must be positive, got %d", maxLen)
	}
	if overlap < 0 || overlap >= maxLen {
		return nil, NewValidationError("chunk overlap must satisfy 0 <= overlap < max length, got %d", overlap)
	}

	runes := []rune(text)
	var out []models.Chunk
	i, idx := 0, 0
	for i < len(runes) {
		end := i + maxLen
		if end > len(runes) {
			end = len(runes)
		}
		seg := string(runes[i:end])
		out = append(out, models.Chunk{
			Index:  idx,
			Text:   seg,
			Tokens: tokenEstimate(seg),
		})
		if end == len(runes) {
			break
		}
		i = end - overlap
		idx++
	}
	return out, nil
}

// tokenEstimate approximates token count as ceil(runes / 4).
func tokenEstimate(text string) int {
	n := len([]rune(text))
	return (n + 3) / 4
}

// ContentHash derives a stable fingerprint from the trimmed text and the
// canonical JSON form of its metadata. Identical (text, metadata) pairs
// always hash identically; the digest is stored in payloads for dedup and
// audit, never used as a point ID.
func ContentHash(text string, metadata map[string]any) string {
	if metadata == nil {
		metadata = map[string]any{}
	}
	// json.Marshal sorts map keys, which makes the serialization canonical.
	meta, _ := json.Marshal(metadata)
	norm := strings.TrimSpace(text) + "|" + string(meta)
	sum := sha256.Sum256([]byte(norm))
	return hex.EncodeToString(sum[:])
}
