// Package embeddings abstracts text-embedding backends.
//
// Lorekeeper embeds knowledge-graph node summaries so campaign lore can be
// recalled by meaning rather than by exact name. Vectors land in the
// pgvector index kept by the relational store; queries are embedded with the
// same provider and ranked by cosine similarity.
//
// Implementations must be safe for concurrent use.
package embeddings

import "context"

// Provider maps text to dense float32 vectors.
//
// Every vector from one Provider instance has the same length (Dimensions).
// Vectors from different models must never meet in one similarity
// computation, so the store records which model built its index.
type Provider interface {
	// Embed returns the vector for a single text, of length Dimensions().
	// Text passes through verbatim; any model-specific prefixing is the
	// caller's job.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch embeds texts in one backend call. Result[i] corresponds to
	// texts[i]. No partial results: any failure returns a nil slice.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the fixed vector length of this provider's model.
	Dimensions() int

	// ModelID names the underlying model ("text-embedding-3-small"),
	// recorded alongside the index for consistency checks.
	ModelID() string
}
