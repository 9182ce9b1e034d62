package pipeline

// EmbedFunc is a function that generates embeddings for text. Query texts
// and snippet texts share one vector space, so the same function embeds
// both at index time and at query time.
type EmbedFunc func(text string) ([]float32, error)

// EmbeddingDim is the dimensionality of the default embedding model
const EmbeddingDim = 384
