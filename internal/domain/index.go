package domain

// Similarity metrics accepted by the vector index backend.
const (
	SimilarityCosine     = "cosine"
	SimilarityDotProduct = "dotProduct"
	SimilarityEuclidean  = "euclidean"
)

// IndexDescriptor describes one vector search index per document type.
// Creation is idempotent: an existing index with the same name is success.
type IndexDescriptor struct {
	Name             string
	TargetCollection string
	VectorPath       string
	Dimensions       int
	SimilarityMetric string
	FilterPaths      []string
}
