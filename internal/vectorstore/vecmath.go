// Package vectorstore holds the vector math shared by store implementations
// and by the retriever. Implementations live in the memory and qdrant
// subpackages and satisfy domain.VectorStore.
package vectorstore

import "math"

// Normalize scales vec in place to unit L2 length, so that inner product
// equals cosine similarity. The zero vector is left unchanged.
func Normalize(vec []float64) {
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return
	}
	for i := range vec {
		vec[i] /= norm
	}
}

// Dot returns the inner product of a and b over their common prefix.
func Dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
