package embedder

import "math"

// CosineSimilarity calculates the cosine similarity between two vectors.
//
// Cosine similarity measures the cosine of the angle between two vectors,
// ranging from -1 (opposite) to 1 (identical). Values close to 1 indicate
// high similarity.
//
// The formula is: similarity = (A · B) / (||A|| * ||B||)
//
// Returns 0.0 if the vectors have different dimensions or either has zero
// norm, so the function never divides by zero and never fails.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// MeanVector calculates the element-wise mean of the given vectors,
// normalized to unit length.
//
// Vectors whose length differs from the first vector are skipped. Returns
// nil when no usable vector is present.
func MeanVector(vectors ...[]float64) []float64 {
	var result []float64
	used := 0

	for _, v := range vectors {
		if len(v) == 0 {
			continue
		}
		if result == nil {
			result = make([]float64, len(v))
		}
		if len(v) != len(result) {
			continue
		}
		for i := range v {
			result[i] += v[i]
		}
		used++
	}

	if used == 0 {
		return nil
	}

	for i := range result {
		result[i] /= float64(used)
	}

	return NormalizeVector(result)
}

// NormalizeVector normalizes a vector to unit length (L2 norm).
//
// If the vector has zero norm, returns it unchanged.
func NormalizeVector(v []float64) []float64 {
	var sum float64
	for _, val := range v {
		sum += val * val
	}
	norm := math.Sqrt(sum)

	if norm == 0 {
		return v
	}

	result := make([]float64, len(v))
	for i, val := range v {
		result[i] = val / norm
	}

	return result
}
