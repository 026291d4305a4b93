package errors

import (
	"fmt"
	"math"
)

// CheckFinite returns a ValueError if any value is NaN or ±Inf.
func CheckFinite(operation string, values []float64) error {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return NewValueError(operation, fmt.Sprintf("non-finite value %v at index %d", v, i))
		}
	}
	return nil
}

// CheckMatrix checks all values in a matrix and reports the first non-finite
// cell as a DataError against the named column.
func CheckMatrix(stage string, matrix interface{ At(int, int) float64 }, rows, cols int, columns []string) error {
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := matrix.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				name := fmt.Sprintf("#%d", j)
				if j < len(columns) {
					name = columns[j]
				}
				return NewRowDataError(stage, name, i, fmt.Sprintf("non-finite value %v", v))
			}
		}
	}
	return nil
}

// SafeDivide performs division with protection against division by zero.
// Returns 0 if denominator is zero or close to zero.
func SafeDivide(numerator, denominator float64) float64 {
	if math.Abs(denominator) < 1e-10 {
		return 0
	}
	return numerator / denominator
}
