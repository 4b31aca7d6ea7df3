package gpu

import "golang.org/x/exp/constraints"

// alignUp rounds v up to the next multiple of m. m must be positive.
func alignUp[T constraints.Integer](v, m T) T {
	return (v + m - 1) / m * m
}
