package umm

// This file holds the definition of functions commonly used in different parts.

// ceilDiv returns numerator/denominator rounded up.
func ceilDiv(numerator, denominator int) int {
	return (numerator + denominator - 1) / denominator
}
