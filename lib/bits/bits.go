package bits

import "math"

// RoundupPowOf2 rounds n up to the nearest power of 2 by smearing the
// highest set bit rightwards then adding one.
// Linux kernel & JDK HashMap both use this trick to size tables.
func RoundupPowOf2(n uint64) uint64 {
	if n <= 1 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// RoundupPowOf2ByCeil rounds n up to the nearest power of 2 through the
// base-2 logarithm exponent.
func RoundupPowOf2ByCeil(n uint64) uint64 {
	if n <= 1 {
		return 1
	}
	return uint64(1) << CeilPowOf2(n)
}

// RoundupPowOf2ByLoop is the naive shift-until-enough version.
// Only as a cross check in tests, the others are branch free.
func RoundupPowOf2ByLoop(n uint64) uint64 {
	v := uint64(1)
	for v < n {
		v <<= 1
	}
	return v
}

// CeilPowOf2 returns the smallest exponent e such that 2^e >= n.
func CeilPowOf2(n uint64) uint8 {
	if n <= 1 {
		return 0
	}
	return uint8(math.Ceil(math.Log2(float64(n))))
}

// IsPowOf2 reports whether n is a power of 2. Zero is not.
func IsPowOf2(n uint64) bool {
	return n > 0 && n&(n-1) == 0
}
