package bits

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundupPowOf2(t *testing.T) {
	n := RoundupPowOf2(7)
	assert.Equal(t, RoundupPowOf2ByCeil(7), n)
	assert.Equal(t, RoundupPowOf2ByLoop(7), n)

	n = RoundupPowOf2(10)
	assert.Equal(t, RoundupPowOf2ByCeil(10), n)
	assert.Equal(t, RoundupPowOf2ByLoop(10), n)

	n = RoundupPowOf2(17)
	assert.Equal(t, RoundupPowOf2ByCeil(17), n)
	assert.Equal(t, RoundupPowOf2ByLoop(17), n)

	n = RoundupPowOf2(127)
	assert.Equal(t, RoundupPowOf2ByCeil(127), n)
	assert.Equal(t, RoundupPowOf2ByLoop(127), n)

	assert.Equal(t, uint64(1), RoundupPowOf2(0))
	assert.Equal(t, uint64(1), RoundupPowOf2(1))
	assert.Equal(t, uint64(1024), RoundupPowOf2(1024))
}

func TestCeilPowOf2(t *testing.T) {
	n := CeilPowOf2(7)
	assert.Equal(t, uint8(3), n)

	n = CeilPowOf2(10)
	assert.Equal(t, uint8(4), n)

	n = CeilPowOf2(17)
	assert.Equal(t, uint8(5), n)
}

func TestIsPowOf2(t *testing.T) {
	assert.False(t, IsPowOf2(0))
	assert.True(t, IsPowOf2(1))
	assert.True(t, IsPowOf2(2))
	assert.False(t, IsPowOf2(3))
	assert.True(t, IsPowOf2(1<<20))
	assert.False(t, IsPowOf2(1<<20+1))
}
