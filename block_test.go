package arena

import (
	"math/rand"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func TestAlignOffset(t *testing.T) {
	var buf [64]byte
	base := unsafe.Pointer(&buf[0])

	for offset := uintptr(0); offset < 32; offset++ {
		ptr := unsafe.Add(base, offset)
		for _, align := range []uintptr{1, 2, 4, 8, 16, 32} {
			pad := alignOffset(ptr, align)
			aligned := unsafe.Add(ptr, pad)
			assert.Zero(t, uintptr(aligned)%align, "align=%d ptr=%d pad=%d", align, offset, pad)
			assert.Less(t, pad, align)
		}
	}
}

func TestAlignOffsetRandomized(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	var buf [4096]byte
	base := unsafe.Pointer(&buf[0])

	for i := 0; i < 10000; i++ {
		offset := uintptr(rng.Intn(2048))
		align := uintptr(1) << rng.Intn(6) // 1..32
		ptr := unsafe.Add(base, offset)

		pad := alignOffset(ptr, align)
		aligned := unsafe.Add(ptr, pad)
		assert.Zero(t, uintptr(aligned)%align, "offset=%d align=%d", offset, align)
		assert.Less(t, pad, align, "offset=%d align=%d", offset, align)
	}
}

func TestAlignOffsetAlreadyAligned(t *testing.T) {
	var buf [64]byte
	base := unsafe.Pointer(&buf[0])
	// round base up to 16 explicitly, then confirm zero padding is reported.
	pad0 := alignOffset(base, 16)
	aligned := unsafe.Add(base, pad0)
	assert.Zero(t, alignOffset(aligned, 16))
}

func TestRoundUp(t *testing.T) {
	assert.Equal(t, uintptr(16), roundUp(9, 16))
	assert.Equal(t, uintptr(16), roundUp(16, 16))
	assert.Equal(t, uintptr(32), roundUp(17, 16))
	assert.Equal(t, uintptr(0), roundUp(0, 16))
}

func TestBlockContains(t *testing.T) {
	var buf [16]byte
	b := Block{Memory: unsafe.Pointer(&buf[0]), Size: 16}
	assert.True(t, b.Contains(unsafe.Pointer(&buf[0])))
	assert.True(t, b.Contains(unsafe.Pointer(&buf[15])))
	assert.False(t, b.Contains(unsafe.Add(unsafe.Pointer(&buf[0]), 16)))
	assert.False(t, b.Contains(unsafe.Add(unsafe.Pointer(&buf[0]), -1)))
}
