package mempool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSizeClass(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{1, 4096},
		{4096, 4096},
		{4097, 8192},
		{8192, 8192},
		{0, 4096},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, sizeClass(c.in))
	}
}

func TestGetBytesReturnsRequestedLength(t *testing.T) {
	buf := GetBytes(1920 * 1080 * 4)
	assert.Len(t, buf, 1920*1080*4)
	PutBytes(buf)
}

func TestPutBytesRecyclesCapacity(t *testing.T) {
	first := GetBytes(2000)
	cap1 := cap(first)
	PutBytes(first)

	second := GetBytes(2000)
	assert.GreaterOrEqual(t, cap(second), cap1)
	PutBytes(second)
}

func TestPutBytesNilIsNoop(t *testing.T) {
	assert.NotPanics(t, func() { PutBytes(nil) })
}

func TestGetBytesConcurrentReuseDoesNotCorrupt(t *testing.T) {
	done := make(chan struct{})
	for range 8 {
		go func() {
			defer func() { done <- struct{}{} }()
			for range 50 {
				buf := GetBytes(64 * 64 * 4)
				for i := range buf {
					buf[i] = 0xAB
				}
				PutBytes(buf)
			}
		}()
	}
	for range 8 {
		<-done
	}
}
