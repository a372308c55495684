// Package mempool provides a sized sync.Pool for the RGBA pixel buffers
// allocated on every per-page stage (crop, OCR band, upscale round-trip),
// bounding peak memory to roughly threads*page_bytes instead of letting
// each page allocate and discard its own buffer.
package mempool

import "sync"

var bytePools sync.Map // key: size class (int), value: *sync.Pool

// sizeClass rounds n up to the next 4KiB bucket to reduce pool churn across
// the handful of distinct page sizes a book actually uses.
func sizeClass(n int) int {
	const step = 4096
	if n <= step {
		return step
	}
	r := (n + step - 1) / step
	return r * step
}

// GetBytes retrieves a []byte buffer of at least n bytes from the pool. The
// returned slice has length n but may have larger capacity. The caller must
// return it via PutBytes when done with it.
func GetBytes(n int) []byte {
	cls := sizeClass(n)
	pAny, _ := bytePools.LoadOrStore(cls, &sync.Pool{New: func() any { return make([]byte, cls) }})
	p, ok := pAny.(*sync.Pool)
	if !ok {
		return make([]byte, n)
	}
	bufAny := p.Get()
	buf, ok := bufAny.([]byte)
	if !ok || cap(buf) < cls {
		buf = make([]byte, cls)
	}
	return buf[:n]
}

// PutBytes returns a buffer obtained from GetBytes to the pool. Safe to call
// with nil.
func PutBytes(buf []byte) {
	if buf == nil {
		return
	}
	cls := sizeClass(cap(buf))
	pAny, _ := bytePools.LoadOrStore(cls, &sync.Pool{New: func() any { return make([]byte, cls) }})
	p, ok := pAny.(*sync.Pool)
	if !ok {
		return
	}
	p.Put(buf[:cap(buf)]) //nolint:staticcheck
}
