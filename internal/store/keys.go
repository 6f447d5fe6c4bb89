package store

import "sync"

// Badger keys are prefix+ID strings built on every read and write, so
// the buffers come from a pool instead of being allocated each time.
var keyPool = sync.Pool{
	New: func() any {
		// 256 bytes covers any prefix plus a 21-character NanoID.
		return make([]byte, 0, 256)
	},
}

// buildKey concatenates prefix and suffix into a pooled buffer. The
// caller owns the slice until releaseKey and must not hold it after.
func buildKey(prefix, suffix string) []byte {
	buf, _ := keyPool.Get().([]byte)
	buf = append(buf[:0], prefix...)
	return append(buf, suffix...)
}

// releaseKey returns a key buffer to the pool. Oversized buffers are
// dropped so one huge key cannot pin memory for the pool's lifetime.
func releaseKey(key []byte) {
	if cap(key) <= 512 {
		keyPool.Put(key[:0])
	}
}
