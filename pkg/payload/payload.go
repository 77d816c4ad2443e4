// Package payload generates synthetic benchmark workloads and the object
// keys they are stored under.
package payload

import "fmt"

// pattern is tiled to build payloads. A mixed-alphabet pattern avoids
// providers that special-case highly compressible data, while staying
// deterministic so reads can be verified by length alone.
const pattern = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

// Generate returns a deterministic payload of exactly size bytes.
func Generate(size int64) []byte {
	data := make([]byte, size)

	for i := int64(0); i < size; i += int64(len(pattern)) {
		copy(data[i:], pattern)
	}

	return data
}

// Key returns the canonical object key for one benchmark file. Keys are
// unique per (size, index, repeat), and a READ reuses the exact keys the
// preceding WRITE produced.
func Key(prefix string, size int64, index, repeat int) string {
	return fmt.Sprintf("%s/%dbytes/file_%05d_run%02d.dat", prefix, size, index, repeat)
}
