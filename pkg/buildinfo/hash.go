// Package buildinfo computes the file-content hashes backend.info and
// graph.get report alongside build identity (see pkg/version).
package buildinfo

import (
	"encoding/hex"
	"hash/fnv"
	"os"
)

// FileHash returns the FNV-1a/64 hex digest of a file's raw bytes. FNV-1a is
// specified explicitly (not a generic checksum choice) so graph_hash and
// schema_hash are reproducible across implementations; see DESIGN.md for why
// this stays on hash/fnv rather than an ecosystem hashing library.
func FileHash(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return Hash(data), nil
}

// Hash returns the FNV-1a/64 hex digest of data directly, for callers
// hashing an in-memory document (e.g. an active schematic's graph/schema
// sub-objects) rather than a file on disk.
func Hash(data []byte) string {
	h := fnv.New64a()
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
