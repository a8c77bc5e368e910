// Package hash provides CRC32-Castagnoli checksums for artifact integrity.
//
// Manifests record the CRC32C of the artifact they point at, and the S3
// store sends the same checksum with every single-part upload so the
// service verifies the body on receipt.
//
//	sum := hash.CRC32C(data)
//
// For streaming input:
//
//	h := hash.NewCRC32C()
//	h.Write(chunk1)
//	h.Write(chunk2)
//	sum := h.Sum32()
package hash
