// Package registry records which signature set artifact is live.
//
// A Manifest names an artifact together with the base it was trained
// with, the feature count, and a CRC32C of the stored bytes. Commits are
// numbered; Latest returns the newest one.
//
// BlobRegistry keeps manifests next to the artifacts:
//
//	manifests/000001.json
//	manifests/000002.json
//	CURRENT                 -> "manifests/000002.json"
//
// Writers in one process are serialized. Writers in separate processes
// should use registry/dynamodb, which commits with a conditional write.
package registry
