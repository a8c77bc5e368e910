// Package mmap provides read-only memory-mapped file access.
//
// LocalStore uses it to open persisted signature sets without copying them
// through kernel buffers:
//
//	m, err := mmap.Open("sigset.npy")
//	if err != nil { ... }
//	defer m.Close()
//	data := m.Bytes()
//
// On Unix the file is mapped with mmap(2). Other platforms fall back to
// reading the file into memory behind the same API.
//
// Mapping is safe for concurrent read access. Close is idempotent; callers
// must not use a slice returned by Bytes after Close returns.
package mmap
