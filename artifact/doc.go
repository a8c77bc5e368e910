// Package artifact persists signature sets.
//
// Two on-disk formats are supported:
//
//   - NPY (".npy"): a NumPy v1.0 file holding a 1-D little-endian uint64
//     array sorted ascending. The bytes equal those written by numpy.save
//     for the same array, so sets move freely between implementations.
//   - Roaring (".roaring"): the portable roaring64 serialization, which is
//     much smaller for dense or clustered signature ranges.
//
// Either format may be wrapped in a compression frame selected by a second
// suffix: ".zst" (Zstandard) or ".lz4" (LZ4 frame). The layout of an
// artifact is always derived from its name:
//
//	sigset.npy          NPY
//	sigset.npy.zst      NPY inside a zstd frame
//	sigset.roaring.lz4  roaring64 inside an LZ4 frame
//
// Store reads and writes artifacts through a blobstore.BlobStore.
package artifact
