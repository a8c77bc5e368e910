// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("sigsets/"),
//	    s3.WithRegion("eu-central-1"),
//	)
//
//	as := artifact.NewStore(store)
//	err = as.Save(ctx, "campus-2024.npy.zst", model.SignatureSet())
//
// # Features
//
//   - Range reads for partial fetches
//   - Multipart uploads for large signature sets
//   - CRC32C integrity validation on upload
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
