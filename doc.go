// Package flowsig classifies network flow records as normal or anomalous.
//
// Each flow's numeric feature vector is reduced to a 64-bit signature:
//
//	codes[i] = int8(floor(log1p(v[i]) / log(base)))   // discretize
//	sig      = LE64(BLAKE2b-8(codes as bytes))        // fingerprint
//
// Training collects the signatures of trusted traffic into a set. At
// inference a flow is Normal when its signature is in the set and
// Anomalous otherwise. The pipeline is bit-exact, so persisted signature
// sets are portable between processes and implementations that use the
// same base.
//
// # Quick Start
//
//	model, _ := flowsig.New(2)
//	report, _ := model.Fit(ctx, trainRows)
//	verdicts, _, _ := model.Predict(ctx, testRows)
//
// Persist and restore a trained set through any blobstore.BlobStore:
//
//	store := blobstore.NewLocalStore("./models")
//	_, _ = flowsig.SaveModel(ctx, store, "sigset.npy", model)
//	restored, _ := flowsig.LoadModel(ctx, store, "sigset.npy", 2)
//
// The base is not stored with the set. Loading a set with a base other
// than the one it was trained with silently yields meaningless verdicts;
// the registry package records the base next to each artifact.
//
// # Concurrency
//
// Predict, PredictOne and Signatures may run concurrently. Fit and
// LoadSignatureSet take an exclusive lock and wait for running queries.
// Row work is split into chunks processed by a bounded errgroup; a shared
// resource.Controller bounds workers across models.
//
// # Numeric domain
//
// Values v <= -1, NaN and +Inf have no finite bucket. By default such a
// feature is encoded as discretize.UndefinedCode and the row index is
// reported in the operation's DomainWarnings. WithDomainPolicy(DomainReject)
// fails the operation with a *DomainError instead.
package flowsig
