// Package discretize quantizes flow feature vectors into int8 code vectors.
//
// Each feature is mapped to a logarithmic bucket:
//
//	code = int8(floor(log1p(v) / log(base)))
//
// log1p keeps zero-valued counters in bucket 0. Values that land in the same
// logarithmic bucket collapse to the same code, which is what lets a set of
// signatures learned from training traffic cover a range of magnitudes.
//
// # Narrowing
//
// The floored quotient is narrowed to 8 bits by two's-complement wraparound
// of its truncated integer value (see Narrow). Bucket 128 becomes -128,
// bucket -129 becomes 127.
//
// # Undefined inputs
//
// A feature value v <= -1, NaN or +Inf has no finite bucket. The
// DomainPolicy decides what happens: DomainSentinel emits UndefinedCode and
// reports the feature index, DomainReject fails the row.
package discretize
