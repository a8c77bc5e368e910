package discretize

import (
	"errors"
	"fmt"
	"math"
)

// UndefinedCode is emitted for features whose bucket is not finite
// when the DomainSentinel policy is active.
const UndefinedCode int8 = math.MinInt8

// CodeVector holds one discretized bucket index per feature, in feature order.
type CodeVector []int8

// DomainPolicy controls how feature values without a finite bucket are handled.
type DomainPolicy uint8

const (
	// DomainSentinel emits UndefinedCode for the feature and reports its index.
	DomainSentinel DomainPolicy = iota
	// DomainReject fails the whole row with an *UndefinedError.
	DomainReject
)

func (p DomainPolicy) String() string {
	switch p {
	case DomainSentinel:
		return "sentinel"
	case DomainReject:
		return "reject"
	default:
		return fmt.Sprintf("DomainPolicy(%d)", uint8(p))
	}
}

// ParseDomainPolicy parses "sentinel" or "reject".
func ParseDomainPolicy(s string) (DomainPolicy, error) {
	switch s {
	case "", "sentinel":
		return DomainSentinel, nil
	case "reject":
		return DomainReject, nil
	default:
		return 0, fmt.Errorf("discretize: unknown domain policy %q", s)
	}
}

var (
	// ErrInvalidBase is returned when the logarithm base is not a finite number > 1.
	ErrInvalidBase = errors.New("discretize: base must be a finite number greater than 1")

	// ErrUndefined is the sentinel behind *UndefinedError.
	ErrUndefined = errors.New("discretize: logarithm undefined for feature value")
)

// UndefinedError reports a feature whose value has no finite bucket.
type UndefinedError struct {
	Index int
	Value float64
}

func (e *UndefinedError) Error() string {
	return fmt.Sprintf("discretize: feature %d: log1p(%v) is undefined", e.Index, e.Value)
}

func (e *UndefinedError) Unwrap() error { return ErrUndefined }

// Options configures a Discretizer.
type Options struct {
	// Policy selects the handling of undefined inputs. Default: DomainSentinel.
	Policy DomainPolicy
}

// Discretizer maps feature vectors to code vectors for a fixed base.
// It is immutable and safe for concurrent use.
type Discretizer struct {
	base    float64
	logBase float64
	policy  DomainPolicy
}

// New creates a Discretizer for the given logarithm base.
func New(base float64, optFns ...func(o *Options)) (*Discretizer, error) {
	if err := ValidateBase(base); err != nil {
		return nil, err
	}

	opts := Options{Policy: DomainSentinel}
	for _, fn := range optFns {
		if fn != nil {
			fn(&opts)
		}
	}

	return &Discretizer{
		base:    base,
		logBase: math.Log(base),
		policy:  opts.Policy,
	}, nil
}

// ValidateBase reports whether base can be used for discretization.
func ValidateBase(base float64) error {
	if math.IsNaN(base) || math.IsInf(base, 0) || base <= 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidBase, base)
	}
	return nil
}

// Base returns the logarithm base.
func (d *Discretizer) Base() float64 { return d.base }

// Policy returns the configured domain policy.
func (d *Discretizer) Policy() DomainPolicy { return d.policy }

// Bucket returns floor(log1p(v) / log(base)) and whether it is finite.
//
// The quotient is a division by log(base), not a multiplication by its
// reciprocal; the two differ in the last bit for some inputs.
func (d *Discretizer) Bucket(v float64) (float64, bool) {
	q := math.Floor(math.Log1p(v) / d.logBase)
	if math.IsNaN(q) || math.IsInf(q, 0) {
		return q, false
	}
	return q, true
}

// Code returns the narrowed code for a single value.
// ok is false when the value has no finite bucket; the code is then UndefinedCode.
func (d *Discretizer) Code(v float64) (code int8, ok bool) {
	q, ok := d.Bucket(v)
	if !ok {
		return UndefinedCode, false
	}
	return Narrow(q), true
}

// Discretize appends the codes of v to dst[:0] and returns the result.
//
// Under DomainSentinel the indices of undefined features are returned
// (nil when every feature is defined). Under DomainReject the first
// undefined feature yields an *UndefinedError.
func (d *Discretizer) Discretize(dst CodeVector, v []float64) (CodeVector, []int, error) {
	dst = dst[:0]
	var undefined []int
	for i, x := range v {
		c, ok := d.Code(x)
		if !ok {
			if d.policy == DomainReject {
				return dst, nil, &UndefinedError{Index: i, Value: x}
			}
			undefined = append(undefined, i)
		}
		dst = append(dst, c)
	}
	return dst, undefined, nil
}

// two63 is 2^63, the first float64 above the int64 range.
const two63 = float64(1 << 63)

// Narrow converts x to int8 by two's-complement wraparound of trunc(x).
//
// Values beyond the int64 range are multiples of 256 and narrow to 0.
// NaN and infinities narrow to UndefinedCode.
func Narrow(x float64) int8 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return UndefinedCode
	}
	t := math.Trunc(x)
	if t >= two63 || t < -two63 {
		return 0
	}
	return int8(int64(t))
}
