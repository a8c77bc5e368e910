package flowsig

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/hupe1980/flowsig/discretize"
	"github.com/hupe1980/flowsig/fingerprint"
	"github.com/hupe1980/flowsig/resource"
	"github.com/hupe1980/flowsig/sigset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newModel(t *testing.T, base float64, opts ...Option) *Model {
	t.Helper()
	m, err := New(base, opts...)
	require.NoError(t, err)
	return m
}

func TestNew_Base(t *testing.T) {
	m, err := New(1.0000001)
	require.NoError(t, err)
	assert.Equal(t, 1.0000001, m.Base())
	assert.False(t, m.Trained())
	assert.Zero(t, m.Len())

	for _, base := range []float64{1.0, 0.5, 0, -3, math.NaN(), math.Inf(1)} {
		_, err := New(base)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidConfiguration, "base %v", base)
		assert.ErrorIs(t, err, discretize.ErrInvalidBase)

		var ibe *InvalidBaseError
		require.True(t, errors.As(err, &ibe))
		if !math.IsNaN(base) {
			assert.Equal(t, base, ibe.Base)
		}
	}
}

func TestSignatures_Golden(t *testing.T) {
	ctx := context.Background()
	m := newModel(t, 2)

	one, err := m.Signatures(ctx, Matrix{{0}})
	require.NoError(t, err)
	assert.Equal(t, []fingerprint.Signature{5224996704525874836}, one)

	sigs, err := m.Signatures(ctx, Matrix{
		{0, 0},
		{1, 1},
		{3, 3},
		{100, 100},
	})
	require.NoError(t, err)
	assert.Equal(t, []fingerprint.Signature{
		3946152381968277653,
		193708722526459091,
		9276053876457817000,
		2686743135371326783,
	}, sigs)
}

func TestSignatures_Deterministic(t *testing.T) {
	x := randomMatrix(rand.New(rand.NewSource(1)), 2000, 6)

	a, err := newModel(t, 3).Signatures(context.Background(), x)
	require.NoError(t, err)
	b, err := newModel(t, 3, WithWorkers(1), WithChunkSize(7)).Signatures(context.Background(), x)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	again, err := newModel(t, 3).Signatures(context.Background(), x)
	require.NoError(t, err)
	assert.Equal(t, a, again)
}

func TestSignatures_GeneralizationCollapse(t *testing.T) {
	m := newModel(t, 2)

	sigs, err := m.Signatures(context.Background(), Matrix{{0, 0}, {0.5, 0.9}, {3, 3}})
	require.NoError(t, err)
	assert.Equal(t, sigs[0], sigs[1])
	assert.NotEqual(t, sigs[0], sigs[2])
}

func TestFit_Scenario(t *testing.T) {
	ctx := context.Background()

	t.Run("equal buckets collapse", func(t *testing.T) {
		// [1,1] and [2,2] both discretize to codes [1,1] at base 2.
		m := newModel(t, 2)
		report, err := m.Fit(ctx, Matrix{{1, 1}, {1, 1}, {2, 2}})
		require.NoError(t, err)
		assert.Equal(t, 3, report.Rows)
		assert.Equal(t, 2, report.Features)
		assert.Equal(t, 1, report.Signatures)
		assert.Equal(t, 1, m.Len())
		assert.True(t, m.Trained())
	})

	t.Run("distinct buckets", func(t *testing.T) {
		m := newModel(t, 2)
		_, err := m.Fit(ctx, Matrix{{1, 1}, {1, 1}, {3, 3}})
		require.NoError(t, err)
		assert.Equal(t, 2, m.Len())

		verdicts, report, err := m.Predict(ctx, Matrix{{1, 1}, {100, 100}})
		require.NoError(t, err)
		assert.Equal(t, []Verdict{Normal, Anomalous}, verdicts)
		assert.Equal(t, 1, report.Anomalies)
	})
}

func TestFit_OrderIndependence(t *testing.T) {
	ctx := context.Background()
	x := randomMatrix(rand.New(rand.NewSource(7)), 3000, 4)

	shuffled := make(Matrix, len(x))
	copy(shuffled, x)
	rand.New(rand.NewSource(8)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	a := newModel(t, 2)
	_, err := a.Fit(ctx, x)
	require.NoError(t, err)

	b := newModel(t, 2, WithChunkSize(13))
	_, err = b.Fit(ctx, shuffled)
	require.NoError(t, err)

	assert.Equal(t, a.ExportSignatureSet(), b.ExportSignatureSet())
}

func TestFit_MembershipAfterFit(t *testing.T) {
	ctx := context.Background()
	x := randomMatrix(rand.New(rand.NewSource(3)), 5000, 8)

	m := newModel(t, 2, WithChunkSize(100), WithWorkers(4))
	_, err := m.Fit(ctx, x)
	require.NoError(t, err)

	verdicts, report, err := m.Predict(ctx, x)
	require.NoError(t, err)
	assert.Len(t, verdicts, len(x))
	assert.Zero(t, report.Anomalies)
	for i, v := range verdicts {
		require.Equal(t, Normal, v, "row %d", i)
	}
}

func TestFit_ReplacesSet(t *testing.T) {
	ctx := context.Background()
	m := newModel(t, 2)

	_, err := m.Fit(ctx, Matrix{{0, 0}})
	require.NoError(t, err)
	_, err = m.Fit(ctx, Matrix{{100, 100}})
	require.NoError(t, err)

	v, err := m.PredictOne([]float64{0, 0})
	require.NoError(t, err)
	assert.Equal(t, Anomalous, v)
	assert.Equal(t, 1, m.Len())
}

func TestExportLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	x := randomMatrix(rand.New(rand.NewSource(11)), 1000, 5)

	trained := newModel(t, 2)
	_, err := trained.Fit(ctx, x)
	require.NoError(t, err)

	exported := trained.ExportSignatureSet()
	for i := 1; i < len(exported); i++ {
		require.Less(t, exported[i-1], exported[i])
	}

	restored := newModel(t, 2)
	restored.LoadSignatureSet(sigset.Of(exported...))
	assert.True(t, restored.Trained())
	assert.Zero(t, restored.Features())

	probe := append(randomMatrix(rand.New(rand.NewSource(12)), 500, 5), x[:100]...)
	want, _, err := trained.Predict(ctx, probe)
	require.NoError(t, err)
	got, _, err := restored.Predict(ctx, probe)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadSignatureSet_Copies(t *testing.T) {
	m := newModel(t, 2)
	s := sigset.Of(1, 2)
	m.LoadSignatureSet(s)

	s.Add(3)
	assert.Equal(t, 2, m.Len())

	out := m.SignatureSet()
	out.Add(4)
	assert.Equal(t, []uint64{1, 2}, m.ExportSignatureSet())
}

func TestMonotonicCoarsening_NestedBases(t *testing.T) {
	ctx := context.Background()

	// v = 1.3 * 2^e - 1 puts log2(1+v) at e + 0.378, away from every
	// bucket boundary of bases 2, 4 and 16.
	r := rand.New(rand.NewSource(5))
	x := make(Matrix, 4000)
	for i := range x {
		row := make([]float64, 3)
		for j := range row {
			row[j] = 1.3*math.Ldexp(1, r.Intn(20)) - 1
		}
		x[i] = row
	}

	prev := math.MaxInt
	for _, base := range []float64{2, 4, 16} {
		m := newModel(t, base)
		report, err := m.Fit(ctx, x)
		require.NoError(t, err)
		assert.LessOrEqual(t, report.Signatures, prev, "base %v", base)
		prev = report.Signatures
	}
}

func TestPredict_Untrained(t *testing.T) {
	verdicts, report, err := newModel(t, 2).Predict(context.Background(), Matrix{{0}, {1}})
	require.NoError(t, err)
	assert.Equal(t, []Verdict{Anomalous, Anomalous}, verdicts)
	assert.Equal(t, 2, report.Anomalies)
}

func TestPredict_Empty(t *testing.T) {
	verdicts, report, err := newModel(t, 2).Predict(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, verdicts)
	assert.Zero(t, report.Rows)
}

func TestInvalidInput(t *testing.T) {
	ctx := context.Background()
	m := newModel(t, 2)

	t.Run("no rows", func(t *testing.T) {
		_, err := m.Fit(ctx, Matrix{})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("no columns", func(t *testing.T) {
		_, err := m.Fit(ctx, Matrix{{}, {}})
		assert.ErrorIs(t, err, ErrInvalidInput)

		_, _, err = m.Predict(ctx, Matrix{{}})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("ragged", func(t *testing.T) {
		_, err := m.Fit(ctx, Matrix{{1, 2}, {1, 2}, {1}})
		require.ErrorIs(t, err, ErrInvalidInput)

		var rre *RaggedRowError
		require.True(t, errors.As(err, &rre))
		assert.Equal(t, 2, rre.Row)
		assert.Equal(t, 2, rre.Expected)
		assert.Equal(t, 1, rre.Actual)
		assert.False(t, m.Trained())
	})

	t.Run("column mismatch", func(t *testing.T) {
		_, err := m.Fit(ctx, Matrix{{1, 2}})
		require.NoError(t, err)

		_, _, err = m.Predict(ctx, Matrix{{1, 2, 3}})
		require.ErrorIs(t, err, ErrInvalidInput)

		var cme *ColumnMismatchError
		require.True(t, errors.As(err, &cme))
		assert.Equal(t, 2, cme.Expected)
		assert.Equal(t, 3, cme.Actual)

		_, err = m.PredictOne([]float64{1})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("loaded set accepts any width", func(t *testing.T) {
		m := newModel(t, 2)
		m.LoadSignatureSet(sigset.Of(1))
		_, _, err := m.Predict(ctx, Matrix{{1, 2, 3}})
		assert.NoError(t, err)

		require.NoError(t, m.SetFeatures(2))
		_, _, err = m.Predict(ctx, Matrix{{1, 2, 3}})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestDomain_Sentinel(t *testing.T) {
	ctx := context.Background()
	m := newModel(t, 2, WithChunkSize(2))

	x := Matrix{{-1, 0}, {0, 0}, {math.NaN(), 1}, {1, 1}, {-5, -5}}
	report, err := m.Fit(ctx, x)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 4}, report.DomainWarnings)

	sigs, err := m.Signatures(ctx, x[:1])
	require.NoError(t, err)
	assert.Equal(t, fingerprint.Sum([]int8{discretize.UndefinedCode, 0}), sigs[0])

	verdicts, pr, err := m.Predict(ctx, Matrix{{0, 0}, {-2, 0}, {-3, -3}})
	require.NoError(t, err)
	assert.Equal(t, []Verdict{Normal, Normal, Normal}, verdicts)
	assert.Equal(t, []int{1, 2}, pr.DomainWarnings)
}

func TestDomain_Reject(t *testing.T) {
	ctx := context.Background()
	m := newModel(t, 2, WithDomainPolicy(DomainReject), WithChunkSize(1), WithWorkers(4))

	_, err := m.Fit(ctx, Matrix{{0, 0}, {1, -1}, {2, 2}, {-7, 0}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNumericDomain)

	var de *DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 1, de.Row)
	assert.Equal(t, 1, de.Column)
	assert.Equal(t, -1.0, de.Value)
	assert.False(t, m.Trained())

	_, err = m.PredictOne([]float64{math.Inf(1)})
	assert.ErrorIs(t, err, ErrNumericDomain)
}

func TestContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := newModel(t, 2, WithChunkSize(10))
	x := randomMatrix(rand.New(rand.NewSource(2)), 100, 2)

	_, err := m.Fit(ctx, x)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, m.Trained())

	_, _, err = m.Predict(ctx, x)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = m.Signatures(ctx, x)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConcurrentPredict(t *testing.T) {
	ctx := context.Background()
	x := randomMatrix(rand.New(rand.NewSource(9)), 2000, 4)

	m := newModel(t, 2, WithChunkSize(64))
	_, err := m.Fit(ctx, x[:1000])
	require.NoError(t, err)

	want, _, err := m.Predict(ctx, x)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, _, err := m.Predict(ctx, x)
			assert.NoError(t, err)
			assert.Equal(t, want, got)
		}()
	}
	wg.Wait()
}

func TestResourceController(t *testing.T) {
	ctx := context.Background()
	rc := resource.NewController(resource.Config{MaxWorkers: 1})

	a := newModel(t, 2, WithResourceController(rc), WithChunkSize(10))
	b := newModel(t, 2, WithResourceController(rc), WithChunkSize(10))
	x := randomMatrix(rand.New(rand.NewSource(4)), 500, 3)

	var wg sync.WaitGroup
	for _, m := range []*Model{a, b} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Fit(ctx, x)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Zero(t, rc.ActiveWorkers())
	assert.Equal(t, a.ExportSignatureSet(), b.ExportSignatureSet())
}

func TestMetricsObserver(t *testing.T) {
	ctx := context.Background()
	metrics := &BasicMetricsObserver{}
	m := newModel(t, 2, WithMetricsObserver(metrics))

	_, err := m.Fit(ctx, Matrix{{0, 0}, {-1, 0}})
	require.NoError(t, err)
	_, _, err = m.Predict(ctx, Matrix{{0, 0}, {9, 9}, {9, 9}})
	require.NoError(t, err)
	_, err = m.Fit(ctx, Matrix{{0}, {0, 1}})
	require.Error(t, err)

	stats := metrics.GetStats()
	assert.Equal(t, int64(2), stats.FitCount)
	assert.Equal(t, int64(1), stats.FitErrors)
	assert.Equal(t, int64(2), stats.FitRows)
	assert.Equal(t, int64(2), stats.Signatures)
	assert.Equal(t, int64(1), stats.PredictCount)
	assert.Equal(t, int64(3), stats.PredictRows)
	assert.Equal(t, int64(2), stats.Anomalies)
	assert.Equal(t, int64(1), stats.DomainWarnings)
}

func TestVerdict_String(t *testing.T) {
	assert.Equal(t, "normal", Normal.String())
	assert.Equal(t, "anomalous", Anomalous.String())
	assert.Equal(t, "Verdict(7)", Verdict(7).String())
}

func randomMatrix(r *rand.Rand, rows, features int) Matrix {
	x := make(Matrix, rows)
	for i := range x {
		row := make([]float64, features)
		for j := range row {
			row[j] = math.Floor(r.ExpFloat64() * 50)
		}
		x[i] = row
	}
	return x
}
