package passage

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"derrclan.com/bible-passage/internal/gateway"
	"derrclan.com/bible-passage/internal/reference"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeSource serves canned passages keyed by reference string.
type fakeSource struct {
	t       *testing.T
	texts   map[string]string
	errs    map[string]error
	delays  map[string]time.Duration
	forbid  bool
	mu      sync.Mutex
	calls   []string
	running atomic.Int32
	peak    atomic.Int32
}

func (f *fakeSource) Passage(ctx context.Context, ref reference.Reference, translation string) (string, error) {
	if f.forbid {
		f.t.Errorf("unexpected upstream call for %s (%s)", ref, translation)
	}
	key := ref.String()

	f.mu.Lock()
	f.calls = append(f.calls, key+"|"+translation)
	f.mu.Unlock()

	n := f.running.Add(1)
	defer f.running.Add(-1)
	for {
		peak := f.peak.Load()
		if n <= peak || f.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	if d := f.delays[key]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err := f.errs[key]; err != nil {
		return "", err
	}
	return f.texts[key], nil
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

var (
	john316 = reference.Reference{Book: "John", Chapter: 3, VerseStart: 16}
	rom828  = reference.Reference{Book: "Romans", Chapter: 8, VerseStart: 28}
	ps23    = reference.Reference{Book: "Psalms", Chapter: 23}
)

func newFake(t *testing.T) *fakeSource {
	return &fakeSource{
		t: t,
		texts: map[string]string{
			"John 3:16":   "16 For God so loved the world",
			"Romans 8:28": "28 And we know that for those who love God all things work together for good",
			"Psalms 23":   "1 The Lord is my shepherd;\nI shall not want.",
		},
		errs:   map[string]error{},
		delays: map[string]time.Duration{},
	}
}

func TestFetchAndClean(t *testing.T) {
	src := newFake(t)
	svc := NewService(src, DefaultTranslations())

	res := svc.FetchAndClean(context.Background(), john316, "esv")
	require.True(t, res.OK())
	require.NotNil(t, res.Text)
	assert.Nil(t, res.Error)
	assert.Equal(t, "16 For God so loved the world", *res.Text)
	assert.Equal(t, "ESV", res.Translation)
	assert.Equal(t, []string{"John 3:16|ESV"}, src.calls)
}

func TestFetchAndClean_UnsupportedTranslation(t *testing.T) {
	src := newFake(t)
	src.forbid = true
	svc := NewService(src, DefaultTranslations())

	res := svc.FetchAndClean(context.Background(), john316, "XYZ")
	assert.False(t, res.OK())
	assert.Nil(t, res.Text)
	require.NotNil(t, res.Error)
	assert.Equal(t, "unsupported translation", *res.Error)
	assert.Zero(t, src.callCount())
}

func TestFetchAndClean_UpstreamFailures(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		text  string
		class string
	}{
		{"timeout", gateway.ErrTimeout, "", "timeout"},
		{"not found", gateway.ErrNotFound, "", "not_found"},
		{"unavailable", errors.New("connection refused"), "", "upstream_error"},
		{"format", gateway.ErrFormat, "", "upstream_error"},
		{"blank text", nil, "  \n ", "upstream_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newFake(t)
			src.errs["John 3:16"] = tt.err
			src.texts["John 3:16"] = tt.text
			svc := NewService(src, DefaultTranslations())

			res := svc.FetchAndClean(context.Background(), john316, "KJV")
			assert.Nil(t, res.Text)
			require.NotNil(t, res.Error)
			assert.Equal(t, tt.class, *res.Error)
		})
	}
}

func TestFetchAll_PreservesOrder(t *testing.T) {
	refs := []reference.Reference{
		john316,
		rom828,
		ps23,
		{Book: "Genesis", Chapter: 1, VerseStart: 1},
		{Book: "Revelation", Chapter: 21, VerseStart: 4},
	}

	src := newFake(t)
	src.texts["Genesis 1:1"] = "1 In the beginning"
	src.texts["Revelation 21:4"] = "4 He will wipe away every tear"
	// The first and third references finish last.
	src.delays["John 3:16"] = 80 * time.Millisecond
	src.delays["Psalms 23"] = 40 * time.Millisecond

	svc := NewService(src, DefaultTranslations(), WithConcurrency(len(refs)))
	agg := svc.FetchAll(context.Background(), refs, "ESV")

	require.True(t, agg.Success)
	require.Len(t, agg.Results, len(refs))
	for i, res := range agg.Results {
		assert.Equal(t, refs[i], res.Reference, "result %d out of order", i)
		require.NotNil(t, res.Text)
	}
	assert.Equal(t, "1 In the beginning", *agg.Results[3].Text)
}

func TestFetchAll_ConcurrencyLimit(t *testing.T) {
	refs := []reference.Reference{john316, rom828, ps23, john316, rom828, ps23}
	src := newFake(t)
	for key := range src.texts {
		src.delays[key] = 20 * time.Millisecond
	}

	svc := NewService(src, DefaultTranslations(), WithConcurrency(2))
	agg := svc.FetchAll(context.Background(), refs, "NIV")

	assert.True(t, agg.Success)
	assert.Equal(t, len(refs), src.callCount())
	assert.LessOrEqual(t, src.peak.Load(), int32(2))
}

func TestFetchAll_PartialFailure(t *testing.T) {
	src := newFake(t)
	src.errs["Romans 8:28"] = gateway.ErrNotFound
	svc := NewService(src, DefaultTranslations())

	agg := svc.FetchAll(context.Background(), []reference.Reference{rom828, john316}, "ESV")
	assert.False(t, agg.Success)
	require.Len(t, agg.Results, 2)
	require.NotNil(t, agg.Results[0].Error)
	assert.Equal(t, "not_found", *agg.Results[0].Error)
	require.NotNil(t, agg.Results[1].Text, "sibling passage must still be fetched")
}

func TestAggregate_MixedTranslations(t *testing.T) {
	src := newFake(t)
	svc := NewService(src, DefaultTranslations())
	ctx := context.Background()

	agg := NewAggregate([]Result{
		svc.FetchAndClean(ctx, john316, "ESV"),
		svc.FetchAndClean(ctx, rom828, "NOPE"),
	})
	assert.False(t, agg.Success)
	require.NotNil(t, agg.Results[0].Text)
	assert.Nil(t, agg.Results[0].Error)
	assert.Nil(t, agg.Results[1].Text)
	assert.Equal(t, 1, src.callCount())
}

func TestLookup(t *testing.T) {
	t.Run("single reference defaults to ESV", func(t *testing.T) {
		src := newFake(t)
		svc := NewService(src, DefaultTranslations())

		resp, err := svc.Lookup(context.Background(), "John 3:16", "")
		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.Equal(t, "John 3:16", resp.Passage)
		assert.Equal(t, "ESV", resp.Version)
		require.NotNil(t, resp.Text)
		assert.Equal(t, "16 For God so loved the world", *resp.Text)
		assert.Nil(t, resp.Error)
		assert.Len(t, resp.Results, 1)
	})

	t.Run("configured default version", func(t *testing.T) {
		src := newFake(t)
		svc := NewService(src, DefaultTranslations(), WithDefaultVersion("LUTH1545"))

		resp, err := svc.Lookup(context.Background(), "Johannes 3:16", "  ")
		require.NoError(t, err)
		assert.Equal(t, "LUTH1545", resp.Version)
		assert.Equal(t, []string{"John 3:16|LUTH1545"}, src.calls)
	})

	t.Run("multiple references", func(t *testing.T) {
		src := newFake(t)
		svc := NewService(src, DefaultTranslations())

		resp, err := svc.Lookup(context.Background(), "John 3:16; Romans 8:28", "niv")
		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.Equal(t, "NIV", resp.Version)
		require.NotNil(t, resp.Text)
		assert.Equal(t,
			"John 3:16\n16 For God so loved the world\n\n"+
				"Romans 8:28\n28 And we know that for those who love God all things work together for good",
			*resp.Text)
		assert.Nil(t, resp.Error)
	})

	t.Run("partial failure", func(t *testing.T) {
		src := newFake(t)
		src.errs["Psalms 23"] = gateway.ErrTimeout
		svc := NewService(src, DefaultTranslations())

		resp, err := svc.Lookup(context.Background(), "Psalm 23; John 3:16", "ESV")
		require.NoError(t, err)
		assert.False(t, resp.Success)
		require.NotNil(t, resp.Text)
		assert.Equal(t, "John 3:16\n16 For God so loved the world", *resp.Text)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "Psalms 23: timeout", *resp.Error)
	})

	t.Run("unsupported translation", func(t *testing.T) {
		src := newFake(t)
		src.forbid = true
		svc := NewService(src, DefaultTranslations())

		resp, err := svc.Lookup(context.Background(), "John 3:16", "XYZ")
		require.NoError(t, err)
		assert.False(t, resp.Success)
		assert.Nil(t, resp.Text)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "unsupported translation", *resp.Error)
	})

	t.Run("parse error fails fast", func(t *testing.T) {
		src := newFake(t)
		src.forbid = true
		svc := NewService(src, DefaultTranslations())

		_, err := svc.Lookup(context.Background(), "John 3:16; Nonexistentbook 1:1", "ESV")
		var perr *reference.ParseError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "Nonexistentbook 1:1", perr.Segment)
		assert.Zero(t, src.callCount())
	})
}

func TestTranslations(t *testing.T) {
	tr := DefaultTranslations()
	assert.Equal(t, 13, tr.Len())
	assert.True(t, tr.Supports("ngu-de"))
	assert.False(t, tr.Supports("NRSV"))

	code, ok := tr.Canonical(" sch2000 ")
	assert.True(t, ok)
	assert.Equal(t, "SCH2000", code)

	custom := NewTranslations([]string{"ESV", " ", "esv", "NRSVUE"})
	assert.Equal(t, []string{"ESV", "NRSVUE"}, custom.Codes())
}
