package masterdata_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"livestock-purchasing/internal/core"
	"livestock-purchasing/internal/masterdata"
)

type countingProvider struct {
	calls     atomic.Int32
	label     atomic.Value
	err       error
	release   chan struct{}
	cancelled atomic.Bool
}

func (p *countingProvider) Options(ctx context.Context, kind core.OptionKind) ([]core.Option, error) {
	p.calls.Add(1)
	if p.release != nil {
		<-p.release
	}
	if ctx.Err() != nil {
		p.cancelled.Store(true)
		return nil, ctx.Err()
	}
	if p.err != nil {
		return nil, p.err
	}
	label, _ := p.label.Load().(string)
	return []core.Option{{Value: string(kind) + "-1", Label: label}}, nil
}

func newProvider(label string) *countingProvider {
	p := &countingProvider{}
	p.label.Store(label)
	return p
}

func TestCachedProvider_CachesUntilExpiry(t *testing.T) {
	inner := newProvider("Kantor Pusat")
	cached := masterdata.NewCachedProvider(inner, time.Minute)
	now := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)
	cached.SetClock(func() time.Time { return now })

	first, err := cached.Options(context.Background(), core.OptionOffice)
	if err != nil {
		t.Fatal(err)
	}
	inner.label.Store("Kantor Baru")

	second, _ := cached.Options(context.Background(), core.OptionOffice)
	if second[0].Label != "Kantor Pusat" || inner.calls.Load() != 1 {
		t.Errorf("second read = %+v after %d calls, want cached", second, inner.calls.Load())
	}

	// Mutating a returned slice does not poison the cache.
	first[0].Label = "mutated"
	third, _ := cached.Options(context.Background(), core.OptionOffice)
	if third[0].Label != "Kantor Pusat" {
		t.Errorf("cache poisoned: %+v", third)
	}

	now = now.Add(2 * time.Minute)
	fresh, _ := cached.Options(context.Background(), core.OptionOffice)
	if fresh[0].Label != "Kantor Baru" || inner.calls.Load() != 2 {
		t.Errorf("after expiry = %+v, calls = %d", fresh, inner.calls.Load())
	}
}

func TestCachedProvider_Invalidate(t *testing.T) {
	inner := newProvider("A")
	cached := masterdata.NewCachedProvider(inner, time.Hour)

	_, _ = cached.Options(context.Background(), core.OptionBank)
	_, _ = cached.Options(context.Background(), core.OptionItem)

	cached.Invalidate(core.OptionBank)
	_, _ = cached.Options(context.Background(), core.OptionBank)
	_, _ = cached.Options(context.Background(), core.OptionItem)
	if got := inner.calls.Load(); got != 3 {
		t.Errorf("calls after Invalidate = %d, want 3", got)
	}

	cached.InvalidateAll()
	_, _ = cached.Options(context.Background(), core.OptionBank)
	_, _ = cached.Options(context.Background(), core.OptionItem)
	if got := inner.calls.Load(); got != 5 {
		t.Errorf("calls after InvalidateAll = %d, want 5", got)
	}
}

func TestCachedProvider_ErrorsAreNotCached(t *testing.T) {
	inner := newProvider("A")
	inner.err = errors.New("upstream down")
	cached := masterdata.NewCachedProvider(inner, time.Hour)

	if _, err := cached.Options(context.Background(), core.OptionSupplier); err == nil {
		t.Fatal("expected error")
	}
	inner.err = nil
	opts, err := cached.Options(context.Background(), core.OptionSupplier)
	if err != nil || len(opts) != 1 {
		t.Fatalf("Options = %v, %v", opts, err)
	}
	if inner.calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", inner.calls.Load())
	}
}

func TestCachedProvider_ConcurrentMissesShareOneCall(t *testing.T) {
	inner := newProvider("A")
	inner.release = make(chan struct{})
	cached := masterdata.NewCachedProvider(inner, time.Hour)

	const callers = 8
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			if _, err := cached.Options(context.Background(), core.OptionClassification); err != nil {
				t.Error(err)
			}
		}()
	}

	deadline := time.Now().Add(2 * time.Second)
	for inner.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	// Let the other callers pile up behind the in-flight call.
	time.Sleep(20 * time.Millisecond)
	close(inner.release)
	wg.Wait()

	if got := inner.calls.Load(); got != 1 {
		t.Errorf("upstream calls = %d, want 1", got)
	}
}

func TestCachedProvider_CancelledCallerDoesNotFailSharedCall(t *testing.T) {
	inner := newProvider("Gudang")
	inner.release = make(chan struct{})
	cached := masterdata.NewCachedProvider(inner, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := cached.Options(ctx, core.OptionItem)
		firstErr <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for inner.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller error = %v, want context.Canceled", err)
	}

	second := make(chan []core.Option, 1)
	go func() {
		opts, err := cached.Options(context.Background(), core.OptionItem)
		if err != nil {
			t.Error(err)
		}
		second <- opts
	}()
	close(inner.release)

	opts := <-second
	if len(opts) != 1 || opts[0].Label != "Gudang" {
		t.Errorf("second caller = %+v", opts)
	}
	if inner.cancelled.Load() {
		t.Error("upstream call saw the first caller's cancellation")
	}
	if got := inner.calls.Load(); got != 1 {
		t.Errorf("upstream calls = %d, want 1", got)
	}
}

func TestLookup(t *testing.T) {
	opts := []core.Option{{Value: "B1", Label: "Bank Satu"}, {Value: "B2", Label: "Bank Dua"}}
	tests := []struct {
		value string
		want  string
	}{
		{"B2", "Bank Dua"},
		{"B9", "B9"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			if got := masterdata.Lookup(opts, tt.value); got != tt.want {
				t.Errorf("Lookup(%q) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}
