package discovery

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"enrichment_backend/internal/identity"
	"enrichment_backend/platform/apperr"
	"enrichment_backend/platform/logger"
	"enrichment_backend/platform/retry"
)

func testSource(lookup LookupFunc) Source {
	return NewSource(SourceConfig{
		Name:     "test-source",
		Supports: func(identity.Contact) bool { return true },
		Lookup:   lookup,
		Retry: retry.Config{
			MaxRetries: 3,
			BaseDelay:  time.Millisecond,
			MaxDelay:   10 * time.Millisecond,
		},
		Timeout:     time.Second,
		RawCacheTTL: time.Minute,
	}, logger.New("test"))
}

func TestSourceMemoizesSuccessfulResponses(t *testing.T) {
	var calls int32
	src := testSource(func(ctx context.Context, c identity.Contact) (Candidate, error) {
		atomic.AddInt32(&calls, 1)
		return Candidate{TaxID: "52998224725", FullName: "Maria Silva"}, nil
	})
	contact := identity.Contact{Phone: "11999990000"}

	for i := 0; i < 3; i++ {
		if _, err := src.Lookup(context.Background(), contact); err != nil {
			t.Fatalf("lookup %d failed: %v", i, err)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected a single billed call, got %d", got)
	}
}

func TestSourceDoesNotMemoizeFailures(t *testing.T) {
	var calls int32
	src := testSource(func(ctx context.Context, c identity.Contact) (Candidate, error) {
		atomic.AddInt32(&calls, 1)
		return Candidate{}, apperr.NotFound("nothing")
	})
	contact := identity.Contact{Phone: "11999990000"}

	_, _ = src.Lookup(context.Background(), contact)
	_, _ = src.Lookup(context.Background(), contact)
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected misses to be re-queried, got %d calls", got)
	}
}

func TestSourceRetriesTransientFailures(t *testing.T) {
	var calls int32
	src := testSource(func(ctx context.Context, c identity.Contact) (Candidate, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return Candidate{}, apperr.Unavailable("503")
		}
		return Candidate{TaxID: "52998224725", FullName: "Maria Silva"}, nil
	})

	got, err := src.Lookup(context.Background(), identity.Contact{Phone: "11999990000"})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if got.TaxID != "52998224725" {
		t.Fatalf("unexpected candidate %+v", got)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestSourceRetriesCompleteWithinShortTimeout(t *testing.T) {
	var calls int32
	src := NewSource(SourceConfig{
		Name:     "test-source",
		Supports: func(identity.Contact) bool { return true },
		Lookup: func(ctx context.Context, c identity.Contact) (Candidate, error) {
			if atomic.AddInt32(&calls, 1) < 3 {
				return Candidate{}, apperr.Unavailable("503")
			}
			return Candidate{TaxID: "52998224725", FullName: "Maria Silva"}, nil
		},
		Retry:       retry.Config{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond},
		Timeout:     100 * time.Millisecond,
		RawCacheTTL: time.Minute,
	}, logger.New("test"))

	if _, err := src.Lookup(context.Background(), identity.Contact{Phone: "11999990000"}); err != nil {
		t.Fatalf("the retry schedule must fit inside the per-call timeout, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("expected all 3 attempts to run before the deadline, got %d", calls)
	}
}

func TestSourceDoesNotRetryNotFound(t *testing.T) {
	var calls int32
	src := testSource(func(ctx context.Context, c identity.Contact) (Candidate, error) {
		atomic.AddInt32(&calls, 1)
		return Candidate{}, apperr.NotFound("no record")
	})

	_, err := src.Lookup(context.Background(), identity.Contact{Phone: "11999990000"})
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("expected not-found, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("not-found must not be retried, got %d calls", calls)
	}
}

func TestSourceCollapsesConcurrentLookups(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	src := testSource(func(ctx context.Context, c identity.Contact) (Candidate, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return Candidate{TaxID: "52998224725", FullName: "Maria Silva"}, nil
	})
	contact := identity.Contact{Phone: "11999990000"}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := src.Lookup(context.Background(), contact); err != nil {
				t.Errorf("lookup failed: %v", err)
			}
		}()
	}

	// Let the goroutines pile onto the same key before releasing.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected concurrent lookups collapsed into one call, got %d", got)
	}
}
