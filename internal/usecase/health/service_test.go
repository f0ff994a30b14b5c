package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

// --- Mocks ---

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

type mockEmbeddingChecker struct {
	err error
}

func (m *mockEmbeddingChecker) HealthCheck(_ context.Context) error { return m.err }

type mockIndex bool

func (m mockIndex) IsReady() bool { return bool(m) }

// slowPinger blocks until its context expires.
type slowPinger struct{}

func (slowPinger) Ping(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&mockPinger{},
		WithCache(&mockPinger{}),
		WithEmbedding(&mockEmbeddingChecker{}),
		WithIndex(mockIndex(true)),
	)
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	for _, name := range []string{CheckDatabase, CheckCache, CheckEmbedding, CheckIndex} {
		if r.Checks[name] != CheckOK {
			t.Errorf("expected %s %q, got %q", name, CheckOK, r.Checks[name])
		}
	}
}

func TestCheck_OnlyDatabase(t *testing.T) {
	r := New(&mockPinger{}).Check(context.Background())
	if r.Status != Healthy || len(r.Checks) != 1 {
		t.Errorf("expected single healthy check, got %+v", r)
	}
}

func TestCheck_DBErrorIsUnhealthy(t *testing.T) {
	svc := New(&mockPinger{err: errors.New("conn refused")}, WithEmbedding(&mockEmbeddingChecker{}))
	r := svc.Check(context.Background())

	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
	if r.Checks[CheckDatabase] != CheckError {
		t.Errorf("expected database %q, got %q", CheckError, r.Checks[CheckDatabase])
	}
	if r.Checks[CheckEmbedding] != CheckOK {
		t.Errorf("expected embedding %q, got %q", CheckOK, r.Checks[CheckEmbedding])
	}
}

func TestCheck_EmbeddingErrorIsDegraded(t *testing.T) {
	svc := New(&mockPinger{}, WithEmbedding(&mockEmbeddingChecker{err: errors.New("timeout")}))
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks[CheckEmbedding] != CheckError {
		t.Errorf("expected embedding %q, got %q", CheckError, r.Checks[CheckEmbedding])
	}
}

func TestCheck_CacheErrorIsDegraded(t *testing.T) {
	r := New(&mockPinger{}, WithCache(&mockPinger{err: errors.New("down")})).Check(context.Background())
	if r.Status != Degraded || r.Checks[CheckCache] != CheckError {
		t.Errorf("unexpected report %+v", r)
	}
}

func TestCheck_IndexNotReady(t *testing.T) {
	r := New(&mockPinger{}, WithIndex(mockIndex(false))).Check(context.Background())
	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks[CheckIndex] != CheckNotReady {
		t.Errorf("expected index %q, got %q", CheckNotReady, r.Checks[CheckIndex])
	}
}

func TestCheck_Timeout(t *testing.T) {
	svc := New(&mockPinger{}, WithCache(slowPinger{}), WithTimeout(20*time.Millisecond))

	start := time.Now()
	r := svc.Check(context.Background())
	if time.Since(start) > time.Second {
		t.Fatal("check did not honor timeout")
	}
	if r.Checks[CheckCache] != CheckError {
		t.Errorf("expected timed-out cache check to fail, got %q", r.Checks[CheckCache])
	}
}
