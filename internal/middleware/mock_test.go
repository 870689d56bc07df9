package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/hitoshi/authpage/internal/auth"
)

// --- モック定義 ---

type mockSessionResolver struct {
	getSessionFn func(ctx context.Context, token string) (auth.SessionResult, error)
}

func (m *mockSessionResolver) GetSession(ctx context.Context, token string) (auth.SessionResult, error) {
	if m.getSessionFn != nil {
		return m.getSessionFn(ctx, token)
	}
	return auth.SessionResult{Status: auth.StatusUnauthenticated}, nil
}

// recordingCollector は記録されたメトリクスを保持するテスト用Collector。
type recordingCollector struct {
	mu        sync.Mutex
	lookups   []string
	statuses  []int
	latencies []time.Duration
}

func (c *recordingCollector) RecordSignIn(provider, result string) {}
func (c *recordingCollector) RecordSignOut()                       {}
func (c *recordingCollector) RecordExpiredPurged(string, int64)    {}

func (c *recordingCollector) RecordSessionLookup(result string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookups = append(c.lookups, result)
}

func (c *recordingCollector) RecordHTTPStatus(statusCode int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses = append(c.statuses, statusCode)
}

func (c *recordingCollector) RecordRequestLatency(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latencies = append(c.latencies, d)
}
