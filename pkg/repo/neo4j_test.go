package repo

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"

	"github.com/storygraph/storygraph/engine/domain"
	"github.com/storygraph/storygraph/pkg/resilience"
)

// fakeResult replays a fixed set of records.
type fakeResult struct {
	records []*neo4j.Record
	pos     int
	err     error
}

func (f *fakeResult) Next(ctx context.Context) bool {
	if f.pos >= len(f.records) {
		return false
	}
	f.pos++
	return true
}

func (f *fakeResult) Record() *neo4j.Record { return f.records[f.pos-1] }
func (f *fakeResult) Err() error            { return f.err }

// fakeRunner fails the first failures calls, then serves records.
type fakeRunner struct {
	failures int
	failWith error
	records  []*neo4j.Record
	reserr   error
	calls    int
	closed   int
}

func (f *fakeRunner) Run(ctx context.Context, cypher string, params map[string]any) (result, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.failWith
	}
	return &fakeResult{records: f.records, err: f.reserr}, nil
}

func (f *fakeRunner) Close(ctx context.Context) error {
	f.closed++
	return nil
}

type countingCounter struct{ n int }

func (c *countingCounter) Inc() { c.n++ }

func transientErr() error {
	return &db.Neo4jError{Code: "Neo.TransientError.General.MemoryPoolOutOfMemoryError", Msg: "overloaded"}
}

func newTestExecutor(fr *fakeRunner, opts ...Option) (*Executor, *[]time.Duration) {
	var waits []time.Duration
	e := NewExecutor(nil, append([]Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)...)
	e.newSession = func(ctx context.Context) runner { return fr }
	e.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return e, &waits
}

func TestQueryCollectsRows(t *testing.T) {
	fr := &fakeRunner{records: []*neo4j.Record{
		{Keys: []string{"key", "title"}, Values: []any{"story_1_sec_2", "The Buildup"}},
		{Keys: []string{"key", "title"}, Values: []any{"story_1_sec_3", nil}},
	}}
	e, _ := newTestExecutor(fr)

	rows, err := e.Query(context.Background(), "MATCH (n) RETURN n", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows", len(rows))
	}
	if got := rows[0].Get("key").AsString(); got != "story_1_sec_2" {
		t.Fatalf("rows[0].key = %q", got)
	}
	if !rows[1].Get("title").IsNull() {
		t.Fatal("null column should stay null")
	}
	if fr.closed != 1 {
		t.Fatalf("session closed %d times, want 1", fr.closed)
	}
}

func TestQueryRetriesTransientWithLinearBackoff(t *testing.T) {
	fr := &fakeRunner{
		failures: 2,
		failWith: transientErr(),
		records:  []*neo4j.Record{{Keys: []string{"n"}, Values: []any{int64(1)}}},
	}
	counter := &countingCounter{}
	e, waits := newTestExecutor(fr, WithRetryCounter(counter))

	rows, err := e.Query(context.Background(), "MATCH (n) RETURN n", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %+v", rows)
	}
	if fr.calls != 3 {
		t.Fatalf("store called %d times, want 3", fr.calls)
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(*waits) != len(want) || (*waits)[0] != want[0] || (*waits)[1] != want[1] {
		t.Fatalf("waits = %v, want %v", *waits, want)
	}
	if counter.n != 2 {
		t.Fatalf("retry counter = %d, want 2", counter.n)
	}
}

func TestQueryFatalFailsImmediately(t *testing.T) {
	fr := &fakeRunner{failures: 10, failWith: errors.New("SyntaxError: unexpected token")}
	e, waits := newTestExecutor(fr)

	_, err := e.Query(context.Background(), "MATCH oops", nil)
	if !errors.Is(err, domain.ErrUpstreamFatal) {
		t.Fatalf("err = %v, want ErrUpstreamFatal", err)
	}
	if fr.calls != 1 {
		t.Fatalf("store called %d times, want 1", fr.calls)
	}
	if len(*waits) != 0 {
		t.Fatalf("fatal error slept: %v", *waits)
	}
}

func TestQueryExhaustsRetryBudget(t *testing.T) {
	fr := &fakeRunner{failures: 10, failWith: transientErr()}
	e, _ := newTestExecutor(fr)

	_, err := e.Query(context.Background(), "MATCH (n) RETURN n", nil)
	if !errors.Is(err, domain.ErrUpstreamTransient) {
		t.Fatalf("err = %v, want ErrUpstreamTransient", err)
	}
	if fr.calls != 3 {
		t.Fatalf("store called %d times, want 3", fr.calls)
	}
}

func TestQueryStreamError(t *testing.T) {
	fr := &fakeRunner{reserr: errors.New("stream truncated")}
	e, _ := newTestExecutor(fr)

	_, err := e.Query(context.Background(), "MATCH (n) RETURN n", nil)
	if !errors.Is(err, domain.ErrUpstreamFatal) {
		t.Fatalf("err = %v, want ErrUpstreamFatal", err)
	}
}

func TestQueryOpenBreakerCountsAsTransient(t *testing.T) {
	fr := &fakeRunner{failures: 10, failWith: transientErr()}
	breaker := resilience.NewBreaker(resilience.BreakerOpts{FailThreshold: 1, Timeout: time.Hour})
	e, _ := newTestExecutor(fr, WithBreaker(breaker), WithAttempts(2))

	_, err := e.Query(context.Background(), "MATCH (n) RETURN n", nil)
	if !errors.Is(err, domain.ErrUpstreamTransient) {
		t.Fatalf("err = %v, want ErrUpstreamTransient", err)
	}
	// The first attempt tripped the breaker; the second never reached the store.
	if fr.calls != 1 {
		t.Fatalf("store called %d times, want 1", fr.calls)
	}
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("err = %v, want wrapped ErrCircuitOpen", err)
	}
}

func TestQuerySleepHonoursContext(t *testing.T) {
	fr := &fakeRunner{failures: 10, failWith: transientErr()}
	e, _ := newTestExecutor(fr)
	e.sleep = func(ctx context.Context, d time.Duration) error { return context.Canceled }

	_, err := e.Query(context.Background(), "MATCH (n) RETURN n", nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if fr.calls != 1 {
		t.Fatalf("store called %d times after cancelled sleep, want 1", fr.calls)
	}
}

func TestTransientClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"transient neo4j error", transientErr(), true},
		{"open breaker", resilience.ErrCircuitOpen, true},
		{"plain error", errors.New("boom"), false},
		{"client error", &db.Neo4jError{Code: "Neo.ClientError.Statement.SyntaxError", Msg: "bad"}, false},
	}
	for _, tt := range tests {
		if got := transient(tt.err); got != tt.want {
			t.Errorf("%s: transient() = %v, want %v", tt.name, got, tt.want)
		}
	}
}
