package querylog

import (
	"context"
	"path/filepath"
	"testing"
)

func TestLoggerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "query_logs.db")
	ctx := context.Background()

	l, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	records := []Record{
		{TraceID: "t1", Query: "first", Hybrid: true, TopK: 5, LatencyMS: 12.5, ResultCount: 3},
		{TraceID: "t2", Query: "second", Hybrid: false, TopK: 10, LatencyMS: 0.4, ResultCount: 0, CacheHit: true},
		{TraceID: "t3", Query: "third", Hybrid: true, TopK: 5, LatencyMS: 30.1, ResultCount: 2,
			Degraded: true, DegradedReason: "vector search failed: backend unavailable"},
	}
	for _, r := range records {
		if err := l.Log(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	recent, err := l.Recent(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 {
		t.Fatalf("Recent(2) returned %d records", len(recent))
	}
	if recent[0].TraceID != "t3" || recent[1].TraceID != "t2" {
		t.Errorf("expected newest first, got %s, %s", recent[0].TraceID, recent[1].TraceID)
	}

	got := recent[0]
	if !got.Degraded || got.DegradedReason == "" {
		t.Errorf("degradation fields did not round-trip: %+v", got)
	}
	if !got.Hybrid || got.TopK != 5 || got.ResultCount != 2 {
		t.Errorf("record fields did not round-trip: %+v", got)
	}
	if got.LatencyMS != 30.1 {
		t.Errorf("latency = %v", got.LatencyMS)
	}
}

func TestLoggerPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "query_logs.db")
	ctx := context.Background()

	l, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Log(ctx, Record{TraceID: "kept", Query: "q"}); err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	l, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	recent, err := l.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 1 || recent[0].TraceID != "kept" {
		t.Errorf("reopened log = %+v", recent)
	}
}
