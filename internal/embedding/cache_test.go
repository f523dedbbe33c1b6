package embedding

import (
	"context"
	"errors"
	"testing"
)

func TestCachedEmbedder_servesRepeatsFromCache(t *testing.T) {
	ctx := context.Background()
	mock := NewMockEmbedder(16)
	c := NewCachedEmbedder(mock, 2).(*CachedEmbedder)

	first, err := c.Embed(ctx, []string{"who is emma"}, ModeQuery)
	if err != nil {
		t.Fatal(err)
	}
	again, err := c.Embed(ctx, []string{"who is emma"}, ModeQuery)
	if err != nil {
		t.Fatal(err)
	}
	if mock.Calls() != 1 {
		t.Errorf("provider calls = %d, want 1", mock.Calls())
	}
	if len(again[0]) != len(first[0]) || again[0][0] != first[0][0] {
		t.Error("cached vector differs from the original")
	}
	if st := c.Stats(); st.Hits != 1 || st.Misses != 1 || st.Entries != 1 || st.Capacity != 2 {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestCachedEmbedder_modeIsPartOfKey(t *testing.T) {
	ctx := context.Background()
	mock := NewMockEmbedder(16)
	c := NewCachedEmbedder(mock, 4)

	if _, err := c.Embed(ctx, []string{"emma"}, ModeIndexing); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Embed(ctx, []string{"emma"}, ModeQuery); err != nil {
		t.Fatal(err)
	}
	if mock.Calls() != 2 {
		t.Errorf("provider calls = %d, want 2", mock.Calls())
	}
}

func TestCachedEmbedder_onlyMissesReachProvider(t *testing.T) {
	ctx := context.Background()
	mock := NewMockEmbedder(16)
	c := NewCachedEmbedder(mock, 4)

	if _, err := c.Embed(ctx, []string{"b"}, ModeIndexing); err != nil {
		t.Fatal(err)
	}
	got, err := c.Embed(ctx, []string{"a", "b", "c"}, ModeIndexing)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d vectors, want 3", len(got))
	}
	want, _ := mock.Embed(ctx, []string{"a", "b", "c"}, ModeIndexing)
	for i := range want {
		if got[i][0] != want[i][0] {
			t.Errorf("vector %d out of order", i)
		}
	}
}

func TestCachedEmbedder_evictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mock := NewMockEmbedder(8)
	c := NewCachedEmbedder(mock, 2).(*CachedEmbedder)

	for _, text := range []string{"a", "b", "a", "c"} {
		if _, err := c.Embed(ctx, []string{text}, ModeQuery); err != nil {
			t.Fatal(err)
		}
	}
	if n := c.Stats().Entries; n != 2 {
		t.Fatalf("Entries = %d, want 2", n)
	}
	calls := mock.Calls()
	if _, err := c.Embed(ctx, []string{"a"}, ModeQuery); err != nil {
		t.Fatal(err)
	}
	if mock.Calls() != calls {
		t.Error("a was recently used and should still be cached")
	}
	if _, err := c.Embed(ctx, []string{"b"}, ModeQuery); err != nil {
		t.Fatal(err)
	}
	if mock.Calls() != calls+1 {
		t.Error("b should have been evicted")
	}
}

func TestCachedEmbedder_errorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	mock := NewMockEmbedder(8).FailWith(boom)
	c := NewCachedEmbedder(mock, 2).(*CachedEmbedder)

	if _, err := c.Embed(ctx, []string{"a"}, ModeQuery); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if n := c.Stats().Entries; n != 0 {
		t.Errorf("Entries = %d after failure", n)
	}
}

func TestNewCachedEmbedder_disabled(t *testing.T) {
	mock := NewMockEmbedder(8)
	if got := NewCachedEmbedder(mock, 0); got != TextEmbedder(mock) {
		t.Error("capacity 0 should return the wrapped embedder")
	}
}
