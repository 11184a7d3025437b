package pagination

import (
	"context"
	"errors"
	"reflect"
	"strconv"
	"testing"
)

// offsetFetcher serves 0..total-1 in pages of size, using offsets as cursors.
func offsetFetcher(total, size int, calls *int) FetchFunc[int] {
	return func(ctx context.Context, cursor string) (Batch[int], error) {
		*calls++
		start, _ := strconv.Atoi(cursor)
		end := start + size
		if end > total {
			end = total
		}
		var items []int
		for i := start; i < end; i++ {
			items = append(items, i)
		}
		b := Batch[int]{Items: items, HasMore: end < total}
		if b.HasMore {
			b.NextCursor = strconv.Itoa(end)
		}
		return b, nil
	}
}

func TestCollect_FetchCount(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		size      int
		wantCalls int
	}{
		{"empty collection", 0, 10, 1},
		{"single partial page", 3, 10, 1},
		{"exact multiple", 20, 10, 2},
		{"ceil(M/P)", 25, 10, 3},
		{"page size one", 4, 1, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			items, err := All(context.Background(), offsetFetcher(tt.total, tt.size, &calls))
			if err != nil {
				t.Fatalf("All() error: %v", err)
			}
			if calls != tt.wantCalls {
				t.Errorf("fetches = %d, want %d", calls, tt.wantCalls)
			}
			if len(items) != tt.total {
				t.Fatalf("items = %d, want %d", len(items), tt.total)
			}
			for i, v := range items {
				if v != i {
					t.Fatalf("items out of order: %v", items)
				}
			}
		})
	}
}

func TestCollect_StopsOnEmptyCursor(t *testing.T) {
	calls := 0
	fetch := func(ctx context.Context, cursor string) (Batch[int], error) {
		calls++
		return Batch[int]{Items: []int{1}, HasMore: true}, nil
	}

	if err := Collect(context.Background(), fetch, func(Batch[int]) error { return nil }); err != nil {
		t.Fatalf("Collect() error: %v", err)
	}
	if calls != 1 {
		t.Errorf("fetches = %d, want 1", calls)
	}
}

func TestCollect_RepeatedCursor(t *testing.T) {
	fetch := func(ctx context.Context, cursor string) (Batch[int], error) {
		return Batch[int]{HasMore: true, NextCursor: "same"}, nil
	}
	if err := Collect(context.Background(), fetch, func(Batch[int]) error { return nil }); err == nil {
		t.Error("expected error for a cursor that never advances")
	}
}

func TestCollect_FetchErrorPropagatesUnchanged(t *testing.T) {
	boom := errors.New("boom")
	var cursors []string
	fetch := func(ctx context.Context, cursor string) (Batch[int], error) {
		cursors = append(cursors, cursor)
		if cursor == "2" {
			return Batch[int]{}, boom
		}
		return Batch[int]{Items: []int{0, 1}, HasMore: true, NextCursor: "2"}, nil
	}

	var got []int
	err := Collect(context.Background(), fetch, func(b Batch[int]) error {
		got = append(got, b.Items...)
		return nil
	})
	if err != boom {
		t.Errorf("Collect() error = %v, want boom", err)
	}
	if !reflect.DeepEqual(cursors, []string{"", "2"}) {
		t.Errorf("cursors = %v", cursors)
	}
	if !reflect.DeepEqual(got, []int{0, 1}) {
		t.Errorf("delivered items = %v", got)
	}
}

func TestCollect_OnBatchErrorStops(t *testing.T) {
	calls := 0
	stop := errors.New("stop")
	err := Collect(context.Background(), offsetFetcher(30, 10, &calls), func(Batch[int]) error { return stop })
	if !errors.Is(err, stop) || calls != 1 {
		t.Errorf("err = %v after %d fetches, want stop after 1", err, calls)
	}
}

func TestCollect_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	if err := Collect(ctx, offsetFetcher(5, 1, &calls), func(Batch[int]) error { return nil }); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if calls != 0 {
		t.Errorf("fetches = %d, want 0", calls)
	}
}
