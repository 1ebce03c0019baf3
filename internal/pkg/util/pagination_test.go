package util

import "testing"

func TestNewPageMeta(t *testing.T) {
	cases := []struct {
		name       string
		page       int
		limit      int
		total      int64
		totalPages int
		hasMore    bool
	}{
		{"first page of many", 1, 20, 45, 3, true},
		{"middle page", 2, 20, 45, 3, true},
		{"last page", 3, 20, 45, 3, false},
		{"exact fit", 2, 20, 40, 2, false},
		{"empty result", 1, 20, 0, 0, false},
		{"single item", 1, 20, 1, 1, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			meta := NewPageMeta(tc.page, tc.limit, tc.total)
			if meta.TotalPages != tc.totalPages {
				t.Fatalf("expected total_pages=%d, got %d", tc.totalPages, meta.TotalPages)
			}
			if meta.HasMore != tc.hasMore {
				t.Fatalf("expected has_more=%v, got %v", tc.hasMore, meta.HasMore)
			}
			if meta.Total != tc.total {
				t.Fatalf("expected total=%d, got %d", tc.total, meta.Total)
			}
		})
	}
}

func TestNormalizePage(t *testing.T) {
	cases := []struct {
		name      string
		page      int
		limit     int
		wantPage  int
		wantLimit int
	}{
		{"defaults applied", 0, 0, 1, 20},
		{"negative page", -3, 10, 1, 10},
		{"limit capped", 1, 500, 1, 100},
		{"valid passthrough", 3, 50, 3, 50},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			page, limit := NormalizePage(tc.page, tc.limit, 20, 100)
			if page != tc.wantPage || limit != tc.wantLimit {
				t.Fatalf("expected (%d, %d), got (%d, %d)", tc.wantPage, tc.wantLimit, page, limit)
			}
		})
	}
}
