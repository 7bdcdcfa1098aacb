package cache

import "testing"

func TestNamespaceTranslator(t *testing.T) {
	tr := NewNamespaceTranslator(16, 8, []Namespace{
		{ID: 0, Min: 0, Start: 0},
		{ID: 1, Min: 0, Start: 100},
		{ID: 3, Min: 2, Start: 200},
	})

	tests := []struct {
		id   int32
		want int
	}{
		{7, 7},
		{1<<16 | 5, 105},
		{3<<16 | 2, 200},
		{3<<16 | 1, 1},    // below the namespace minimum
		{2<<16 | 4, 104},  // missing namespace falls back to 1
		{1<<24 | 9, 9},    // length bits are ignored
		{1<<24 | 1<<16, 100},
	}
	for _, tt := range tests {
		if got := tr.Index(tt.id); got != tt.want {
			t.Errorf("Index(%#x) = %d, want %d", tt.id, got, tt.want)
		}
	}

	for _, slot := range []int{0, 7, 99, 100, 150, 200, 250} {
		if got := tr.Index(tr.StringID(slot)); got != slot {
			t.Errorf("Index(StringID(%d)) = %d", slot, got)
		}
	}
}

func TestRangeTranslator(t *testing.T) {
	res, err := DefaultResources()
	if err != nil {
		t.Fatal(err)
	}
	tr := NewRangeTranslator(res.Strings.Ranges[HaloReachRetail])

	tests := []struct {
		id   int32
		want int
	}{
		{5, 5},
		{1123, 1123},
		{1124, 1124 + 4604},
		{129875, 1},
		{1174140, 1},
		{1829345, 1},
	}
	for _, tt := range tests {
		if got := tr.Index(tt.id); got != tt.want {
			t.Errorf("Index(%d) = %d, want %d", tt.id, got, tt.want)
		}
	}
	for _, slot := range []int{0, 5, 1123, 5728, 9000} {
		if got := tr.Index(tr.StringID(slot)); got != slot {
			t.Errorf("Index(StringID(%d)) = %d", slot, got)
		}
	}
}

func TestHeaderNamespaces(t *testing.T) {
	ns := headerNamespaces([]int32{10, 5, 3}, 17)
	tr := NewNamespaceTranslator(17, 8, ns)

	tests := []struct {
		id   int32
		want int
	}{
		{5, 5},
		{12, 20},
		{1<<17 | 2, 12},
		{2<<17 | 0, 15},
	}
	for _, tt := range tests {
		if got := tr.Index(tt.id); got != tt.want {
			t.Errorf("Index(%#x) = %d, want %d", tt.id, got, tt.want)
		}
	}
	for _, slot := range []int{0, 9, 10, 14, 15, 17, 18, 30} {
		if got := tr.Index(tr.StringID(slot)); got != slot {
			t.Errorf("Index(StringID(%d)) = %d", slot, got)
		}
	}

	if headerNamespaces([]int32{10}, 17) != nil {
		t.Error("single namespace should need no translation")
	}
}

func TestCollectionFor(t *testing.T) {
	tests := map[CacheType]string{
		Halo3Retail:     "halo3",
		Halo3ODST:       "halo3",
		MccHalo3:        "",
		HaloReachRetail: "",
		MccHaloReachU13: "mccHaloReach",
	}
	for c, want := range tests {
		if got := collectionFor(c); got != want {
			t.Errorf("%s: got %q, want %q", c, got, want)
		}
	}
}
