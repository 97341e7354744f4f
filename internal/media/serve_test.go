package media

import "testing"

func TestParseRange(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		totalSize int64
		wantStart int64
		wantEnd   int64
		wantNil   bool
		wantErr   bool
	}{
		{"no header", "", 1000, 0, 0, true, false},
		{"explicit range", "bytes=0-499", 1000, 0, 499, false, false},
		{"open ended", "bytes=500-", 1000, 500, 999, false, false},
		{"suffix", "bytes=-500", 1000, 500, 999, false, false},
		{"suffix larger than object", "bytes=-5000", 1000, 0, 999, false, false},
		{"end clamped to size", "bytes=0-99999", 1000, 0, 999, false, false},
		{"multi range uses first", "bytes=0-99,200-299", 1000, 0, 99, false, false},
		{"start past end of object", "bytes=1000-", 1000, 0, 0, false, true},
		{"start after end", "bytes=500-100", 1000, 0, 0, false, true},
		{"wrong unit", "items=0-10", 1000, 0, 0, false, true},
		{"empty spec", "bytes=-", 1000, 0, 0, false, true},
		{"garbage", "bytes=abc", 1000, 0, 0, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs, err := parseRange(tt.header, tt.totalSize)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantNil {
				if rs != nil {
					t.Fatalf("expected nil spec, got %+v", rs)
				}
				return
			}
			if rs.start != tt.wantStart || rs.end != tt.wantEnd {
				t.Errorf("got %d-%d, want %d-%d", rs.start, rs.end, tt.wantStart, tt.wantEnd)
			}
		})
	}
}
