package sizeutil_test

import (
	"testing"

	"torrel/internal/sizeutil"
)

func TestParseAcceptsSIAndIECSuffixes(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"1.46 GB", 1460000000},
		{"700 MB", 700000000},
		{"2GiB", 2147483648},
		{"512 B", 512},
		{"1,5 GB", 1500000000},
	}
	for _, tc := range cases {
		got, err := sizeutil.Parse(tc.in)
		if err != nil {
			t.Fatalf("Parse(%q) returned error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("Parse(%q): got %d want %d", tc.in, got, tc.want)
		}
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "   ", "big", "GB"} {
		if _, err := sizeutil.Parse(in); err == nil {
			t.Fatalf("Parse(%q): expected error", in)
		}
	}
}

func TestIsSize(t *testing.T) {
	for _, in := range []string{"1.46 GB", "700MB", "2 GiB", "512B", "1,5 tb"} {
		if !sizeutil.IsSize(in) {
			t.Fatalf("IsSize(%q): expected true", in)
		}
	}
	for _, in := range []string{"DoVi", "x265", "1080p", "S01E02", ""} {
		if sizeutil.IsSize(in) {
			t.Fatalf("IsSize(%q): expected false", in)
		}
	}
}

func TestGBRoundTrip(t *testing.T) {
	if got := sizeutil.GB(1500000000); got != 1.5 {
		t.Fatalf("GB: got %v want 1.5", got)
	}
	if got := sizeutil.FromGB(1.5); got != 1500000000 {
		t.Fatalf("FromGB: got %d", got)
	}
	if got := sizeutil.FromGB(-1); got != 0 {
		t.Fatalf("FromGB negative: got %d want 0", got)
	}
}
