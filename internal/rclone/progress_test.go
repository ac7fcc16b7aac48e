package rclone

import (
	"testing"
	"time"
)

var (
	mib = float64(1 << 20)
	gib = float64(1 << 30)
)

func TestParseProgressLineFull(t *testing.T) {
	line := "Transferred:   \t   64.126 MiB / 1.086 GiB, 6%, 21.281 MiB/s, ETA 49s"
	p, ok := ParseProgressLine(line)
	if !ok {
		t.Fatalf("expected line to parse: %q", line)
	}

	wantDone := int64(64.126 * mib)
	if p.BytesDone != wantDone {
		t.Errorf("BytesDone = %d, want %d", p.BytesDone, wantDone)
	}
	wantTotal := int64(1.086 * gib)
	if p.BytesTotal != wantTotal {
		t.Errorf("BytesTotal = %d, want %d", p.BytesTotal, wantTotal)
	}
	if p.Percent != 6 {
		t.Errorf("Percent = %f, want 6", p.Percent)
	}
	wantRate := float64(int64(21.281 * mib))
	if p.Rate != wantRate {
		t.Errorf("Rate = %f, want %f", p.Rate, wantRate)
	}
	if !p.HasETA || p.ETA != 49*time.Second {
		t.Errorf("ETA = %v (has=%v), want 49s", p.ETA, p.HasETA)
	}
	if p.RawLine != line {
		t.Errorf("RawLine not preserved")
	}
}

func TestParseProgressLineOneLineStats(t *testing.T) {
	p, ok := ParseProgressLine("64.126 MiB / 1.086 GiB, 6%, 21.281 MiB/s, ETA 49s")
	if !ok {
		t.Fatal("one-line stats form should parse")
	}
	if p.Percent != 6 {
		t.Errorf("Percent = %f, want 6", p.Percent)
	}
}

func TestParseProgressLineMissingFields(t *testing.T) {
	p, ok := ParseProgressLine("Transferred:         0 B / 0 B, -, 0 B/s, ETA -")
	if !ok {
		t.Fatal("zero-progress line should parse")
	}
	if p.BytesDone != 0 || p.BytesTotal != 0 {
		t.Errorf("bytes = %d/%d, want 0/0", p.BytesDone, p.BytesTotal)
	}
	if p.Percent != -1 {
		t.Errorf("absent percent should stay -1, got %f", p.Percent)
	}
	if p.Rate != 0 {
		t.Errorf("Rate = %f, want 0", p.Rate)
	}
	if p.HasETA {
		t.Error("absent ETA should leave HasETA false")
	}
}

func TestParseProgressLineNoETASegment(t *testing.T) {
	p, ok := ParseProgressLine("Transferred:   500 KiB / 2 MiB, 24%, 100 KiB/s")
	if !ok {
		t.Fatal("line without ETA segment should parse")
	}
	if p.HasETA {
		t.Error("HasETA should be false when ETA segment is missing")
	}
	if p.BytesDone != 500*1024 {
		t.Errorf("BytesDone = %d, want %d", p.BytesDone, 500*1024)
	}
}

func TestParseProgressLineDayETA(t *testing.T) {
	p, ok := ParseProgressLine("Transferred:   1 GiB / 100 GiB, 1%, 1 MiB/s, ETA 1d2h3m")
	if !ok {
		t.Fatal("day-form ETA line should parse")
	}
	want := 24*time.Hour + 2*time.Hour + 3*time.Minute
	if !p.HasETA || p.ETA != want {
		t.Errorf("ETA = %v, want %v", p.ETA, want)
	}
}

func TestParseProgressLineRejectsNonProgress(t *testing.T) {
	for _, line := range []string{
		"",
		"Errors:                 0",
		"Elapsed time:        12.5s",
		"Checks:                 0 / 0, -",
		"Transferred:            3 / 12, 25%", // file-count line, no rate
		"2024/05/01 12:00:00 NOTICE: dir: Copied (new)",
		"random noise",
	} {
		if _, ok := ParseProgressLine(line); ok {
			t.Errorf("line should not parse as progress: %q", line)
		}
	}
}

func TestParseSizeUnits(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"0 B", 0, true},
		{"512 B", 512, true},
		{"1 KiB", 1024, true},
		{"2.5 MiB", int64(2.5 * mib), true},
		{"1.086 GiB", int64(1.086 * gib), true},
		{"3 TiB", 3 << 40, true},
		{"1,024 KiB", 1024 * 1024, true},
		{"1.5 GBytes", int64(1.5 * gib), true}, // older rclone unit style
		{"-", 0, false},
		{"abc", 0, false},
		{"10 XB", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseSize(tc.in)
		if ok != tc.ok {
			t.Errorf("parseSize(%q) ok = %v, want %v", tc.in, ok, tc.ok)
			continue
		}
		if ok && got != tc.want {
			t.Errorf("parseSize(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
