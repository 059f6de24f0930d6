package decode

import (
	"testing"
	"time"
)

func TestDecodeCSVBasic(t *testing.T) {
	buf := []byte("# 10.0 10.0\n0,0.0,5\n1,2.5,15\n2,5.0,30\n")
	sf, err := decodeCSV(buf)
	if err != nil {
		t.Fatalf("decodeCSV: %v", err)
	}
	got := sf.GammaMeasurements()
	if len(got) != 1 {
		t.Fatalf("expected 1 measurement, got %d", len(got))
	}
	for i, want := range []float64{5, 15, 30} {
		if got[0].GammaCounts[i] != want {
			t.Fatalf("channel %d: got %v, want %v", i, got[0].GammaCounts[i], want)
		}
	}
	if got[0].LiveTimeS != 10 || got[0].RealTimeS != 10 {
		t.Fatalf("expected live/real time 10/10, got %v/%v", got[0].LiveTimeS, got[0].RealTimeS)
	}
}

func TestDecodeCSVRejectsEmpty(t *testing.T) {
	if _, err := decodeCSV([]byte("# 1 1\n\n")); err == nil {
		t.Fatal("expected an error for a file with no numeric data lines")
	}
}

func TestParseDailyFileTimestamp(t *testing.T) {
	got, ok := parseDailyFileTimestamp("2024/060 13:45:30")
	if !ok {
		t.Fatal("expected the GADRAS-style timestamp to parse")
	}
	want := time.Date(2024, time.February, 29, 13, 45, 30, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParseDailyFileTimestampRejectsGarbage(t *testing.T) {
	if _, ok := parseDailyFileTimestamp("not a timestamp"); ok {
		t.Fatal("expected garbage input to be rejected")
	}
}
