package encode

import (
	"bytes"
	"strings"
	"testing"

	specutil "github.com/sixy6e/go-specutil"
)

func TestWriteCSVHeaderAndRows(t *testing.T) {
	var m Measurement
	m.SetGammaCounts([]float64{5, 10, 15}, 1, 1)
	cal, err := specutil.NewPolynomialCalibration([]float64{0, 2}, 3, nil)
	if err != nil {
		t.Fatalf("calibration: %v", err)
	}
	_ = m.SetEnergyCalibration(cal)

	var buf bytes.Buffer
	if err := WriteCSV(&buf, m); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected a header and 3 data rows, got %d lines: %v", len(lines), lines)
	}
	if lines[0] != "channel,energy_kev,counts" {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "0,0.000,5") {
		t.Fatalf("unexpected first row: %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "1,2.000,10") {
		t.Fatalf("unexpected second row: %q", lines[2])
	}
}

func TestWriteCSVRejectsEmptyCounts(t *testing.T) {
	var m Measurement
	if err := WriteCSV(&bytes.Buffer{}, m); err == nil {
		t.Fatal("expected an error writing a measurement with no gamma counts")
	}
}
