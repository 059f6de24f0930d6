package encode

import (
	"bytes"
	"strings"
	"testing"
)

func TestWriteCHNSanitizesAndAppendsTitle(t *testing.T) {
	var m Measurement
	m.Title = "Background\x00 Run"
	m.SetGammaCounts([]float64{1, 2, 3}, 1, 1)

	var buf bytes.Buffer
	if err := WriteCHN(&buf, m); err != nil {
		t.Fatalf("WriteCHN: %v", err)
	}
	if !strings.Contains(buf.String(), "Background Run") {
		t.Fatalf("expected sanitized title to appear in output, got %q", buf.Bytes())
	}
}

func TestWriteCHNOmitsTitleWhenUnset(t *testing.T) {
	var m Measurement
	m.SetGammaCounts([]float64{1, 2, 3}, 1, 1)

	var buf bytes.Buffer
	if err := WriteCHN(&buf, m); err != nil {
		t.Fatalf("WriteCHN: %v", err)
	}
	// 30-byte header + 3 little-endian int32 counts, no calibration
	// footer (GammaCalibration is unset) and no title record.
	if buf.Len() != 30+3*4 {
		t.Fatalf("expected no trailing title record, got %d bytes", buf.Len())
	}
}
