package decode

import (
	"bytes"
	"math"
	"testing"

	specutil "github.com/sixy6e/go-specutil"
	"github.com/sixy6e/go-specutil/encode"
)

func TestSPERoundTrip(t *testing.T) {
	var m encode.Measurement
	m.DetectorName = "NaI"
	m.SetGammaCounts([]float64{2, 4, 6, 8}, 60, 62)
	cal, err := specutil.NewPolynomialCalibration([]float64{1, 3}, 4, nil)
	if err != nil {
		t.Fatalf("calibration: %v", err)
	}
	_ = m.SetEnergyCalibration(cal)

	var buf bytes.Buffer
	if err := encode.WriteSPE(&buf, m); err != nil {
		t.Fatalf("WriteSPE: %v", err)
	}

	sf, err := decodeSPE(buf.Bytes())
	if err != nil {
		t.Fatalf("decodeSPE: %v", err)
	}
	got := sf.GammaMeasurements()
	if len(got) != 1 {
		t.Fatalf("expected 1 measurement, got %d", len(got))
	}
	if got[0].DetectorName != "NaI" {
		t.Fatalf("expected detector name NaI, got %q", got[0].DetectorName)
	}
	for i, want := range []float64{2, 4, 6, 8} {
		if got[0].GammaCounts[i] != want {
			t.Fatalf("channel %d: got %v, want %v", i, got[0].GammaCounts[i], want)
		}
	}
	if math.Abs(got[0].LiveTimeS-60) > 1e-6 {
		t.Fatalf("live time round trip off: got %v, want 60", got[0].LiveTimeS)
	}

	wantEnergy, _ := cal.EnergyForChannel(2)
	gotEnergy, _ := got[0].GammaCalibration.EnergyForChannel(2)
	if math.Abs(wantEnergy-gotEnergy) > 1e-6 {
		t.Fatalf("calibration round trip off: got %v, want %v", gotEnergy, wantEnergy)
	}
}

func TestDecodeSPERejectsMissingData(t *testing.T) {
	if _, err := decodeSPE([]byte("$SPEC_ID:\nnothing here\n")); err == nil {
		t.Fatal("expected an error when no $DATA section is present")
	}
}
