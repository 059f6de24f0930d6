package decode

import (
	"bytes"
	"math"
	"testing"

	specutil "github.com/sixy6e/go-specutil"
	"github.com/sixy6e/go-specutil/encode"
)

func TestCHNRoundTrip(t *testing.T) {
	var m encode.Measurement
	m.DetectorName = "gamma"
	m.SetGammaCounts([]float64{1, 5, 20, 100, 7}, 12.34, 13.0)
	cal, err := specutil.NewPolynomialCalibration([]float64{0, 3, 0.001}, 5, nil)
	if err != nil {
		t.Fatalf("calibration: %v", err)
	}
	_ = m.SetEnergyCalibration(cal)

	var buf bytes.Buffer
	if err := encode.WriteCHN(&buf, m); err != nil {
		t.Fatalf("WriteCHN: %v", err)
	}

	sf, err := decodeCHN(buf.Bytes())
	if err != nil {
		t.Fatalf("decodeCHN: %v", err)
	}
	got := sf.GammaMeasurements()
	if len(got) != 1 {
		t.Fatalf("expected 1 measurement, got %d", len(got))
	}
	if len(got[0].GammaCounts) != 5 {
		t.Fatalf("expected 5 channels, got %d", len(got[0].GammaCounts))
	}
	for i, want := range []float64{1, 5, 20, 100, 7} {
		if got[0].GammaCounts[i] != want {
			t.Fatalf("channel %d: got %v, want %v", i, got[0].GammaCounts[i], want)
		}
	}
	if math.Abs(got[0].LiveTimeS-12.34) > 0.02 {
		t.Fatalf("live time round trip off: got %v, want ~12.34", got[0].LiveTimeS)
	}

	wantEnergy, _ := cal.EnergyForChannel(3)
	gotEnergy, _ := got[0].GammaCalibration.EnergyForChannel(3)
	if math.Abs(wantEnergy-gotEnergy) > 1e-3 {
		t.Fatalf("calibration round trip off: got %v, want %v", gotEnergy, wantEnergy)
	}
}

func TestDecodeCHNRejectsTooShort(t *testing.T) {
	if _, err := decodeCHN([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected an error for a too-short buffer")
	}
}
