package decode

import (
	"bytes"
	"math"
	"testing"

	specutil "github.com/sixy6e/go-specutil"
	"github.com/sixy6e/go-specutil/encode"
)

func TestN42RoundTrip(t *testing.T) {
	var m encode.Measurement
	m.DetectorName = "detector"
	m.SetGammaCounts([]float64{0, 10, 40, 10, 0}, 300, 305)
	cal, err := specutil.NewPolynomialCalibration([]float64{0, 2.5}, 5, nil)
	if err != nil {
		t.Fatalf("calibration: %v", err)
	}
	_ = m.SetEnergyCalibration(cal)

	var buf bytes.Buffer
	if err := encode.WriteN42(&buf, m); err != nil {
		t.Fatalf("WriteN42: %v", err)
	}

	sf, err := decodeN42(buf.Bytes())
	if err != nil {
		t.Fatalf("decodeN42: %v", err)
	}
	got := sf.GammaMeasurements()
	if len(got) != 1 {
		t.Fatalf("expected 1 measurement, got %d", len(got))
	}
	if len(got[0].GammaCounts) != 5 {
		t.Fatalf("expected 5 channels, got %d", len(got[0].GammaCounts))
	}
	if math.Abs(got[0].RealTimeS-305) > 1e-6 {
		t.Fatalf("real time round trip off: got %v, want 305", got[0].RealTimeS)
	}

	wantEnergy, _ := cal.EnergyForChannel(2)
	gotEnergy, _ := got[0].GammaCalibration.EnergyForChannel(2)
	if math.Abs(wantEnergy-gotEnergy) > 1e-6 {
		t.Fatalf("calibration round trip off: got %v, want %v", gotEnergy, wantEnergy)
	}
}

func TestDecodeN42ParsesAnalysisResults(t *testing.T) {
	doc := `<?xml version="1.0"?>
<RadInstrumentData>
  <Measurement>
    <StartTime>2024-01-01T00:00:00Z</StartTime>
    <DetectorData>
      <DetectorMeasurement>
        <SpectrumMeasurement>
          <Spectrum>
            <RealTime>PT10S</RealTime>
            <LiveTimeDuration>PT10S</LiveTimeDuration>
            <ChannelData>0 5 10 5 0</ChannelData>
          </Spectrum>
        </SpectrumMeasurement>
      </DetectorMeasurement>
    </DetectorData>
  </Measurement>
  <AnalysisResults>
    <Algorithm>
      <AlgorithmName>IDExample</AlgorithmName>
      <AlgorithmVersion>1.0</AlgorithmVersion>
    </Algorithm>
    <NuclideAnalysis>
      <Nuclide><NuclideName>Cs-137</NuclideName></Nuclide>
      <Nuclide><NuclideName>Co-60</NuclideName></Nuclide>
    </NuclideAnalysis>
  </AnalysisResults>
</RadInstrumentData>`

	sf, err := decodeN42([]byte(doc))
	if err != nil {
		t.Fatalf("decodeN42: %v", err)
	}
	if sf.Analysis == nil {
		t.Fatal("expected Analysis to be populated")
	}
	if sf.Analysis.AlgorithmName != "IDExample" {
		t.Fatalf("AlgorithmName = %q, want IDExample", sf.Analysis.AlgorithmName)
	}
	if len(sf.Analysis.Nuclides) != 2 || sf.Analysis.Nuclides[0] != "Cs-137" || sf.Analysis.Nuclides[1] != "Co-60" {
		t.Fatalf("Nuclides = %v, want [Cs-137 Co-60]", sf.Analysis.Nuclides)
	}
}

func TestDecodeN42RejectsNonXML(t *testing.T) {
	if _, err := decodeN42([]byte("not xml at all")); err == nil {
		t.Fatal("expected an error for non-XML input")
	}
}

func TestParseN42DurationVariants(t *testing.T) {
	cases := map[string]float64{
		"PT120S": 120,
		"PT2M":   120,
	}
	for in, want := range cases {
		got, ok := parseN42Duration(in)
		if !ok {
			t.Fatalf("parseN42Duration(%q) failed", in)
		}
		if got != want {
			t.Fatalf("parseN42Duration(%q) = %v, want %v", in, got, want)
		}
	}
}
