package specutil

import (
	"math"
	"testing"
)

func TestFinalizeAssignsDetectorNumbersAndRepairsCalibration(t *testing.T) {
	sf := NewSpecFile()
	var m Measurement
	m.DetectorName = "Aa1"
	m.SetGammaCounts(make([]float64, 128), 10, 10)
	sf.AddMeasurement(m)

	warnings := sf.Finalize(DefaultConfig())
	if len(warnings) != 1 {
		t.Fatalf("expected one repaired-calibration warning, got %d: %v", len(warnings), warnings)
	}

	got := sf.GammaMeasurements()
	if len(got) != 1 {
		t.Fatalf("expected one gamma measurement, got %d", len(got))
	}
	if !got[0].GammaCalibration.IsValid() {
		t.Fatal("expected a synthesized default calibration")
	}
	if got[0].DetectorNumber != 0 {
		t.Fatalf("expected detector number 0, got %d", got[0].DetectorNumber)
	}
}

func TestFinalizeMergesNeutronIntoGamma(t *testing.T) {
	sf := NewSpecFile()

	var gamma Measurement
	gamma.DetectorName = "Aa1"
	gamma.SampleNumber = 1
	gamma.SetGammaCounts(make([]float64, 64), 10, 10)
	sf.AddMeasurement(gamma)

	var neutron Measurement
	neutron.DetectorName = "Aa1Neutron"
	neutron.SampleNumber = 1
	neutron.SetNeutronCounts([]float64{1, 2, 3}, 10)
	sf.AddMeasurement(neutron)

	sf.Finalize(DefaultConfig())

	merged := sf.GammaMeasurements()
	if len(merged) != 1 {
		t.Fatalf("expected the neutron record to be merged away, got %d gamma records", len(merged))
	}
	if !merged[0].ContainedNeutron {
		t.Fatal("expected merged record to carry neutron counts")
	}
	if merged[0].NeutronCountsSum != 6 {
		t.Fatalf("expected neutron sum 6, got %v", merged[0].NeutronCountsSum)
	}
}

func TestFinalizeMergeRebuildsSampleIndex(t *testing.T) {
	sf := NewSpecFile()

	var gammaA Measurement
	gammaA.DetectorName = "Aa1"
	gammaA.SampleNumber = 1
	gammaA.SetGammaCounts(make([]float64, 16), 10, 10)
	sf.AddMeasurement(gammaA)

	var neutronA Measurement
	neutronA.DetectorName = "Aa1Neutron"
	neutronA.SampleNumber = 1
	neutronA.SetNeutronCounts([]float64{1, 2}, 10)
	sf.AddMeasurement(neutronA)

	var gammaB Measurement
	gammaB.DetectorName = "Ab1"
	gammaB.SampleNumber = 2
	gammaB.SetGammaCounts(make([]float64, 16), 10, 10)
	sf.AddMeasurement(gammaB)

	sf.Finalize(DefaultConfig())

	// Before the fix, sampleToIndices still pointed at pre-merge
	// positions and this panicked with an index out of range once the
	// neutron-only record was dropped from f.measurements.
	for _, sample := range sf.SampleNumbers() {
		records := sf.SampleMeasurements(sample)
		if len(records) == 0 {
			t.Fatalf("sample %d: expected at least one record", sample)
		}
	}
}

func TestSuggestedSumEnergyCalibrationPicksWidestChannelCount(t *testing.T) {
	sf := NewSpecFile()

	small, _ := NewPolynomialCalibration([]float64{0, 3}, 256, nil)
	large, _ := NewPolynomialCalibration([]float64{0, 1}, 1024, nil)

	var m1, m2 Measurement
	m1.DetectorName, m2.DetectorName = "Aa1", "Ab1"
	m1.SetGammaCounts(make([]float64, 256), 10, 10)
	_ = m1.SetEnergyCalibration(small)
	m2.SetGammaCounts(make([]float64, 1024), 10, 10)
	_ = m2.SetEnergyCalibration(large)
	sf.AddMeasurement(m1)
	sf.AddMeasurement(m2)
	sf.Finalize(DefaultConfig())

	cal, err := sf.SuggestedSumEnergyCalibration()
	if err != nil {
		t.Fatalf("SuggestedSumEnergyCalibration: %v", err)
	}
	if cal.ChannelCount() != 1024 {
		t.Fatalf("expected the 1024-channel calibration to be suggested, got %d", cal.ChannelCount())
	}
}

func TestSumMeasurementsPreservesTotalCounts(t *testing.T) {
	sf := NewSpecFile()
	cal, _ := NewPolynomialCalibration([]float64{0, 10}, 10, nil)

	for i := 0; i < 3; i++ {
		var m Measurement
		m.DetectorName = "Aa1"
		m.SetGammaCounts([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 10, 10)
		_ = m.SetEnergyCalibration(cal)
		sf.AddMeasurement(m)
	}
	sf.Finalize(DefaultConfig())

	total, err := sf.SumMeasurements([]int{0, 1, 2}, cal, DefaultConfig())
	if err != nil {
		t.Fatalf("SumMeasurements: %v", err)
	}
	if math.Abs(total.GammaCountSum-165) > 1e-6 {
		t.Fatalf("expected summed total 165, got %v", total.GammaCountSum)
	}
}

func TestHasCommonBinning(t *testing.T) {
	sf := NewSpecFile()
	cal, _ := NewPolynomialCalibration([]float64{0, 1}, 100, nil)

	var m1, m2 Measurement
	m1.DetectorName, m2.DetectorName = "Aa1", "Ab1"
	m1.SetGammaCounts(make([]float64, 100), 10, 10)
	m2.SetGammaCounts(make([]float64, 100), 10, 10)
	_ = m1.SetEnergyCalibration(cal)
	_ = m2.SetEnergyCalibration(cal)
	sf.AddMeasurement(m1)
	sf.AddMeasurement(m2)
	sf.Finalize(DefaultConfig())

	if !sf.HasCommonBinning() {
		t.Fatal("expected identical calibrations to be detected as common binning")
	}
}
