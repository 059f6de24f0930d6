package specutil

import (
	"math"
	"testing"
)

func TestPolynomialFRFRoundTrip(t *testing.T) {
	poly, err := NewPolynomialCalibration([]float64{5, 2.5, 0.001}, 512, nil)
	if err != nil {
		t.Fatalf("NewPolynomialCalibration: %v", err)
	}
	frf, err := PolynomialToFRF(poly)
	if err != nil {
		t.Fatalf("PolynomialToFRF: %v", err)
	}
	back, err := FRFToPolynomial(frf)
	if err != nil {
		t.Fatalf("FRFToPolynomial: %v", err)
	}

	origCoeffs := poly.Coefficients()
	gotCoeffs := back.Coefficients()
	for i := range origCoeffs {
		if math.Abs(origCoeffs[i]-gotCoeffs[i]) > 1e-6 {
			t.Fatalf("coefficient %d: got %v, want %v", i, gotCoeffs[i], origCoeffs[i])
		}
	}
}

func TestCombineChannelsReducesChannelCount(t *testing.T) {
	cal, err := NewPolynomialCalibration([]float64{0, 1}, 100, nil)
	if err != nil {
		t.Fatalf("NewPolynomialCalibration: %v", err)
	}
	combined, err := CombineChannels(cal, 4)
	if err != nil {
		t.Fatalf("CombineChannels: %v", err)
	}
	if combined.ChannelCount() != 25 {
		t.Fatalf("expected 25 combined channels, got %d", combined.ChannelCount())
	}
	if e, _ := combined.EnergyForChannel(0); e != 0 {
		t.Fatalf("expected energy 0 at channel 0, got %v", e)
	}
}

func TestRebinByLowerEdgePreservesSum(t *testing.T) {
	srcEdges := []float64{0, 1, 2, 3, 4, 5}
	srcCounts := []float64{10, 20, 30, 40, 50}
	dstEdges := []float64{0, 2, 4, 5}

	dst, err := RebinByLowerEdge(srcEdges, srcCounts, dstEdges)
	if err != nil {
		t.Fatalf("RebinByLowerEdge: %v", err)
	}
	var total, newTotal float64
	for _, c := range srcCounts {
		total += c
	}
	for _, c := range dst {
		newTotal += c
	}
	if math.Abs(total-newTotal) > 1e-6 {
		t.Fatalf("sum not preserved: got %v, want %v", newTotal, total)
	}
}

func TestRebinByLowerEdgeOverflowAtEdges(t *testing.T) {
	srcEdges := []float64{0, 1, 2, 3}
	srcCounts := []float64{10, 10, 10}
	dstEdges := []float64{1, 2}

	dst, err := RebinByLowerEdge(srcEdges, srcCounts, dstEdges)
	if err != nil {
		t.Fatalf("RebinByLowerEdge: %v", err)
	}
	want := 30.0
	if math.Abs(dst[0]-want) > 1e-6 {
		t.Fatalf("expected all counts folded into the single destination channel (%v), got %v", want, dst[0])
	}
}

func TestFitPolynomialCalibrationRecoversLine(t *testing.T) {
	points := []ChannelEnergyPair{
		{Channel: 0, Energy: 10},
		{Channel: 100, Energy: 310},
		{Channel: 200, Energy: 610},
	}
	cal, err := FitPolynomialCalibration(points, 1, 1024)
	if err != nil {
		t.Fatalf("FitPolynomialCalibration: %v", err)
	}
	coeffs := cal.Coefficients()
	if math.Abs(coeffs[0]-10) > 1e-6 || math.Abs(coeffs[1]-3) > 1e-6 {
		t.Fatalf("got coefficients %v, want [10, 3]", coeffs)
	}
}

func TestTruncateChannelsKeepsUnderOverflow(t *testing.T) {
	cal, err := NewPolynomialCalibration([]float64{0, 1}, 10, nil)
	if err != nil {
		t.Fatalf("NewPolynomialCalibration: %v", err)
	}
	counts := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	newCounts, newCal, err := TruncateChannels(counts, cal, 2, 7, true)
	if err != nil {
		t.Fatalf("TruncateChannels: %v", err)
	}
	if len(newCounts) != 6 {
		t.Fatalf("expected 6 channels, got %d", len(newCounts))
	}
	if newCounts[0] != 3+1+2 {
		t.Fatalf("expected underflow folded into first channel, got %v", newCounts[0])
	}
	if newCounts[5] != 8+9+10 {
		t.Fatalf("expected overflow folded into last channel, got %v", newCounts[5])
	}
	if newCal.ChannelCount() != 6 {
		t.Fatalf("expected truncated calibration channel count 6, got %d", newCal.ChannelCount())
	}
}
