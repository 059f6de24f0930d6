package specutil

import (
	"math"
	"testing"
)

func TestPolynomialCalibrationEnergyForChannel(t *testing.T) {
	cal, err := NewPolynomialCalibration([]float64{10, 3}, 1024, nil)
	if err != nil {
		t.Fatalf("NewPolynomialCalibration: %v", err)
	}
	e, err := cal.EnergyForChannel(0)
	if err != nil {
		t.Fatalf("EnergyForChannel: %v", err)
	}
	if e != 10 {
		t.Fatalf("EnergyForChannel(0) = %v, want 10", e)
	}
	if !strictlyIncreasing(cal.LowerEdgeEnergies()) {
		t.Fatal("lower edges must be strictly increasing")
	}
}

func TestFindChannelForEnergyFRF(t *testing.T) {
	cal, err := NewFRFCalibration([]float64{-1.926107, 3020.178, -8.720629}, 1024, nil)
	if err != nil {
		t.Fatalf("NewFRFCalibration: %v", err)
	}

	for _, energy := range []float64{1121.68, 1450.87, 1480.65} {
		ch, err := cal.ChannelForEnergy(energy, 0.1)
		if err != nil {
			t.Fatalf("ChannelForEnergy(%v): %v", energy, err)
		}
		got, err := cal.EnergyForChannel(ch)
		if err != nil {
			t.Fatalf("EnergyForChannel(%v): %v", ch, err)
		}
		if math.Abs(got-energy) > 0.1 {
			t.Fatalf("round trip for %v: got energy %v at channel %v", energy, got, ch)
		}
	}
}

func TestLowerChannelEdgeCalibrationSynthesizesUpperEdge(t *testing.T) {
	edges := []float64{0, 1, 2, 3}
	cal, err := NewLowerChannelEdgeCalibration(edges, 4)
	if err != nil {
		t.Fatalf("NewLowerChannelEdgeCalibration: %v", err)
	}
	if len(cal.LowerEdgeEnergies()) != 5 {
		t.Fatalf("expected 5 edges, got %d", len(cal.LowerEdgeEnergies()))
	}
	if cal.LowerEdgeEnergies()[4] != 4 {
		t.Fatalf("expected synthesized upper edge 4, got %v", cal.LowerEdgeEnergies()[4])
	}
}

func TestCalibrationEqual(t *testing.T) {
	a, _ := NewPolynomialCalibration([]float64{0, 3}, 100, nil)
	b, _ := NewPolynomialCalibration([]float64{0, 3}, 100, nil)
	c, _ := NewPolynomialCalibration([]float64{0, 4}, 100, nil)
	if !a.Equal(b) {
		t.Fatal("expected equal calibrations to compare equal")
	}
	if a.Equal(c) {
		t.Fatal("expected different calibrations to compare unequal")
	}
}

func TestInvalidCalibrationRejectsBadChannelCount(t *testing.T) {
	_, err := NewPolynomialCalibration([]float64{0, 1}, 0, nil)
	if err != ErrChannelCount {
		t.Fatalf("expected ErrChannelCount, got %v", err)
	}
	_, err = NewPolynomialCalibration([]float64{0, 1}, MaxChannelCount+1, nil)
	if err != ErrChannelCount {
		t.Fatalf("expected ErrChannelCount, got %v", err)
	}
}
