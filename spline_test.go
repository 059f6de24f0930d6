package specutil

import "testing"

func TestBuildSplineTooFewPoints(t *testing.T) {
	_, err := BuildSpline([]Point{{X: 0, Y: 0}}, BoundaryCondition{}, BoundaryCondition{})
	if err != ErrTooFewPoints {
		t.Fatalf("expected ErrTooFewPoints, got %v", err)
	}
}

func TestBuildSplineNotSorted(t *testing.T) {
	pts := []Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 0.5, Y: 2}}
	_, err := BuildSpline(pts, BoundaryCondition{}, BoundaryCondition{})
	if err != ErrNotSorted {
		t.Fatalf("expected ErrNotSorted, got %v", err)
	}
}

func TestSplinePassesThroughKnots(t *testing.T) {
	pts := []Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 0}, {X: 3, Y: 1}}
	spl, err := BuildSpline(pts,
		BoundaryCondition{Order: SecondDerivative, Value: 0},
		BoundaryCondition{Order: SecondDerivative, Value: 0},
	)
	if err != nil {
		t.Fatalf("BuildSpline: %v", err)
	}
	for _, p := range pts {
		got := spl.Eval(p.X)
		if diff := got - p.Y; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("Eval(%v) = %v, want %v", p.X, got, p.Y)
		}
	}
}

func TestSplineClampsOutsideRange(t *testing.T) {
	pts := []Point{{X: 0, Y: 5}, {X: 1, Y: 10}, {X: 2, Y: 5}}
	spl, err := BuildSpline(pts,
		BoundaryCondition{Order: SecondDerivative, Value: 0},
		BoundaryCondition{Order: SecondDerivative, Value: 0},
	)
	if err != nil {
		t.Fatalf("BuildSpline: %v", err)
	}
	if got := spl.Eval(-10); got != 5 {
		t.Fatalf("Eval below range = %v, want 5", got)
	}
	if got := spl.Eval(20); got != 5 {
		t.Fatalf("Eval above range = %v, want 5", got)
	}
}
