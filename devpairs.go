package specutil

import (
	"math"
	"sort"

	"github.com/samber/lo"
)

// DeviationPair is a single (energy_keV, offset_keV) correction point.
type DeviationPair struct {
	Energy float64
	Offset float64
}

// cleanDeviationPairs sorts by energy and drops near-duplicates
// (|delta x| < 0.1 keV), per spec §3. Input is not mutated.
func cleanDeviationPairs(pairs []DeviationPair) []DeviationPair {
	if len(pairs) == 0 {
		return nil
	}
	out := make([]DeviationPair, len(pairs))
	copy(out, pairs)
	sort.Slice(out, func(i, j int) bool { return out[i].Energy < out[j].Energy })

	deduped := out[:0:0]
	for _, p := range out {
		if len(deduped) > 0 && math.Abs(p.Energy-deduped[len(deduped)-1].Energy) < 0.1 {
			continue
		}
		deduped = append(deduped, p)
	}
	return deduped
}

// devPointKeys is used only to make lo.FindDuplicates usable on a slice
// of DeviationPair by its Energy field, since lo.FindDuplicates otherwise
// only operates on comparable scalars.
func devPointKeys(pairs []DeviationPair) []float64 {
	keys := make([]float64, len(pairs))
	for i, p := range pairs {
		keys[i] = math.Round(p.Energy*10) / 10
	}
	return keys
}

// forwardDeviationSpline builds the spline used to correct a nominal
// polynomial/FRF energy into a true energy: sanitize pairs, ensure at
// least two points by prepending {0,0} if a single point with x>0 is
// given, replace each x with x-y, then build with boundary conditions
// (second order = 0 at the left, first order = 0 at the right), per spec
// §4.1.
func forwardDeviationSpline(pairs []DeviationPair) (CubicSpline, bool) {
	cleaned := cleanDeviationPairs(pairs)
	if len(cleaned) == 0 {
		return CubicSpline{}, false
	}
	if dupes := lo.FindDuplicates(devPointKeys(cleaned)); len(dupes) > 0 {
		devAssert(false, "deviation pairs contained duplicate energies after cleaning", nil)
	}
	if len(cleaned) == 1 && cleaned[0].Energy > 0 {
		cleaned = append([]DeviationPair{{Energy: 0, Offset: 0}}, cleaned...)
	}
	if len(cleaned) < 2 {
		return CubicSpline{}, false
	}

	points := make([]Point, len(cleaned))
	for i, p := range cleaned {
		points[i] = Point{X: p.Energy - p.Offset, Y: p.Offset}
	}
	sort.Slice(points, func(i, j int) bool { return points[i].X < points[j].X })

	spl, err := BuildSpline(points,
		BoundaryCondition{Order: SecondDerivative, Value: 0},
		BoundaryCondition{Order: FirstDerivative, Value: 0},
	)
	if err != nil {
		return CubicSpline{}, false
	}
	return spl, true
}

// inverseDeviationSpline builds the spline used as an initial guess when
// correcting a true energy back to the nominal value: same cleaning and
// boundary conditions as the forward spline but built directly on
// (energy, offset) rather than (energy-offset, offset), per spec §4.1.
func inverseDeviationSpline(pairs []DeviationPair) (CubicSpline, bool) {
	cleaned := cleanDeviationPairs(pairs)
	if len(cleaned) == 1 && cleaned[0].Energy > 0 {
		cleaned = append([]DeviationPair{{Energy: 0, Offset: 0}}, cleaned...)
	}
	if len(cleaned) < 2 {
		return CubicSpline{}, false
	}

	points := make([]Point, len(cleaned))
	for i, p := range cleaned {
		points[i] = Point{X: p.Energy, Y: p.Offset}
	}

	spl, err := BuildSpline(points,
		BoundaryCondition{Order: SecondDerivative, Value: 0},
		BoundaryCondition{Order: FirstDerivative, Value: 0},
	)
	if err != nil {
		return CubicSpline{}, false
	}
	return spl, true
}

const (
	newtonMaxIterations  = 10
	newtonConvergenceKeV = 0.01
)

// correctionDueToDeviationPairs returns the additive correction such that
// energy - correction recovers the nominal (uncorrected) polynomial/FRF
// energy that produced the true energy passed in. Forward application
// is direct (spec §3: true = nominal + forwardSpline.Eval(nominal)); this
// is its inverse, which is not exactly algebraically invertible, so the
// inverse spline's evaluation at energy seeds a fixed-point iteration:
// candidate_{n+1} = forwardSpline.Eval(energy - candidate_n), which
// converges quickly because the forward spline varies slowly relative to
// energy. Iteration stops after newtonMaxIterations or once successive
// candidates agree within newtonConvergenceKeV; on non-convergence the
// candidate with the smallest residual among the initial guess and all
// iterates is returned, and a warning is logged when that residual is
// still at least newtonConvergenceKeV, per spec §4.1 and §9.
func correctionDueToDeviationPairs(pairs []DeviationPair, energy float64) float64 {
	fwd, fwdOK := forwardDeviationSpline(pairs)
	inv, invOK := inverseDeviationSpline(pairs)
	if !fwdOK || !invOK {
		return 0
	}

	guess := inv.Eval(energy)
	residual := func(c float64) float64 {
		return math.Abs(fwd.Eval(energy-c) - c)
	}

	best := guess
	bestResidual := residual(guess)
	candidate := guess

	for i := 0; i < newtonMaxIterations; i++ {
		next := fwd.Eval(energy - candidate)
		delta := math.Abs(next - candidate)
		candidate = next

		if r := residual(candidate); r < bestResidual {
			best = candidate
			bestResidual = r
		}
		if delta < newtonConvergenceKeV {
			return candidate
		}
	}

	if bestResidual >= newtonConvergenceKeV {
		warnf("deviation-pair correction did not converge after %d iterations "+
			"(energy=%.3f keV, residual=%.4f keV); returning closest candidate",
			newtonMaxIterations, energy, bestResidual)
	}

	return best
}
