package specutil

import (
	"math"
)

// CalibrationType enumerates the supported energy calibration
// parameterizations, per spec §3.
type CalibrationType int

const (
	Invalid CalibrationType = iota
	Polynomial
	FullRangeFraction
	LowerChannelEdge
	UnspecifiedUsingDefaultPolynomial
)

func (t CalibrationType) String() string {
	switch t {
	case Polynomial:
		return "Polynomial"
	case FullRangeFraction:
		return "FullRangeFraction"
	case LowerChannelEdge:
		return "LowerChannelEdge"
	case UnspecifiedUsingDefaultPolynomial:
		return "UnspecifiedUsingDefaultPolynomial"
	default:
		return "Invalid"
	}
}

const (
	MinChannelCount = 1
	MaxChannelCount = 65544

	// polynomialOffsetMin/Max bound the accepted zeroth coefficient per
	// spec §6: values outside this range suggest corrupt data.
	polynomialOffsetMin = -500.0
	polynomialOffsetMax = 5500.0
)

// lowerEdges is a reference-counted (by Go GC, shared via slice/pointer
// aliasing) immutable vector of N+1 lower-channel-edge energies. Many
// records point at the same EnergyCalibration value, and in turn the
// same derived edges, to avoid recomputing and reallocating per record
// (spec §9, "shared ownership of calibrations").
type lowerEdges = []float64

// EnergyCalibration is an immutable value object once constructed: its
// zero value is the Invalid calibration. Two calibrations with identical
// (type, coefficients, deviation pairs, channel count) compare equal via
// Equal, which is what consolidation (spec §4.5 step 2) uses to dedupe
// storage.
type EnergyCalibration struct {
	calType         CalibrationType
	coefficients    []float64
	deviationPairs  []DeviationPair
	channelCount    int
	lowerEdgeEnergies lowerEdges
}

// Type, Coefficients, DeviationPairs and ChannelCount are read-only
// accessors; the value is immutable once built by one of the
// constructors below.
func (c EnergyCalibration) Type() CalibrationType             { return c.calType }
func (c EnergyCalibration) Coefficients() []float64            { return append([]float64(nil), c.coefficients...) }
func (c EnergyCalibration) DeviationPairs() []DeviationPair    { return append([]DeviationPair(nil), c.deviationPairs...) }
func (c EnergyCalibration) ChannelCount() int                  { return c.channelCount }
func (c EnergyCalibration) LowerEdgeEnergies() []float64       { return c.lowerEdgeEnergies }
func (c EnergyCalibration) IsValid() bool                      { return c.calType != Invalid }

// invalidCalibration is the shared sentinel Invalid value.
var invalidCalibration = EnergyCalibration{calType: Invalid}

func strictlyIncreasing(xs []float64) bool {
	for i := 1; i < len(xs); i++ {
		if xs[i] <= xs[i-1] {
			return false
		}
	}
	return true
}

// polynomialEnergy evaluates E(i) = sum(c_k * i^k) without the deviation
// pair correction, per spec §3.
func polynomialEnergy(coeffs []float64, channel float64) float64 {
	e := 0.0
	p := 1.0
	for _, c := range coeffs {
		e += c * p
		p *= channel
	}
	return e
}

// frfEnergy evaluates the full-range-fraction form E(x) = c0 + c1*x +
// c2*x^2 + c3*x^3 + c4/(1+60x) with x = i/N, per spec §3.
func frfEnergy(coeffs []float64, channel, n float64) float64 {
	x := channel / n
	e := 0.0
	pow := 1.0
	for k := 0; k < len(coeffs) && k < 4; k++ {
		e += coeffs[k] * pow
		pow *= x
	}
	if len(coeffs) >= 5 {
		e += coeffs[4] / (1 + 60*x)
	}
	return e
}

func buildLowerEdgesPolynomial(coeffs []float64, n int) []float64 {
	edges := make([]float64, n+1)
	for i := 0; i <= n; i++ {
		edges[i] = polynomialEnergy(coeffs, float64(i))
	}
	return edges
}

func buildLowerEdgesFRF(coeffs []float64, n int) []float64 {
	edges := make([]float64, n+1)
	nf := float64(n)
	for i := 0; i <= n; i++ {
		edges[i] = frfEnergy(coeffs, float64(i), nf)
	}
	return edges
}

// NewPolynomialCalibration constructs a Polynomial calibration. On
// failure it returns the Invalid sentinel together with ErrChannelCount
// (bad channel count), ErrInvalidCalibration (an offset outside the
// "normal" polynomial-offset window of spec §6) or ErrNonMonotonic
// (lower-edge energies not strictly increasing).
func NewPolynomialCalibration(coeffs []float64, channelCount int, pairs []DeviationPair) (EnergyCalibration, error) {
	if channelCount < MinChannelCount || channelCount > MaxChannelCount {
		return invalidCalibration, ErrChannelCount
	}
	if len(coeffs) > 0 && (coeffs[0] < polynomialOffsetMin || coeffs[0] > polynomialOffsetMax) {
		return invalidCalibration, ErrInvalidCalibration
	}

	edges := buildLowerEdgesPolynomial(coeffs, channelCount)
	applyDeviationPairsToEdges(edges, pairs)
	if !strictlyIncreasing(edges) {
		return invalidCalibration, ErrNonMonotonic
	}

	return EnergyCalibration{
		calType:           Polynomial,
		coefficients:      append([]float64(nil), coeffs...),
		deviationPairs:    append([]DeviationPair(nil), pairs...),
		channelCount:      channelCount,
		lowerEdgeEnergies: edges,
	}, nil
}

// NewFRFCalibration constructs a FullRangeFraction calibration, per spec
// §3/§4.2.
func NewFRFCalibration(coeffs []float64, channelCount int, pairs []DeviationPair) (EnergyCalibration, error) {
	if channelCount < MinChannelCount || channelCount > MaxChannelCount {
		return invalidCalibration, ErrChannelCount
	}
	if len(coeffs) > 0 && (coeffs[0] < polynomialOffsetMin || coeffs[0] > polynomialOffsetMax) {
		return invalidCalibration, ErrInvalidCalibration
	}

	edges := buildLowerEdgesFRF(coeffs, channelCount)
	applyDeviationPairsToEdges(edges, pairs)
	if !strictlyIncreasing(edges) {
		return invalidCalibration, ErrNonMonotonic
	}

	return EnergyCalibration{
		calType:           FullRangeFraction,
		coefficients:      append([]float64(nil), coeffs...),
		deviationPairs:    append([]DeviationPair(nil), pairs...),
		channelCount:      channelCount,
		lowerEdgeEnergies: edges,
	}, nil
}

// NewLowerChannelEdgeCalibration constructs a LowerChannelEdge
// calibration from an explicit edge vector. If exactly channelCount
// edges are given (rather than channelCount+1), the upper edge is
// synthesized by linear extrapolation of the last interval, per spec
// §3.
func NewLowerChannelEdgeCalibration(edges []float64, channelCount int) (EnergyCalibration, error) {
	if channelCount < MinChannelCount || channelCount > MaxChannelCount {
		return invalidCalibration, ErrChannelCount
	}

	full := edges
	switch {
	case len(edges) == channelCount+1:
		full = append([]float64(nil), edges...)
	case len(edges) == channelCount:
		full = make([]float64, channelCount+1)
		copy(full, edges)
		if channelCount >= 2 {
			last := edges[channelCount-1]
			prev := edges[channelCount-2]
			full[channelCount] = last + (last - prev)
		} else {
			full[channelCount] = edges[0] + 1
		}
	default:
		return invalidCalibration, ErrChannelCount
	}

	if !strictlyIncreasing(full) {
		return invalidCalibration, ErrNonMonotonic
	}

	return EnergyCalibration{
		calType:           LowerChannelEdge,
		coefficients:      nil,
		deviationPairs:    nil,
		channelCount:      channelCount,
		lowerEdgeEnergies: full,
	}, nil
}

// applyDeviationPairsToEdges adds the forward deviation-pair correction
// to each lower-edge energy in place, per spec §3 ("then add deviation
// pair correction").
func applyDeviationPairsToEdges(edges []float64, pairs []DeviationPair) {
	if len(pairs) == 0 {
		return
	}
	fwd, ok := forwardDeviationSpline(pairs)
	if !ok {
		return
	}
	for i, e := range edges {
		edges[i] = e + fwd.Eval(e)
	}
}

// EnergyForChannel returns the energy for a (possibly fractional)
// channel index. Polynomial/FRF evaluate directly, including outside
// [0, N]; LowerChannelEdge requires 0 <= c <= N and interpolates
// linearly between tabulated edges, per spec §4.2.
func (c EnergyCalibration) EnergyForChannel(channel float64) (float64, error) {
	switch c.calType {
	case Polynomial:
		e := polynomialEnergy(c.coefficients, channel)
		return e + c.deviationCorrectionAtNominal(e), nil
	case FullRangeFraction:
		e := frfEnergy(c.coefficients, channel, float64(c.channelCount))
		return e + c.deviationCorrectionAtNominal(e), nil
	case LowerChannelEdge:
		n := float64(c.channelCount)
		if channel < 0 || channel > n {
			return 0, ErrIncompatibleShape
		}
		lo := int(math.Floor(channel))
		if lo >= c.channelCount {
			lo = c.channelCount - 1
		}
		frac := channel - float64(lo)
		return c.lowerEdgeEnergies[lo] + frac*(c.lowerEdgeEnergies[lo+1]-c.lowerEdgeEnergies[lo]), nil
	default:
		return 0, ErrInvalidCalibration
	}
}

// deviationCorrectionAtNominal adds the forward spline correction to a
// freshly evaluated polynomial/FRF energy. It is separate from
// applyDeviationPairsToEdges only in that it operates on a single value
// rather than an edge vector.
func (c EnergyCalibration) deviationCorrectionAtNominal(nominal float64) float64 {
	if len(c.deviationPairs) == 0 {
		return 0
	}
	fwd, ok := forwardDeviationSpline(c.deviationPairs)
	if !ok {
		return 0
	}
	return fwd.Eval(nominal)
}

// ChannelForEnergy inverts EnergyForChannel: given an energy, returns
// the (possibly fractional) channel that produces it. Polynomial
// calibrations of at most two coefficients, and quadratic ones, are
// inverted algebraically; the quadratic case takes the root of smaller
// magnitude, which is not checked against [0, N]. Cubic and higher
// polynomials are not inverted algebraically. With deviation pairs, the
// correction is first removed using the inverse spline and then the
// algebraic inversion is applied to the residual nominal energy.
// LowerChannelEdge (and any case the algebraic path can't handle, such
// as cubic and higher-degree polynomials) falls back to binary search
// on the monotonic energy-vs-channel curve with tol keV tolerance,
// doubling the search window on either end until the target brackets,
// per spec §4.2. tol<=0 uses the package default tolerance.
func (c EnergyCalibration) ChannelForEnergy(energy float64, tol float64) (float64, error) {
	if !c.IsValid() {
		return 0, ErrInvalidCalibration
	}
	if tol <= 0 {
		tol = DefaultConfig().EnergyToChannelTolerance
	}

	nominal := energy
	if len(c.deviationPairs) > 0 {
		nominal = energy - correctionDueToDeviationPairs(c.deviationPairs, energy)
	}

	switch c.calType {
	case Polynomial:
		if ch, ok := invertPolynomial(c.coefficients, nominal); ok {
			return ch, nil
		}
	case FullRangeFraction:
		if ch, ok := invertFRF(c.coefficients, nominal, float64(c.channelCount)); ok {
			return ch, nil
		}
	}

	return c.channelForEnergyBySearch(energy, tol)
}

// channelForEnergyBySearch brackets energy on the monotonic
// energy-vs-channel curve by doubling the search window, then binary
// searches to tol keV.
func (c EnergyCalibration) channelForEnergyBySearch(energy float64, tol float64) (float64, error) {
	n := float64(c.channelCount)
	eval := func(ch float64) (float64, error) { return c.EnergyForChannel(ch) }

	lo, hi := 0.0, n
	eLo, err := eval(lo)
	if err != nil {
		return 0, err
	}
	eHi, err := eval(hi)
	if err != nil {
		return 0, err
	}
	increasing := eHi >= eLo

	inBounds := func(e, a, b float64) bool {
		if increasing {
			return e >= a && e <= b
		}
		return e <= a && e >= b
	}

	// Double the window outward (only meaningful for Polynomial/FRF,
	// which are defined outside [0, N]; LowerChannelEdge's EnergyForChannel
	// already rejects out-of-range channels, so this loop is a no-op for it).
	for i := 0; i < 64 && !inBounds(energy, eLo, eHi) && c.calType != LowerChannelEdge; i++ {
		width := hi - lo
		if width == 0 {
			width = 1
		}
		lo -= width
		hi += width
		eLo, _ = eval(lo)
		eHi, _ = eval(hi)
	}

	for i := 0; i < 200; i++ {
		mid := (lo + hi) / 2
		eMid, err := eval(mid)
		if err != nil {
			return 0, err
		}
		if math.Abs(eMid-energy) < tol {
			return mid, nil
		}
		if (eMid < energy) == increasing {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2, nil
}

// invertPolynomial solves sum(c_k * ch^k) = energy for ch, for degree 1
// or 2 (two or three coefficients); for a quadratic it takes the real
// root of smaller magnitude. Other degrees report false.
func invertPolynomial(coeffs []float64, energy float64) (float64, bool) {
	switch len(coeffs) {
	case 0:
		return 0, false
	case 1:
		return 0, false // constant calibration, no inverse
	case 2:
		// c0 + c1*ch = energy
		if coeffs[1] == 0 {
			return 0, false
		}
		return (energy - coeffs[0]) / coeffs[1], true
	case 3:
		return quadraticRootNearestPositive(coeffs[2], coeffs[1], coeffs[0]-energy)
	default:
		// cubic and above: no closed form attempted, defer to search.
		return 0, false
	}
}

// invertFRF solves the FRF quartic-minus-rational form for x=ch/N when
// there is no 5th (deviation-hack) term; otherwise defers to search.
func invertFRF(coeffs []float64, energy float64, n float64) (float64, bool) {
	if len(coeffs) >= 5 && coeffs[4] != 0 {
		return 0, false
	}
	switch len(coeffs) {
	case 0:
		return 0, false
	case 1:
		return 0, false
	case 2:
		if coeffs[1] == 0 {
			return 0, false
		}
		x := (energy - coeffs[0]) / coeffs[1]
		return x * n, true
	case 3, 4:
		c2 := 0.0
		if len(coeffs) >= 3 {
			c2 = coeffs[2]
		}
		if len(coeffs) == 4 && coeffs[3] != 0 {
			// cubic term present: no closed form attempted, defer to search.
			return 0, false
		}
		x, ok := quadraticRootNearestPositive(c2, coeffs[1], coeffs[0]-energy)
		if !ok {
			return 0, false
		}
		return x * n, true
	default:
		return 0, false
	}
}

// quadraticRootNearestPositive solves a*x^2 + b*x + c = 0 (falling back
// to the linear solution when a==0) and returns the root with the
// smaller absolute value, which for a well-posed energy calibration is
// the one that lies near the valid channel range.
func quadraticRootNearestPositive(a, b, c float64) (float64, bool) {
	if a == 0 {
		if b == 0 {
			return 0, false
		}
		return -c / b, true
	}
	disc := b*b - 4*a*c
	if disc < 0 {
		return 0, false
	}
	sq := math.Sqrt(disc)
	r1 := (-b + sq) / (2 * a)
	r2 := (-b - sq) / (2 * a)
	if math.Abs(r1) <= math.Abs(r2) {
		return r1, true
	}
	return r2, true
}

// Equal compares by (channel_count, type, coefficients, deviation
// pairs); the derived lower-edge vector is redundant for Polynomial/FRF
// and is only load-bearing for LowerChannelEdge, where it IS the
// calibration, per spec §3.
func (c EnergyCalibration) Equal(other EnergyCalibration) bool {
	if c.calType != other.calType || c.channelCount != other.channelCount {
		return false
	}
	switch c.calType {
	case LowerChannelEdge:
		return float64SliceEqual(c.lowerEdgeEnergies, other.lowerEdgeEnergies)
	case Polynomial, FullRangeFraction:
		return float64SliceEqual(c.coefficients, other.coefficients) &&
			deviationPairsEqual(c.deviationPairs, other.deviationPairs)
	default:
		return true
	}
}

func float64SliceEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func deviationPairsEqual(a, b []DeviationPair) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
