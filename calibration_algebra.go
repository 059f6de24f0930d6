package specutil

import "math"

// PolynomialToFRF converts a polynomial calibration's first four
// coefficients into an FRF form by scaling by powers of N, per spec
// §4.3. The FRF's c4/(1+60x) term has no polynomial equivalent and is
// simply absent on the way in; on the way back (FRFToPolynomial) a
// nonzero c4 cannot be recovered and is dropped, which is the "hack"
// spec §9's Open Questions calls out — callers are warned when that
// drop is lossy.
func PolynomialToFRF(cal EnergyCalibration) (EnergyCalibration, error) {
	if cal.calType != Polynomial {
		return invalidCalibration, ErrIncompatibleShape
	}
	n := float64(cal.channelCount)
	coeffs := cal.coefficients
	frf := make([]float64, 0, 4)
	for k := 0; k < 4; k++ {
		c := 0.0
		if k < len(coeffs) {
			c = coeffs[k]
		}
		frf = append(frf, c*math.Pow(n, float64(k)))
	}
	return NewFRFCalibration(frf, cal.channelCount, cal.deviationPairs)
}

// FRFToPolynomial converts an FRF calibration's first four coefficients
// back into a polynomial form by scaling by powers of 1/N. The 5th FRF
// coefficient (the c4/(1+60x) term) cannot be represented in a
// polynomial and is dropped; a nonzero c4 triggers a logged warning, per
// spec §9.
func FRFToPolynomial(cal EnergyCalibration) (EnergyCalibration, error) {
	if cal.calType != FullRangeFraction {
		return invalidCalibration, ErrIncompatibleShape
	}
	n := float64(cal.channelCount)
	coeffs := cal.coefficients
	if len(coeffs) >= 5 && coeffs[4] != 0 {
		warnf("dropping nonzero FRF c4 term (%.6g) converting to polynomial; "+
			"the c4/(1+60x) shape has no polynomial equivalent", coeffs[4])
	}
	poly := make([]float64, 0, 4)
	for k := 0; k < 4; k++ {
		c := 0.0
		if k < len(coeffs) {
			c = coeffs[k]
		}
		poly = append(poly, c/math.Pow(n, float64(k)))
	}
	return NewPolynomialCalibration(poly, cal.channelCount, cal.deviationPairs)
}

// MidChannelPolynomialToFRF is the half-channel-shifted variant of
// PolynomialToFRF used by formats that define polynomial coefficients
// relative to a channel's center rather than its lower edge, per spec
// §4.3. It shifts the origin back by half a channel (a lower edge at
// channel i takes the polynomial's value at i-0.5) before scaling by
// powers of N.
func MidChannelPolynomialToFRF(cal EnergyCalibration) (EnergyCalibration, error) {
	if cal.calType != Polynomial {
		return invalidCalibration, ErrIncompatibleShape
	}
	shifted, err := shiftPolynomialOrigin(cal.coefficients, -0.5)
	if err != nil {
		return invalidCalibration, err
	}
	shiftedCal, err := NewPolynomialCalibration(shifted, cal.channelCount, cal.deviationPairs)
	if err != nil {
		return invalidCalibration, err
	}
	return PolynomialToFRF(shiftedCal)
}

// CombineChannels returns a calibration for counts combined in groups of
// k channels (N' = ceil(N/k)). Polynomial coefficients scale by k^i;
// FRF coefficients are unchanged (only N' changes, since FRF's
// independent variable is already channel/N); LowerChannelEdge keeps
// every k-th edge plus the original last edge. Fails on k==0 or a
// non-monotonic result, per spec §4.3.
func CombineChannels(cal EnergyCalibration, k int) (EnergyCalibration, error) {
	if k == 0 {
		return invalidCalibration, ErrZeroFactor
	}
	if !cal.IsValid() {
		return invalidCalibration, ErrInvalidCalibration
	}
	newN := (cal.channelCount + k - 1) / k

	switch cal.calType {
	case Polynomial:
		coeffs := make([]float64, len(cal.coefficients))
		for i, c := range cal.coefficients {
			coeffs[i] = c * math.Pow(float64(k), float64(i))
		}
		return NewPolynomialCalibration(coeffs, newN, cal.deviationPairs)
	case FullRangeFraction:
		return NewFRFCalibration(append([]float64(nil), cal.coefficients...), newN, cal.deviationPairs)
	case LowerChannelEdge:
		edges := make([]float64, 0, newN+1)
		for i := 0; i < cal.channelCount; i += k {
			edges = append(edges, cal.lowerEdgeEnergies[i])
		}
		edges = append(edges, cal.lowerEdgeEnergies[cal.channelCount])
		return NewLowerChannelEdgeCalibration(edges, len(edges)-1)
	default:
		return invalidCalibration, ErrInvalidCalibration
	}
}

// shiftPolynomialOrigin shifts a polynomial's origin by m channels using
// the closed-form binomial expansion of c_i * (x+m)^i for degrees up to
// 5; higher-degree terms are truncated, per spec §4.3.
func shiftPolynomialOrigin(coeffs []float64, m float64) ([]float64, error) {
	const maxDegree = 5
	deg := len(coeffs) - 1
	if deg > maxDegree {
		deg = maxDegree
	}
	shifted := make([]float64, len(coeffs))
	for i := 0; i <= deg; i++ {
		c := coeffs[i]
		if c == 0 {
			continue
		}
		for j := 0; j <= i; j++ {
			shifted[j] += c * binomial(i, j) * math.Pow(m, float64(i-j))
		}
	}
	return shifted, nil
}

func binomial(n, k int) float64 {
	if k < 0 || k > n {
		return 0
	}
	result := 1.0
	for i := 0; i < k; i++ {
		result *= float64(n-i) / float64(i+1)
	}
	return result
}

// RemoveFirstChannels returns a polynomial calibration whose origin is
// shifted so that the old channel m becomes the new channel 0, via
// closed-form binomial expansion for degrees <= 5 (spec §4.3). It is
// meant to be paired with truncating the first m entries from the
// channel-data vector; the channel count of the returned calibration is
// unchanged (the caller is responsible for reconciling that with the
// truncated counts length, as TruncateChannels does).
func RemoveFirstChannels(cal EnergyCalibration, m int) (EnergyCalibration, error) {
	if cal.calType != Polynomial {
		return invalidCalibration, ErrIncompatibleShape
	}
	shifted, err := shiftPolynomialOrigin(cal.coefficients, float64(m))
	if err != nil {
		return invalidCalibration, err
	}
	return NewPolynomialCalibration(shifted, cal.channelCount, cal.deviationPairs)
}

// RebinByLowerEdge redistributes srcCounts (aligned to srcEdges, length
// N+1) onto dstEdges (length M+1) by linear energy-overlap proportion.
// Three cases are handled explicitly, per spec §4.3: destination below
// the source range accumulates into dst[0]; destination above the
// source range accumulates into dst[last]; a destination channel
// entirely contained within one source channel is a simple proportional
// take. Total counts are conserved within max(0.1, 1e-6*total); a
// violation is a post-condition failure returned as
// ErrSumNotPreserved (spec §4.3, §8; the upstream check this revives was
// historically commented out — see spec §9's Open Questions).
func RebinByLowerEdge(srcEdges []float64, srcCounts []float64, dstEdges []float64) ([]float64, error) {
	if len(srcEdges) != len(srcCounts)+1 {
		return nil, ErrIncompatibleShape
	}
	if len(dstEdges) < 2 {
		return nil, ErrIncompatibleShape
	}

	m := len(dstEdges) - 1
	dst := make([]float64, m)
	n := len(srcCounts)

	srcLo, srcHi := srcEdges[0], srcEdges[n]

	for j := 0; j < m; j++ {
		lo, hi := dstEdges[j], dstEdges[j+1]
		if hi <= lo {
			continue
		}

		if hi <= srcLo {
			continue // entirely below source; handled by the j==0 overflow pass below
		}
		if lo >= srcHi {
			continue // entirely above source; handled by the j==m-1 overflow pass below
		}

		for i := 0; i < n; i++ {
			sLo, sHi := srcEdges[i], srcEdges[i+1]
			width := sHi - sLo
			if width <= 0 {
				continue
			}
			overlapLo := math.Max(lo, sLo)
			overlapHi := math.Min(hi, sHi)
			if overlapHi <= overlapLo {
				continue
			}
			dst[j] += srcCounts[i] * (overlapHi - overlapLo) / width
		}
	}

	// Overflow handling: any source energy range below dstEdges[0] or
	// above dstEdges[m] has no destination bin to land in proportionally,
	// so it is folded wholesale into the nearest end channel.
	for i := 0; i < n; i++ {
		sLo, sHi := srcEdges[i], srcEdges[i+1]
		width := sHi - sLo
		if width <= 0 {
			continue
		}
		if sHi <= dstEdges[0] {
			dst[0] += srcCounts[i]
			continue
		}
		if sLo >= dstEdges[m] {
			dst[m-1] += srcCounts[i]
			continue
		}
		if sLo < dstEdges[0] {
			frac := (dstEdges[0] - sLo) / width
			dst[0] += srcCounts[i] * frac
		}
		if sHi > dstEdges[m] {
			frac := (sHi - dstEdges[m]) / width
			dst[m-1] += srcCounts[i] * frac
		}
	}

	total := sum(srcCounts)
	newTotal := sum(dst)
	tol := math.Max(0.1, 1e-6*total)
	if math.Abs(newTotal-total) > tol {
		return dst, ErrSumNotPreserved
	}

	return dst, nil
}

func sum(xs []float64) float64 {
	s := 0.0
	for _, x := range xs {
		s += x
	}
	return s
}

// TruncateChannels rebuilds counts to [keepFirst, keepLast] (inclusive),
// optionally folding the clipped-off under/overflow sums into the new
// first/last channel, and returns the correspondingly truncated
// calibration: RemoveFirstChannels for Polynomial/FRF, or a slice of the
// lower-edge vector for LowerChannelEdge, per spec §4.3.
func TruncateChannels(counts []float64, cal EnergyCalibration, keepFirst, keepLast int, keepUnderOverflow bool) ([]float64, EnergyCalibration, error) {
	n := len(counts)
	if keepFirst < 0 || keepLast >= n || keepFirst > keepLast {
		return nil, invalidCalibration, ErrIncompatibleShape
	}

	newLen := keepLast - keepFirst + 1
	newCounts := make([]float64, newLen)
	copy(newCounts, counts[keepFirst:keepLast+1])

	if keepUnderOverflow {
		under := sum(counts[:keepFirst])
		over := sum(counts[keepLast+1:])
		newCounts[0] += under
		newCounts[newLen-1] += over
	}

	var newCal EnergyCalibration
	var err error
	switch cal.Type() {
	case Polynomial:
		shifted, e := RemoveFirstChannels(cal, keepFirst)
		if e != nil {
			return nil, invalidCalibration, e
		}
		newCal, err = NewPolynomialCalibration(shifted.coefficients, newLen, shifted.deviationPairs)
	case FullRangeFraction:
		poly, e := FRFToPolynomial(cal)
		if e != nil {
			return nil, invalidCalibration, e
		}
		shifted, e := RemoveFirstChannels(poly, keepFirst)
		if e != nil {
			return nil, invalidCalibration, e
		}
		scaledPoly, e := NewPolynomialCalibration(shifted.coefficients, newLen, shifted.deviationPairs)
		if e != nil {
			return nil, invalidCalibration, e
		}
		newCal, err = PolynomialToFRF(scaledPoly)
	case LowerChannelEdge:
		edges := append([]float64(nil), cal.lowerEdgeEnergies[keepFirst:keepLast+2]...)
		newCal, err = NewLowerChannelEdgeCalibration(edges, newLen)
	default:
		return nil, invalidCalibration, ErrInvalidCalibration
	}
	if err != nil {
		return nil, invalidCalibration, err
	}

	return newCounts, newCal, nil
}

// ChannelEnergyPair is one (channel, energy) observation used to fit a
// polynomial calibration, typically derived from identified peak
// centroids. This is not named by the core spec but is a natural
// companion to the calibration algebra (see SPEC_FULL's "supplementing
// dropped features").
type ChannelEnergyPair struct {
	Channel float64
	Energy  float64
}

// FitPolynomialCalibration performs an unweighted least-squares fit of a
// degree-th order polynomial through points, returning the resulting
// calibration over nchannel channels. It solves the normal equations by
// Gaussian elimination, matching C1's "no external linear-algebra
// dependency" constraint rather than reaching for a matrix package.
func FitPolynomialCalibration(points []ChannelEnergyPair, degree, nchannel int) (EnergyCalibration, error) {
	if degree < 0 || len(points) < degree+1 {
		return invalidCalibration, ErrTooFewPoints
	}

	size := degree + 1
	normal := make([][]float64, size)
	for i := range normal {
		normal[i] = make([]float64, size+1)
	}

	for _, p := range points {
		powers := make([]float64, 2*degree+1)
		powers[0] = 1
		for i := 1; i < len(powers); i++ {
			powers[i] = powers[i-1] * p.Channel
		}
		for i := 0; i <= degree; i++ {
			for j := 0; j <= degree; j++ {
				normal[i][j] += powers[i+j]
			}
			normal[i][size] += powers[i] * p.Energy
		}
	}

	coeffs, ok := gaussianEliminate(normal)
	if !ok {
		return invalidCalibration, ErrInvalidCalibration
	}

	return NewPolynomialCalibration(coeffs, nchannel, nil)
}

// gaussianEliminate solves the augmented matrix `aug` (size x size+1)
// for the size unknowns using partial-pivot Gaussian elimination.
func gaussianEliminate(aug [][]float64) ([]float64, bool) {
	n := len(aug)
	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(aug[r][col]) > math.Abs(aug[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(aug[pivot][col]) < 1e-12 {
			return nil, false
		}
		aug[col], aug[pivot] = aug[pivot], aug[col]

		for r := col + 1; r < n; r++ {
			factor := aug[r][col] / aug[col][col]
			for c := col; c <= n; c++ {
				aug[r][c] -= factor * aug[col][c]
			}
		}
	}

	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := aug[i][n]
		for j := i + 1; j < n; j++ {
			sum -= aug[i][j] * x[j]
		}
		x[i] = sum / aug[i][i]
	}
	return x, true
}
