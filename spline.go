package specutil

import (
	"sort"
)

// BoundaryOrder selects whether a spline's boundary condition constrains
// the first or second derivative at that end.
type BoundaryOrder int

const (
	FirstDerivative  BoundaryOrder = 1
	SecondDerivative BoundaryOrder = 2
)

// BoundaryCondition pins the derivative of a given order to a value at
// one end of a spline.
type BoundaryCondition struct {
	Order BoundaryOrder
	Value float64
}

// splineNode is one segment of a cubic spline: on the interval starting
// at X, f(X+h) = ((A*h + B)*h + C)*h + Y. The final node is a sentinel
// carrying only the terminal (X, Y) with zero coefficients, so evaluation
// never has to special-case the last point.
type splineNode struct {
	X, Y, A, B, C float64
}

// CubicSpline is an immutable natural/clamped cubic spline built from a
// strictly increasing set of knots. It holds a slice, so it is not
// comparable with ==. There is no external linear-algebra dependency:
// the tridiagonal system in the second-derivative unknowns is solved by
// solveTridiagonal.
type CubicSpline struct {
	nodes []splineNode
}

// Point is an (x, y) pair used both as a spline knot and as a deviation
// pair (energy_keV, offset_keV).
type Point struct {
	X, Y float64
}

// BuildSpline constructs a cubic spline through points, honoring the
// given boundary conditions at the left and right ends. points must have
// at least two entries and strictly increasing X; violating either
// returns the bare ErrTooFewPoints or ErrNotSorted sentinel (not wrapped
// in ErrParse).
func BuildSpline(points []Point, left, right BoundaryCondition) (CubicSpline, error) {
	n := len(points)
	if n < 2 {
		return CubicSpline{}, ErrTooFewPoints
	}
	for i := 1; i < n; i++ {
		if points[i].X <= points[i-1].X {
			return CubicSpline{}, ErrNotSorted
		}
	}

	h := make([]float64, n-1)
	for i := 0; i < n-1; i++ {
		h[i] = points[i+1].X - points[i].X
	}

	// Assemble the tridiagonal system for the second-derivative unknowns
	// b_0..b_{n-1}. sub/diag/sup are the three bands, rhs the right-hand
	// side; solved below by in-place LR decomposition then back-substitution.
	sub := make([]float64, n)
	diag := make([]float64, n)
	sup := make([]float64, n)
	rhs := make([]float64, n)

	slope := func(i int) float64 {
		return (points[i+1].Y - points[i].Y) / h[i]
	}

	for i := 1; i < n-1; i++ {
		sub[i] = h[i-1]
		diag[i] = 2 * (h[i-1] + h[i])
		sup[i] = h[i]
		rhs[i] = 3 * (slope(i) - slope(i-1))
	}

	switch left.Order {
	case SecondDerivative:
		diag[0] = 1
		sup[0] = 0
		rhs[0] = left.Value / 2
	default: // FirstDerivative
		diag[0] = 2 * h[0]
		sup[0] = h[0]
		rhs[0] = 3 * (slope(0) - left.Value)
	}

	switch right.Order {
	case SecondDerivative:
		sub[n-1] = 0
		diag[n-1] = 1
		rhs[n-1] = right.Value / 2
	default: // FirstDerivative
		sub[n-1] = h[n-2]
		diag[n-1] = 2 * h[n-2]
		rhs[n-1] = 3 * (right.Value - slope(n-2))
	}

	b := solveTridiagonal(sub, diag, sup, rhs)

	nodes := make([]splineNode, n)
	for i := 0; i < n-1; i++ {
		a := (b[i+1] - b[i]) / (3 * h[i])
		c := slope(i) - (2*b[i]+b[i+1])*h[i]/3
		nodes[i] = splineNode{X: points[i].X, Y: points[i].Y, A: a, B: b[i], C: c}
	}
	// terminal sentinel node: zero coefficients, evaluation at or beyond
	// it just returns Y.
	nodes[n-1] = splineNode{X: points[n-1].X, Y: points[n-1].Y}

	return CubicSpline{nodes: nodes}, nil
}

// solveTridiagonal solves A*x = rhs for a tridiagonal A given by its
// sub/diag/sup bands, via LR decomposition (forward elimination) followed
// by back-substitution. The input bands and rhs are left unchanged; the
// solution is returned in a new slice. This is the textbook Thomas algorithm, written out
// rather than pulled from a linear-algebra package per the component's
// no-external-dependency contract.
func solveTridiagonal(sub, diag, sup, rhs []float64) []float64 {
	n := len(diag)
	cp := make([]float64, n)
	dp := make([]float64, n)

	cp[0] = sup[0] / diag[0]
	dp[0] = rhs[0] / diag[0]

	for i := 1; i < n; i++ {
		m := diag[i] - sub[i]*cp[i-1]
		if i < n-1 {
			cp[i] = sup[i] / m
		}
		dp[i] = (rhs[i] - sub[i]*dp[i-1]) / m
	}

	x := make([]float64, n)
	x[n-1] = dp[n-1]
	for i := n - 2; i >= 0; i-- {
		x[i] = dp[i] - cp[i]*x[i+1]
	}
	return x
}

// Eval evaluates the spline at x. Values below the first knot clamp to
// the first knot's Y; values above the last clamp to the last knot's Y.
// This clamped-tail behaviour is non-standard for a cubic spline but is
// required by the deviation-pair semantics it serves (spec §4.1).
func (s CubicSpline) Eval(x float64) float64 {
	if len(s.nodes) == 0 {
		return 0
	}
	if x <= s.nodes[0].X {
		return s.nodes[0].Y
	}
	last := s.nodes[len(s.nodes)-1]
	if x >= last.X {
		return last.Y
	}

	i := sort.Search(len(s.nodes), func(i int) bool { return s.nodes[i].X > x }) - 1
	if i < 0 {
		i = 0
	}
	n := s.nodes[i]
	h := x - n.X
	return ((n.A*h+n.B)*h+n.C)*h + n.Y
}

// NumKnots reports how many knots the spline was built from (the
// terminal sentinel node is the last knot).
func (s CubicSpline) NumKnots() int {
	return len(s.nodes)
}
