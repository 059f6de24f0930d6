package specutil

import "errors"

// Sentinel errors, grouped by failure kind: malformed input, calibrations
// that cannot be made to agree with the model's invariants, shape
// mismatches between operations, missing records, and output failures.
// Callers use errors.Is against these.
var (
	ErrParse              = errors.New("specutil: parse error")
	ErrInvalidCalibration = errors.New("specutil: invalid calibration")
	ErrIncompatibleShape  = errors.New("specutil: incompatible channel shape")
	ErrNotFound           = errors.New("specutil: not found")
	ErrOutput             = errors.New("specutil: output error")
	ErrDomainViolation    = errors.New("specutil: domain violation")

	ErrNotSorted       = errors.New("specutil: points are not strictly increasing in x")
	ErrTooFewPoints    = errors.New("specutil: too few points")
	ErrChannelCount    = errors.New("specutil: channel count outside [1, 65544]")
	ErrNonMonotonic    = errors.New("specutil: calibration energies are not strictly increasing")
	ErrZeroFactor      = errors.New("specutil: combine factor must be non-zero")
	ErrSumNotPreserved = errors.New("specutil: rebin failed to preserve total counts")
)
