package encode

import (
	"encoding/binary"
	"fmt"
	"io"

	specutil "github.com/sixy6e/go-specutil"
)

// WriteCHN writes m as an ORTEC CHN binary spectrum: the 30-byte header
// (always emitting a PHA-only, segment-1 header rather than round-
// tripping the original MCA/segment numbers, since Measurement doesn't
// carry them), the little-endian int32 counts, and a calibration
// footer, the inverse of decode's decodeCHN/chnFooterCalibration.
func WriteCHN(w io.Writer, m specutil.Measurement) error {
	nchan := len(m.GammaCounts)
	if nchan == 0 {
		return fmt.Errorf("%w: no gamma counts to write", specutil.ErrOutput)
	}

	write := func(v any) error {
		return binary.Write(w, binary.LittleEndian, v)
	}

	if err := write(int16(-1)); err != nil {
		return fmt.Errorf("%w: %v", specutil.ErrOutput, err)
	}
	_ = write(int16(1)) // MCA number
	_ = write(int16(1)) // segment number
	_, _ = w.Write(make([]byte, 12)) // date/time, left blank

	_ = write(int32(m.LiveTimeS / 0.02))
	_ = write(int32(m.RealTimeS / 0.02))
	_ = write(int16(0)) // start channel
	if err := write(int16(nchan)); err != nil {
		return fmt.Errorf("%w: %v", specutil.ErrOutput, err)
	}

	counts := make([]int32, nchan)
	for i, c := range m.GammaCounts {
		counts[i] = int32(c)
	}
	if err := write(counts); err != nil {
		return fmt.Errorf("%w: %v", specutil.ErrOutput, err)
	}

	if m.GammaCalibration.IsValid() {
		coeffs := m.GammaCalibration.Coefficients()
		var c [3]float32
		for i := 0; i < 3 && i < len(coeffs); i++ {
			c[i] = float32(coeffs[i])
		}
		_ = write(int16(-101))
		_ = write(int16(0))
		if err := write(c); err != nil {
			return fmt.Errorf("%w: %v", specutil.ErrOutput, err)
		}
	}

	if title := sanitizeText(m.Title, chnTitleMaxLen); title != "" {
		_ = write(int16(-102))
		_ = write(int8(len(title)))
		if _, err := io.WriteString(w, title); err != nil {
			return fmt.Errorf("%w: %v", specutil.ErrOutput, err)
		}
	}

	return nil
}

// chnTitleMaxLen matches ORTEC's CHN sample-title record length.
const chnTitleMaxLen = 63
