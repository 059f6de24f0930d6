package encode

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	specutil "github.com/sixy6e/go-specutil"
)

// WriteSPE writes m as an IAEA SPE ASCII spectrum, the inverse of
// decode's decodeSPE.
func WriteSPE(w io.Writer, m specutil.Measurement) error {
	if len(m.GammaCounts) == 0 {
		return fmt.Errorf("%w: no gamma counts to write", specutil.ErrOutput)
	}

	specID := sanitizeText(orDefault(m.Title, m.DetectorName), 0)
	var b strings.Builder
	fmt.Fprintf(&b, "$SPEC_ID:\n%s\n", orDefault(specID, "gamma"))
	fmt.Fprintf(&b, "$MEAS_TIM:\n%s %s\n",
		strconv.FormatFloat(m.LiveTimeS, 'f', 2, 64),
		strconv.FormatFloat(m.RealTimeS, 'f', 2, 64))
	fmt.Fprintf(&b, "$DATA:\n0 %d\n", len(m.GammaCounts)-1)
	for _, c := range m.GammaCounts {
		fmt.Fprintf(&b, "%s\n", strconv.FormatFloat(c, 'f', 0, 64))
	}
	if m.GammaCalibration.IsValid() {
		coeffs := m.GammaCalibration.Coefficients()
		fields := make([]string, len(coeffs))
		for i, c := range coeffs {
			fields[i] = strconv.FormatFloat(c, 'g', -1, 64)
		}
		fmt.Fprintf(&b, "$ENER_FIT:\n%s\n", strings.Join(fields, " "))
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("%w: %v", specutil.ErrOutput, err)
	}
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
