package decode

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	specutil "github.com/sixy6e/go-specutil"
)

// decodeSPE decodes an IAEA SPE ASCII spectrum: a sequence of $SECTION:
// headers each followed by section-specific lines, the two of interest
// being $DATA: (first/last channel indices then one count per line) and
// $ENER_FIT: (two or three calibration coefficients on one line), per
// spec §1's text-format family.
func decodeSPE(buf []byte) (*specutil.SpecFile, error) {
	scanner := bufio.NewScanner(bytes.NewReader(buf))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var (
		section   string
		counts    []float64
		liveTime  float64
		realTime  float64
		calCoeffs []float64
		dataSeen  bool
		detector  string
	)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "$") {
			section = strings.TrimSuffix(strings.TrimPrefix(line, "$"), ":")
			continue
		}

		switch section {
		case "SPEC_ID":
			detector = line
		case "MEAS_TIM":
			fields := strings.Fields(line)
			if len(fields) >= 2 {
				liveTime, _ = strconv.ParseFloat(fields[0], 64)
				realTime, _ = strconv.ParseFloat(fields[1], 64)
			}
		case "DATA":
			if !dataSeen {
				// first $DATA line is "first_channel last_channel", skip it.
				dataSeen = true
				continue
			}
			v, err := strconv.ParseFloat(line, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: bad SPE count %q: %v", specutil.ErrParse, line, err)
			}
			counts = append(counts, v)
		case "ENER_FIT":
			fields := strings.Fields(line)
			for _, f := range fields {
				v, err := strconv.ParseFloat(f, 64)
				if err == nil {
					calCoeffs = append(calCoeffs, v)
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", specutil.ErrParse, err)
	}

	if len(counts) == 0 {
		return nil, fmt.Errorf("%w: no $DATA section found", specutil.ErrParse)
	}

	sf := specutil.NewSpecFile()
	var m specutil.Measurement
	if detector == "" {
		detector = "gamma"
	}
	m.DetectorName = detector
	m.SetGammaCounts(counts, liveTime, realTime)

	cal := func() specutil.EnergyCalibration {
		if len(calCoeffs) >= 2 {
			if c, err := specutil.NewPolynomialCalibration(calCoeffs, len(counts), nil); err == nil {
				return c
			}
		}
		c, _ := specutil.NewPolynomialCalibration([]float64{0, 3000.0 / float64(len(counts))}, len(counts), nil)
		return c
	}()
	_ = m.SetEnergyCalibration(cal)

	sf.AddMeasurement(m)
	return sf, nil
}
