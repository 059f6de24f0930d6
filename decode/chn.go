package decode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	specutil "github.com/sixy6e/go-specutil"
)

// chnHeaderLen is the number of bytes preceding the count data: marker
// (2) + MCA number (2) + segment number (2) + date/time (12) + live
// ticks (4) + real ticks (4) + start channel (2) + channel count (2).
const chnHeaderLen = 30

// decodeCHN decodes an ORTEC CHN spectrum: a fixed 30-byte header
// (the -1 sentinel is what lets Auto distinguish it reliably from text
// formats: marker, MCA number, segment number, a 12-byte packed
// date/time, live ticks, real ticks, start channel, channel count),
// followed by that many int32 LE counts, and trailed by an optional
// footer block carrying a quadratic energy calibration, per spec §1's
// vendor-binary family.
func decodeCHN(buf []byte) (*specutil.SpecFile, error) {
	if len(buf) < chnHeaderLen {
		return nil, fmt.Errorf("%w: too short for CHN", specutil.ErrParse)
	}
	r := bytes.NewReader(buf)

	var marker int16
	if err := binary.Read(r, binary.LittleEndian, &marker); err != nil || marker != -1 {
		return nil, fmt.Errorf("%w: missing CHN -1 marker", specutil.ErrParse)
	}

	var mca, segment int16
	binary.Read(r, binary.LittleEndian, &mca)
	binary.Read(r, binary.LittleEndian, &segment)

	dateTime := make([]byte, 12)
	if _, err := r.Read(dateTime); err != nil {
		return nil, fmt.Errorf("%w: truncated CHN header", specutil.ErrParse)
	}

	var realTicks, liveTicks int32
	binary.Read(r, binary.LittleEndian, &liveTicks)
	binary.Read(r, binary.LittleEndian, &realTicks)

	var startChannel, numChannels int16
	binary.Read(r, binary.LittleEndian, &startChannel)
	if err := binary.Read(r, binary.LittleEndian, &numChannels); err != nil {
		return nil, fmt.Errorf("%w: truncated CHN channel count", specutil.ErrParse)
	}
	if numChannels <= 0 || int(numChannels) > specutil.MaxChannelCount {
		return nil, fmt.Errorf("%w: implausible CHN channel count %d", specutil.ErrParse, numChannels)
	}

	counts := make([]int32, numChannels)
	if err := binary.Read(r, binary.LittleEndian, &counts); err != nil {
		return nil, fmt.Errorf("%w: truncated CHN count data", specutil.ErrParse)
	}

	gammaCounts := make([]float64, numChannels)
	for i, c := range counts {
		gammaCounts[i] = float64(c)
	}

	sf := specutil.NewSpecFile()
	var m specutil.Measurement
	m.DetectorName = "gamma"
	// ORTEC's live/real time are in 20ms ticks.
	m.SetGammaCounts(gammaCounts, float64(liveTicks)*0.02, float64(realTicks)*0.02)
	m.StartTime = time.Time{}

	cal, err := chnFooterCalibration(buf, int(numChannels))
	if err != nil || !cal.IsValid() {
		cal, _ = specutil.NewPolynomialCalibration([]float64{0, 3000.0 / float64(numChannels)}, int(numChannels), nil)
	}
	_ = m.SetEnergyCalibration(cal)

	sf.AddMeasurement(m)
	return sf, nil
}

// chnFooterCalibration reads the optional trailing calibration block
// CHN files append after the count data: a -101 int16 marker, an int16
// reserved field, then three float32 energy coefficients (offset, gain,
// quadratic). Only this first record is read.
func chnFooterCalibration(buf []byte, nchan int) (specutil.EnergyCalibration, error) {
	const footerMarker = -101

	r := bytes.NewReader(buf)
	r.Seek(chnHeaderLen+int64(nchan)*4, 0)

	var marker int16
	if err := binary.Read(r, binary.LittleEndian, &marker); err != nil || marker != footerMarker {
		return specutil.EnergyCalibration{}, fmt.Errorf("no calibration footer")
	}
	var reserved int16
	binary.Read(r, binary.LittleEndian, &reserved)

	var energyCoeffs [3]float32
	if err := binary.Read(r, binary.LittleEndian, &energyCoeffs); err != nil {
		return specutil.EnergyCalibration{}, err
	}
	coeffs := []float64{float64(energyCoeffs[0]), float64(energyCoeffs[1]), float64(energyCoeffs[2])}
	return specutil.NewPolynomialCalibration(coeffs, nchan, nil)
}
