package decode

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	specutil "github.com/sixy6e/go-specutil"
)

// n42Document covers the subset of ANSI N42.42-2006/2012 shared by both
// revisions closely enough for one decoder to handle both: per-
// measurement spectra with a ChannelData blob and zero or more
// Calibration blocks, under either the 2006 nested
// DetectorData/DetectorMeasurement/SpectrumMeasurement wrapping or the
// 2012 flatter RadMeasurement/Spectrum form. Fields absent from
// whichever revision produced the document simply stay zero, per
// spec §1's "each decoder maps its fields to a common data model."
type n42Document struct {
	XMLName      xml.Name          `xml:"RadInstrumentData"`
	Measurements []n42Measurement  `xml:"Measurement"`
	RadMeasurements []n42RadMeasurement `xml:"RadMeasurement"`
	InstrumentInfo n42InstrumentInfo `xml:"RadInstrumentInformation"`
	AnalysisResults *n42AnalysisResults `xml:"AnalysisResults"`
}

// n42AnalysisResults covers the nuclide-identification summary some N42
// producers attach alongside the raw spectra.
type n42AnalysisResults struct {
	Algorithm struct {
		Name    string `xml:"AlgorithmName"`
		Version string `xml:"AlgorithmVersion"`
	} `xml:"Algorithm"`
	NuclideAnalysis struct {
		Nuclides []struct {
			Name string `xml:"NuclideName"`
		} `xml:"Nuclide"`
	} `xml:"NuclideAnalysis"`
	AnalysisResultDescription []string `xml:"AnalysisResultDescription"`
}

type n42InstrumentInfo struct {
	Manufacturer string `xml:"RadInstrumentManufacturerName"`
	Model        string `xml:"RadInstrumentModelName"`
	SerialNumber string `xml:"RadInstrumentSerialNumber"`
}

// n42Measurement is the 2006-style nesting.
type n42Measurement struct {
	StartTime    string             `xml:"StartTime"`
	InstrumentInfo *n42InstrumentInfo `xml:"InstrumentInformation"`
	DetectorData *n42DetectorData   `xml:"DetectorData"`
}

type n42DetectorData struct {
	DetectorMeasurement *n42DetectorMeasurement `xml:"DetectorMeasurement"`
}

type n42DetectorMeasurement struct {
	SpectrumMeasurement *n42SpectrumMeasurement `xml:"SpectrumMeasurement"`
}

type n42SpectrumMeasurement struct {
	Spectra []n42Spectrum `xml:"Spectrum"`
}

// n42RadMeasurement is the 2012-style flatter form.
type n42RadMeasurement struct {
	StartDateTime string        `xml:"StartDateTime"`
	RealTimeDur   string        `xml:"RealTimeDuration"`
	Spectra       []n42Spectrum `xml:"Spectrum"`
	GrossCounts   []n42GrossCounts `xml:"GrossCounts"`
}

type n42GrossCounts struct {
	LiveTimeDuration string `xml:"LiveTimeDuration"`
	CountData        string `xml:"CountData"`
}

type n42Spectrum struct {
	RadDetectorInfoRef string           `xml:"radDetectorInformationReference,attr"`
	RealTime           string           `xml:"RealTime"`
	LiveTime           string           `xml:"LiveTimeDuration"`
	ChannelData        string           `xml:"ChannelData"`
	Calibration        []n42Calibration `xml:"Calibration"`
	CalibrationRef     string           `xml:"energyCalibrationReference,attr"`
}

type n42Calibration struct {
	Type     string       `xml:"Type,attr"`
	ID       string       `xml:"id,attr"`
	Equation *n42Equation `xml:"Equation"`
	CoeffValues string    `xml:"CoefficientValues"`
}

type n42Equation struct {
	Model        string `xml:"Model,attr"`
	Coefficients string `xml:"Coefficients"`
}

// decodeN42 decodes an N42-2006 or N42-2012 XML document into a SpecFile.
// It does not distinguish the two revisions structurally beyond trying
// both nesting shapes; the caller's Tag is informational only.
func decodeN42(buf []byte) (*specutil.SpecFile, error) {
	trimmed := strings.TrimSpace(string(buf))
	if !strings.HasPrefix(trimmed, "<?xml") && !strings.HasPrefix(trimmed, "<") {
		return nil, fmt.Errorf("%w: not XML", specutil.ErrParse)
	}

	var doc n42Document
	if err := xml.Unmarshal(buf, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", specutil.ErrParse, err)
	}

	sf := specutil.NewSpecFile()
	sf.Manufacturer = doc.InstrumentInfo.Manufacturer
	sf.Model = doc.InstrumentInfo.Model
	sf.SerialNumber = doc.InstrumentInfo.SerialNumber

	count := 0
	for _, m := range doc.Measurements {
		if m.DetectorData == nil || m.DetectorData.DetectorMeasurement == nil ||
			m.DetectorData.DetectorMeasurement.SpectrumMeasurement == nil {
			continue
		}
		for _, spec := range m.DetectorData.DetectorMeasurement.SpectrumMeasurement.Spectra {
			meas, err := n42SpectrumToMeasurement(spec, m.StartTime, count, "detector")
			if err != nil {
				continue
			}
			sf.AddMeasurement(meas)
			count++
		}
	}
	for _, rm := range doc.RadMeasurements {
		for _, spec := range rm.Spectra {
			meas, err := n42SpectrumToMeasurement(spec, rm.StartDateTime, count, spec.RadDetectorInfoRef)
			if err != nil {
				continue
			}
			sf.AddMeasurement(meas)
			count++
		}
	}

	if count == 0 {
		return nil, fmt.Errorf("%w: N42 document had no decodable spectra", specutil.ErrParse)
	}

	if ar := doc.AnalysisResults; ar != nil {
		nuclides := make([]string, 0, len(ar.NuclideAnalysis.Nuclides))
		for _, n := range ar.NuclideAnalysis.Nuclides {
			if n.Name != "" {
				nuclides = append(nuclides, n.Name)
			}
		}
		if ar.Algorithm.Name != "" || len(nuclides) > 0 || len(ar.AnalysisResultDescription) > 0 {
			sf.Analysis = &specutil.DetectorAnalysis{
				AlgorithmName:    ar.Algorithm.Name,
				AlgorithmVersion: ar.Algorithm.Version,
				Nuclides:         nuclides,
				Remarks:          ar.AnalysisResultDescription,
			}
		}
	}

	return sf, nil
}

func n42SpectrumToMeasurement(spec n42Spectrum, startTime string, sampleNumber int, detector string) (specutil.Measurement, error) {
	channels, err := parseChannelData(spec.ChannelData)
	if err != nil {
		return specutil.Measurement{}, err
	}

	liveTime, _ := parseN42Duration(spec.LiveTime)
	realTime, _ := parseN42Duration(spec.RealTime)
	if realTime == 0 {
		realTime = liveTime
	}

	var m specutil.Measurement
	m.DetectorName = detector
	m.SampleNumber = sampleNumber
	m.SetGammaCounts(channels, liveTime, realTime)

	if t, ok := parseN42Time(startTime); ok {
		m.StartTime = t
		m.HasStartTime = true
	}

	cal := defaultN42Calibration(len(channels))
	for _, c := range spec.Calibration {
		if c.Type != "" && c.Type != "Energy" {
			continue
		}
		coeffs, ok := parseN42CalibrationCoeffs(c)
		if !ok {
			continue
		}
		if built, err := specutil.NewPolynomialCalibration(coeffs, len(channels), nil); err == nil {
			cal = built
			break
		}
	}
	_ = m.SetEnergyCalibration(cal)

	return m, nil
}

func defaultN42Calibration(nchan int) specutil.EnergyCalibration {
	if nchan == 0 {
		return specutil.EnergyCalibration{}
	}
	cal, _ := specutil.NewPolynomialCalibration([]float64{0, 3000.0 / float64(nchan)}, nchan, nil)
	return cal
}

func parseN42CalibrationCoeffs(c n42Calibration) ([]float64, bool) {
	raw := c.CoeffValues
	if raw == "" && c.Equation != nil {
		raw = c.Equation.Coefficients
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}
	fields := strings.Fields(raw)
	coeffs := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, false
		}
		coeffs = append(coeffs, v)
	}
	return coeffs, len(coeffs) > 0
}

func parseChannelData(data string) ([]float64, error) {
	data = strings.TrimSpace(data)
	if data == "" {
		return nil, fmt.Errorf("%w: empty channel data", specutil.ErrParse)
	}
	fields := strings.FieldsFunc(data, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == ','
	})
	channels := make([]float64, 0, len(fields))
	for _, field := range fields {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: channel count %q: %v", specutil.ErrParse, field, err)
		}
		channels = append(channels, v)
	}
	if len(channels) == 0 {
		return nil, fmt.Errorf("%w: no channel counts parsed", specutil.ErrParse)
	}
	return channels, nil
}

// parseN42Duration parses an ISO-8601 duration of the PT{n}S / PT{n}M
// shape N42 uses for RealTime/LiveTime.
func parseN42Duration(duration string) (float64, bool) {
	duration = strings.TrimSpace(duration)
	if duration == "" || !strings.HasPrefix(duration, "PT") {
		return 0, false
	}
	body := duration[2:]
	switch {
	case strings.HasSuffix(body, "S"):
		v, err := strconv.ParseFloat(strings.TrimSuffix(body, "S"), 64)
		return v, err == nil
	case strings.HasSuffix(body, "M"):
		v, err := strconv.ParseFloat(strings.TrimSuffix(body, "M"), 64)
		return v * 60, err == nil
	default:
		return 0, false
	}
}

func parseN42Time(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
