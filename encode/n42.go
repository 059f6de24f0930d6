package encode

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	specutil "github.com/sixy6e/go-specutil"
)

type n42OutDoc struct {
	XMLName     xml.Name       `xml:"RadInstrumentData"`
	Measurement n42OutMeasurement `xml:"Measurement"`
}

type n42OutMeasurement struct {
	DetectorData n42OutDetectorData `xml:"DetectorData"`
}

type n42OutDetectorData struct {
	DetectorMeasurement n42OutDetMeas `xml:"DetectorMeasurement"`
}

type n42OutDetMeas struct {
	SpectrumMeasurement n42OutSpecMeas `xml:"SpectrumMeasurement"`
}

type n42OutSpecMeas struct {
	Spectrum n42OutSpectrum `xml:"Spectrum"`
}

type n42OutSpectrum struct {
	RealTime    string           `xml:"RealTime"`
	LiveTime    string           `xml:"LiveTimeDuration"`
	Calibration n42OutCalibration `xml:"Calibration"`
	ChannelData string           `xml:"ChannelData"`
}

type n42OutCalibration struct {
	Type     string          `xml:"Type,attr"`
	Equation n42OutEquation `xml:"Equation"`
}

type n42OutEquation struct {
	Model        string `xml:"Model,attr"`
	Coefficients string `xml:"Coefficients"`
}

// WriteN42 writes m as a single-spectrum ANSI N42.42-2006 style XML
// document, the inverse of decode's n42SpectrumToMeasurement, with
// calibration exported as the raw Polynomial coefficients (converting
// first via PolynomialToFRF/etc. is the caller's job if the target
// reader expects FRF).
func WriteN42(w io.Writer, m specutil.Measurement) error {
	coeffs := m.GammaCalibration.Coefficients()
	fields := make([]string, len(coeffs))
	for i, c := range coeffs {
		fields[i] = strconv.FormatFloat(c, 'g', -1, 64)
	}

	counts := make([]string, len(m.GammaCounts))
	for i, c := range m.GammaCounts {
		counts[i] = strconv.FormatFloat(c, 'f', 0, 64)
	}

	doc := n42OutDoc{
		Measurement: n42OutMeasurement{
			DetectorData: n42OutDetectorData{
				DetectorMeasurement: n42OutDetMeas{
					SpectrumMeasurement: n42OutSpecMeas{
						Spectrum: n42OutSpectrum{
							RealTime: formatN42Duration(m.RealTimeS),
							LiveTime: formatN42Duration(m.LiveTimeS),
							Calibration: n42OutCalibration{
								Type: "Energy",
								Equation: n42OutEquation{
									Model:        "Polynomial",
									Coefficients: strings.Join(fields, " "),
								},
							},
							ChannelData: strings.Join(counts, " "),
						},
					},
				},
			},
		},
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("%w: %v", specutil.ErrOutput, err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("%w: %v", specutil.ErrOutput, err)
	}
	return nil
}

func formatN42Duration(seconds float64) string {
	return fmt.Sprintf("PT%sS", strconv.FormatFloat(seconds, 'f', -1, 64))
}
