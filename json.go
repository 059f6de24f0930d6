package specutil

import (
	"encoding/json"
	"os"
)

// fileSummary is the shape WriteSummaryJSON emits: the handful of
// SpecFile fields a downstream tool is likely to want without decoding
// the full gamma spectra.
type fileSummary struct {
	InstrumentType  string   `json:"instrument_type"`
	Manufacturer    string   `json:"manufacturer"`
	Model           string   `json:"model"`
	SerialNumber    string   `json:"serial_number"`
	UUID            string   `json:"uuid"`
	SampleNumbers   []int    `json:"sample_numbers"`
	DetectorNames   []string `json:"detector_names"`
	HasCommonBinning bool    `json:"has_common_binning"`
	GammaLiveTimeS  float64  `json:"gamma_live_time_s"`
	GammaRealTimeS  float64  `json:"gamma_real_time_s"`
}

func (f *SpecFile) summary() fileSummary {
	return fileSummary{
		InstrumentType:   f.InstrumentType,
		Manufacturer:     f.Manufacturer,
		Model:            f.Model,
		SerialNumber:     f.SerialNumber,
		UUID:             f.UUID,
		SampleNumbers:    f.SampleNumbers(),
		DetectorNames:    f.DetectorNames(),
		HasCommonBinning: f.HasCommonBinning(),
		GammaLiveTimeS:   f.GammaLiveTimeS,
		GammaRealTimeS:   f.GammaRealTimeS,
	}
}

// WriteSummaryJSON writes the file's summary metadata (no raw spectra)
// to path, four-space indented. Intended for quick inspection of a
// decoded file without pulling every record's counts into the output.
func (f *SpecFile) WriteSummaryJSON(path string) error {
	jsn, err := json.MarshalIndent(f.summary(), "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, jsn, 0o644)
}

// SummaryJSON returns the same content WriteSummaryJSON writes, as a
// string, for callers that want it without touching the filesystem.
func (f *SpecFile) SummaryJSON() (string, error) {
	jsn, err := json.MarshalIndent(f.summary(), "", "    ")
	if err != nil {
		return "", err
	}
	return string(jsn), nil
}
