package specutil

import (
	"github.com/BurntSushi/toml"
)

// Config collects the operator-tunable knobs that the decode and
// consolidation passes otherwise hard-code: an optional file, with a
// sane default for callers that never construct one.
type Config struct {
	// DefaultCalibrationMaxEnergyKeV is the upper energy bound used when
	// synthesizing a default polynomial calibration for a record whose
	// calibration could not be found or repaired during consolidation
	// (spec §4.5 step 2).
	DefaultCalibrationMaxEnergyKeV float64 `toml:"default_calibration_max_energy_kev"`

	// PassthroughMinSamples and PassthroughRealTimeMaxS gate the
	// passthrough/search-mode heuristic of spec §4.5 step 6.
	PassthroughMinSamples   int     `toml:"passthrough_min_samples"`
	PassthroughRealTimeMaxS float64 `toml:"passthrough_real_time_max_s"`
	PassthroughMinFraction  float64 `toml:"passthrough_min_fraction"`

	// NeutronMergeEditDistance is the Levenshtein threshold used by the
	// neutron/gamma detector-name pairing fallback (spec §4.5 step 5).
	NeutronMergeEditDistance int `toml:"neutron_merge_edit_distance"`

	// LargeFileRecordThreshold selects the faster, non-order-preserving
	// sample-number assignment strategy (spec §4.5 step 4).
	LargeFileRecordThreshold int `toml:"large_file_record_threshold"`

	// WorkerMinRecordsPerTask and MaxWorkers bound the pond pool used by
	// sum_measurements and KeepNBinSpectraOnly (spec §5). Finalize has no
	// rebin-to-common-binning step, so no such dispatch uses the pool.
	WorkerMinRecordsPerTask int `toml:"worker_min_records_per_task"`
	MaxWorkers              int `toml:"max_workers"`

	// EnergyToChannelTolerance is the default convergence tolerance (keV)
	// for EnergyCalibration.ChannelForEnergy's binary search (spec §4.2).
	EnergyToChannelTolerance float64 `toml:"energy_to_channel_tolerance"`
}

// DefaultConfig returns the configuration every exported entry point uses
// when the caller does not supply one.
func DefaultConfig() Config {
	return Config{
		DefaultCalibrationMaxEnergyKeV: 3000.0,
		PassthroughMinSamples:          5,
		PassthroughRealTimeMaxS:        15.0,
		PassthroughMinFraction:         0.75,
		NeutronMergeEditDistance:       3,
		LargeFileRecordThreshold:       500,
		WorkerMinRecordsPerTask:        8,
		MaxWorkers:                     0, // 0 means "use runtime.NumCPU()"
		EnergyToChannelTolerance:       0.001,
	}
}

// LoadConfig reads a Config from a TOML file, starting from
// DefaultConfig so an operator's file only needs to name the knobs it
// wants to override.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
