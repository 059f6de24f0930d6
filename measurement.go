package specutil

import "time"

// SourceType classifies what a measurement represents, per spec §3.
type SourceType int

const (
	SourceUnknown SourceType = iota
	SourceIntrinsicActivity
	SourceCalibration
	SourceBackground
	SourceForeground
)

func (s SourceType) String() string {
	switch s {
	case SourceIntrinsicActivity:
		return "IntrinsicActivity"
	case SourceCalibration:
		return "Calibration"
	case SourceBackground:
		return "Background"
	case SourceForeground:
		return "Foreground"
	default:
		return "Unknown"
	}
}

// QualityStatus is the reader's assessment of a measurement's data
// quality, as read from the source file, per spec §3.
type QualityStatus int

const (
	QualityMissing QualityStatus = iota
	QualityGood
	QualitySuspect
	QualityBad
)

// Occupancy records whether a portal/search instrument believed an
// object was present during the measurement, per spec §3.
type Occupancy int

const (
	OccupancyUnknown Occupancy = iota
	OccupancyOccupied
	OccupancyNotOccupied
)

// UnknownGPS is the sentinel latitude/longitude value meaning "no GPS
// fix", per spec §6.
const UnknownGPS = -999.9

// Measurement is one detector's reading over one time interval. A record
// holds no back-reference to its file (spec §9, "cyclic references"
// deviation); its own mutators (SetGammaCounts, Rebin and the like) act
// on the record alone, and the SpecFile's lock guards only the records
// the file holds.
// A Measurement's EnergyCalibration pointer may be shared, by value
// equality, with other records' calibrations (spec §3); treat a
// Measurement obtained from a SpecFile as a read-only snapshot valid
// only while you hold (or the file guarantees) a consistent view, per
// spec §5.
type Measurement struct {
	SampleNumber   int
	DetectorName   string
	DetectorNumber int

	LiveTimeS float64
	RealTimeS float64

	GammaCounts     []float64
	GammaCalibration EnergyCalibration
	GammaCountSum   float64

	ContainedNeutron  bool
	NeutronCounts     []float64
	NeutronCountsSum  float64

	SourceType    SourceType
	QualityStatus QualityStatus
	Occupancy     Occupancy

	Latitude, Longitude float64
	PositionTime        time.Time
	HasPositionTime      bool
	SpeedMps             float64

	StartTime     time.Time
	HasStartTime  bool

	Title               string
	Remarks             []string
	ParseWarnings       []string
	DetectorDescription string
}

// HasValidGPS reports whether the record carries a usable GPS fix: both
// latitude and longitude are non-sentinel and not (0,0), per the
// normalization rule of spec §4.5 step 3.
func (m Measurement) HasValidGPS() bool {
	if m.Latitude == UnknownGPS || m.Longitude == UnknownGPS {
		return false
	}
	if m.Latitude == 0 && m.Longitude == 0 {
		return false
	}
	return true
}

// SetGammaCounts installs a new gamma counts buffer and recomputes the
// sum. If the new length disagrees with the current calibration's
// channel count (and the calibration is not LowerChannelEdge, which
// tolerates being the authority on channel count when it was built from
// the same data), the calibration is reset to Invalid rather than left
// silently mismatched, per spec §4.4.
func (m *Measurement) SetGammaCounts(counts []float64, liveTimeS, realTimeS float64) {
	m.GammaCounts = append([]float64(nil), counts...)
	m.LiveTimeS = liveTimeS
	m.RealTimeS = realTimeS
	m.GammaCountSum = sum(m.GammaCounts)

	if m.GammaCalibration.IsValid() &&
		m.GammaCalibration.Type() != LowerChannelEdge &&
		m.GammaCalibration.ChannelCount() != len(counts) {
		m.GammaCalibration = invalidCalibration
	}
}

// SetNeutronCounts installs a neutron counts buffer. ContainedNeutron is
// set true even for an all-zero (but non-empty) input; passing an empty
// slice clears it, per spec §4.4.
func (m *Measurement) SetNeutronCounts(counts []float64, liveTimeS float64) {
	m.NeutronCounts = append([]float64(nil), counts...)
	m.NeutronCountsSum = sum(m.NeutronCounts)
	m.ContainedNeutron = len(counts) > 0
	if liveTimeS > 0 {
		m.LiveTimeS = liveTimeS
	}
}

// Rebin requires both the current and the new calibration to be valid
// with at least 4 channels, rewrites counts via RebinByLowerEdge, then
// swaps in the new calibration, per spec §4.4.
func (m *Measurement) Rebin(newCal EnergyCalibration) error {
	if !m.GammaCalibration.IsValid() || !newCal.IsValid() {
		return ErrInvalidCalibration
	}
	if m.GammaCalibration.ChannelCount() < 4 || newCal.ChannelCount() < 4 {
		return ErrIncompatibleShape
	}

	rebinned, err := RebinByLowerEdge(m.GammaCalibration.LowerEdgeEnergies(), m.GammaCounts, newCal.LowerEdgeEnergies())
	if err != nil && err != ErrSumNotPreserved {
		return err
	}
	sumErr := err

	m.GammaCounts = rebinned
	m.GammaCalibration = newCal
	m.GammaCountSum = sum(rebinned)

	return sumErr
}

// CombineGammaChannels sums counts in groups of k (requiring N mod k ==
// 0), updates the calibration via CombineChannels, and leaves the sum
// unchanged, per spec §4.4.
func (m *Measurement) CombineGammaChannels(k int) error {
	n := len(m.GammaCounts)
	if k <= 0 || n%k != 0 {
		return ErrIncompatibleShape
	}

	combined := make([]float64, n/k)
	for i := range combined {
		for j := 0; j < k; j++ {
			combined[i] += m.GammaCounts[i*k+j]
		}
	}

	newCal, err := CombineChannels(m.GammaCalibration, k)
	if err != nil {
		return err
	}

	m.GammaCounts = combined
	m.GammaCalibration = newCal
	// sum is invariant under regrouping; recomputed anyway to avoid
	// float drift accumulating across repeated combine operations.
	m.GammaCountSum = sum(combined)
	return nil
}

// SetEnergyCalibration changes only the calibration pointer, not the
// counts; it requires cal.ChannelCount() == len(counts), with the
// LowerChannelEdge leniency of accepting either N or N+1 tabulated
// edges already folded into the calibration's own constructor, per spec
// §4.4.
func (m *Measurement) SetEnergyCalibration(cal EnergyCalibration) error {
	if cal.IsValid() && cal.ChannelCount() != len(m.GammaCounts) {
		return ErrIncompatibleShape
	}
	m.GammaCalibration = cal
	return nil
}

// clone returns a deep-enough copy of m suitable for handing to a caller
// as a read-only snapshot (spec §5, "define the record as copyable").
func (m Measurement) clone() Measurement {
	out := m
	out.GammaCounts = append([]float64(nil), m.GammaCounts...)
	out.NeutronCounts = append([]float64(nil), m.NeutronCounts...)
	out.Remarks = append([]string(nil), m.Remarks...)
	out.ParseWarnings = append([]string(nil), m.ParseWarnings...)
	return out
}
