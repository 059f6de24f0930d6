package specutil

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// PropertyFlag is a bit in SpecFile's lazily-invalidated summary bitset
// (spec §4.5 step 7): HasCommonBinning and AllSpectraSameNumberChannels
// are expensive to compute from scratch on every query, so they are
// cached and invalidated on any mutation that could change them.
type PropertyFlag uint32

const (
	FlagHasCommonBinning PropertyFlag = 1 << iota
	FlagAllSameNumberChannels
	FlagComputed
)

// DetectorAnalysis is the optional nuclide-identification summary some
// formats (N42, PCF) carry alongside the raw spectra, per spec §4.5.
type DetectorAnalysis struct {
	AlgorithmName    string
	AlgorithmVersion string
	Nuclides         []string
	Remarks          []string
}

// SpecFile is the consolidated aggregate of every Measurement decoded
// from one input file, plus the derived indices and summary fields spec
// §4.5's cleanup pass computes. All mutating methods take a single
// mutex guarding the whole struct rather than per-field locks; Go has
// no native re-entrant mutex, so internal helpers that need the lock
// already held take an unlocked variant and public methods acquire once
// at the boundary.
type SpecFile struct {
	mu sync.Mutex

	measurements []Measurement

	sampleNumbers       []int
	sampleToIndices     map[int][]int
	detectorNames       []string
	detectorNumbers     []int
	neutronDetectorNames []string

	GammaLiveTimeS float64
	GammaRealTimeS float64
	NeutronLiveTimeS float64

	InstrumentType  string
	Manufacturer    string
	Model           string
	SerialNumber    string
	UUID            string

	Analysis *DetectorAnalysis

	properties PropertyFlag
	modified           bool
	modifiedSinceDecode bool
}

// NewSpecFile returns an empty SpecFile ready to receive records via
// AddMeasurement, then Finalize.
func NewSpecFile() *SpecFile {
	return &SpecFile{
		sampleToIndices: make(map[int][]int),
	}
}

// AddMeasurement appends a decoded record prior to Finalize. It is not
// safe to call after Finalize without calling it again, since the
// indices it maintains would go stale; decoders should call it only
// during the initial load, per spec §4.5 ("decoders... hand the raw
// records to cleanup_after_load").
func (f *SpecFile) AddMeasurement(m Measurement) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.measurements = append(f.measurements, m)
	f.modified = true
	f.modifiedSinceDecode = true
	f.properties &^= FlagComputed
}

// Finalize runs the full cleanup_after_load consolidation pipeline of
// spec §4.5 over the accumulated records, using cfg for its tunable
// thresholds. It runs once per decode; it is not idempotent, since a
// second run reassigns every sample number and repeats its warnings.
func (f *SpecFile) Finalize(cfg Config) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var warnings []string

	f.assignDetectorNumbers()
	warnings = append(warnings, f.repairAndDedupCalibrations(cfg)...)
	f.normalizeGPS()
	f.assignSampleNumbers(cfg)
	warnings = append(warnings, f.mergeNeutronIntoGamma(cfg)...)
	f.detectPassthrough(cfg)
	f.recomputeProperties()
	f.recomputeAggregates()
	f.deduceInstrumentType()
	if f.UUID == "" {
		f.UUID = uuid.New().String()
	}

	f.modifiedSinceDecode = false
	return warnings
}

// assignDetectorNumbers gives every distinct DetectorName a stable
// DetectorNumber in first-seen order, and populates the parallel
// detectorNames/detectorNumbers arrays, per spec §4.5 step 1.
func (f *SpecFile) assignDetectorNumbers() {
	seen := make(map[string]int)
	var names []string
	var numbers []int

	for i := range f.measurements {
		name := f.measurements[i].DetectorName
		num, ok := seen[name]
		if !ok {
			num = len(names)
			seen[name] = num
			names = append(names, name)
			numbers = append(numbers, num)
		}
		f.measurements[i].DetectorNumber = num
	}

	f.detectorNames = names
	f.detectorNumbers = numbers
}

// repairAndDedupCalibrations gives any record with an Invalid gamma
// calibration a default polynomial spanning [0, cfg.DefaultCalibrationMaxEnergyKeV],
// then dedupes structurally-equal calibrations across records so that
// records sharing a calibration also share the Go value (cheap by
// value-equality, not identity, since EnergyCalibration holds only
// immutable slices), per spec §4.5 step 2.
func (f *SpecFile) repairAndDedupCalibrations(cfg Config) []string {
	var warnings []string
	var unique []EnergyCalibration

	for i := range f.measurements {
		m := &f.measurements[i]
		if !m.GammaCalibration.IsValid() && len(m.GammaCounts) > 0 {
			coeffs := []float64{0, cfg.DefaultCalibrationMaxEnergyKeV / float64(len(m.GammaCounts))}
			cal, err := NewPolynomialCalibration(coeffs, len(m.GammaCounts), nil)
			if err == nil {
				m.GammaCalibration = cal
				warnings = append(warnings, warnf("record %d (%s) had no usable energy calibration; "+
					"substituted a default 0-%.0f keV linear calibration",
					m.SampleNumber, m.DetectorName, cfg.DefaultCalibrationMaxEnergyKeV))
			}
		}

		if !m.GammaCalibration.IsValid() {
			continue
		}
		found := false
		for _, u := range unique {
			if u.Equal(m.GammaCalibration) {
				m.GammaCalibration = u
				found = true
				break
			}
		}
		if !found {
			unique = append(unique, m.GammaCalibration)
		}
	}
	return warnings
}

// normalizeGPS clears GPS fields that are the sentinel or (0,0), per
// spec §4.5 step 3.
func (f *SpecFile) normalizeGPS() {
	for i := range f.measurements {
		m := &f.measurements[i]
		if !m.HasValidGPS() {
			m.Latitude, m.Longitude = UnknownGPS, UnknownGPS
		}
	}
}

// assignSampleNumbers assigns a SampleNumber to every record, overwriting
// any number a decoder set, even where the (sample, detector) pairs were
// already unique. Below cfg.LargeFileRecordThreshold records, it preserves
// decode order by detector, grouping records with matching start times
// across detectors into the same sample; at or above the threshold it
// uses a faster strategy that only preserves per-detector order, not
// cross-detector alignment, per spec §4.5 step 4.
func (f *SpecFile) assignSampleNumbers(cfg Config) {
	n := len(f.measurements)

	if n >= cfg.LargeFileRecordThreshold {
		perDetector := make(map[string]int)
		for i := range f.measurements {
			m := &f.measurements[i]
			m.SampleNumber = perDetector[m.DetectorName]
			perDetector[m.DetectorName]++
		}
	} else {
		byTime := make(map[int64]int)
		var order []int64
		for i := range f.measurements {
			m := &f.measurements[i]
			key := int64(0)
			if m.HasStartTime {
				key = m.StartTime.UnixNano()
			} else {
				key = int64(i)
			}
			if _, ok := byTime[key]; !ok {
				byTime[key] = len(order)
				order = append(order, key)
			}
			m.SampleNumber = byTime[key]
		}
	}

	f.rebuildSampleIndex()
}

// rebuildSampleIndex recomputes sampleToIndices and sampleNumbers from
// the current f.measurements slice. It must be re-run after any
// operation that reorders or removes records (assignSampleNumbers
// itself, and mergeNeutronIntoGamma, which shortens f.measurements and
// would otherwise leave stale indices pointing past the new slice).
func (f *SpecFile) rebuildSampleIndex() {
	f.sampleToIndices = make(map[int][]int)
	var samples []int
	for i := range f.measurements {
		s := f.measurements[i].SampleNumber
		if _, ok := f.sampleToIndices[s]; !ok {
			samples = append(samples, s)
		}
		f.sampleToIndices[s] = append(f.sampleToIndices[s], i)
	}
	sort.Ints(samples)
	f.sampleNumbers = samples
}

// mergeNeutronIntoGamma pairs neutron-only records into a gamma record
// of the matching detector, trying (in order): exact detector-name
// match, a name with a "Neutron"/"N" suffix stripped, then Levenshtein
// distance <= cfg.NeutronMergeEditDistance against gamma detector names
// (a pairing made this way is logged). Within the matched detector it
// takes the gamma record with the same sample number, or else that
// detector's first gamma record. Unpaired neutron records are logged and
// kept standalone, per spec §4.5 step 5.
func (f *SpecFile) mergeNeutronIntoGamma(cfg Config) []string {
	var warnings []string
	var gammaIdx []int
	var neutronOnlyIdx []int

	for i := range f.measurements {
		m := &f.measurements[i]
		switch {
		case len(m.GammaCounts) > 0:
			gammaIdx = append(gammaIdx, i)
		case m.ContainedNeutron:
			neutronOnlyIdx = append(neutronOnlyIdx, i)
		}
	}

	gammaByDetector := make(map[string][]int)
	for _, gi := range gammaIdx {
		name := f.measurements[gi].DetectorName
		gammaByDetector[name] = append(gammaByDetector[name], gi)
	}

	consumed := make(map[int]bool)
	for _, ni := range neutronOnlyIdx {
		n := &f.measurements[ni]
		target := f.findNeutronPairTarget(n, gammaByDetector, cfg)
		if target < 0 {
			warnings = append(warnings, warnf("neutron record (sample %d, detector %q) "+
				"could not be paired with any gamma record; kept standalone",
				n.SampleNumber, n.DetectorName))
			continue
		}
		g := &f.measurements[target]
		g.ContainedNeutron = true
		g.NeutronCounts = n.NeutronCounts
		g.NeutronCountsSum = n.NeutronCountsSum
		consumed[ni] = true
	}

	if len(consumed) == 0 {
		return warnings
	}

	kept := f.measurements[:0]
	for i, m := range f.measurements {
		if consumed[i] {
			continue
		}
		kept = append(kept, m)
	}
	f.measurements = kept
	f.rebuildSampleIndex()
	return warnings
}

func (f *SpecFile) findNeutronPairTarget(n *Measurement, gammaByDetector map[string][]int, cfg Config) int {
	matchSample := func(idxs []int) int {
		for _, gi := range idxs {
			if f.measurements[gi].SampleNumber == n.SampleNumber {
				return gi
			}
		}
		if len(idxs) > 0 {
			return idxs[0]
		}
		return -1
	}

	if idxs, ok := gammaByDetector[n.DetectorName]; ok {
		if gi := matchSample(idxs); gi >= 0 {
			return gi
		}
	}

	stripped := stripNeutronSuffix(n.DetectorName)
	if idxs, ok := gammaByDetector[stripped]; ok {
		if gi := matchSample(idxs); gi >= 0 {
			return gi
		}
	}

	best := -1
	bestDist := cfg.NeutronMergeEditDistance + 1
	for name, idxs := range gammaByDetector {
		d := levenshtein(stripped, name)
		if d < bestDist {
			bestDist = d
			if gi := matchSample(idxs); gi >= 0 {
				best = gi
			}
		}
	}
	if bestDist <= cfg.NeutronMergeEditDistance {
		if best >= 0 {
			warnf("neutron record %q paired with gamma detector %q by edit distance %d",
				n.DetectorName, f.measurements[best].DetectorName, bestDist)
		}
		return best
	}
	return -1
}

func stripNeutronSuffix(name string) string {
	for _, suffix := range []string{"Neutron", "neutron", "N", "_N"} {
		if len(name) > len(suffix) && name[len(name)-len(suffix):] == suffix {
			return name[:len(name)-len(suffix)]
		}
	}
	return name
}

// levenshtein computes edit distance between two strings, written out
// directly since the merge fallback only needs the distance itself, not
// github.com/xrash/smetrics' fuzzy-match scoring (smetrics is already
// pulled in transitively by urfave/cli).
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur := make([]int, len(rb)+1)
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := cur[j-1] + 1
			sub := prev[j-1] + cost
			m := del
			if ins < m {
				m = ins
			}
			if sub < m {
				m = sub
			}
			cur[j] = m
		}
		prev = cur
	}
	return prev[len(rb)]
}

// detectPassthrough flags records as search/passthrough mode (Occupancy
// left at OccupancyUnknown but SourceType unchanged) when the file has
// at least cfg.PassthroughMinSamples samples and the fraction of
// records with RealTimeS <= cfg.PassthroughRealTimeMaxS exceeds
// cfg.PassthroughMinFraction, per spec §4.5 step 6. This only
// annotates ParseWarnings; it never invents an Occupancy value the
// decoder didn't supply.
func (f *SpecFile) detectPassthrough(cfg Config) {
	if len(f.sampleNumbers) < cfg.PassthroughMinSamples {
		return
	}
	short := 0
	for i := range f.measurements {
		if f.measurements[i].RealTimeS > 0 && f.measurements[i].RealTimeS <= cfg.PassthroughRealTimeMaxS {
			short++
		}
	}
	frac := float64(short) / float64(len(f.measurements))
	if frac <= cfg.PassthroughMinFraction {
		return
	}
	for i := range f.measurements {
		f.measurements[i].ParseWarnings = append(f.measurements[i].ParseWarnings, "detected as passthrough/search-mode file")
	}
}

// recomputeProperties recomputes the HasCommonBinning and
// AllSpectraSameNumberChannels summary bits, per spec §4.5 step 7.
func (f *SpecFile) recomputeProperties() {
	var flags PropertyFlag
	if len(f.measurements) > 0 {
		first := f.measurements[0].GammaCalibration
		sameBinning := true
		sameChannelCount := true
		n := len(f.measurements[0].GammaCounts)
		for _, m := range f.measurements[1:] {
			if !m.GammaCalibration.Equal(first) {
				sameBinning = false
			}
			if len(m.GammaCounts) != n {
				sameChannelCount = false
			}
		}
		if sameBinning {
			flags |= FlagHasCommonBinning
		}
		if sameChannelCount {
			flags |= FlagAllSameNumberChannels
		}
	}
	f.properties = flags | FlagComputed
}

func (f *SpecFile) recomputeAggregates() {
	f.GammaLiveTimeS, f.GammaRealTimeS, f.NeutronLiveTimeS = 0, 0, 0
	var neutronNames []string
	seen := make(map[string]bool)
	for _, m := range f.measurements {
		f.GammaLiveTimeS += m.LiveTimeS
		f.GammaRealTimeS += m.RealTimeS
		if m.ContainedNeutron {
			f.NeutronLiveTimeS += m.LiveTimeS
			if !seen[m.DetectorName] {
				seen[m.DetectorName] = true
				neutronNames = append(neutronNames, m.DetectorName)
			}
		}
	}
	f.neutronDetectorNames = neutronNames
}

// deduceInstrumentType fills InstrumentType when a decoder left it blank
// and Manufacturer or Model is set: "RadiationPortalMonitor" if the file
// has neutron detectors, otherwise "Spectrometer". The text of
// Manufacturer and Model is not examined, only whether it is empty.
func (f *SpecFile) deduceInstrumentType() {
	if f.InstrumentType != "" {
		return
	}
	switch {
	case f.Manufacturer == "" && f.Model == "":
		return
	case len(f.neutronDetectorNames) > 0:
		f.InstrumentType = "RadiationPortalMonitor"
	default:
		f.InstrumentType = "Spectrometer"
	}
}

// HasCommonBinning reports whether every record shares one
// EnergyCalibration value, lazily recomputing if invalidated.
func (f *SpecFile) HasCommonBinning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.properties&FlagComputed == 0 {
		f.recomputeProperties()
	}
	return f.properties&FlagHasCommonBinning != 0
}

// AllSpectraSameNumberChannels reports whether every record's gamma
// counts vector is the same length.
func (f *SpecFile) AllSpectraSameNumberChannels() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.properties&FlagComputed == 0 {
		f.recomputeProperties()
	}
	return f.properties&FlagAllSameNumberChannels != 0
}

// Measurement returns a copy of the record for the given sample number
// and detector name, or ErrNotFound.
func (f *SpecFile) Measurement(sample int, detector string) (Measurement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, i := range f.sampleToIndices[sample] {
		if f.measurements[i].DetectorName == detector {
			return f.measurements[i].clone(), nil
		}
	}
	return Measurement{}, ErrNotFound
}

// SampleMeasurements returns copies of every record for a sample
// number, across all detectors.
func (f *SpecFile) SampleMeasurements(sample int) []Measurement {
	f.mu.Lock()
	defer f.mu.Unlock()
	idxs := f.sampleToIndices[sample]
	out := make([]Measurement, len(idxs))
	for i, idx := range idxs {
		out[i] = f.measurements[idx].clone()
	}
	return out
}

// GammaMeasurements returns copies of every record carrying gamma
// counts, in decode order.
func (f *SpecFile) GammaMeasurements() []Measurement {
	f.mu.Lock()
	defer f.mu.Unlock()
	return lo.FilterMap(f.measurements, func(m Measurement, _ int) (Measurement, bool) {
		if len(m.GammaCounts) == 0 {
			return Measurement{}, false
		}
		return m.clone(), true
	})
}

// SampleNumbers returns the sorted, deduplicated set of sample numbers
// present in the file.
func (f *SpecFile) SampleNumbers() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.sampleNumbers...)
}

// DetectorNames returns the names in first-seen (detector number) order.
func (f *SpecFile) DetectorNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.detectorNames...)
}

// SuggestedSumEnergyCalibration returns the calibration that
// SumMeasurements will rebin everything onto: the shared calibration if
// HasCommonBinning, otherwise the calibration of the record with the
// most channels (spec §4.4, "summing with mismatched calibrations").
func (f *SpecFile) SuggestedSumEnergyCalibration() (EnergyCalibration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.measurements) == 0 {
		return invalidCalibration, ErrNotFound
	}
	widest := lo.MaxBy(f.measurements, func(a, b Measurement) bool {
		return a.GammaCalibration.ChannelCount() > b.GammaCalibration.ChannelCount()
	})
	if !widest.GammaCalibration.IsValid() {
		return invalidCalibration, ErrInvalidCalibration
	}
	return widest.GammaCalibration, nil
}

// Modified reports whether any mutating operation has run since the
// last call to ClearModified.
func (f *SpecFile) Modified() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.modified
}

// ClearModified resets the modified flag, typically called by a writer
// right after a successful encode.
func (f *SpecFile) ClearModified() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.modified = false
}
