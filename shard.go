package specutil

import (
	"context"
	"runtime"
	"sync"

	"github.com/alitto/pond"
)

// workerCount picks a pond pool size scaled off runtime.NumCPU(), but
// respects an explicit cfg.MaxWorkers override and never spins up more
// workers than there is work to shard, per spec §5's sharding guidance.
func workerCount(cfg Config, shards int) int {
	n := cfg.MaxWorkers
	if n <= 0 {
		n = runtime.NumCPU()
	}
	if shards < n {
		n = shards
	}
	if n < 1 {
		n = 1
	}
	return n
}

// shardRanges splits [0, total) into contiguous chunks of at least
// cfg.WorkerMinRecordsPerTask records, so that a file too small to
// benefit from parallelism runs on a single shard instead of paying
// pool overhead for nothing.
func shardRanges(total int, cfg Config) [][2]int {
	if total == 0 {
		return nil
	}
	minPerTask := cfg.WorkerMinRecordsPerTask
	if minPerTask < 1 {
		minPerTask = 1
	}
	shards := total / minPerTask
	if shards < 1 {
		shards = 1
	}
	if max := workerCount(cfg, shards); shards > max {
		shards = max
	}

	out := make([][2]int, 0, shards)
	base := total / shards
	rem := total % shards
	start := 0
	for i := 0; i < shards; i++ {
		size := base
		if i < rem {
			size++
		}
		if size == 0 {
			continue
		}
		out = append(out, [2]int{start, start + size})
		start += size
	}
	return out
}

// SumSamples resolves samples/detectors to the underlying record
// indices and sums them via SumMeasurements, covering spec §4.5/§8
// scenario 6's sum_measurements(samples, detectors, target_cal?): a nil
// samples selects every sample, a nil detectors selects every detector,
// and a nil targetCal falls back to SuggestedSumEnergyCalibration.
// SumMeasurements names the result from the contributing detectors.
func (f *SpecFile) SumSamples(samples []int, detectors []string, targetCal *EnergyCalibration, cfg Config) (Measurement, error) {
	f.mu.Lock()
	if samples == nil {
		samples = append([]int(nil), f.sampleNumbers...)
	}
	wantDetector := make(map[string]bool, len(detectors))
	for _, d := range detectors {
		wantDetector[d] = true
	}

	var indices []int
	for _, s := range samples {
		for _, idx := range f.sampleToIndices[s] {
			name := f.measurements[idx].DetectorName
			if len(wantDetector) > 0 && !wantDetector[name] {
				continue
			}
			indices = append(indices, idx)
		}
	}
	f.mu.Unlock()

	cal := EnergyCalibration{}
	if targetCal != nil {
		cal = *targetCal
	} else {
		var err error
		cal, err = f.SuggestedSumEnergyCalibration()
		if err != nil {
			return Measurement{}, err
		}
	}

	return f.SumMeasurements(indices, cal, cfg)
}

// SumMeasurements rebins every selected record onto cal (via
// RebinByLowerEdge) and returns the channel-wise sum, dispatching shards
// of the work across a pond pool per spec §5.
func (f *SpecFile) SumMeasurements(indices []int, cal EnergyCalibration, cfg Config) (Measurement, error) {
	f.mu.Lock()
	records := make([]Measurement, len(indices))
	for i, idx := range indices {
		records[i] = f.measurements[idx].clone()
	}
	f.mu.Unlock()

	if !cal.IsValid() {
		return Measurement{}, ErrInvalidCalibration
	}

	ranges := shardRanges(len(records), cfg)
	if len(ranges) == 0 {
		return Measurement{GammaCalibration: cal}, nil
	}

	partials := make([]Measurement, len(ranges))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool := pond.New(workerCount(cfg, len(ranges)), 0, pond.MinWorkers(1), pond.Context(ctx))

	var mu sync.Mutex
	var firstErr error
	var wg sync.WaitGroup
	wg.Add(len(ranges))

	for shard, r := range ranges {
		shard, r := shard, r
		pool.Submit(func() {
			defer wg.Done()
			counts := make([]float64, cal.ChannelCount())
			var liveTime, realTime, neutronSum float64
			var neutron bool
			for _, m := range records[r[0]:r[1]] {
				if len(m.GammaCounts) == 0 {
					continue
				}
				rebinned, err := RebinByLowerEdge(m.GammaCalibration.LowerEdgeEnergies(), m.GammaCounts, cal.LowerEdgeEnergies())
				if err != nil && err != ErrSumNotPreserved {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					continue
				}
				for i, c := range rebinned {
					counts[i] += c
				}
				liveTime += m.LiveTimeS
				realTime += m.RealTimeS
				if m.ContainedNeutron {
					neutron = true
					neutronSum += m.NeutronCountsSum
				}
			}
			partials[shard] = Measurement{
				GammaCounts:      counts,
				LiveTimeS:        liveTime,
				RealTimeS:        realTime,
				ContainedNeutron: neutron,
				NeutronCountsSum: neutronSum,
			}
		})
	}
	wg.Wait()
	pool.StopAndWait()

	if firstErr != nil {
		return Measurement{}, firstErr
	}

	total := Measurement{GammaCalibration: cal}
	total.GammaCounts = make([]float64, cal.ChannelCount())
	for _, p := range partials {
		for i, c := range p.GammaCounts {
			total.GammaCounts[i] += c
		}
		total.LiveTimeS += p.LiveTimeS
		total.RealTimeS += p.RealTimeS
		if p.ContainedNeutron {
			total.ContainedNeutron = true
			total.NeutronCountsSum += p.NeutronCountsSum
		}
	}
	total.GammaCountSum = sum(total.GammaCounts)

	contributing := map[string]bool{}
	for _, r := range records {
		if len(r.GammaCounts) > 0 {
			contributing[r.DetectorName] = true
		}
	}
	if len(contributing) == 1 {
		for name := range contributing {
			total.DetectorName = name
		}
	} else if len(contributing) > 1 {
		total.DetectorName = "Summed"
	}

	return total, nil
}

// KeepNBinSpectraOnly drops every gamma record whose channel count is
// not exactly n, sharded across a pond pool for large files, per spec
// §5's "supplementing dropped features" (a filter SpecUtils exposes as
// a convenience for batch processing mismatched detector outputs).
func (f *SpecFile) KeepNBinSpectraOnly(n int, cfg Config) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	ranges := shardRanges(len(f.measurements), cfg)
	keep := make([]bool, len(f.measurements))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool := pond.New(workerCount(cfg, len(ranges)), 0, pond.MinWorkers(1), pond.Context(ctx))
	var wg sync.WaitGroup
	wg.Add(len(ranges))
	for _, r := range ranges {
		r := r
		pool.Submit(func() {
			defer wg.Done()
			for i := r[0]; i < r[1]; i++ {
				m := &f.measurements[i]
				keep[i] = len(m.GammaCounts) == 0 || len(m.GammaCounts) == n
			}
		})
	}
	wg.Wait()
	pool.StopAndWait()

	filtered := f.measurements[:0]
	removed := 0
	for i, m := range f.measurements {
		if keep[i] {
			filtered = append(filtered, m)
		} else {
			removed++
		}
	}
	f.measurements = filtered
	if removed > 0 {
		f.modified = true
		f.properties &^= FlagComputed
		f.rebuildSampleIndex()
	}
	return removed
}
