package decode

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/soniakeys/meeus/v3/julian"

	specutil "github.com/sixy6e/go-specutil"
)

// decodeCSV decodes the loosest of the supported formats: one channel
// count per line, optionally comma-separated with leading channel or
// energy columns (the last field is the count), with an optional
// leading "# live_time real_time" comment and
// an optional GADRAS-style daily-file date line ("yyyy/ddd hh:mm:ss").
// Because nothing distinguishes this from arbitrary text, it is tried
// last by the Auto registry and any parse failure on any line is fatal,
// per spec §1's text-format family.
func decodeCSV(buf []byte) (*specutil.SpecFile, error) {
	scanner := bufio.NewScanner(bytes.NewReader(buf))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var counts []float64
	var liveTime, realTime float64
	var startTime time.Time
	var hasStartTime bool

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			parseCSVComment(strings.TrimPrefix(line, "#"), &liveTime, &realTime, &startTime, &hasStartTime)
			continue
		}

		fields := strings.FieldsFunc(line, func(r rune) bool { return r == ',' || r == '\t' })
		if len(fields) == 0 {
			continue
		}
		// last numeric field on the line is treated as the count; an
		// optional leading field is an energy/channel label, ignored.
		v, err := strconv.ParseFloat(strings.TrimSpace(fields[len(fields)-1]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad CSV count %q: %v", specutil.ErrParse, line, err)
		}
		counts = append(counts, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", specutil.ErrParse, err)
	}
	if len(counts) == 0 {
		return nil, fmt.Errorf("%w: no numeric data lines", specutil.ErrParse)
	}

	sf := specutil.NewSpecFile()
	var m specutil.Measurement
	m.DetectorName = "gamma"
	if realTime == 0 {
		realTime = liveTime
	}
	m.SetGammaCounts(counts, liveTime, realTime)
	if hasStartTime {
		m.StartTime = startTime
		m.HasStartTime = true
	}

	cal, _ := specutil.NewPolynomialCalibration([]float64{0, 3000.0 / float64(len(counts))}, len(counts), nil)
	_ = m.SetEnergyCalibration(cal)

	sf.AddMeasurement(m)
	return sf, nil
}

// parseCSVComment recognizes two comment shapes: "live_time real_time"
// as two floats, or a GADRAS-style daily-file timestamp "yyyy/ddd
// hh:mm:ss".
func parseCSVComment(body string, liveTime, realTime *float64, startTime *time.Time, hasStartTime *bool) {
	body = strings.TrimSpace(body)
	if t, ok := parseDailyFileTimestamp(body); ok {
		*startTime = t
		*hasStartTime = true
		return
	}
	fields := strings.Fields(body)
	if len(fields) >= 2 {
		lt, errL := strconv.ParseFloat(fields[0], 64)
		rt, errR := strconv.ParseFloat(fields[1], 64)
		if errL == nil && errR == nil {
			*liveTime, *realTime = lt, rt
		}
	}
}

// parseDailyFileTimestamp parses the "yyyy/ddd hh:mm:ss" reference time
// format GADRAS daily files use, via soniakeys/meeus/v3/julian's
// day-of-year conversion.
func parseDailyFileTimestamp(s string) (time.Time, bool) {
	parts := strings.SplitN(s, " ", 2)
	if len(parts) != 2 {
		return time.Time{}, false
	}
	dateParts := strings.SplitN(parts[0], "/", 2)
	if len(dateParts) != 2 {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(dateParts[0])
	if err != nil || year < 1900 || year > 2200 {
		return time.Time{}, false
	}
	doy, err := strconv.Atoi(dateParts[1])
	if err != nil || doy < 1 || doy > 366 {
		return time.Time{}, false
	}
	month, day := julian.DayOfYearToCalendar(doy, julian.LeapYearGregorian(year))

	hms := strings.Split(parts[1], ":")
	if len(hms) != 3 {
		return time.Time{}, false
	}
	vals := make([]int, 3)
	for i, v := range hms {
		vals[i], err = strconv.Atoi(v)
		if err != nil {
			return time.Time{}, false
		}
	}
	return time.Date(year, time.Month(month), day, vals[0], vals[1], vals[2], 0, time.UTC), true
}
