package encode

import (
	"fmt"
	"io"
	"reflect"
	"sort"
	"strconv"

	stgpsr "github.com/yuin/stagparser"

	specutil "github.com/sixy6e/go-specutil"
)

// csvRow describes one output row's column layout via struct tags,
// parsed with stagparser to drive a CSV header/column order instead of
// a hand-maintained column-order slice.
type csvRow struct {
	Channel float64 `csv:"column=channel,order=1"`
	Energy  float64 `csv:"column=energy_kev,order=2"`
	Counts  float64 `csv:"column=counts,order=3"`
}

type csvColumn struct {
	name  string
	order int
}

// csvColumns parses csvRow's struct tags into header/order metadata.
func csvColumns() ([]csvColumn, error) {
	defs, err := stgpsr.ParseStruct(&csvRow{}, "csv")
	if err != nil {
		return nil, err
	}

	values := reflect.ValueOf(&csvRow{}).Elem()
	types := values.Type()

	cols := make([]csvColumn, 0, types.NumField())
	for i := 0; i < types.NumField(); i++ {
		fieldName := types.Field(i).Name
		fieldDefs := make(map[string]stgpsr.Definition)
		for _, d := range defs[fieldName] {
			fieldDefs[d.Name()] = d
		}

		nameDef, ok := fieldDefs["column"]
		if !ok {
			continue
		}
		colName, _ := nameDef.Attribute("column")

		order := i
		if orderDef, ok := fieldDefs["order"]; ok {
			if raw, ok := orderDef.Attribute("order"); ok {
				if v, err := strconv.Atoi(raw); err == nil {
					order = v
				}
			}
		}
		cols = append(cols, csvColumn{name: colName, order: order})
	}

	sort.Slice(cols, func(i, j int) bool { return cols[i].order < cols[j].order })
	return cols, nil
}

// WriteCSV writes m as channel, energy_kev, counts rows, with the
// column header and order driven by csvRow's struct tags. The header
// row is not itself re-readable by decodeCSV's numeric-last-field rule
// (it is there for human/spreadsheet consumers); a caller round-
// tripping through this package's own decode should skip the header
// line, or feed decodeCSV only the data rows.
func WriteCSV(w io.Writer, m specutil.Measurement) error {
	if len(m.GammaCounts) == 0 {
		return fmt.Errorf("%w: no gamma counts to write", specutil.ErrOutput)
	}
	cols, err := csvColumns()
	if err != nil {
		return fmt.Errorf("%w: %v", specutil.ErrOutput, err)
	}

	header := ""
	for i, c := range cols {
		if i > 0 {
			header += ","
		}
		header += c.name
	}
	if _, err := fmt.Fprintln(w, header); err != nil {
		return fmt.Errorf("%w: %v", specutil.ErrOutput, err)
	}

	for i, count := range m.GammaCounts {
		energy := 0.0
		if m.GammaCalibration.IsValid() {
			energy, _ = m.GammaCalibration.EnergyForChannel(float64(i))
		}
		if _, err := fmt.Fprintf(w, "%d,%s,%s\n", i,
			strconv.FormatFloat(energy, 'f', 3, 64),
			strconv.FormatFloat(count, 'f', 0, 64)); err != nil {
			return fmt.Errorf("%w: %v", specutil.ErrOutput, err)
		}
	}
	return nil
}
