// Package encode implements the per-format spectrum file encoders.
// Like decode, it imports the root package for the Measurement/
// EnergyCalibration types rather than the reverse.
package encode

import (
	"io"

	"github.com/samber/lo"

	specutil "github.com/sixy6e/go-specutil"
)

// Tag mirrors decode.Tag for the formats this package can write; kept
// as a separate type since encode support and decode support need not
// be symmetric (spec §1 does not require every readable format to also
// be writable).
type Tag int

const (
	N42 Tag = iota
	CHN
	IAEASPE
	CSV
	HTML
)

// tagNames backs both Tag.String and ParseTag, built once with
// lo.Invert the same way decode.Tag does, so the CLI can map a
// --format flag to a Tag without a hand-maintained reverse table.
var tagNames = map[Tag]string{
	N42:     "n42",
	CHN:     "chn",
	IAEASPE: "spe",
	CSV:     "csv",
	HTML:    "html",
}

var namesToTag = lo.Invert(tagNames)

func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return "unknown"
}

// ParseTag looks up the Tag for a format name as accepted by the CLI's
// --format flag.
func ParseTag(name string) (Tag, bool) {
	t, ok := namesToTag[name]
	return t, ok
}

// writers maps each Tag to the function that writes it, letting callers
// (the CLI's convertOne) dispatch on a parsed Tag instead of
// re-switching on the format string a second time.
var writers = map[Tag]func(io.Writer, specutil.Measurement) error{
	N42:     WriteN42,
	CHN:     WriteCHN,
	IAEASPE: WriteSPE,
	CSV:     WriteCSV,
	HTML:    WriteHTML,
}

// Write dispatches to the encoder registered for tag.
func Write(w io.Writer, m specutil.Measurement, tag Tag) error {
	fn, ok := writers[tag]
	if !ok {
		return specutil.ErrOutput
	}
	return fn(w, m)
}

// Measurement is re-exported so callers that only import encode (e.g. a
// CLI flag mapping format name -> encoder) don't also need to import
// the root package just to name the type being written.
type Measurement = specutil.Measurement
