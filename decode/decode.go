// Package decode implements the per-format spectrum file decoders
// referenced by specutil.SpecFile. It imports the root package for the
// shared Measurement/EnergyCalibration/SpecFile types rather than the
// other way around, avoiding the import cycle that would exist if the
// root package tried to register decoders itself.
package decode

import (
	"fmt"

	"github.com/samber/lo"

	specutil "github.com/sixy6e/go-specutil"
)

// Tag identifies a supported file format for both decode dispatch and
// hint-driven decode attempts.
type Tag int

const (
	Unknown Tag = iota
	N42_2006
	N42_2012
	CHN
	IAEASPE
	CSV
)

func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return "Unknown"
}

// tagNames backs both Tag.String() callers that want a map lookup and
// ParseTag, built once via lo.Invert rather than maintaining the name ->
// Tag direction by hand.
var tagNames = map[Tag]string{
	N42_2006: "N42-2006",
	N42_2012: "N42-2012",
	CHN:      "CHN",
	IAEASPE:  "IAEA-SPE",
	CSV:      "CSV",
}

var namesToTag = lo.Invert(tagNames)

// ParseTag looks up the Tag for a format name as printed by Tag.String,
// for callers (e.g. a CLI flag) that need to go from user input back to
// a Tag without duplicating the name table.
func ParseTag(name string) (Tag, bool) {
	t, ok := namesToTag[name]
	return t, ok
}

// decoderFunc attempts to decode buf as a particular format and returns
// a fresh *specutil.SpecFile holding its Measurements; on failure it
// returns an error and no partially populated file.
type decoderFunc func(buf []byte) (*specutil.SpecFile, error)

// registry lists (tag, decoderFunc) in the order Auto tries them, per
// spec §4.5's external-interface note that load_file tries decoders in
// turn and rewinds on failure. Byte-stream formats are tried before the
// looser text formats, so a binary CHN file misdetected as CSV text
// never gets a chance to silently "succeed" with garbage.
var registry = []struct {
	tag     Tag
	decoder decoderFunc
}{
	{CHN, decodeCHN},
	{N42_2006, decodeN42},
	{N42_2012, decodeN42},
	{IAEASPE, decodeSPE},
	{CSV, decodeCSV},
}

// Auto tries every registered decoder in turn and returns the first
// successful result along with the Tag that produced it, or ErrParse if
// none could decode buf. Unlike a stream-based reader, each attempt
// here works from the same in-memory buf, so there is no seek/rewind
// state to manage between attempts (spec §4.5).
func Auto(buf []byte) (*specutil.SpecFile, Tag, error) {
	for _, entry := range registry {
		sf, err := entry.decoder(buf)
		if err == nil {
			return sf, entry.tag, nil
		}
	}
	return nil, Unknown, fmt.Errorf("%w: no decoder recognized this file", specutil.ErrParse)
}

// Decode runs only the decoder for the given hint, returning ErrParse
// if hint is Unknown or decoding fails.
func Decode(buf []byte, hint Tag) (*specutil.SpecFile, error) {
	for _, entry := range registry {
		if entry.tag == hint {
			return entry.decoder(buf)
		}
	}
	return nil, fmt.Errorf("%w: no decoder registered for %s", specutil.ErrParse, hint)
}
