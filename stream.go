package specutil

import (
	"bytes"
	"io"
)

// Stream is a minimal read/seek surface. *os.File and *bytes.Reader both
// already satisfy it. The decoders in the decode subpackage do not take
// a Stream: they take the file's bytes as a []byte.
// Spec §1 puts file/object-store I/O wrappers out of scope, so the only
// two concrete Streams this package ships are backed directly by the
// standard library.
type Stream interface {
	io.Reader
	io.Seeker
}

// LoadIntoMemory reads all of r into a *bytes.Reader, useful for callers
// that want a Stream decoupled from the underlying file descriptor.
func LoadIntoMemory(r io.Reader) (*bytes.Reader, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}
