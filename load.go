package specutil

import (
	"fmt"
	"os"
)

// LoadFile reads path and runs tryDecode over its contents, honoring
// spec §4.5's external-interface description of load_file(path, hint)
// trying decoders and giving up with ErrParse if none recognize the
// file. Decoding itself is supplied by the caller (typically
// decode.Auto or decode.Decode) so this package never imports decode.
func LoadFile(path string, tryDecode func([]byte) (*SpecFile, error)) (*SpecFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	sf, err := tryDecode(data)
	if err != nil {
		return nil, err
	}
	return sf, nil
}
