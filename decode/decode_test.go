package decode

import (
	"strings"
	"testing"
)

func TestAutoDispatchesCSVBeforeFailingFormats(t *testing.T) {
	buf := []byte("# 10 10\n100\n200\n300\n")
	sf, tag, err := Auto(buf)
	if err != nil {
		t.Fatalf("Auto: %v", err)
	}
	if tag != CSV {
		t.Fatalf("expected CSV, got %s", tag)
	}
	got := sf.GammaMeasurements()
	if len(got) != 1 || len(got[0].GammaCounts) != 3 {
		t.Fatalf("expected 1 record with 3 channels, got %+v", got)
	}
}

func TestAutoRejectsGarbage(t *testing.T) {
	if _, _, err := Auto([]byte{0xde, 0xad, 0xbe, 0xef}); err == nil {
		t.Fatal("expected an error for unrecognized data")
	}
}

func TestDecodeWithHintRejectsUnknown(t *testing.T) {
	if _, err := Decode([]byte("anything"), Unknown); err == nil {
		t.Fatal("expected an error decoding with an Unknown hint")
	}
}

func TestTagString(t *testing.T) {
	for _, tag := range []Tag{N42_2006, N42_2012, CHN, IAEASPE, CSV, Unknown} {
		if strings.TrimSpace(tag.String()) == "" {
			t.Fatalf("Tag(%d).String() returned an empty string", tag)
		}
	}
}

func TestParseTagRoundTripsTagString(t *testing.T) {
	for _, tag := range []Tag{N42_2006, N42_2012, CHN, IAEASPE, CSV} {
		got, ok := ParseTag(tag.String())
		if !ok || got != tag {
			t.Fatalf("ParseTag(%q) = (%v, %v), want (%v, true)", tag.String(), got, ok, tag)
		}
	}
}

func TestParseTagRejectsUnknownName(t *testing.T) {
	if _, ok := ParseTag("PCF"); ok {
		t.Fatal("expected ParseTag to reject an unregistered format name")
	}
}
