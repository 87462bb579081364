package comruntime

import (
	"encoding/binary"

	"github.com/google/uuid"

	"github.com/wippyai/com-runtime/errors"
)

// GUID is a 16-byte interface identifier in the in-memory COM encoding:
// Data1 (little-endian u32), Data2 and Data3 (little-endian u16), Data4 (8 bytes).
type GUID [16]byte

// ParseGUID parses the registry form "xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx",
// with or without surrounding braces.
func ParseGUID(s string) (GUID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return GUID{}, errors.New(errors.PhaseGUID, errors.KindInvalidInput).
			Value(s).
			Cause(err).
			Detail("malformed interface identifier").
			Build()
	}
	return fromRFC4122(u), nil
}

// MustParseGUID is ParseGUID for package-level identifiers. It panics on
// malformed input.
func MustParseGUID(s string) GUID {
	g, err := ParseGUID(s)
	if err != nil {
		panic(err)
	}
	return g
}

// GUIDFromFields builds a GUID from the four fields of the C struct
// declaration (DEFINE_GUID order).
func GUIDFromFields(d1 uint32, d2, d3 uint16, d4 [8]byte) GUID {
	var g GUID
	binary.LittleEndian.PutUint32(g[0:4], d1)
	binary.LittleEndian.PutUint16(g[4:6], d2)
	binary.LittleEndian.PutUint16(g[6:8], d3)
	copy(g[8:], d4[:])
	return g
}

// String returns the registry form of g.
func (g GUID) String() string {
	return g.uuid().String()
}

// IsZero reports whether g is the nil identifier.
func (g GUID) IsZero() bool {
	return g == GUID{}
}

// Halves returns g as two little-endian 64-bit words, the form used when an
// identifier crosses a boundary that only carries integers.
func (g GUID) Halves() (lo, hi uint64) {
	return binary.LittleEndian.Uint64(g[0:8]), binary.LittleEndian.Uint64(g[8:16])
}

// GUIDFromHalves is the inverse of GUID.Halves.
func GUIDFromHalves(lo, hi uint64) GUID {
	var g GUID
	binary.LittleEndian.PutUint64(g[0:8], lo)
	binary.LittleEndian.PutUint64(g[8:16], hi)
	return g
}

func (g GUID) uuid() uuid.UUID {
	var u uuid.UUID
	binary.BigEndian.PutUint32(u[0:4], binary.LittleEndian.Uint32(g[0:4]))
	binary.BigEndian.PutUint16(u[4:6], binary.LittleEndian.Uint16(g[4:6]))
	binary.BigEndian.PutUint16(u[6:8], binary.LittleEndian.Uint16(g[6:8]))
	copy(u[8:], g[8:])
	return u
}

func fromRFC4122(u uuid.UUID) GUID {
	var g GUID
	binary.LittleEndian.PutUint32(g[0:4], binary.BigEndian.Uint32(u[0:4]))
	binary.LittleEndian.PutUint16(g[4:6], binary.BigEndian.Uint16(u[4:6]))
	binary.LittleEndian.PutUint16(g[6:8], binary.BigEndian.Uint16(u[6:8]))
	copy(g[8:], u[8:])
	return g
}
