package comms

import "encoding/binary"

// MaxHeightMM is the largest height in millimeters that still fits the 16-bit wire format.
const MaxHeightMM = 6553

// DecodeHeight decodes the raw height characteristic value. Returns the height in desk units
// (tenths of a millimeter) and whether decode was successful. Bytes past the first two are ignored.
func DecodeHeight(data []byte) (uint16, bool) {
	if len(data) < 2 {
		return 0, false
	}
	return binary.LittleEndian.Uint16(data[:2]), true
}

// MMToUnits converts millimeters to the desk's internal format.
func MMToUnits(mm uint16) uint16 {
	return mm * 10
}

// UnitsToMM converts desk units to millimeters, truncating the sub-millimeter remainder.
func UnitsToMM(units uint16) uint16 {
	return units / 10
}
