package sdp

// CRC-16 engine: polynomial 0x8005, initial value 0, no input/output
// reflection, no final XOR. Unlike the CRC-16/ARC table used for the
// nRF52 UART link this protocol replaces, this polynomial is applied
// MSB-first, so a lookup table would need to be built per nibble
// direction; at one CRC per frame the straight bit loop is plenty fast
// and keeps the algorithm obviously correct against §4.1.
const crc16Poly = 0x8005

// crc16 computes the CRC-16 of data starting from seed. The protocol's
// validation trick is that seed is always 0 and data is payload||crc,
// so a correct frame always yields 0.
func crc16(data []byte, seed uint16) uint16 {
	crc := seed
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ crc16Poly
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// crc16Bytes splits a CRC-16 value into its wire representation, MSB first.
func crc16Bytes(crc uint16) [2]byte {
	return [2]byte{byte(crc >> 8), byte(crc)}
}
