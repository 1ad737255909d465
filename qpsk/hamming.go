package qpsk

/*------------------------------------------------------------------
 *
 * Purpose:	Extended-Hamming single-error-correction over a packet's
 *		payload+CRC bytes, encoded as a 16-bit parity value (the
 *		wire format's two Hamming parity bytes).
 *
 * Description:	Every data bit is folded into a running parity with
 *		`parity ^= bitNum`, where bitNum counts up across all
 *		bits but skips every power of two — those positions are
 *		reserved for (virtual) parity bits, which is what makes a
 *		zero syndrome unambiguous: position 0 can never be a real
 *		data bit, so "no error" and "bit 0 is wrong" can't be
 *		confused. Decoding recomputes the same running parity over
 *		the received bytes and XORs it with the received parity;
 *		a nonzero syndrome that lands on a real data bit's bitNum
 *		flips that bit. A syndrome landing on a reserved
 *		(power-of-two) position means only a parity bit itself was
 *		wrong, so no data bit is touched.
 *
 *---------------------------------------------------------------*/

// isPowerOfTwo reports whether n is an exact power of two (n > 0).
func isPowerOfTwo(n uint32) bool {
	return n != 0 && n&(n-1) == 0
}

// hammingBits calls fn once for every data bit across length bytes, in
// encoding order, with the bitNum (skipping reserved power-of-two
// positions) assigned to that bit.
func hammingBits(length int, fn func(byteIdx, bitIdx int, bitNum uint32)) {
	bitNum := uint32(1)

	for i := 0; i < length*8; i++ {
		for isPowerOfTwo(bitNum) {
			bitNum++
		}

		fn(i/8, i%8, bitNum)
		bitNum++
	}
}

// HammingEncode computes the 16-bit parity of a byte slice, the value
// carried as the wire format's two trailing parity bytes.
func HammingEncode(data []byte) uint16 {
	var parity uint16

	hammingBits(len(data), func(byteIdx, bitIdx int, bitNum uint32) {
		if data[byteIdx]&(1<<uint(bitIdx)) != 0 {
			parity ^= uint16(bitNum)
		}
	})

	return parity
}

// HammingDecode corrects up to one bit in data using receivedParity,
// the 16-bit parity that accompanied it on the wire. data is modified
// in place. It returns true if a bit was corrected.
func HammingDecode(data []byte, receivedParity uint16) bool {
	computed := HammingEncode(data)
	syndrome := uint32(computed ^ receivedParity)

	if syndrome == 0 {
		return false
	}

	corrected := false

	hammingBits(len(data), func(byteIdx, bitIdx int, bitNum uint32) {
		if corrected || bitNum != syndrome {
			return
		}

		data[byteIdx] ^= 1 << uint(bitIdx)
		corrected = true
	})

	return corrected
}
