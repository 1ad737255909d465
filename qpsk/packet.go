package qpsk

import "encoding/binary"

/*------------------------------------------------------------------
 *
 * Purpose:	Accumulate one packet's payload, CRC and Hamming parity
 *		from a symbol stream, and validate it.
 *
 * Description:	Four 2-bit symbols assemble into a byte, MSB first
 *		(symbol0 = bits[7:6] ... symbol3 = bits[1:0]). The first
 *		PayloadSize bytes are the
 *		payload, the next four are the CRC (big-endian), and the
 *		final two are the 16-bit Hamming parity covering
 *		payload+CRC. Full() becomes true after PayloadSize+4+2
 *		bytes have arrived, at which point the Hamming syndrome is
 *		applied (correcting at most one bit across payload+CRC)
 *		and the CRC is recomputed over the (possibly corrected)
 *		payload and compared to the (possibly corrected) received
 *		CRC.
 *
 *---------------------------------------------------------------*/

// Packet accumulates and validates one fixed-size packet.
type Packet struct {
	payloadSize int
	buf         []byte // payload || crc, len PayloadSize+4
	parity      [2]byte

	byteCount   int
	bitCount    int
	currentByte byte

	crcSeed uint32

	full      bool
	valid     bool
	corrected bool
}

// NewPacket builds a Packet of the given payload size (P) and CRC
// seed. The seed is fixed for the Packet's lifetime; Reset preserves
// it.
func NewPacket(payloadSize int, crcSeed uint32) *Packet {
	if payloadSize <= 0 {
		panic("qpsk: packet payload size must be positive")
	}

	p := &Packet{
		payloadSize: payloadSize,
		buf:         make([]byte, payloadSize+4),
		crcSeed:     crcSeed,
	}

	return p
}

// Reset clears the accumulator for a new packet, keeping the CRC
// seed.
func (p *Packet) Reset() {
	for i := range p.buf {
		p.buf[i] = 0
	}

	p.parity = [2]byte{}
	p.byteCount = 0
	p.bitCount = 0
	p.currentByte = 0
	p.full = false
	p.valid = false
	p.corrected = false
}

func (p *Packet) PayloadSize() int { return p.payloadSize }

// SetSeed changes the CRC seed used by future Full() checks. Used by
// Decoder.Init to (re)arm a fresh CRC seed without reallocating.
func (p *Packet) SetSeed(seed uint32) { p.crcSeed = seed }

// totalBytes is PayloadSize + 4 (CRC) + 2 (Hamming parity).
func (p *Packet) totalBytes() int { return len(p.buf) + 2 }

// WriteSymbol feeds one 2-bit symbol into the accumulator. Symbols
// after Full() becomes true are ignored; the caller is expected to
// Reset between packets.
func (p *Packet) WriteSymbol(s Symbol) {
	if p.full {
		return
	}

	p.currentByte = p.currentByte<<2 | byte(s&3)
	p.bitCount++

	if p.bitCount < 4 {
		return
	}

	p.storeByte(p.currentByte)
	p.currentByte = 0
	p.bitCount = 0
}

func (p *Packet) storeByte(b byte) {
	switch {
	case p.byteCount < len(p.buf):
		p.buf[p.byteCount] = b
	default:
		p.parity[p.byteCount-len(p.buf)] = b
	}

	p.byteCount++

	if p.byteCount == p.totalBytes() {
		p.finish()
	}
}

func (p *Packet) finish() {
	receivedParity := binary.BigEndian.Uint16(p.parity[:])
	p.corrected = HammingDecode(p.buf, receivedParity)

	payload := p.buf[:p.payloadSize]
	receivedCRC := binary.BigEndian.Uint32(p.buf[p.payloadSize:])
	computedCRC := Crc32Seeded(p.crcSeed, payload)

	p.valid = computedCRC == receivedCRC
	p.full = true
}

// Full reports whether every payload+CRC+parity byte has arrived.
func (p *Packet) Full() bool { return p.full }

// Valid reports whether the packet's CRC matched after Hamming
// correction. Only meaningful once Full() is true.
func (p *Packet) Valid() bool { return p.valid }

// Corrected reports whether Hamming decoding flipped a bit. Only
// meaningful once Full() is true.
func (p *Packet) Corrected() bool { return p.corrected }

// Data returns the packet's (possibly Hamming-corrected) payload
// bytes. Meaningful once Full() is true; the backing array is reused
// across Reset, so callers that need to retain it must copy.
func (p *Packet) Data() []byte { return p.buf[:p.payloadSize] }
