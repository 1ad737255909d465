package qpsk

import "encoding/binary"

/*------------------------------------------------------------------
 *
 * Purpose:	Concatenate N packets' payload bytes into one flash-
 *		block-sized buffer.
 *
 * Description:	AppendPacket copies a packet's P payload bytes to
 *		offset count*P and increments count; Full() is true once
 *		count == N. Words() exposes the buffer as little-endian
 *		32-bit words, the layout the flash writer programs.
 *
 *---------------------------------------------------------------*/

// Block holds N*PayloadSize bytes assembled from N packets.
type Block struct {
	packetSize int // P
	count      int // N
	buf        []byte
	words      []uint32
	appended   int
}

// NewBlock builds a Block for N packets of packetSize bytes each. Both
// the byte buffer and the word view are allocated here; nothing is
// allocated afterward.
func NewBlock(packetSize, count int) *Block {
	if packetSize <= 0 || count <= 0 {
		panic("qpsk: block packet size and count must be positive")
	}

	return &Block{
		packetSize: packetSize,
		count:      count,
		buf:        make([]byte, packetSize*count),
		words:      make([]uint32, packetSize*count/4),
	}
}

// Clear resets the appended-packet count; the backing buffer is
// reused and overwritten by subsequent AppendPacket calls.
func (b *Block) Clear() {
	b.appended = 0
}

// AppendPacket copies payload (PayloadSize bytes) into the next free
// slot. It panics if the Block is already Full — the Decoder is
// responsible for calling Clear between blocks.
func (b *Block) AppendPacket(payload []byte) {
	if b.Full() {
		panic("qpsk: block is full")
	}

	if len(payload) != b.packetSize {
		panic("qpsk: payload size mismatch")
	}

	offset := b.appended * b.packetSize
	copy(b.buf[offset:offset+b.packetSize], payload)
	b.appended++
}

// Full reports whether count packets have been appended since the
// last Clear.
func (b *Block) Full() bool { return b.appended == b.count }

// Appended reports how many packets have been appended since the
// last Clear.
func (b *Block) Appended() int { return b.appended }

// Bytes returns the raw block buffer. Only the first Appended*P bytes
// are meaningful unless Full().
func (b *Block) Bytes() []byte { return b.buf }

// Words returns the block buffer reinterpreted as little-endian
// 32-bit words, as the flash writer expects. len(buf) must be a
// multiple of 4.
func (b *Block) Words() []uint32 {
	for i := range b.words {
		b.words[i] = binary.LittleEndian.Uint32(b.buf[i*4:])
	}

	return b.words
}
