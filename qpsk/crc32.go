package qpsk

/*------------------------------------------------------------------
 *
 * Purpose:	IEEE 802.3 CRC-32 (polynomial 0xEDB88320) over a packet
 *		payload, with a configurable seed.
 *
 * Description:	The standard library's hash/crc32 already implements
 *		this exact polynomial; rather than hand-roll a second
 *		implementation, Crc32 is a thin seeded wrapper around
 *		crc32.IEEE giving the rest of the package the same
 *		Init/Seed/Process shape as the other stateful stages.
 *
 *---------------------------------------------------------------*/

import "hash/crc32"

// Crc32 computes an IEEE 802.3 CRC-32 over bytes fed to Process, with
// an arbitrary starting seed (the wire format's crc32 field is
// seeded, not always zero).
type Crc32 struct {
	table *crc32.Table
	seed  uint32
	crc   uint32
}

func NewCrc32() *Crc32 {
	c := &Crc32{table: crc32.IEEETable}
	c.Init()

	return c
}

func (c *Crc32) Init() {
	c.Seed(0)
}

// Seed resets the running CRC to seed.
func (c *Crc32) Seed(seed uint32) {
	c.seed = seed
	c.crc = seed
}

// Process extends the running CRC over data and returns the updated
// value.
func (c *Crc32) Process(data []byte) uint32 {
	c.crc = crc32.Update(c.crc, c.table, data)

	return c.crc
}

// Value returns the current running CRC without consuming input.
func (c *Crc32) Value() uint32 { return c.crc }

// Crc32Seeded is a convenience one-shot equivalent of
// NewCrc32().Seed(seed).Process(data).Value().
func Crc32Seeded(seed uint32, data []byte) uint32 {
	return crc32.Update(seed, crc32.IEEETable, data)
}
