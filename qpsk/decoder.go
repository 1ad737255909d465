package qpsk

import (
	charmlog "github.com/charmbracelet/log"
)

/*------------------------------------------------------------------
 *
 * Purpose:	Top-level receive state machine: orchestrates the
 *		Demodulator, Packet and Block from cold carrier acquisition
 *		through end-of-transmission.
 *
 * Description:	Exactly one producer (Push, called from an ISR-like
 *		context) and one consumer (Process, called from the
 *		worker loop) touch a Decoder; everything but the sample
 *		FIFO is consumer-only. States: IDLE, CARRIER_SYNC, ALIGN,
 *		DECODE_PACKET, ERROR, END. ERROR is sticky until Reset or
 *		Abort.
 *
 *---------------------------------------------------------------*/

// State is the Decoder's top-level state.
type State int

const (
	StateIdle State = iota
	StateCarrierSync
	StateAlign
	StateDecodePacket
	StateError
	StateEnd
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateCarrierSync:
		return "CARRIER_SYNC"
	case StateAlign:
		return "ALIGN"
	case StateDecodePacket:
		return "DECODE_PACKET"
	case StateError:
		return "ERROR"
	case StateEnd:
		return "END"
	default:
		return "UNKNOWN"
	}
}

// Result is what Process reports back to the worker loop each call.
type Result int

const (
	ResultNone Result = iota
	ResultPacketComplete
	ResultBlockComplete
	ResultEnd
	ResultError
)

func (r Result) String() string {
	switch r {
	case ResultNone:
		return "NONE"
	case ResultPacketComplete:
		return "PACKET_COMPLETE"
	case ResultBlockComplete:
		return "BLOCK_COMPLETE"
	case ResultEnd:
		return "END"
	case ResultError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ErrorKind is the Decoder's closed error taxonomy. The caller polls
// Error() after a ResultError rather than receiving a wrapped Go
// error: the consumer is a flash-writer state machine polling a
// Result enum, not a call chain an error could propagate up through.
type ErrorKind int

const (
	ErrSync ErrorKind = iota + 1
	ErrCRC
	ErrOverflow
	ErrAbort
)

func (e ErrorKind) String() string {
	switch e {
	case ErrSync:
		return "SYNC"
	case ErrCRC:
		return "CRC"
	case ErrOverflow:
		return "OVERFLOW"
	case ErrAbort:
		return "ABORT"
	default:
		return "NONE"
	}
}

// maxSamplesPerProcess bounds how many samples a single Process call
// drains, keeping worst-case latency and stack depth predictable even
// if the FIFO has a large backlog.
const maxSamplesPerProcess = 4096

// Config fixes a Decoder's channel parameters for its lifetime. All
// sizes are set once at construction and never resized; in firmware
// they would be compile-time constants.
type Config struct {
	SymbolDuration  int     // L, samples per symbol
	PacketSize      int     // P, payload bytes per packet
	PacketsPerBlock int     // N
	CRCSeed         uint32
	Carrier         float32 // nominal carrier cycles/sample
	FIFOCapacity    int     // power of two

	// PLLKp overrides the carrier PLL's proportional gain (Ki follows
	// in fixed ratio). Zero selects the compiled-in default gain.
	PLLKp float32

	// Per-state timeout budgets, in samples. Zero selects a
	// SymbolDuration-scaled default.
	CarrierSyncBudget uint64
	AlignBudget       uint64

	// CarrierStableSamples is how many consecutive samples of
	// above-threshold signal power are required before CARRIER_SYNC
	// hands off to ALIGN. Zero selects a default of 8 symbol periods.
	CarrierStableSamples uint64
}

func (c Config) withDefaults() Config {
	if c.Carrier == 0 {
		// Carrier frequency equals symbol rate.
		c.Carrier = 1 / float32(c.SymbolDuration)
	}

	if c.CarrierSyncBudget == 0 {
		c.CarrierSyncBudget = uint64(c.SymbolDuration) * 2000
	}

	if c.AlignBudget == 0 {
		c.AlignBudget = uint64(c.SymbolDuration) * 500
	}

	if c.CarrierStableSamples == 0 {
		c.CarrierStableSamples = uint64(c.SymbolDuration) * 8
	}

	if c.FIFOCapacity == 0 {
		c.FIFOCapacity = 4096
	}

	return c
}

// Decoder is the receive path's top-level state machine.
type Decoder struct {
	cfg Config

	fifo   *Fifo[float32]
	demod  *Demodulator
	packet *Packet
	block  *Block

	state   State
	errKind ErrorKind

	carrierSyncCounter   uint64
	carrierStableCounter uint64
	carrierStableStep    float32
	alignCounter         uint64
	alignPeakSeen        bool
	alignPeakGap         uint64
	packetGuard          uint64
	coldStart            bool
	sawBlock             bool
	pendingAfterBlock    bool

	lastPacketData []byte

	logger *charmlog.Logger
}

// NewDecoder builds a Decoder for the given channel configuration and
// calls Init(cfg.CRCSeed).
func NewDecoder(cfg Config) *Decoder {
	cfg = cfg.withDefaults()

	d := &Decoder{
		cfg:            cfg,
		fifo:           NewFifo[float32](cfg.FIFOCapacity),
		demod:          NewDemodulator(cfg.SymbolDuration, cfg.Carrier, cfg.PLLKp),
		packet:         NewPacket(cfg.PacketSize, cfg.CRCSeed),
		block:          NewBlock(cfg.PacketSize, cfg.PacketsPerBlock),
		lastPacketData: make([]byte, cfg.PacketSize),
	}
	d.Init(cfg.CRCSeed)

	return d
}

// SetLogger attaches a structured logger; state transitions, latched
// errors, resets, aborts and completed packets are logged at
// Debug/Warn/Error.
// The core never logs on its own initiative otherwise — it has no
// console on the target hardware.
func (d *Decoder) SetLogger(logger *charmlog.Logger) {
	d.logger = logger
}

// Init clears all state and arms the Decoder for a fresh reception
// under a new CRC seed.
func (d *Decoder) Init(crcSeed uint32) {
	d.cfg.CRCSeed = crcSeed
	d.packet.SetSeed(crcSeed)
	d.Reset()
}

// Reset clears all state as Init does, but keeps the current CRC
// seed.
func (d *Decoder) Reset() {
	d.fifo.Flush()
	d.demod.Reset()
	d.packet.Reset()
	d.block.Clear()

	d.state = StateIdle
	d.errKind = 0
	d.carrierSyncCounter = 0
	d.carrierStableCounter = 0
	d.carrierStableStep = 0
	d.alignCounter = 0
	d.alignPeakSeen = false
	d.alignPeakGap = 0
	d.packetGuard = 0
	d.coldStart = true
	d.sawBlock = false
	d.pendingAfterBlock = false

	if d.logger != nil {
		d.logger.Debug("decoder reset", "state", d.state)
	}
}

// Push enqueues one sample. Called from the ISR; never blocks. A full
// FIFO is a fatal, sticky OVERFLOW error: the timing-recovery loops
// cannot survive a gap in the stream, so a dropped sample ends the
// reception.
func (d *Decoder) Push(sample float32) bool {
	if d.fifo.Push(sample) {
		return true
	}

	d.latchError(ErrOverflow)

	return false
}

// SamplesAvailable hints the worker's idle loop how much queued work
// remains; it is advisory only.
func (d *Decoder) SamplesAvailable() int { return d.fifo.Available() }

// Abort forces the Decoder into ERROR(ABORT), e.g. because the flash
// writer failed. Unlike other errors this overrides any error already
// latched.
func (d *Decoder) Abort() {
	d.state = StateError
	d.errKind = ErrAbort

	if d.logger != nil {
		d.logger.Warn("decoder aborted")
	}
}

func (d *Decoder) latchError(kind ErrorKind) {
	if d.state == StateError {
		return
	}

	d.state = StateError
	d.errKind = kind

	if d.logger != nil {
		d.logger.Error("decoder error", "kind", kind)
	}
}

// Error returns the latched error kind; meaningful only when the last
// Process call returned ResultError.
func (d *Decoder) Error() ErrorKind { return d.errKind }

// State returns the Decoder's current top-level state.
func (d *Decoder) State() State { return d.state }

// PacketData returns the most recently completed packet's (possibly
// Hamming-corrected) payload bytes. Meaningful after a
// ResultPacketComplete, ResultBlockComplete, or a ResultError with
// Error() == ErrCRC.
func (d *Decoder) PacketData() []byte { return d.lastPacketData }

// BlockData returns the just-completed block's bytes as little-endian
// 32-bit words. Meaningful only after a ResultBlockComplete, and only
// until the next block's first packet completes: the next Process call
// resets the block's packet count, and each later completed packet
// overwrites its slot in the buffer.
func (d *Decoder) BlockData() []uint32 { return d.block.Words() }

// Telemetry returns a snapshot of the receive path's internal state.
func (d *Decoder) Telemetry() Telemetry {
	return Telemetry{
		DecoderState:   d.state,
		DemodState:     d.demod.State(),
		PLLPhase:       d.demod.PLLPhase(),
		PLLStep:        d.demod.PLLStep(),
		DecisionPhase:  d.demod.DecisionPhase(),
		SignalPower:    d.demod.Power(),
		Correlation:    d.demod.CorrelatorOutput(),
		Tilt:           d.demod.Tilt(),
		Early:          d.demod.Early(),
		Late:           d.demod.Late(),
		LastSymbol:     d.demod.LastSymbol(),
		BytesReceived:  d.block.Appended()*d.cfg.PacketSize + d.packetBytesSoFar(),
		PacketsInBlock: d.block.Appended(),
		Progress:       float32(d.block.Appended()) / float32(d.cfg.PacketsPerBlock),
	}
}

func (d *Decoder) packetBytesSoFar() int {
	// Only a rough estimate for telemetry: the Packet doesn't expose a
	// partial byte count, so report 0 unless full.
	if d.packet.Full() {
		return d.packet.PayloadSize()
	}

	return 0
}

// Process drains queued samples one at a time, advancing the state
// machine, and returns as soon as a notable event occurs (a completed
// packet or block, an error, end-of-transmission) or the FIFO empties
// or the per-call sample budget is exhausted, whichever comes first.
func (d *Decoder) Process() Result {
	if d.pendingAfterBlock {
		d.block.Clear()
		d.state = StateAlign
		d.alignCounter = 0
		d.pendingAfterBlock = false
	}

	if d.state == StateError {
		return ResultError
	}

	if d.state == StateEnd {
		return ResultEnd
	}

	for i := 0; i < maxSamplesPerProcess; i++ {
		sample, ok := d.fifo.Pop()
		if !ok {
			break
		}

		if d.state == StateIdle {
			d.transition(StateCarrierSync)
			d.carrierSyncCounter = 0
			d.carrierStableCounter = 0
		}

		d.demod.Process(sample)

		var result Result

		switch d.state {
		case StateCarrierSync:
			result = d.stepCarrierSync()
		case StateAlign:
			result = d.stepAlign()
		case StateDecodePacket:
			result = d.stepDecodePacket()
		}

		if result != ResultNone {
			return result
		}
	}

	return ResultNone
}

func (d *Decoder) transition(next State) {
	if d.logger != nil {
		d.logger.Debug("state transition", "from", d.state, "to", next)
	}

	d.state = next
}

// pllStepEpsilon bounds how much the PLL's per-sample frequency
// estimate may move across the carrier-stability window while still
// counting as settled.
const pllStepEpsilon = 1e-3

func (d *Decoder) stepCarrierSync() Result {
	d.carrierSyncCounter++

	step := d.demod.PLLStep()

	if d.demod.State() == DemodWait || abs32(step-d.carrierStableStep) > pllStepEpsilon {
		d.carrierStableCounter = 0
		d.carrierStableStep = step
	} else {
		d.carrierStableCounter++
	}

	if d.carrierStableCounter >= d.cfg.CarrierStableSamples {
		d.transition(StateAlign)
		d.alignCounter = 0
		d.alignPeakSeen = false
		d.alignPeakGap = 0

		for d.demod.SymbolsAvailable() > 0 {
			d.demod.PopSymbol()
		}

		return ResultNone
	}

	if d.carrierSyncCounter >= d.cfg.CarrierSyncBudget {
		d.latchError(ErrSync)

		return ResultError
	}

	return ResultNone
}

func (d *Decoder) stepAlign() Result {
	d.alignCounter++

	for d.demod.SymbolsAvailable() > 0 {
		d.demod.PopSymbol()
	}

	peak := d.demod.State() == DemodSync

	if peak && d.packetBoundary() {
		d.transition(StateDecodePacket)
		d.packet.Reset()
		d.coldStart = false
		d.alignPeakSeen = false
		d.alignPeakGap = 0

		// A free-running decision for the alignment's trailing symbol
		// can land a sample or two after the peak; hold the packet
		// open long enough to discard it. The first payload symbol's
		// decision is a full symbol period out.
		d.packetGuard = uint64(d.cfg.SymbolDuration / 2)

		return ResultNone
	}

	if peak {
		d.alignPeakSeen = true
		d.alignPeakGap = 0
	} else if d.alignPeakSeen {
		d.alignPeakGap++
	}

	if d.alignCounter >= d.cfg.AlignBudget {
		if d.sawBlock {
			d.transition(StateEnd)

			return ResultEnd
		}

		d.latchError(ErrSync)

		return ResultError
	}

	return ResultNone
}

// packetBoundary reports whether a correlator peak right now marks the
// start of packet payload. After the first packet any peak does: the
// next packet begins directly with the two alignment symbols. During
// cold start the preamble itself contains a run of alignment
// repetitions, each of which peaks, so those are skipped and only a
// peak arriving after a sustained peak-free gap -- the preamble's
// sixteen-symbol spacer run -- counts as the preamble-end boundary.
func (d *Decoder) packetBoundary() bool {
	if !d.coldStart {
		return true
	}

	return d.alignPeakSeen && d.alignPeakGap >= uint64(8*d.cfg.SymbolDuration)
}

func (d *Decoder) stepDecodePacket() Result {
	if d.packetGuard > 0 {
		d.packetGuard--

		for d.demod.SymbolsAvailable() > 0 {
			d.demod.PopSymbol()
		}

		return ResultNone
	}

	for d.demod.SymbolsAvailable() > 0 {
		symbol, _ := d.demod.PopSymbol()
		d.packet.WriteSymbol(symbol)

		if !d.packet.Full() {
			continue
		}

		d.lastPacketData = append(d.lastPacketData[:0], d.packet.Data()...)

		if !d.packet.Valid() {
			d.latchError(ErrCRC)

			return ResultError
		}

		d.block.AppendPacket(d.packet.Data())
		d.packet.Reset()

		if d.logger != nil {
			d.logger.Debug("packet complete", "appended", d.block.Appended())
		}

		if d.block.Full() {
			// Trailing silence counts as end-of-transmission only once
			// a whole block has been delivered; going quiet mid-block
			// is a sync failure.
			d.sawBlock = true
			d.pendingAfterBlock = true

			return ResultBlockComplete
		}

		d.transition(StateAlign)
		d.alignCounter = 0

		return ResultPacketComplete
	}

	return ResultNone
}
