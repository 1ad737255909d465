package qpsk

/*------------------------------------------------------------------
 *
 * Purpose:	A single snapshot of the receive path's internal state,
 *		so a tracing harness polls one accessor per sample instead
 *		of a dozen.
 *
 *---------------------------------------------------------------*/

// Telemetry is a point-in-time snapshot of the Decoder's internal
// state, meant for a host-side trace or live display; nothing in the
// receive path itself reads it back.
type Telemetry struct {
	DecoderState   State
	DemodState     DemodState
	PLLPhase       float32
	PLLStep        float32
	DecisionPhase  float32
	SignalPower    float32
	Correlation    float32
	Tilt           float32
	Early          bool
	Late           bool
	LastSymbol     Symbol
	BytesReceived  int
	PacketsInBlock int
	Progress       float32 // packets appended / packets per block, in [0, 1]
}
