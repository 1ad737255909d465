package qpsk

/*------------------------------------------------------------------
 *
 * Purpose:	One-pole (single-time-constant) IIR lowpass, used to
 *		smooth the signal-power estimate and the decision-phase
 *		estimate.
 *
 * Description:	y[n] = y[n-1] + k*(x[n] - y[n-1]), with a single fixed
 *		coefficient k.
 *
 *---------------------------------------------------------------*/

// OnePoleLowpass is a one-pole IIR lowpass filter.
type OnePoleLowpass struct {
	coefficient float32
	output      float32
}

// Init sets the filter's coefficient k (see the y[n] update above) and
// clears its state.
func (p *OnePoleLowpass) Init(coefficient float32) {
	p.coefficient = coefficient
	p.output = 0
}

// Process advances the filter by one sample and returns the new
// output.
func (p *OnePoleLowpass) Process(in float32) float32 {
	p.output += p.coefficient * (in - p.output)

	return p.output
}

func (p *OnePoleLowpass) Output() float32 { return p.output }
