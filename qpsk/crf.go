package qpsk

/*------------------------------------------------------------------
 *
 * Purpose:	Carrier Rejection Filter: a comb filter tuned to the
 *		symbol rate that passes the symbol-rate envelope and
 *		deeply nulls the 2x-symbol-rate carrier.
 *
 * Description:	output[n] = avg[n] - avg[n - L/2], where avg is a
 *		running average over one symbol period (L samples).
 *		Delaying the averaged signal by half a symbol period and
 *		subtracting cancels a signal at exactly 2x the symbol
 *		rate (whose period is L/2 samples: the delay is exactly
 *		one full cycle at that frequency) while
 *		passing the slower symbol-rate envelope through largely
 *		unattenuated.
 *
 *---------------------------------------------------------------*/

// CarrierRejectionFilter passes the symbol rate with at least -3dB of
// gain while attenuating a tone at 2x the symbol rate by at least a
// further 12dB, for L in {6, 8, 12, 16}.
type CarrierRejectionFilter struct {
	symbolDuration int // L, samples per symbol
	average        *Window[float32]
	delay          *DelayLine[float32]
}

// NewCarrierRejectionFilter builds a CRF for a symbol period of
// symbolDuration samples (L). L should be even; symbolDuration/2 is
// the comb's delay depth.
func NewCarrierRejectionFilter(symbolDuration int) *CarrierRejectionFilter {
	f := &CarrierRejectionFilter{symbolDuration: symbolDuration}
	f.average = NewWindow[float32](symbolDuration)
	f.delay = NewDelayLine[float32](symbolDuration/2, 0)

	return f
}

// Init zeroes all filter state; there is no transient reset between
// runs otherwise.
func (f *CarrierRejectionFilter) Init() {
	f.average.Init()
	f.delay.Init(0)
}

func (f *CarrierRejectionFilter) Process(in float32) float32 {
	f.average.Write(in)
	avg := f.average.Average()
	delayed := f.delay.Process(avg)

	return avg - delayed
}
