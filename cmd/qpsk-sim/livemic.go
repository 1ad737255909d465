package main

/*------------------------------------------------------------------
 *
 * Purpose:	Optional live-microphone capture for bench-testing the
 *		decoder against a real sound card. Capture happens up
 *		front into a buffer rather than streaming, since this
 *		harness has no ISR to push samples from in real time.
 *
 *---------------------------------------------------------------*/

import (
	charmlog "github.com/charmbracelet/log"
	"github.com/gordonklaus/portaudio"
)

// captureLiveMic records seconds of mono float32 audio from the
// default input device at sampleRate.
func captureLiveMic(sampleRate int, seconds float64, logger *charmlog.Logger) ([]float32, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	defer portaudio.Terminate()

	const framesPerBuffer = 1024

	buf := make([]float32, framesPerBuffer)

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), framesPerBuffer, buf)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, err
	}
	defer stream.Stop()

	logger.Info("capturing from default input device", "sample_rate", sampleRate, "seconds", seconds)

	total := int(seconds * float64(sampleRate))
	samples := make([]float32, 0, total)

	for len(samples) < total {
		if err := stream.Read(); err != nil {
			return samples, err
		}

		samples = append(samples, buf...)
	}

	return samples, nil
}
