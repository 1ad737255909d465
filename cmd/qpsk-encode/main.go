package main

/*------------------------------------------------------------------
 *
 * Purpose:	Reference test-signal generator: turns a binary payload
 *		into the over-the-air wire format the decoder expects,
 *		written out as a WAV file a qpsk-sim run (or a real
 *		device's audio input) can be fed from.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/pflag"

	"github.com/kb3qpsk/qpskfw/qpsk"
)

func main() {
	var (
		inputFile  = pflag.StringP("input", "i", "", "Binary file to encode. Required.")
		outputFile = pflag.StringP("output", "o", "out.wav", "WAV file to write.")
		sampleRate = pflag.IntP("sample-rate", "r", 48000, "Audio sample rate.")
		symbolDur  = pflag.IntP("samples-per-symbol", "L", 8, "Samples per symbol; sample rate / symbol rate.")
		packetSize = pflag.IntP("packet-size", "P", 256, "Payload bytes per packet.")
		blockCount = pflag.IntP("packets-per-block", "N", 1, "Packets per block.")
		crcSeed    = pflag.Uint32P("crc-seed", "c", 0, "CRC-32 seed.")
		padByte    = pflag.IntP("pad-byte", "p", 0xFF, "Byte value used to pad the final packet to a full block.")
		amplitude  = pflag.Float32P("amplitude", "a", 0.8, "Output amplitude, 0..1 of full scale.")
	)

	pflag.Parse()

	if *inputFile == "" {
		fmt.Fprintln(os.Stderr, "qpsk-encode: -i/--input is required")
		pflag.Usage()
		os.Exit(2)
	}

	payload, err := os.ReadFile(*inputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "qpsk-encode: %v\n", err)
		os.Exit(1)
	}

	cfg := qpsk.EncodeConfig{
		SymbolDuration:  *symbolDur,
		PacketSize:      *packetSize,
		PacketsPerBlock: *blockCount,
		CRCSeed:         *crcSeed,
	}

	blockSize := cfg.PacketSize * cfg.PacketsPerBlock

	blocks := padToBlocks(payload, blockSize, byte(*padByte))

	samples := qpsk.EncodeStream(blocks, cfg)

	fmt.Printf("qpsk-encode: %d bytes -> %d blocks -> %d samples (%.2fs at %d Hz)\n",
		len(payload), len(blocks), len(samples), float64(len(samples))/float64(*sampleRate), *sampleRate)

	if err := writeWAV(*outputFile, samples, *sampleRate, *amplitude); err != nil {
		fmt.Fprintf(os.Stderr, "qpsk-encode: %v\n", err)
		os.Exit(1)
	}
}

// padToBlocks splits data into blockSize-byte chunks, padding the last
// chunk with padByte so every block is exactly blockSize bytes; the
// receiver never accepts a partial packet.
func padToBlocks(data []byte, blockSize int, padByte byte) [][]byte {
	var blocks [][]byte

	for off := 0; off < len(data); off += blockSize {
		end := off + blockSize
		if end > len(data) {
			end = len(data)
		}

		block := make([]byte, blockSize)
		copy(block, data[off:end])

		for i := end - off; i < blockSize; i++ {
			block[i] = padByte
		}

		blocks = append(blocks, block)
	}

	if len(blocks) == 0 {
		blocks = append(blocks, make([]byte, blockSize))
		for i := range blocks[0] {
			blocks[0][i] = padByte
		}
	}

	return blocks
}

// writeWAV scales normalized float32 samples into signed 16-bit PCM
// and writes a mono WAV file via go-audio/wav.
func writeWAV(path string, samples []float32, sampleRate int, amplitude float32) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)

	ints := make([]int, len(samples))
	for i, s := range samples {
		v := int(s * amplitude * 32767)

		switch {
		case v > 32767:
			v = 32767
		case v < -32768:
			v = -32768
		}

		ints[i] = v
	}

	buf := &audio.IntBuffer{
		Format: &audio.Format{
			SampleRate:  sampleRate,
			NumChannels: 1,
		},
		Data:           ints,
		SourceBitDepth: 16,
	}

	if err := enc.Write(buf); err != nil {
		return err
	}

	return enc.Close()
}
