package main

/*------------------------------------------------------------------
 *
 * Purpose:	Host-side developer harness for the qpsk core: decode a
 *		WAV capture or a live microphone stream through
 *		qpsk.Decoder and report packet/block/error events, with an
 *		optional per-sample telemetry trace in flat, greppable
 *		CSV.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/go-audio/wav"
	"github.com/lestrrat-go/strftime"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/kb3qpsk/qpskfw/qpsk"
)

// channelConfig is the set of channel parameters a real device would
// fix at compile time; here they come from an optional YAML file,
// with flags overriding individual fields.
type channelConfig struct {
	SampleRate      int     `yaml:"sample_rate"`
	SymbolDuration  int     `yaml:"samples_per_symbol"`
	PacketSize      int     `yaml:"packet_size"`
	PacketsPerBlock int     `yaml:"packets_per_block"`
	CRCSeed         uint32  `yaml:"crc_seed"`
	PLLKp           float32 `yaml:"pll_kp"`
}

func defaultChannelConfig() channelConfig {
	return channelConfig{
		SampleRate:      48000,
		SymbolDuration:  8,
		PacketSize:      256,
		PacketsPerBlock: 1,
		CRCSeed:         0,
	}
}

func loadChannelConfig(path string) (channelConfig, error) {
	cfg := defaultChannelConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}

	return cfg, nil
}

func main() {
	var (
		configPath = pflag.StringP("config", "f", "", "YAML channel-config file.")
		inputPath  = pflag.StringP("input", "i", "", "WAV file to decode. Omit with --livemic to capture instead.")
		liveMic    = pflag.Bool("livemic", false, "Capture from the default audio input device instead of --input.")
		liveSecs   = pflag.Float64("seconds", 10, "Seconds to capture in --livemic mode.")

		symbolDur  = pflag.IntP("samples-per-symbol", "L", 0, "Override samples-per-symbol (L).")
		packetSize = pflag.IntP("packet-size", "P", 0, "Override packet payload size (P).")
		blockCount = pflag.IntP("packets-per-block", "N", 0, "Override packets per block (N).")
		crcSeed    = pflag.Uint32P("crc-seed", "c", 0, "Override CRC-32 seed.")

		resampleRatio = pflag.Float64("resample", 1.0, "Resample input by this ratio before decoding (clock-mismatch simulation).")
		scaleLevel    = pflag.Float64("scale", 1.0, "Scale input amplitude before decoding (negative inverts polarity).")
		noiseSigma    = pflag.Float64("noise", 0, "Std-dev of additive Gaussian noise injected before decoding.")
		dcOffset      = pflag.Float64("dc-offset", 0, "Constant DC bias injected before decoding.")

		tracePath = pflag.StringP("trace", "t", "", "Write a per-sample telemetry CSV trace to this path (auto-named if empty and --trace-dir set).")
		traceDir  = pflag.String("trace-dir", "", "Directory for an auto-named telemetry trace, timestamped with strftime's %Y%m%d-%H%M%S.")

		verbose = pflag.BoolP("verbose", "v", false, "Debug-level logging.")
	)

	pflag.Parse()

	logger := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	})

	if *verbose {
		logger.SetLevel(charmlog.DebugLevel)
	}

	chanCfg, err := loadChannelConfig(*configPath)
	if err != nil {
		logger.Fatal("loading config", "err", err)
	}

	if *symbolDur != 0 {
		chanCfg.SymbolDuration = *symbolDur
	}

	if *packetSize != 0 {
		chanCfg.PacketSize = *packetSize
	}

	if *blockCount != 0 {
		chanCfg.PacketsPerBlock = *blockCount
	}

	if *crcSeed != 0 {
		chanCfg.CRCSeed = *crcSeed
	}

	var samples []float32

	switch {
	case *liveMic:
		samples, err = captureLiveMic(chanCfg.SampleRate, *liveSecs, logger)
	case *inputPath != "":
		samples, err = readWAV(*inputPath)
	default:
		logger.Fatal("one of --input or --livemic is required")
	}

	if err != nil {
		logger.Fatal("reading input", "err", err)
	}

	samples = preprocess(samples, *resampleRatio, *scaleLevel, *noiseSigma, *dcOffset)

	trace, err := openTrace(*tracePath, *traceDir)
	if err != nil {
		logger.Fatal("opening trace file", "err", err)
	}
	if trace != nil {
		defer trace.Close()
	}

	decoder := qpsk.NewDecoder(qpsk.Config{
		SymbolDuration:  chanCfg.SymbolDuration,
		PacketSize:      chanCfg.PacketSize,
		PacketsPerBlock: chanCfg.PacketsPerBlock,
		CRCSeed:         chanCfg.CRCSeed,
		PLLKp:           chanCfg.PLLKp,
	})
	decoder.SetLogger(logger)

	runDecoder(decoder, samples, trace, logger)
}

// runDecoder pushes every sample through decoder's ISR-facing Push and
// drains it with Process, exactly as a real firmware's ISR/worker pair
// would, and reports each notable Result to the logger.
func runDecoder(decoder *qpsk.Decoder, samples []float32, trace *os.File, logger *charmlog.Logger) {
	blocksSeen := 0

	for i, s := range samples {
		if !decoder.Push(s) {
			logger.Error("sample FIFO overflow", "sample", i)
		}

		for decoder.SamplesAvailable() > 0 {
			result := decoder.Process()

			if trace != nil {
				writeTraceRow(trace, i, decoder.Telemetry())
			}

			switch result {
			case qpsk.ResultPacketComplete:
				logger.Info("packet complete", "sample", i)
			case qpsk.ResultBlockComplete:
				blocksSeen++
				logger.Info("block complete", "sample", i, "blocks", blocksSeen, "bytes", len(decoder.BlockData())*4)
			case qpsk.ResultEnd:
				logger.Info("end of transmission", "sample", i, "blocks", blocksSeen)
				return
			case qpsk.ResultError:
				logger.Error("decoder error", "sample", i, "kind", decoder.Error())
				return
			case qpsk.ResultNone:
			}
		}
	}

	logger.Info("input exhausted", "blocks", blocksSeen, "state", decoder.State())
}

func preprocess(samples []float32, resampleRatio, scaleLevel, noiseSigma, dcOffset float64) []float32 {
	if resampleRatio != 1.0 {
		samples = qpsk.Resample(samples, resampleRatio)
	}

	if scaleLevel != 1.0 {
		samples = qpsk.Scale(samples, float32(scaleLevel))
	}

	if noiseSigma != 0 {
		samples = qpsk.AddNoise(samples, noiseSigma, rand.New(rand.NewSource(1)))
	}

	if dcOffset != 0 {
		samples = qpsk.AddOffset(samples, float32(dcOffset))
	}

	return samples
}

// readWAV decodes a mono or interleaved WAV file into normalized
// [-1, 1] float32 samples, averaging down to one channel if needed.
func readWAV(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%s: not a valid WAV file", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, err
	}

	channels := buf.Format.NumChannels
	if channels < 1 {
		channels = 1
	}

	fullScale := float32(int(1) << uint(buf.SourceBitDepth-1))

	frames := len(buf.Data) / channels
	samples := make([]float32, frames)

	for i := 0; i < frames; i++ {
		var sum float32

		for c := 0; c < channels; c++ {
			sum += float32(buf.Data[i*channels+c])
		}

		samples[i] = sum / float32(channels) / fullScale
	}

	return samples, nil
}

// openTrace opens (or auto-names, under traceDir, via strftime) the
// telemetry CSV trace file and writes its header.
func openTrace(explicit, dir string) (*os.File, error) {
	path := explicit

	if path == "" {
		if dir == "" {
			return nil, nil
		}

		name, err := strftime.Format("qpsk-trace-%Y%m%d-%H%M%S.csv", time.Now())
		if err != nil {
			return nil, err
		}

		path = dir + string(os.PathSeparator) + name
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(f, "sample,decoder_state,demod_state,pll_phase,pll_step,decision_phase,"+
		"signal_power,correlation,tilt,early,late,bytes_received,progress")

	return f, nil
}

func writeTraceRow(f *os.File, sample int, t qpsk.Telemetry) {
	fmt.Fprintf(f, "%d,%s,%s,%f,%f,%f,%f,%f,%f,%t,%t,%d,%f\n",
		sample, t.DecoderState, t.DemodState, t.PLLPhase, t.PLLStep, t.DecisionPhase,
		t.SignalPower, t.Correlation, t.Tilt, t.Early, t.Late, t.BytesReceived, t.Progress)
}
