package util

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var ErrWavFormatMismatch = errors.New("wav clips do not share one sample format")

const wavFormatPCM = 1

type WavFormat struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

func (f WavFormat) String() string {
	return fmt.Sprintf("%dHz/%dch/%dbit", f.SampleRate, f.Channels, f.BitDepth)
}

// DecodeWav reads a whole PCM WAV file into memory.
func DecodeWav(path string) (*audio.IntBuffer, WavFormat, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, WavFormat{}, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, WavFormat{}, fmt.Errorf("%s is not a valid wav file", path)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, WavFormat{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return buf, WavFormat{SampleRate: int(d.SampleRate), Channels: int(d.NumChans), BitDepth: int(d.BitDepth)}, nil
}

// BufferSeconds is the playback length of a decoded buffer.
func BufferSeconds(buf *audio.IntBuffer, format WavFormat) float64 {
	if format.Channels == 0 || format.SampleRate == 0 {
		return 0
	}
	frames := len(buf.Data) / format.Channels
	return float64(frames) / float64(format.SampleRate)
}

// WavDuration returns the length of a WAV file in seconds.
func WavDuration(path string) (float64, error) {
	buf, format, err := DecodeWav(path)
	if err != nil {
		return 0, err
	}
	return BufferSeconds(buf, format), nil
}

// ConcatWavs appends the PCM data of every input, in order, into one WAV.
// All inputs must share a format. It returns the duration of each input.
func ConcatWavs(inputFiles []string, outputFile string) ([]float64, error) {
	if len(inputFiles) == 0 {
		return nil, errors.New("ConcatWavs: no input files")
	}

	buffers := make([]*audio.IntBuffer, 0, len(inputFiles))
	durations := make([]float64, 0, len(inputFiles))
	var first WavFormat
	for i, in := range inputFiles {
		buf, format, err := DecodeWav(in)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			first = format
		} else if format != first {
			return nil, fmt.Errorf("%w: %s is %s, expected %s", ErrWavFormatMismatch, in, format, first)
		}
		buffers = append(buffers, buf)
		durations = append(durations, BufferSeconds(buf, format))
	}

	if err := encodeWav(outputFile, first, buffers...); err != nil {
		return nil, err
	}
	return durations, nil
}

// WritePCM16Wav wraps raw little-endian signed 16-bit samples in a WAV container.
func WritePCM16Wav(pcm []byte, sampleRate, channels int, outputFile string) error {
	if len(pcm)%2 != 0 {
		pcm = pcm[:len(pcm)-1]
	}
	data := make([]int, len(pcm)/2)
	for i := range data {
		data[i] = int(int16(binary.LittleEndian.Uint16(pcm[2*i:])))
	}
	format := WavFormat{SampleRate: sampleRate, Channels: channels, BitDepth: 16}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	return encodeWav(outputFile, format, buf)
}

func encodeWav(outputFile string, format WavFormat, buffers ...*audio.IntBuffer) (err error) {
	out, err := os.Create(outputFile)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(outputFile)
		}
	}()

	enc := wav.NewEncoder(out, format.SampleRate, format.BitDepth, format.Channels, wavFormatPCM)
	for _, buf := range buffers {
		if err = enc.Write(buf); err != nil {
			return fmt.Errorf("encode %s: %w", outputFile, err)
		}
	}
	return enc.Close()
}
