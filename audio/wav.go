// Package audio probes audio sources referenced by wav.scp.
package audio

import (
	"io"
	"os"

	"github.com/go-audio/wav"
	"github.com/pkg/errors"
)

// ErrNotWAV is returned for input that is not a RIFF/WAVE PCM stream.
var ErrNotWAV = errors.New("not a WAV file")

// Info holds the format and length of a WAV stream.
type Info struct {
	SampleRate    int
	NumChannels   int
	BitsPerSample int
	// Duration in seconds.
	Duration float64
}

// ReadInfo decodes the header of a WAV stream and computes its duration.
func ReadInfo(r io.ReadSeeker) (Info, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return Info{}, ErrNotWAV
	}
	if err := d.FwdToPCM(); err != nil {
		return Info{}, errors.Wrap(err, "find PCM chunk")
	}
	info := Info{
		SampleRate:    int(d.SampleRate),
		NumChannels:   int(d.NumChans),
		BitsPerSample: int(d.BitDepth),
	}
	bytesPerSec := info.SampleRate * info.NumChannels * info.BitsPerSample / 8
	if bytesPerSec == 0 {
		return Info{}, errors.Wrap(ErrNotWAV, "zero byte rate")
	}
	info.Duration = float64(d.PCMLen()) / float64(bytesPerSec)
	return info, nil
}

// Duration returns the length in seconds of the WAV file at path.
func Duration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	info, err := ReadInfo(f)
	if err != nil {
		return 0, errors.Wrap(err, path)
	}
	return info.Duration, nil
}
