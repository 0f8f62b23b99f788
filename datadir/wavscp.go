package datadir

import (
	"fmt"
	"strings"
)

// IsPipe reports whether an rspecifier is a command rather than a single
// file name.
func IsPipe(rspecifier string) bool {
	return len(strings.Fields(rspecifier)) > 1
}

// AsPipe turns a plain file name into a "cat" pipe; pipes are returned as is.
func AsPipe(rspecifier string) string {
	if IsPipe(rspecifier) {
		return rspecifier
	}
	return fmt.Sprintf("cat %s |", rspecifier)
}

// ResamplePipe wraps rspecifier with sox so it is read at rate Hz.
func ResamplePipe(rspecifier string, rate int) string {
	if !IsPipe(rspecifier) {
		return fmt.Sprintf("sox %s -r %d -t wav - |", rspecifier, rate)
	}
	return fmt.Sprintf("%s sox -t wav - -r %d -t wav - |", rspecifier, rate)
}

// DownsamplePipe appends a sox downsampling stage selecting one channel.
// extra holds additional sox output options such as "-b 16".
func DownsamplePipe(rspecifier string, channel int, rate float64, extra string) string {
	opts := fmt.Sprintf("-r %s -c %d", formatRate(rate), channel)
	if extra != "" {
		opts += " " + extra
	}
	if !IsPipe(rspecifier) {
		return fmt.Sprintf("sox %s -t wav - %s -t wav - downsample |", rspecifier, opts)
	}
	return fmt.Sprintf("%s sox -t wav - %s -t wav - downsample |", rspecifier, opts)
}

func formatRate(r float64) string {
	if r == float64(int64(r)) {
		return fmt.Sprintf("%d", int64(r))
	}
	return fmt.Sprintf("%g", r)
}
