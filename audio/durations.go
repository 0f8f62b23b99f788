package audio

import (
	"context"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/ieee0824/speechdata-go/datadir"
	"github.com/ieee0824/speechdata-go/toolkit"
)

// Durations computes reco2dur entries for every recording in wavScp.
// Plain WAV files are probed natively; pipes and unreadable files are
// measured in one call to wav-to-duration through tool, which may be nil
// when every source is expected to be a plain WAV file.
func Durations(ctx context.Context, wavScp *datadir.Table, tool toolkit.Tool) (map[string]float64, error) {
	durs := make(map[string]float64, wavScp.Len())
	fallback := datadir.NewTable()
	for _, reco := range wavScp.Keys() {
		spec, _ := wavScp.Value(reco)
		if !datadir.IsPipe(spec) {
			d, err := Duration(spec)
			if err == nil {
				durs[reco] = d
				continue
			}
			log.WithError(err).WithField("recording", reco).Debug("native duration probe failed")
		}
		fallback.Set(reco, spec)
	}

	log.Infof("probed %s recordings natively, %s through wav-to-duration",
		humanize.Comma(int64(len(durs))), humanize.Comma(int64(fallback.Len())))
	if fallback.Len() == 0 {
		return durs, nil
	}
	if tool == nil {
		return nil, errors.Errorf("%d recordings need wav-to-duration but no tool is configured", fallback.Len())
	}

	external, err := wavToDuration(ctx, fallback, tool)
	if err != nil {
		return nil, err
	}
	for _, reco := range fallback.Keys() {
		d, ok := external[reco]
		if !ok {
			return nil, errors.Errorf("wav-to-duration gave no duration for %s", reco)
		}
		durs[reco] = d
	}
	return durs, nil
}

// ReadEntireFile reports whether wav-to-duration must decode whole files,
// which is the case when sox speed perturbation invalidates WAV headers.
func ReadEntireFile(wavScp *datadir.Table) bool {
	for _, reco := range wavScp.Keys() {
		v, _ := wavScp.Value(reco)
		if strings.Contains(v, "sox") && strings.Contains(v, "speed") {
			return true
		}
	}
	return false
}

func wavToDuration(ctx context.Context, scp *datadir.Table, tool toolkit.Tool) (map[string]float64, error) {
	f, err := os.CreateTemp("", "wav.scp.")
	if err != nil {
		return nil, err
	}
	path := f.Name()
	f.Close()
	defer os.Remove(path)
	if err := scp.WriteFile(path); err != nil {
		return nil, err
	}

	readEntire := "false"
	if ReadEntireFile(scp) {
		readEntire = "true"
	}
	res, err := tool.Invoke(ctx, "wav-to-duration", "--read-entire-file="+readEntire, "scp:"+path, "ark,t:-")
	if err != nil {
		return nil, errors.Wrap(err, "wav-to-duration")
	}
	return datadir.ParseReco2Dur(strings.NewReader(res.Stdout), "wav-to-duration output")
}
