package diarize

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/ieee0824/speechdata-go/datadir"
	"github.com/ieee0824/speechdata-go/toolkit"
)

const featsScp = "feats.scp"

// recordingFiles are copied unchanged into the output directory.
var recordingFiles = []string{datadir.WavScp, datadir.Reco2FileAndChannel, datadir.Reco2DurFile}

// Refiner runs the per-recording refinement. Its tool receives shell
// command lines (see toolkit.Shell); job commands escape the pipes that
// belong to the job wrapper's command as "\|".
type Refiner struct {
	cfg  Config
	tool toolkit.Tool
	jobs toolkit.JobRunner
}

// NewRefiner validates cfg and returns a refiner running commands on tool.
func NewRefiner(cfg Config, tool toolkit.Tool) (*Refiner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Refiner{
		cfg:  cfg,
		tool: tool,
		jobs: toolkit.JobRunner{Tool: tool, Cmd: cfg.Cmd},
	}, nil
}

// Run refines every recording of the data directory and writes the
// resegmented data directory. Recordings are processed concurrently, at
// most NumThreads at a time; the first failure cancels the rest and is
// returned.
func (r *Refiner) Run(ctx context.Context) error {
	for _, name := range []string{datadir.Spk2UttFile, featsScp} {
		if _, err := os.Stat(filepath.Join(r.cfg.Data, name)); err != nil {
			return errors.Errorf("could not find file %s", filepath.Join(r.cfg.Data, name))
		}
	}
	utt2spk, err := datadir.ReadUtt2Spk(filepath.Join(r.cfg.Data, datadir.Utt2SpkFile))
	if err != nil {
		return err
	}
	recos, reco2utt, err := r.recordings(utt2spk)
	if err != nil {
		return err
	}
	featDim, err := r.featDim(ctx)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(r.cfg.Dir, 0755); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, r.cfg.NumThreads)
	var wg sync.WaitGroup
	var once sync.Once
	var firstErr error
	for _, reco := range recos {
		sem <- struct{}{}
		if ctx.Err() != nil {
			<-sem
			break
		}
		log.Infof("processing recording %s", reco)
		wg.Add(1)
		go func(reco string) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := r.refineRecording(ctx, featDim, utt2spk, reco, reco2utt[reco]); err != nil {
				once.Do(func() {
					firstErr = errors.Wrapf(err, "recording %s", reco)
					cancel()
				})
			}
		}(reco)
	}
	wg.Wait()
	if firstErr != nil {
		return firstErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.merge(recos)
}

// recordings reads reco2utt, creating it from segments, or from utt2spk
// with one recording per utterance, when it is missing.
func (r *Refiner) recordings(utt2spk map[string]string) ([]string, map[string][]string, error) {
	path := filepath.Join(r.cfg.Data, datadir.Reco2UttFile)
	if _, err := os.Stat(path); err == nil {
		t, err := datadir.ReadTable(path)
		if err != nil {
			return nil, nil, err
		}
		out := make(map[string][]string, t.Len())
		for _, reco := range t.Keys() {
			out[reco], _ = t.Get(reco)
		}
		return t.Keys(), out, nil
	}

	var recos []string
	var reco2utt map[string][]string
	segPath := filepath.Join(r.cfg.Data, datadir.SegmentsFile)
	if _, err := os.Stat(segPath); err == nil {
		segs, err := datadir.ReadSegments(segPath)
		if err != nil {
			return nil, nil, err
		}
		recos, reco2utt = datadir.Reco2Utt(segs)
	} else {
		reco2utt = make(map[string][]string, len(utt2spk))
		for utt := range utt2spk {
			recos = append(recos, utt)
			reco2utt[utt] = []string{utt}
		}
		sort.Strings(recos)
	}

	t := datadir.NewTable()
	for _, reco := range recos {
		t.Set(reco, reco2utt[reco]...)
	}
	if err := t.WriteFile(path); err != nil {
		return nil, nil, err
	}
	return recos, reco2utt, nil
}

func (r *Refiner) featDim(ctx context.Context) (int, error) {
	rspec := fmt.Sprintf("ark:head -n 1 %s | add-deltas scp:- ark:- |", filepath.Join(r.cfg.Data, featsScp))
	res, err := r.tool.Invoke(ctx, "feat-to-dim", "--print-args=false", toolkit.Quote(rspec), "-")
	if err != nil {
		return 0, errors.Wrap(err, "feat-to-dim")
	}
	dim, err := strconv.Atoi(strings.TrimSpace(res.Stdout))
	if err != nil {
		return 0, errors.Errorf("feat-to-dim: bad dimension %q", strings.TrimSpace(res.Stdout))
	}
	return dim, nil
}

func (r *Refiner) refineRecording(ctx context.Context, featDim int, utt2spk map[string]string, reco string, utts []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(utts) == 0 {
		return errors.New("no utterances")
	}
	ids, err := ClusterIDs(utts, utt2spk)
	if err != nil {
		return err
	}
	numClusters := len(ids)
	log.Infof("recording %s has %d clusters", reco, numClusters)

	d := filepath.Join(r.cfg.Dir, "refine_"+reco)
	if _, err := os.Stat(filepath.Join(d, ".done")); err == nil {
		log.Infof("%s/.done exists, skipping %s", d, reco)
		return nil
	}
	if err := os.MkdirAll(filepath.Join(d, "log"), 0755); err != nil {
		return err
	}
	nj := min(r.cfg.UttJobs, len(utts))
	cfg := r.cfg

	if cfg.Stage <= -3 {
		if err := writeFile(filepath.Join(d, "topo"), func(w io.Writer) error {
			return WriteTopo(w, numClusters, cfg)
		}); err != nil {
			return err
		}
		if err := r.jobs.Run(ctx, filepath.Join(d, "log", "init_gmm.log"),
			fmt.Sprintf("gmm-init-mono %s/topo %d %s/0.mdl %s/tree", d, featDim, d, d)); err != nil {
			return err
		}
	}

	if cfg.Stage <= -2 {
		if err := writeFile(filepath.Join(d, "lexicon.txt"), func(w io.Writer) error {
			for i := 1; i <= numClusters; i++ {
				if _, err := fmt.Fprintf(w, "%d %d\n", i, i); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			return err
		}
		log.Infof("making HCLG for recording %s", reco)
		if err := r.jobs.Run(ctx, filepath.Join(d, "log", "make_clg.log"), fmt.Sprintf(
			`seq %d \| utils/make_unigram_grammar.pl \| fstcompile \| fstdeterminizestar --use-log=true \| `+
				`fstminimizeencoded \| fstpushspecial \| fstarcsort --sort_type=ilabel \| `+
				`fstcomposecontext --context-size=1 --central-position=0 %s/ilabels_1_0 \| `+
				`fstarcsort --sort_type=ilabel '>' %s/CLG_1_0.fst`, numClusters, d, d)); err != nil {
			return err
		}
		if err := r.jobs.Run(ctx, filepath.Join(d, "log", "make_hclg.log"), fmt.Sprintf(
			`make-h-transducer --transition-scale=%s %s/ilabels_1_0 %s/tree %s/0.mdl \| `+
				`fsttablecompose - %s/CLG_1_0.fst \| fstdeterminizestar --use-log=true \| fstrmepslocal \| `+
				`fstminimizeencoded \| add-self-loops --self-loop-scale=%s --reorder=true %s/0.mdl '>' %s/HCLG.fst`,
			formatFloat(cfg.TransitionScale), d, d, d, d, formatFloat(cfg.SelfLoopScale), d, d)); err != nil {
			return err
		}
	}

	if cfg.Stage <= -1 {
		log.Infof("compiling training graphs for recording %s", reco)
		lines := make([]string, len(utts))
		for i, utt := range utts {
			lines[i] = fmt.Sprintf("%s %d", utt, ids[utt2spk[utt]])
		}
		if err := writeFile(filepath.Join(d, "text"), func(w io.Writer) error {
			return writeLines(w, lines)
		}); err != nil {
			return err
		}
		if err := splitLines(lines, nj, func(k int) string {
			return filepath.Join(d, fmt.Sprintf("text.%d.%d", k, nj))
		}); err != nil {
			return err
		}
		if err := r.jobs.RunArray(ctx, nj, filepath.Join(d, "log", "compile_train_graphs.JOB.log"), fmt.Sprintf(
			`compile-train-graphs %s/tree %s/0.mdl "utils/make_lexicon_fst.pl %s/lexicon.txt | fstcompile |" `+
				`ark,t:%s/text.JOB.%d "ark:| gzip -c > %s/fsts.JOB.gz"`, d, d, d, d, nj, d)); err != nil {
			return err
		}
	}

	feats := r.featsRspecifier(d, nj)
	for _, step := range Schedule(cfg, numClusters) {
		if cfg.Stage > step.Iter {
			continue
		}
		var err error
		if step.Kind == Align {
			err = r.alignIter(ctx, d, nj, feats, step)
		} else {
			err = r.decodeIter(ctx, d, nj, feats, step)
		}
		if err != nil {
			return err
		}
		if err := removeAccs(d, step.Iter); err != nil {
			return err
		}
	}

	if cfg.Stage <= cfg.NumIters {
		final := filepath.Join(d, "final.mdl")
		if err := os.Remove(final); err != nil && !os.IsNotExist(err) {
			return err
		}
		if err := os.Symlink(fmt.Sprintf("%d.mdl", cfg.NumIters), final); err != nil {
			return err
		}
		log.Infof("generating final segments for recording %s", reco)
		if err := r.jobs.RunArray(ctx, nj, filepath.Join(d, "log", "best_path.final.JOB.log"), fmt.Sprintf(
			`gmm-decode-faster --beam=%d --max-active=%d --acoustic-scale=%s %s/final.mdl %s/HCLG.fst "%s" ark:/dev/null ark:- \| `+
				`ali-to-phones --per-frame %s/final.mdl ark:- ark:- \| `+
				`segmentation-init-from-ali ark:- ark:%s/final_segmentation.JOB.ark`,
			cfg.Beam, cfg.MaxActive, formatFloat(cfg.AcousticScale), d, d, feats, d, d)); err != nil {
			return err
		}
	}

	if cfg.Stage <= cfg.NumIters+1 {
		segments := fmt.Sprintf("ark:utils/filter_scp.pl %s/text %s/segments | "+
			"segmentation-init-from-segments --frame-overlap=0 --shift-to-zero=false - ark:- |", d, cfg.Data)
		reco2utt := fmt.Sprintf("ark,t:echo '%s' |", strings.Join(append([]string{reco}, utts...), " "))
		if err := r.jobs.Run(ctx, filepath.Join(d, "log", "get_final_segments.log"), fmt.Sprintf(
			`cat %s/final_segmentation.*.ark \| segmentation-combine-segments ark:- "%s" "%s" ark:- \| `+
				`segmentation-post-process --merge-adjacent-segments ark:- ark:- \| `+
				`segmentation-to-segments --frame-overlap=0 ark:- ark,t:%s/utt2spk %s/segments`,
			d, segments, reco2utt, d, d)); err != nil {
			return err
		}
	}

	return os.WriteFile(filepath.Join(d, ".done"), nil, 0644)
}

func (r *Refiner) featsRspecifier(d string, nj int) string {
	return fmt.Sprintf("ark,s,cs:utils/filter_scp.pl %s/text.JOB.%d %s/%s | add-deltas scp:- ark:- |", d, nj, r.cfg.Data, featsScp)
}

// alignIter runs one Viterbi alignment pass and the ML update.
func (r *Refiner) alignIter(ctx context.Context, d string, nj int, feats string, step Step) error {
	cfg := r.cfg
	log.Infof("align pass (%d) num-gauss=%d", step.Iter, step.NumGauss)
	alignOpts := fmt.Sprintf("--transition-scale=%s --self-loop-scale=%s --acoustic-scale=%s --beam=%d --retry-beam=%d",
		formatFloat(cfg.TransitionScale), formatFloat(cfg.SelfLoopScale), formatFloat(cfg.AcousticScale), cfg.Beam, cfg.RetryBeam)

	if err := r.jobs.RunArray(ctx, nj, filepath.Join(d, "log", fmt.Sprintf("align.%d.JOB.log", step.Iter)), fmt.Sprintf(
		`gmm-align-compiled %s %s/%d.mdl "ark:gunzip -c %s/fsts.JOB.gz |" "%s" "ark:| gzip -c > %s/ali.%d.JOB.gz"`,
		alignOpts, d, step.Iter, d, feats, d, step.Iter)); err != nil {
		return err
	}
	if err := r.jobs.RunArray(ctx, nj, filepath.Join(d, "log", fmt.Sprintf("acc.%d.JOB.log", step.Iter)), fmt.Sprintf(
		`gmm-acc-stats-ali %s/%d.mdl "%s" "ark,s,cs:gunzip -c %s/ali.%d.JOB.gz |" %s/%d.JOB.acc`,
		d, step.Iter, feats, d, step.Iter, d, step.Iter)); err != nil {
		return err
	}
	log.Infof("estimate pass (%d)", step.Iter)
	return r.jobs.Run(ctx, filepath.Join(d, "log", fmt.Sprintf("update.%d.log", step.Iter)), fmt.Sprintf(
		`gmm-est --mix-up=%d --power=%s --update-flags='mvwt' %s %s/%d.mdl "gmm-sum-accs - %s/%d.*.acc |" %s/%d.mdl`,
		step.NumGauss, formatFloat(cfg.Power), cfg.UpdateOpts, d, step.Iter, d, step.Iter, d, step.Iter+1))
}

// decodeIter runs one lattice decoding pass and the EM update from
// lattice posteriors.
func (r *Refiner) decodeIter(ctx context.Context, d string, nj int, feats string, step Step) error {
	cfg := r.cfg
	log.Infof("decode pass (%d) num-gauss=%d", step.Iter, step.NumGauss)
	acwt := formatFloat(cfg.AcousticScale)
	decodeOpts := fmt.Sprintf("--beam=%d --max-active=%d --acoustic-scale=%s "+
		"--word-determinize=false --phone-determinize=false --minimize=false", cfg.Beam, cfg.MaxActive, acwt)

	if err := r.jobs.RunArray(ctx, nj, filepath.Join(d, "log", fmt.Sprintf("decode.%d.JOB.log", step.Iter)), fmt.Sprintf(
		`gmm-latgen-faster %s %s/%d.mdl %s/HCLG.fst "%s" "ark:| gzip -c > %s/lat.%d.JOB.gz"`,
		decodeOpts, d, step.Iter, d, feats, d, step.Iter)); err != nil {
		return err
	}
	if err := r.jobs.RunArray(ctx, nj, filepath.Join(d, "log", fmt.Sprintf("lattice_to_post.%d.JOB.log", step.Iter)), fmt.Sprintf(
		`lattice-to-post --acoustic-scale=%s "ark:gunzip -c %s/lat.%d.JOB.gz |" "ark:| gzip -c > %s/post.%d.JOB.gz"`,
		acwt, d, step.Iter, d, step.Iter)); err != nil {
		return err
	}
	if err := r.jobs.RunArray(ctx, nj, filepath.Join(d, "log", fmt.Sprintf("acc.%d.JOB.log", step.Iter)), fmt.Sprintf(
		`gmm-acc-stats %s/%d.mdl "%s" "ark,s,cs:gunzip -c %s/post.%d.JOB.gz |" %s/%d.JOB.acc`,
		d, step.Iter, feats, d, step.Iter, d, step.Iter)); err != nil {
		return err
	}
	log.Infof("estimate pass (%d)", step.Iter)
	return r.jobs.Run(ctx, filepath.Join(d, "log", fmt.Sprintf("update.%d.log", step.Iter)), fmt.Sprintf(
		`gmm-est --update-flags='mvw' %s %s/%d.mdl "gmm-sum-accs - %s/%d.*.acc |" %s/%d.mdl`,
		cfg.UpdateOpts, d, step.Iter, d, step.Iter, d, step.Iter+1))
}

func removeAccs(d string, iter int) error {
	accs, err := filepath.Glob(filepath.Join(d, fmt.Sprintf("%d.*.acc", iter)))
	if err != nil {
		return err
	}
	for _, acc := range accs {
		if err := os.Remove(acc); err != nil {
			return err
		}
	}
	return nil
}

// merge writes the output data directory from the per-recording results.
func (r *Refiner) merge(recos []string) error {
	if err := os.MkdirAll(r.cfg.OutData, 0755); err != nil {
		return err
	}
	for _, name := range recordingFiles {
		if err := copyIfExists(filepath.Join(r.cfg.Data, name), filepath.Join(r.cfg.OutData, name)); err != nil {
			return err
		}
	}

	utt2spk := make(map[string]string)
	var segs []datadir.Segment
	for _, reco := range recos {
		d := filepath.Join(r.cfg.Dir, "refine_"+reco)
		u, err := datadir.ReadUtt2Spk(filepath.Join(d, datadir.Utt2SpkFile))
		if err != nil {
			return err
		}
		for utt, spk := range u {
			if _, dup := utt2spk[utt]; dup {
				return errors.Errorf("utterance %s produced by more than one recording", utt)
			}
			utt2spk[utt] = spk
		}
		s, err := datadir.ReadSegments(filepath.Join(d, datadir.SegmentsFile))
		if err != nil {
			return err
		}
		segs = append(segs, s...)
	}
	sort.SliceStable(segs, func(i, j int) bool { return segs[i].Utt < segs[j].Utt })

	if err := datadir.WritePairsFile(filepath.Join(r.cfg.OutData, datadir.Utt2SpkFile), utt2spk); err != nil {
		return err
	}
	if err := datadir.WriteSegmentsFile(filepath.Join(r.cfg.OutData, datadir.SegmentsFile), segs); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(r.cfg.OutData, datadir.Spk2UttFile), func(w io.Writer) error {
		return datadir.WriteSpk2Utt(w, utt2spk)
	}); err != nil {
		return err
	}
	log.Infof("wrote %s refined segments for %s recordings to %s",
		humanize.Comma(int64(len(segs))), humanize.Comma(int64(len(recos))), r.cfg.OutData)
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeLines(w io.Writer, lines []string) error {
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}

// splitLines spreads lines over n files named by name(1..n), the first
// files taking one extra line when the split is uneven.
func splitLines(lines []string, n int, name func(k int) string) error {
	base, extra := len(lines)/n, len(lines)%n
	start := 0
	for k := 1; k <= n; k++ {
		size := base
		if k <= extra {
			size++
		}
		chunk := lines[start : start+size]
		start += size
		if err := writeFile(name(k), func(w io.Writer) error { return writeLines(w, chunk) }); err != nil {
			return err
		}
	}
	return nil
}

func copyIfExists(src, dst string) error {
	data, err := os.ReadFile(src)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}
