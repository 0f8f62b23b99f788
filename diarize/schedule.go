package diarize

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// WriteTopo writes a one-state HMM topology covering clusters 1..n. A
// cluster takes the place of a phone.
func WriteTopo(w io.Writer, n int, cfg Config) error {
	bw := bufio.NewWriter(w)
	ids := make([]string, n)
	for i := range ids {
		ids[i] = strconv.Itoa(i + 1)
	}
	fmt.Fprintln(bw, "<Topology>")
	fmt.Fprintln(bw, "<TopologyEntry>")
	fmt.Fprintln(bw, "<ForPhones>")
	fmt.Fprintln(bw, strings.Join(ids, " "))
	fmt.Fprintln(bw, "</ForPhones>")
	fmt.Fprintf(bw, "<State> 0 <PdfClass> 0 <Transition> 0 %s <Transition> 1 %s </State>\n",
		formatFloat(cfg.SelfLoopProb), formatFloat(cfg.TransitionProb))
	fmt.Fprintln(bw, "<State> 1 </State>")
	fmt.Fprintln(bw, "</TopologyEntry>")
	fmt.Fprintln(bw, "</Topology>")
	return bw.Flush()
}

// ClusterIDs numbers the clusters of utts from 1 in sorted cluster order.
func ClusterIDs(utts []string, utt2spk map[string]string) (map[string]int, error) {
	seen := make(map[string]bool)
	var clusters []string
	for _, utt := range utts {
		spk, ok := utt2spk[utt]
		if !ok {
			return nil, errors.Errorf("utterance %s not in utt2spk", utt)
		}
		if !seen[spk] {
			seen[spk] = true
			clusters = append(clusters, spk)
		}
	}
	sort.Strings(clusters)
	ids := make(map[string]int, len(clusters))
	for i, c := range clusters {
		ids[c] = i + 1
	}
	return ids, nil
}

// StepKind selects how an iteration collects statistics.
type StepKind int

const (
	// Align accumulates from Viterbi alignments against the cluster labels.
	Align StepKind = iota
	// Decode accumulates from lattice posteriors of a free decode.
	Decode
)

func (k StepKind) String() string {
	if k == Align {
		return "align"
	}
	return "decode"
}

// Step is one training iteration. NumGauss is the mix-up target; 0 means no
// mix-up.
type Step struct {
	Iter     int
	Kind     StepKind
	NumGauss int
}

// Schedule returns the training iterations for numClusters clusters. The
// first MaxIterInc+1 iterations align and grow the Gaussian count from
// numClusters towards NumGaussPerCluster*numClusters, the next one aligns
// without mixing up, and the rest decode.
func Schedule(cfg Config, numClusters int) []Step {
	maxGauss := cfg.NumGaussPerCluster * float64(numClusters)
	numGauss := float64(numClusters)
	var inc float64
	if cfg.MaxIterInc > 0 {
		inc = (maxGauss - numGauss) / float64(cfg.MaxIterInc)
	}

	steps := make([]Step, 0, cfg.NumIters)
	for iter := 0; iter < cfg.NumIters; iter++ {
		switch {
		case iter <= cfg.MaxIterInc:
			steps = append(steps, Step{Iter: iter, Kind: Align, NumGauss: int(math.Round(numGauss))})
			numGauss += inc
		case iter == cfg.MaxIterInc+1:
			steps = append(steps, Step{Iter: iter, Kind: Align})
		default:
			steps = append(steps, Step{Iter: iter, Kind: Decode, NumGauss: int(math.Round(numGauss))})
		}
	}
	return steps
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
