package ctm

// Edit operations of a word alignment.
const (
	OpCorrect      = "C"
	OpSubstitution = "S"
	OpInsertion    = "I"
	OpDeletion     = "D"
)

// DefaultEpsilon pads the missing side of insertions and deletions.
const DefaultEpsilon = "<eps>"

// Pair is one aligned position. Ref is eps for insertions and Hyp is eps
// for deletions.
type Pair struct {
	Ref string
	Hyp string
	Op  string
}

// Counts tallies the operations of an alignment.
type Counts struct {
	Correct, Substitutions, Insertions, Deletions int
}

// Errors returns S + I + D.
func (c Counts) Errors() int { return c.Substitutions + c.Insertions + c.Deletions }

// Count tallies pairs by operation.
func Count(pairs []Pair) Counts {
	var c Counts
	for _, p := range pairs {
		switch p.Op {
		case OpCorrect:
			c.Correct++
		case OpSubstitution:
			c.Substitutions++
		case OpInsertion:
			c.Insertions++
		case OpDeletion:
			c.Deletions++
		}
	}
	return c
}

// EditDistance computes the Levenshtein distance between two word sequences.
func EditDistance(a, b []string) int {
	la, lb := len(a), len(b)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	// Single-row DP.
	prev := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		cur := make([]int, lb+1)
		cur[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev = cur
	}
	return prev[lb]
}

// Align computes a minimum-cost word alignment of hyp against ref.
// On ties the backtrace prefers a diagonal step, then a deletion.
func Align(ref, hyp []string, eps string) []Pair {
	lr, lh := len(ref), len(hyp)
	d := make([][]int, lr+1)
	for i := range d {
		d[i] = make([]int, lh+1)
		d[i][0] = i
	}
	for j := 0; j <= lh; j++ {
		d[0][j] = j
	}
	for i := 1; i <= lr; i++ {
		for j := 1; j <= lh; j++ {
			cost := 1
			if ref[i-1] == hyp[j-1] {
				cost = 0
			}
			d[i][j] = min(d[i-1][j]+1, d[i][j-1]+1, d[i-1][j-1]+cost)
		}
	}

	var rev []Pair
	i, j := lr, lh
	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && ref[i-1] == hyp[j-1] && d[i][j] == d[i-1][j-1]:
			rev = append(rev, Pair{Ref: ref[i-1], Hyp: hyp[j-1], Op: OpCorrect})
			i, j = i-1, j-1
		case i > 0 && j > 0 && d[i][j] == d[i-1][j-1]+1:
			rev = append(rev, Pair{Ref: ref[i-1], Hyp: hyp[j-1], Op: OpSubstitution})
			i, j = i-1, j-1
		case i > 0 && d[i][j] == d[i-1][j]+1:
			rev = append(rev, Pair{Ref: ref[i-1], Hyp: eps, Op: OpDeletion})
			i--
		default:
			rev = append(rev, Pair{Ref: eps, Hyp: hyp[j-1], Op: OpInsertion})
			j--
		}
	}

	out := make([]Pair, len(rev))
	for k := range rev {
		out[k] = rev[len(rev)-1-k]
	}
	return out
}
