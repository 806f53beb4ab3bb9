// Package form computes rolling per-participant means of box-score stats.
//
// A snapshot at Seq s for participant p is the mean of each tracked stat
// over p's last W matches of the current season, ending at and including
// the match with Seq s. Until p has played W matches in a season there is
// no snapshot.
package form

import (
	"context"
	"fmt"
	"sort"

	"github.com/okian/spread/internal/domain/model"
	"gonum.org/v1/gonum/stat"
)

// DefaultWindow is the number of matches averaged when none is configured.
const DefaultWindow = 5

// Snapshot is a participant's form after the match with the given Seq.
// Means are aligned with Table.Stats.
type Snapshot struct {
	Seq    int
	Season string
	Means  []float64
}

// Table holds every snapshot of a computation.
type Table struct {
	window int
	stats  []string
	snaps  map[string][]Snapshot
	last   map[string]lastMatch
}

type lastMatch struct {
	seq    int
	season string
}

// Window returns the window size.
func (t *Table) Window() int { return t.window }

// Stats returns the tracked stat names.
func (t *Table) Stats() []string { return append([]string(nil), t.stats...) }

// At returns p's snapshot produced by the match with Seq seq.
func (t *Table) At(p string, seq int) (Snapshot, bool) {
	snaps := t.snaps[p]
	i := sort.Search(len(snaps), func(i int) bool { return snaps[i].Seq >= seq })
	if i < len(snaps) && snaps[i].Seq == seq {
		return snaps[i], true
	}
	return Snapshot{}, false
}

// Latest returns p's snapshot from its most recent match, if that match
// completed a window.
func (t *Table) Latest(p string) (Snapshot, bool) {
	lm, ok := t.last[p]
	if !ok {
		return Snapshot{}, false
	}
	return t.At(p, lm.seq)
}

// window is a fixed-size ring of stat lines.
type window struct {
	season string
	lines  [][]float64
	next   int
	filled int
}

func (w *window) push(line []float64) {
	w.lines[w.next] = line
	w.next = (w.next + 1) % len(w.lines)
	if w.filled < len(w.lines) {
		w.filled++
	}
}

func (w *window) full() bool { return w.filled == len(w.lines) }

func (w *window) means(n int) []float64 {
	out := make([]float64, n)
	col := make([]float64, len(w.lines))
	for j := 0; j < n; j++ {
		for i, line := range w.lines {
			col[i] = line[j]
		}
		out[j] = stat.Mean(col, nil)
	}
	return out
}

// Validate checks the window size and stat names.
func Validate(size int, stats []string) error {
	if size < 1 {
		return fmt.Errorf("form window %d must be at least 1: %w", size, model.ErrConfiguration)
	}
	if len(stats) == 0 {
		return fmt.Errorf("no form stats to track: %w", model.ErrConfiguration)
	}
	seen := make(map[string]bool, len(stats))
	for _, s := range stats {
		if s == "" || seen[s] {
			return fmt.Errorf("form stat %q is empty or repeated: %w", s, model.ErrConfiguration)
		}
		seen[s] = true
	}
	return nil
}

// Compute builds the snapshot table over matches in canonical order.
func Compute(ctx context.Context, matches []model.Match, size int, stats []string) (*Table, error) {
	if err := Validate(size, stats); err != nil {
		return nil, err
	}
	t := &Table{
		window: size,
		stats:  append([]string(nil), stats...),
		snaps:  make(map[string][]Snapshot),
		last:   make(map[string]lastMatch),
	}
	windows := make(map[string]*window)

	for seq, m := range matches {
		if seq%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		for _, p := range []string{m.Home, m.Away} {
			box, _, _ := m.Side(p)
			line := make([]float64, len(stats))
			for j, s := range stats {
				v, ok := box[s]
				if !ok {
					return nil, fmt.Errorf("match %s: %s has no %q stat: %w", m.Key(), p, s, model.ErrDataIntegrity)
				}
				line[j] = v
			}

			w, ok := windows[p]
			if !ok || w.season != m.Season {
				w = &window{season: m.Season, lines: make([][]float64, size)}
				windows[p] = w
			}
			w.push(line)
			t.last[p] = lastMatch{seq: seq, season: m.Season}
			if w.full() {
				t.snaps[p] = append(t.snaps[p], Snapshot{Seq: seq, Season: m.Season, Means: w.means(len(stats))})
			}
		}
	}
	return t, nil
}
