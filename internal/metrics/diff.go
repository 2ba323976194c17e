package metrics

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Delta is the change of one series between two snapshots. Old or New is
// nil when the series exists on one side only.
type Delta struct {
	Series string   `json:"series"`
	Unit   string   `json:"unit,omitempty"`
	Old    *float64 `json:"old,omitempty"`
	New    *float64 `json:"new,omitempty"`
	Change float64  `json:"change"`
}

// CompareSnapshots lists series whose value moved by more than epsilon,
// appeared or disappeared, sorted by series.
func CompareSnapshots(from, to *Snapshot, epsilon float64) []Delta {
	if from == nil {
		from = &Snapshot{}
	}
	if to == nil {
		to = &Snapshot{}
	}
	a, b := from.Index(), to.Index()
	keys := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		keys[k] = struct{}{}
	}
	for k := range b {
		keys[k] = struct{}{}
	}

	var out []Delta
	for series := range keys {
		pa, inA := a[series]
		pb, inB := b[series]
		d := Delta{Series: series}
		switch {
		case inA && inB:
			if math.Abs(pb.Value-pa.Value) <= epsilon {
				continue
			}
			d.Old, d.New = ptr(pa.Value), ptr(pb.Value)
			d.Change = pb.Value - pa.Value
			d.Unit = pb.Unit
		case inA:
			d.Old = ptr(pa.Value)
			d.Unit = pa.Unit
		default:
			d.New = ptr(pb.Value)
			d.Unit = pb.Unit
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Series < out[j].Series })
	return out
}

// DiffSnapshots renders a unified diff of the two snapshots' series lines.
// Identical snapshots yield "".
func DiffSnapshots(from, to *Snapshot, fromName, toName string) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        renderLines(from),
		B:        renderLines(to),
		FromFile: fromName,
		ToFile:   toName,
		Context:  2,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("diff snapshots: %w", err)
	}
	return text, nil
}

func renderLines(s *Snapshot) []string {
	if s == nil {
		return nil
	}
	points := CanonicalizePoints(s.Points)
	lines := make([]string, 0, len(points))
	for _, p := range points {
		var b strings.Builder
		b.WriteString(p.Series())
		b.WriteByte(' ')
		b.WriteString(strconv.FormatFloat(p.Value, 'f', 4, 64))
		if p.Unit != "" {
			b.WriteByte(' ')
			b.WriteString(p.Unit)
		}
		b.WriteByte('\n')
		lines = append(lines, b.String())
	}
	return lines
}

func ptr(v float64) *float64 {
	return &v
}
