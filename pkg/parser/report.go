package parser

import (
	"sort"

	"github.com/dertin/rsapar/pkg/decimal"
	"github.com/dertin/rsapar/pkg/schema"
	"github.com/zeebo/xxh3"
	"golang.org/x/exp/slices"
)

// Key names a cell of a line type, as in "Detail.Amount".
func Key(lineType, cell string) string {
	return lineType + "." + cell
}

// Report summarises the validation of a file.
type Report struct {
	Lines  int
	Counts map[string]int
	Errors []*schema.LineError
	Stats  map[string]*CellStats

	numeric  map[string]bool
	distinct map[string]map[uint64]struct{}
}

// newReport prepares a report collecting stats for the decimal cells of s
// and distinct counts for the given keys.
func newReport(s *schema.Schema, distinct []string) *Report {
	r := &Report{
		Counts:   make(map[string]int),
		Stats:    make(map[string]*CellStats),
		numeric:  make(map[string]bool),
		distinct: make(map[string]map[uint64]struct{}, len(distinct)),
	}
	for _, line := range s.Lines() {
		for _, cell := range line.Cells {
			if cell.Format != nil && cell.Format.Type == "decimal" {
				r.numeric[Key(line.LineType, cell.Name)] = true
			}
		}
	}
	for _, key := range distinct {
		r.distinct[key] = make(map[uint64]struct{})
	}
	return r
}

func (r *Report) add(rec *schema.Record, lineErr *schema.LineError) {
	r.Lines++
	if lineErr != nil {
		r.Errors = append(r.Errors, lineErr)
		return
	}

	r.Counts[rec.LineType]++
	for _, c := range rec.Cells {
		key := Key(rec.LineType, c.Name)
		if r.numeric[key] {
			if v, err := decimal.ParseCents(c.Value); err == nil {
				stats, ok := r.Stats[key]
				if !ok {
					stats = &CellStats{}
					r.Stats[key] = stats
				}
				stats.MergeValue(v)
			}
		}
		if set, ok := r.distinct[key]; ok {
			set[xxh3.HashString(c.Value)] = struct{}{}
		}
	}
}

// Merge folds other into r.
func (r *Report) Merge(other *Report) {
	r.Lines += other.Lines
	r.Errors = append(r.Errors, other.Errors...)
	for k, v := range other.Counts {
		r.Counts[k] += v
	}
	for k, v := range other.Stats {
		if s, ok := r.Stats[k]; ok {
			s.Merge(v)
			continue
		}
		cp := *v
		r.Stats[k] = &cp
	}
	for k, set := range other.distinct {
		dst, ok := r.distinct[k]
		if !ok {
			dst = make(map[uint64]struct{}, len(set))
			r.distinct[k] = dst
		}
		for h := range set {
			dst[h] = struct{}{}
		}
	}
}

func (r *Report) sortErrors() {
	sort.Slice(r.Errors, func(i, j int) bool {
		return r.Errors[i].Number < r.Errors[j].Number
	})
}

func (r *Report) Valid() bool {
	return len(r.Errors) == 0
}

// Distinct returns the number of distinct values seen for key, or -1 when
// the key was not tracked.
func (r *Report) Distinct(key string) int {
	set, ok := r.distinct[key]
	if !ok {
		return -1
	}
	return len(set)
}

// DistinctKeys lists the tracked keys in order.
func (r *Report) DistinctKeys() []string {
	keys := make([]string, 0, len(r.distinct))
	for k := range r.distinct {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (r *Report) LineTypes() []string {
	keys := make([]string, 0, len(r.Counts))
	for k := range r.Counts {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (r *Report) StatKeys() []string {
	keys := make([]string, 0, len(r.Stats))
	for k := range r.Stats {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
