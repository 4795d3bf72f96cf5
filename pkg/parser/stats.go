package parser

// CellStats aggregates a numeric cell in hundredths.
type CellStats struct {
	Min, Sum, Max int64
	Count         int
}

func (cs *CellStats) Merge(other *CellStats) {
	if other == nil || other.Count == 0 {
		return
	}
	if cs.Count == 0 {
		*cs = *other
		return
	}

	cs.Min = min(cs.Min, other.Min)
	cs.Max = max(cs.Max, other.Max)
	cs.Sum += other.Sum
	cs.Count += other.Count
}

func (cs *CellStats) MergeValue(value int64) {
	if cs.Count == 0 {
		cs.Min, cs.Max = value, value
	}

	cs.Min = min(cs.Min, value)
	cs.Max = max(cs.Max, value)
	cs.Sum += value
	cs.Count++
}

func (cs *CellStats) Mean() int64 {
	if cs.Count == 0 {
		return 0
	}
	return cs.Sum / int64(cs.Count)
}
