package compiler

// LayoutReport summarizes a scope's layout for inspection tooling. It is
// derived state: build it only after Analyze (and, for accurate temp
// sizing, after generation).
type LayoutReport struct {
	Scope     string          `json:"scope"`
	Entities  int             `json:"entities"`
	Segments  []SegmentReport `json:"segments"`
	TempBytes int             `json:"temp_bytes"`
	Resources []string        `json:"resources,omitempty"`
}

// SegmentReport summarizes one segment.
type SegmentReport struct {
	Name    string           `json:"name"`
	Size    int              `json:"size"`
	Symbols []SymbolReport   `json:"symbols"`
	Fields  []FieldUseReport `json:"fields,omitempty"`
}

// SymbolReport is one symbol-table entry.
type SymbolReport struct {
	Name   string `json:"name"`
	Offset int    `json:"offset"`
	Size   int    `json:"size"`
}

// FieldUseReport summarizes one field range.
type FieldUseReport struct {
	Component string `json:"component"`
	Field     string `json:"field"`
	MinID     int    `json:"min_id"`
	MaxID     int    `json:"max_id"`
	BitWidth  int    `json:"bit_width"`
	Lanes     int    `json:"lanes"`
}

// Layout builds the scope's layout report.
func (s *Scope) Layout() LayoutReport {
	return LayoutReport{
		Scope:     s.name,
		Entities:  len(s.entities),
		Segments:  []SegmentReport{segmentReport(s.mutable), segmentReport(s.constant)},
		TempBytes: s.tempMax,
		Resources: s.Resources(),
	}
}

func segmentReport(seg *Segment) SegmentReport {
	r := SegmentReport{Name: seg.Name(), Size: seg.Size()}
	for _, name := range seg.Symbols() {
		ofs, _ := seg.Offset(name)
		size, _ := seg.SymbolSize(name)
		r.Symbols = append(r.Symbols, SymbolReport{Name: name, Offset: ofs, Size: size})
	}
	for _, fr := range seg.FieldRanges() {
		r.Fields = append(r.Fields, FieldUseReport{
			Component: fr.Component.Name,
			Field:     fr.Field.Name,
			MinID:     fr.MinID,
			MaxID:     fr.MaxID,
			BitWidth:  fr.BitWidth,
			Lanes:     fr.Lanes,
		})
	}
	return r
}
