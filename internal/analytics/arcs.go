package analytics

import "math"

// Arc is the stroke geometry for one donut-chart segment, expressed as an
// SVG stroke-dasharray/offset pair over a circle of the given radius.
type Arc struct {
	Category string  `json:"category"`
	Color    string  `json:"color"`
	Length   float64 `json:"length"`
	Offset   float64 `json:"offset"`
}

// Arcs lays the sorted slices around the circle. Each segment's span is its
// percentage of the circumference; offsets accumulate over the full spans so
// segments never drift, while the visible stroke is shortened by gap on each
// side. Segments whose span does not exceed the gap render with zero length
// rather than a negative dash.
func Arcs(slices []Slice, radius, gap float64) []Arc {
	circumference := 2 * math.Pi * radius
	arcs := make([]Arc, 0, len(slices))
	var offset float64
	for _, s := range slices {
		span := s.Percent / 100 * circumference
		length := span - gap
		if length < 0 {
			length = 0
		}
		arcs = append(arcs, Arc{
			Category: s.Category,
			Color:    s.Color,
			Length:   length,
			Offset:   offset,
		})
		offset += span
	}
	return arcs
}
