package render

import "math"

// Reference page geometry: A4 in CSS points. Every template stylesheet keeps
// the .page box at this size, and the preview host scales against it.
const (
	RefPageWidth  = 595.0
	RefPageHeight = 842.0
	pageMargin    = 48.0
)

// Cross-window message contract between the preview iframe and its host.
// The rendered document posts {type: "totalPages", count} to the parent and
// reacts to {type: "changePage", page}.
const (
	MsgTypeTotalPages = "totalPages"
	MsgTypeChangePage = "changePage"
)

// scaleMargin keeps a visible border around the scaled page in the host
// container.
const scaleMargin = 0.95

// ComputeScale returns the display scale for a preview page of refW×refH
// shown in a container of containerW×containerH: the largest proportional
// scale at which the whole page stays visible, with margin.
func ComputeScale(containerW, containerH, refW, refH float64) float64 {
	if containerW <= 0 || containerH <= 0 || refW <= 0 || refH <= 0 {
		return scaleMargin
	}
	return math.Min(containerW/refW, containerH/refH) * scaleMargin
}

// block is one indivisible chunk of rendered markup with its estimated
// height in points. Entries never split across pages; a section heading is
// fused with its first entry so headings never dangle at a page bottom.
type block struct {
	html   string
	height float64
}

// paginate distributes blocks greedily over pages of the given content
// height. A block taller than a full page gets a page of its own and is
// clipped by the template's overflow rule.
func paginate(blocks []block, contentHeight float64) [][]block {
	var pages [][]block
	var current []block
	used := 0.0

	for _, b := range blocks {
		if len(current) > 0 && used+b.height > contentHeight {
			pages = append(pages, current)
			current = nil
			used = 0
		}
		current = append(current, b)
		used += b.height
	}
	if len(current) > 0 {
		pages = append(pages, current)
	}
	if len(pages) == 0 {
		pages = append(pages, []block{})
	}
	return pages
}

// Height estimation. These are deliberately coarse: the goal is stable,
// deterministic page breaks, not pixel-exact text measurement.

const (
	lineHeight       = 14.0
	headerHeight     = 110.0
	sectionHeadextra = 28.0
	entryBaseHeight  = 34.0
	inlineRowHeight  = 18.0
	charsPerLine     = 92
)

// textLines estimates how many lines a description wraps into.
func textLines(s string) float64 {
	if s == "" {
		return 0
	}
	return math.Ceil(float64(len(s)) / charsPerLine)
}
