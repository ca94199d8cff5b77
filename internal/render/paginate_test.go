package render

import (
	"math"
	"testing"
)

func TestComputeScale_FitsContainer(t *testing.T) {
	scale := ComputeScale(800, 600, RefPageWidth, RefPageHeight)

	limit := math.Min(800/RefPageWidth, 600/RefPageHeight) * scaleMargin
	if scale > limit {
		t.Fatalf("scale %f exceeds fit limit %f", scale, limit)
	}
	if RefPageWidth*scale > 800 || RefPageHeight*scale > 600 {
		t.Fatalf("scaled page %fx%f overflows the 800x600 container",
			RefPageWidth*scale, RefPageHeight*scale)
	}
}

func TestComputeScale_DegenerateInputs(t *testing.T) {
	for _, args := range [][4]float64{
		{0, 600, RefPageWidth, RefPageHeight},
		{800, -1, RefPageWidth, RefPageHeight},
		{800, 600, 0, RefPageHeight},
	} {
		if got := ComputeScale(args[0], args[1], args[2], args[3]); got != scaleMargin {
			t.Fatalf("ComputeScale(%v) = %f, want fallback %f", args, got, scaleMargin)
		}
	}
}

func TestPaginate_GreedyFill(t *testing.T) {
	blocks := []block{
		{html: "a", height: 300},
		{html: "b", height: 300},
		{html: "c", height: 300},
		{html: "d", height: 50},
	}

	pages := paginate(blocks, 700)
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	if len(pages[0]) != 2 || len(pages[1]) != 2 {
		t.Fatalf("unexpected distribution: %d + %d blocks", len(pages[0]), len(pages[1]))
	}
}

func TestPaginate_OversizeBlockGetsOwnPage(t *testing.T) {
	blocks := []block{
		{html: "a", height: 100},
		{html: "huge", height: 2000},
		{html: "b", height: 100},
	}

	pages := paginate(blocks, 700)
	if len(pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(pages))
	}
	if len(pages[1]) != 1 || pages[1][0].html != "huge" {
		t.Fatalf("oversize block did not get its own page: %+v", pages[1])
	}
}

func TestPaginate_EmptyInputStillYieldsOnePage(t *testing.T) {
	pages := paginate(nil, 700)
	if len(pages) != 1 {
		t.Fatalf("expected a single empty page, got %d", len(pages))
	}
}

func TestPaginate_Deterministic(t *testing.T) {
	blocks := []block{
		{html: "a", height: 260}, {html: "b", height: 180},
		{html: "c", height: 420}, {html: "d", height: 90},
	}

	first := paginate(blocks, 746)
	second := paginate(blocks, 746)
	if len(first) != len(second) {
		t.Fatalf("page counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if len(first[i]) != len(second[i]) {
			t.Fatalf("page %d differs: %d vs %d blocks", i, len(first[i]), len(second[i]))
		}
	}
}
