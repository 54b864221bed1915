package layout

// minHorizontalShift is the floor for the center-to-center distance between
// horizontally adjacent windows, regardless of the configured overlap bound.
const minHorizontalShift = 50

// defaultVerticalGap separates rows. Vertical spacing is a fixed gap rather
// than overlap-controlled: rows are expected to stack visibly, while columns
// are squeezed against the overlap bound.
const defaultVerticalGap = 40

// Params carries the screen and window geometry inputs for grid planning.
type Params struct {
	ScreenW       int
	ScreenH       int
	WindowW       int
	WindowH       int
	Margin        int
	MaxOverlapPct int
	// MaxCols caps the column count when positive.
	MaxCols int
	// VerticalGap overrides the fixed row gap when positive.
	VerticalGap int
}

// Placement assigns one window handle to a screen position.
type Placement struct {
	ID string
	X  int
	Y  int
}

// Plan is the ordered grid assignment for a staged window set, one entry per
// handle in row-major placement order.
type Plan struct {
	Placements []Placement
}

// MinShift returns the minimum horizontal center-to-center distance implied
// by the window width and overlap bound.
func (p Params) MinShift() int {
	shift := p.WindowW * (100 - p.MaxOverlapPct) / 100
	if shift < minHorizontalShift {
		shift = minHorizontalShift
	}
	return shift
}

func (p Params) verticalStep() int {
	gap := p.VerticalGap
	if gap <= 0 {
		gap = defaultVerticalGap
	}
	return p.WindowH + gap
}

// columns returns the largest column count whose total span fits the
// available width at the minimum shift, honoring the optional cap.
func (p Params) columns() int {
	available := p.ScreenW - 2*p.Margin
	cols := 1
	if available > p.WindowW {
		cols = 1 + (available-p.WindowW)/p.MinShift()
	}
	if p.MaxCols > 0 && cols > p.MaxCols {
		cols = p.MaxCols
	}
	if cols < 1 {
		cols = 1
	}
	return cols
}

// PlanGrid computes a centered, overlap-bounded grid assignment for the
// ordered handle list. The function is pure: identical inputs always produce
// identical placements.
func PlanGrid(handles []string, p Params) Plan {
	n := len(handles)
	if n == 0 {
		return Plan{}
	}

	cols := p.columns()
	rows := (n + cols - 1) / cols

	availableW := p.ScreenW - 2*p.Margin
	availableH := p.ScreenH - 2*p.Margin

	stepX := 0
	if cols > 1 {
		stepX = (availableW - p.WindowW) / (cols - 1)
	}
	stepY := p.verticalStep()

	gridH := p.WindowH + (rows-1)*stepY
	originY := p.Margin + (availableH-gridH)/2
	if originY < p.Margin {
		originY = p.Margin
	}

	plan := Plan{Placements: make([]Placement, 0, n)}
	for row := 0; row < rows; row++ {
		start := row * cols
		end := start + cols
		if end > n {
			end = n
		}
		rowCount := end - start
		rowW := p.WindowW + (rowCount-1)*stepX
		originX := p.Margin + (availableW-rowW)/2
		if originX < p.Margin {
			originX = p.Margin
		}
		for i := 0; i < rowCount; i++ {
			plan.Placements = append(plan.Placements, Placement{
				ID: handles[start+i],
				X:  originX + i*stepX,
				Y:  originY + row*stepY,
			})
		}
	}
	return plan
}

// Handles returns the placement order as a bare handle list.
func (p Plan) Handles() []string {
	ids := make([]string, len(p.Placements))
	for i, pl := range p.Placements {
		ids[i] = pl.ID
	}
	return ids
}
