// Package spatial provides the broad phase and the command queue used by
// the simulation tick.
//
// Structures store integer ids in preallocated slices rather than pointers
// so a rebuild every tick does not allocate.
package spatial

import "math"

// SpatialGrid is a uniform grid over the arena floor. Entities are bucketed
// by their X/Y position; height is ignored by the broad phase.
//
// Cell size should be close to the largest common query radius. Cells are
// stored row-major (cells[row*cols+col]).
type SpatialGrid struct {
	originX, originY float64
	cellSize         float64
	invCellSize      float64
	cols, rows       int
	cells            [][]uint32
	scratch          []uint32
	count            int
}

// NewSpatialGrid creates a grid covering a square arena centred on the
// origin. maxEntities presizes the cells.
func NewSpatialGrid(arenaSize, cellSize float64, maxEntities int) *SpatialGrid {
	return NewSpatialGridRect(-arenaSize/2, -arenaSize/2, arenaSize, arenaSize, cellSize, maxEntities)
}

// NewSpatialGridRect creates a grid covering [minX, minX+width) x
// [minY, minY+height).
func NewSpatialGridRect(minX, minY, width, height, cellSize float64, maxEntities int) *SpatialGrid {
	if cellSize <= 0 {
		cellSize = 1
	}
	cols := int(math.Ceil(width / cellSize))
	rows := int(math.Ceil(height / cellSize))
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}

	cells := make([][]uint32, cols*rows)
	perCell := maxEntities / len(cells)
	if perCell < 4 {
		perCell = 4
	}
	for i := range cells {
		cells[i] = make([]uint32, 0, perCell)
	}

	return &SpatialGrid{
		originX:     minX,
		originY:     minY,
		cellSize:    cellSize,
		invCellSize: 1 / cellSize,
		cols:        cols,
		rows:        rows,
		cells:       cells,
		scratch:     make([]uint32, 0, 64),
	}
}

// Clear empties every cell and keeps the capacity.
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
	g.count = 0
}

// Insert adds id at (x, y). Positions outside the arena land in the edge
// cells.
func (g *SpatialGrid) Insert(id uint32, x, y float64) {
	idx := g.cellIndex(x, y)
	g.cells[idx] = append(g.cells[idx], id)
	g.count++
}

// Len returns the number of inserted entities.
func (g *SpatialGrid) Len() int { return g.count }

func (g *SpatialGrid) col(x float64) int {
	c := int(math.Floor((x - g.originX) * g.invCellSize))
	if c < 0 {
		return 0
	}
	if c >= g.cols {
		return g.cols - 1
	}
	return c
}

func (g *SpatialGrid) row(y float64) int {
	r := int(math.Floor((y - g.originY) * g.invCellSize))
	if r < 0 {
		return 0
	}
	if r >= g.rows {
		return g.rows - 1
	}
	return r
}

func (g *SpatialGrid) cellIndex(x, y float64) int {
	return g.row(y)*g.cols + g.col(x)
}

// QueryRadius returns the ids in every cell touched by the square around
// (cx, cy) with half-size radius. Candidates may lie outside the radius;
// callers run the narrow phase.
//
// The returned slice is reused by the next query.
func (g *SpatialGrid) QueryRadius(cx, cy, radius float64) []uint32 {
	g.scratch = g.scratch[:0]
	minCol, maxCol := g.col(cx-radius), g.col(cx+radius)
	minRow, maxRow := g.row(cy-radius), g.row(cy+radius)
	for r := minRow; r <= maxRow; r++ {
		for c := minCol; c <= maxCol; c++ {
			g.scratch = append(g.scratch, g.cells[r*g.cols+c]...)
		}
	}
	return g.scratch
}

// QuerySegment returns the ids near the segment from (x0, y0) to (x1, y1),
// padded by radius. Same reuse rule as QueryRadius.
func (g *SpatialGrid) QuerySegment(x0, y0, x1, y1, radius float64) []uint32 {
	g.scratch = g.scratch[:0]
	minCol, maxCol := g.col(math.Min(x0, x1)-radius), g.col(math.Max(x0, x1)+radius)
	minRow, maxRow := g.row(math.Min(y0, y1)-radius), g.row(math.Max(y0, y1)+radius)
	for r := minRow; r <= maxRow; r++ {
		for c := minCol; c <= maxCol; c++ {
			g.scratch = append(g.scratch, g.cells[r*g.cols+c]...)
		}
	}
	return g.scratch
}

// GridStats describes cell occupancy.
type GridStats struct {
	TotalCells     int
	NonEmptyCells  int
	TotalEntities  int
	MaxInCell      int
	AvgPerNonEmpty float64
}

// Stats returns occupancy statistics for debugging.
func (g *SpatialGrid) Stats() GridStats {
	var s GridStats
	s.TotalCells = len(g.cells)
	for _, cell := range g.cells {
		n := len(cell)
		s.TotalEntities += n
		if n > s.MaxInCell {
			s.MaxInCell = n
		}
		if n > 0 {
			s.NonEmptyCells++
		}
	}
	if s.NonEmptyCells > 0 {
		s.AvgPerNonEmpty = float64(s.TotalEntities) / float64(s.NonEmptyCells)
	}
	return s
}

// Dimensions returns the grid dimensions.
func (g *SpatialGrid) Dimensions() (cols, rows int, cellSize float64) {
	return g.cols, g.rows, g.cellSize
}
