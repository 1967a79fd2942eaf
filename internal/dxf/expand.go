package dxf

import (
	"math"
	"strings"

	"github.com/benj01/geoloader/internal/geom"
)

// Expand flattens the document's entity list into world space, replacing
// every Insert with the referenced block's entities under the composed
// affine transform. Issues raised during expansion (unknown blocks,
// circular references) are appended to doc.Issues.
//
// The cycle guard is the chain of block names along the current descent.
// A shared visited set would be wrong here: the same block may
// legitimately appear under two sibling inserts, and only re-entry on the
// same branch is a cycle.
func Expand(doc *Document) []Entity {
	x := &expander{doc: doc}
	out := make([]Entity, 0, len(doc.Entities))
	for _, entity := range doc.Entities {
		out = x.expand(out, entity, geom.Identity(), nil)
	}
	return out
}

type expander struct {
	doc *Document
}

func (x *expander) expand(out []Entity, entity Entity, transform geom.Matrix, blockPath []string) []Entity {
	insert, ok := entity.(Insert)
	if !ok {
		if transform.IsIdentity() {
			return append(out, entity)
		}
		return append(out, entity.apply(transform))
	}

	for _, name := range blockPath {
		if name == insert.Block {
			path := strings.Join(append(blockPath, insert.Block), " -> ")
			x.doc.Issues = append(x.doc.Issues, Issue{
				Severity: SeverityWarning,
				Code:     IssueCircularReference,
				Message:  "circular block reference: " + path,
				Handle:   insert.Handle,
			})
			return out
		}
	}

	block, ok := x.doc.Blocks[insert.Block]
	if !ok {
		x.doc.Issues = append(x.doc.Issues, Issue{
			Severity: SeverityWarning,
			Code:     IssueUnknownBlock,
			Message:  "insert references unknown block " + insert.Block,
			Handle:   insert.Handle,
		})
		return out
	}

	path := append(blockPath, insert.Block)
	for _, cell := range insertCells(insert) {
		local := cellTransform(insert, block, cell)
		combined := local.Multiply(transform)
		for _, child := range block.Entities {
			out = x.expand(out, child, combined, path)
		}
	}
	return out
}

type gridCell struct{ row, col int }

// insertCells enumerates the row/column grid of an insert. A plain insert
// is the single cell (0, 0).
func insertCells(insert Insert) []gridCell {
	rows, cols := insert.Rows, insert.Columns
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	cells := make([]gridCell, 0, rows*cols)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			cells = append(cells, gridCell{row: row, col: col})
		}
	}
	return cells
}

// cellTransform builds the block-to-world transform for one grid cell:
// shift by the grid offset and the block base point, scale, rotate, then
// move to the insertion point. Grid spacing is measured in block units,
// so it scales and rotates with the block.
func cellTransform(insert Insert, block *Block, cell gridCell) geom.Matrix {
	offsetX := float64(cell.col)*insert.ColSpacing - block.Position[0]
	offsetY := float64(cell.row)*insert.RowSpacing - block.Position[1]

	m := geom.Translate(offsetX, offsetY)
	m = m.Multiply(geom.Scale(insert.ScaleX, insert.ScaleY))
	m = m.Multiply(geom.Rotate(insert.Rotation * degToRad))
	return m.Multiply(geom.Translate(insert.Position[0], insert.Position[1]))
}

const degToRad = math.Pi / 180
