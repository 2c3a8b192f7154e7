/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package cantstop

const (
	MinColumn = 2
	MaxColumn = 12

	// MaxNeutralPieces is the number of temporary markers a player may have
	// on the board during a single turn.
	MaxNeutralPieces = 3

	// ColumnsToWin is the number of locked columns that ends the game.
	ColumnsToWin = 3
)

var columnHeights = [...]int{
	2:  3,
	3:  5,
	4:  7,
	5:  9,
	6:  11,
	7:  13,
	8:  11,
	9:  9,
	10: 7,
	11: 5,
	12: 3,
}

// ValidColumn reports whether col is a column on the board.
func ValidColumn(col int) bool {
	return col >= MinColumn && col <= MaxColumn
}

// Height returns the number of slots in col, or 0 for an invalid column.
func Height(col int) int {
	if !ValidColumn(col) {
		return 0
	}

	return columnHeights[col]
}

// TopSlot returns the 0-based index of the topmost slot in col. Invalid
// columns return -1, so no slot is ever at or below their top.
func TopSlot(col int) int {
	return Height(col) - 1
}

// Columns returns every playable column in ascending order.
func Columns() []int {
	cols := make([]int, 0, MaxColumn-MinColumn+1)
	for col := MinColumn; col <= MaxColumn; col++ {
		cols = append(cols, col)
	}

	return cols
}
