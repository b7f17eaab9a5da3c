// Package game implements the Gomoku board engine: grid state, move
// history, and in-line win detection.
package game

import "time"

// Piece is the state of one cell.
type Piece uint8

const (
	Empty Piece = iota
	Black
	White
)

func (p Piece) String() string {
	switch p {
	case Black:
		return "black"
	case White:
		return "white"
	default:
		return "empty"
	}
}

// Opponent returns the other colour; Empty maps to Empty.
func (p Piece) Opponent() Piece {
	switch p {
	case Black:
		return White
	case White:
		return Black
	default:
		return Empty
	}
}

// Move is one placed stone.
type Move struct {
	X, Y  int
	Color Piece
}

// DefaultBoardSize is the standard Gomoku grid.
const DefaultBoardSize = 15

// winLine is the inclusive run length that ends the game.
const winLine = 5

// Board holds the grid, the move stack, and per-colour accumulated clocks.
// It is order-agnostic: alternation is enforced by the room (via NextColor),
// not by Place itself.
type Board struct {
	size  int
	cells [][]Piece
	moves []Move

	blackTime time.Duration
	whiteTime time.Duration
}

// NewBoard creates an empty size×size board. Sizes below 5 fall back to
// the default.
func NewBoard(size int) *Board {
	if size < winLine {
		size = DefaultBoardSize
	}
	b := &Board{size: size}
	b.Reset()
	return b
}

// Reset clears the grid, the move stack, and the clocks.
func (b *Board) Reset() {
	b.cells = make([][]Piece, b.size)
	for i := range b.cells {
		b.cells[i] = make([]Piece, b.size)
	}
	b.moves = b.moves[:0]
	b.blackTime = 0
	b.whiteTime = 0
}

// Size returns the board edge length.
func (b *Board) Size() int {
	return b.size
}

// MoveCount returns the depth of the move stack.
func (b *Board) MoveCount() int {
	return len(b.moves)
}

// LastMove returns the most recent move, or ok=false on an empty board.
func (b *Board) LastMove() (Move, bool) {
	if len(b.moves) == 0 {
		return Move{}, false
	}
	return b.moves[len(b.moves)-1], true
}

// Moves returns a copy of the move stack, oldest first.
func (b *Board) Moves() []Move {
	return append([]Move(nil), b.moves...)
}

// At returns the cell state; out-of-bounds reads are Empty.
func (b *Board) At(x, y int) Piece {
	if !b.inBounds(x, y) {
		return Empty
	}
	return b.cells[x][y]
}

// NextColor is the colour to move: Black on an empty board, then strict
// alternation.
func (b *Board) NextColor() Piece {
	if last, ok := b.LastMove(); ok {
		return last.Color.Opponent()
	}
	return Black
}

// Full reports whether every cell is occupied.
func (b *Board) Full() bool {
	return len(b.moves) == b.size*b.size
}

// Place puts a stone at (x,y). It fails on out-of-bounds or occupied
// cells and leaves the board unchanged.
func (b *Board) Place(x, y int, color Piece) bool {
	if color == Empty || !b.inBounds(x, y) || b.cells[x][y] != Empty {
		return false
	}
	b.cells[x][y] = color
	b.moves = append(b.moves, Move{X: x, Y: y, Color: color})
	return true
}

// Undo removes the most recent stone and returns it.
func (b *Board) Undo() (Move, bool) {
	if len(b.moves) == 0 {
		return Move{}, false
	}
	last := b.moves[len(b.moves)-1]
	b.moves = b.moves[:len(b.moves)-1]
	b.cells[last.X][last.Y] = Empty
	return last, true
}

// AddTime accrues thinking time for a colour.
func (b *Board) AddTime(color Piece, d time.Duration) {
	switch color {
	case Black:
		b.blackTime += d
	case White:
		b.whiteTime += d
	}
}

// Clock returns the accumulated thinking time for a colour.
func (b *Board) Clock(color Piece) time.Duration {
	switch color {
	case Black:
		return b.blackTime
	case White:
		return b.whiteTime
	default:
		return 0
	}
}

// directions are the four scan lines for win detection; each is walked in
// both rays from the placed stone.
var directions = [4][2]int{
	{1, 0},  // vertical
	{0, 1},  // horizontal
	{1, 1},  // main diagonal
	{1, -1}, // anti-diagonal
}

// CheckWin reports whether the stone at (x,y) completes a run of five or
// more. Only lines through (x,y) are scanned, not the whole board.
func (b *Board) CheckWin(x, y int) Piece {
	color := b.At(x, y)
	if color == Empty {
		return Empty
	}
	for _, d := range directions {
		run := 1 + b.countRay(x, y, d[0], d[1], color) + b.countRay(x, y, -d[0], -d[1], color)
		if run >= winLine {
			return color
		}
	}
	return Empty
}

// countRay walks from (x,y) in direction (dx,dy) counting consecutive
// stones of the given colour, excluding the origin.
func (b *Board) countRay(x, y, dx, dy int, color Piece) int {
	n := 0
	for cx, cy := x+dx, y+dy; b.inBounds(cx, cy) && b.cells[cx][cy] == color; cx, cy = cx+dx, cy+dy {
		n++
	}
	return n
}

func (b *Board) inBounds(x, y int) bool {
	return x >= 0 && x < b.size && y >= 0 && y < b.size
}

// Flatten renders the grid row-major as '.', 'b', 'w' characters, used
// for game snapshots.
func (b *Board) Flatten() string {
	out := make([]byte, 0, b.size*b.size)
	for x := 0; x < b.size; x++ {
		for y := 0; y < b.size; y++ {
			switch b.cells[x][y] {
			case Black:
				out = append(out, 'b')
			case White:
				out = append(out, 'w')
			default:
				out = append(out, '.')
			}
		}
	}
	return string(out)
}
