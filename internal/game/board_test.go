package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceAndAt(t *testing.T) {
	b := NewBoard(15)

	require.True(t, b.Place(7, 7, Black))
	assert.Equal(t, Black, b.At(7, 7))
	assert.Equal(t, 1, b.MoveCount())

	last, ok := b.LastMove()
	require.True(t, ok)
	assert.Equal(t, Move{X: 7, Y: 7, Color: Black}, last)
}

func TestPlaceRejectsIllegal(t *testing.T) {
	b := NewBoard(15)
	require.True(t, b.Place(0, 0, Black))

	assert.False(t, b.Place(0, 0, White), "occupied cell")
	assert.False(t, b.Place(-1, 0, White), "negative coordinate")
	assert.False(t, b.Place(15, 0, White), "x out of bounds")
	assert.False(t, b.Place(0, 15, White), "y out of bounds")
	assert.False(t, b.Place(1, 1, Empty), "empty colour")

	// board unchanged beyond the one legal move
	assert.Equal(t, 1, b.MoveCount())
}

func TestNextColorAlternates(t *testing.T) {
	b := NewBoard(15)
	assert.Equal(t, Black, b.NextColor())

	b.Place(0, 0, Black)
	assert.Equal(t, White, b.NextColor())

	b.Place(0, 1, White)
	assert.Equal(t, Black, b.NextColor())
}

func TestUndo(t *testing.T) {
	b := NewBoard(15)
	b.Place(3, 3, Black)
	b.Place(4, 4, White)

	m, ok := b.Undo()
	require.True(t, ok)
	assert.Equal(t, Move{X: 4, Y: 4, Color: White}, m)
	assert.Equal(t, Empty, b.At(4, 4))
	assert.Equal(t, White, b.NextColor())

	b.Undo()
	_, ok = b.Undo()
	assert.False(t, ok, "empty board has nothing to undo")
}

func TestCheckWinAllDirections(t *testing.T) {
	lines := map[string][2]int{
		"vertical":      {1, 0},
		"horizontal":    {0, 1},
		"main diagonal": {1, 1},
		"anti diagonal": {1, -1},
	}
	for name, d := range lines {
		t.Run(name, func(t *testing.T) {
			b := NewBoard(15)
			x, y := 7, 7
			for i := 0; i < 5; i++ {
				require.True(t, b.Place(x+i*d[0], y+i*d[1], Black))
			}
			// check through the middle stone, not just the last
			assert.Equal(t, Black, b.CheckWin(x+2*d[0], y+2*d[1]))
		})
	}
}

func TestFourInARowIsNotAWin(t *testing.T) {
	b := NewBoard(15)
	for i := 0; i < 4; i++ {
		require.True(t, b.Place(7, 7+i, Black))
	}
	for i := 0; i < 4; i++ {
		assert.Equal(t, Empty, b.CheckWin(7, 7+i))
	}
}

func TestCheckWinBrokenRun(t *testing.T) {
	b := NewBoard(15)
	b.Place(7, 7, Black)
	b.Place(7, 8, Black)
	b.Place(7, 9, White) // gap
	b.Place(7, 10, Black)
	b.Place(7, 11, Black)
	b.Place(7, 12, Black)

	assert.Equal(t, Empty, b.CheckWin(7, 8))
	assert.Equal(t, Empty, b.CheckWin(7, 11))
}

func TestOverlineWins(t *testing.T) {
	b := NewBoard(15)
	for i := 0; i < 6; i++ {
		require.True(t, b.Place(7, 5+i, White))
	}
	assert.Equal(t, White, b.CheckWin(7, 7))
}

func TestFull(t *testing.T) {
	b := NewBoard(5)
	color := Black
	for x := 0; x < 5; x++ {
		for y := 0; y < 5; y++ {
			require.True(t, b.Place(x, y, color))
			color = color.Opponent()
		}
	}
	assert.True(t, b.Full())
}

func TestSmallSizeFallsBackToDefault(t *testing.T) {
	b := NewBoard(3)
	assert.Equal(t, DefaultBoardSize, b.Size())
}

func TestFlatten(t *testing.T) {
	b := NewBoard(5)
	b.Place(0, 0, Black)
	b.Place(4, 4, White)

	flat := b.Flatten()
	require.Len(t, flat, 25)
	assert.Equal(t, byte('b'), flat[0])
	assert.Equal(t, byte('w'), flat[24])
	assert.Equal(t, byte('.'), flat[1])
}

func TestClocks(t *testing.T) {
	b := NewBoard(15)
	b.AddTime(Black, 3*time.Second)
	b.AddTime(Black, time.Second)
	b.AddTime(White, 2*time.Second)

	assert.Equal(t, 4*time.Second, b.Clock(Black))
	assert.Equal(t, 2*time.Second, b.Clock(White))

	b.Reset()
	assert.Zero(t, b.Clock(Black))
	assert.Zero(t, b.MoveCount())
}

func TestMovesCopy(t *testing.T) {
	b := NewBoard(15)
	b.Place(1, 1, Black)

	moves := b.Moves()
	require.Len(t, moves, 1)
	moves[0].X = 99
	assert.Equal(t, 1, b.Moves()[0].X)
}
