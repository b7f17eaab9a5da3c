package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKFactorDecays(t *testing.T) {
	fresh := &User{}
	assert.Equal(t, 100, fresh.K())

	veteran := &User{WinCount: 200, LoseCount: 100}
	assert.Equal(t, 20, veteran.K())

	mid := &User{WinCount: 15, LoseCount: 15}
	k := mid.K()
	assert.Greater(t, k, 20)
	assert.Less(t, k, 100)
}

func TestUpdateScoreWin(t *testing.T) {
	w := &User{Score: 1000}
	l := &User{Score: 1000}

	UpdateScore(w, l, false)

	assert.Greater(t, w.Score, 1000.0)
	assert.Less(t, l.Score, 1000.0)
	assert.Equal(t, 1, w.WinCount)
	assert.Equal(t, 1, l.LoseCount)
	assert.Zero(t, w.DrawCount)
}

func TestUpdateScoreDraw(t *testing.T) {
	a := &User{Score: 1000}
	b := &User{Score: 1000}

	UpdateScore(a, b, true)

	// equal ratings, equal K: a draw moves nobody
	assert.InDelta(t, 1000.0, a.Score, 0.001)
	assert.InDelta(t, 1000.0, b.Score, 0.001)
	assert.Equal(t, 1, a.DrawCount)
	assert.Equal(t, 1, b.DrawCount)
}

func TestUpdateScoreUnderdogWinsBig(t *testing.T) {
	underdog := &User{Score: 800, WinCount: 100}
	favorite := &User{Score: 1600, WinCount: 100}

	before := underdog.Score
	UpdateScore(underdog, favorite, false)

	// beating a much stronger player is worth most of the K factor
	assert.Greater(t, underdog.Score-before, float64(underdog.K())*0.8)
}

func TestUpdateScoreRefreshesRank(t *testing.T) {
	w := &User{Score: 99, WinCount: 1000}
	l := &User{Score: 500, WinCount: 1000}

	UpdateScore(w, l, false)
	assert.Equal(t, RankForScore(w.Score), w.Rank)
}

func TestRankForScore(t *testing.T) {
	assert.Equal(t, "30K", RankForScore(0))
	assert.Equal(t, "30K", RankForScore(99))
	assert.Equal(t, "25K", RankForScore(100))
	assert.Equal(t, "1D", RankForScore(1500))
	assert.Equal(t, "7D", RankForScore(3999))
	assert.Equal(t, "9D", RankForScore(4000))
	assert.Equal(t, "9D", RankForScore(99999))
	assert.Equal(t, "30K", StartingRank())
}

func TestIsGuest(t *testing.T) {
	assert.False(t, IsGuest(1))
	assert.False(t, IsGuest(GuestIDBase-1))
	assert.True(t, IsGuest(GuestIDBase))
	assert.True(t, IsGuest(GuestIDBase+42))
}
