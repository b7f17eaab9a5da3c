// Package model holds the persistent domain entities.
package model

import "math"

// GuestIDBase is the floor of the reserved guest-ID range. Database user
// IDs come from a sequence and never reach it; guest IDs are minted from
// a counter starting here and are never persisted.
const GuestIDBase uint64 = 1 << 40

// User is a persistent account.
type User struct {
	ID        uint64
	Username  string
	Password  string
	Rank      string
	Ranking   int
	Score     float64
	WinCount  int
	LoseCount int
	DrawCount int
}

// NewUser creates an unpersisted account at the starting rank.
func NewUser(username, password string) *User {
	return &User{
		Username: username,
		Password: password,
		Rank:     StartingRank(),
	}
}

// IsGuest reports whether the id lies in the reserved guest range.
func IsGuest(id uint64) bool {
	return id >= GuestIDBase
}

// Matches returns the total number of finished games.
func (u *User) Matches() int {
	return u.WinCount + u.LoseCount + u.DrawCount
}

// K is the adaptive ELO K-factor: large for fresh accounts, decaying
// towards 20 as the match count grows.
func (u *User) K() int {
	const (
		kMin = 20.0
		kMax = 100.0
		d    = 30.0
	)
	return int(kMin + (kMax-kMin)*math.Exp(-float64(u.Matches())/d))
}

// UpdateScore applies the ELO update for a finished game between winner
// and loser. On a draw both sides score half a point; the winner/loser
// naming is then arbitrary.
func UpdateScore(winner, loser *User, draw bool) {
	ra, rb := winner.Score, loser.Score
	ea := 1.0 / (1.0 + math.Pow(10.0, (rb-ra)/400.0))
	eb := 1.0 / (1.0 + math.Pow(10.0, (ra-rb)/400.0))

	sa, sb := 1.0, 0.0
	if draw {
		sa, sb = 0.5, 0.5
	}

	winner.Score = ra + float64(winner.K())*(sa-ea)
	loser.Score = rb + float64(loser.K())*(sb-eb)

	if draw {
		winner.DrawCount++
		loser.DrawCount++
	} else {
		winner.WinCount++
		loser.LoseCount++
	}

	winner.Rank = RankForScore(winner.Score)
	loser.Rank = RankForScore(loser.Score)
}
