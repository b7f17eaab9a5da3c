package model

// rankThreshold maps a minimum score to a named tier. The table is
// ordered ascending; a score earns the highest tier it reaches.
type rankThreshold struct {
	score int
	name  string
}

var rankTable = []rankThreshold{
	{0, "30K"},
	{100, "25K"},
	{300, "20K"},
	{500, "15K"},
	{800, "10K"},
	{1200, "5K"},
	{1500, "1D"},
	{1800, "2D"},
	{2100, "3D"},
	{2400, "4D"},
	{2700, "5D"},
	{3000, "6D"},
	{3500, "7D"},
	{4000, "9D"},
}

// StartingRank is the tier of a fresh account.
func StartingRank() string {
	return rankTable[0].name
}

// RankForScore returns the named tier for a score.
func RankForScore(score float64) string {
	s := int(score)
	name := rankTable[0].name
	for _, t := range rankTable {
		if s >= t.score {
			name = t.name
		} else {
			break
		}
	}
	return name
}
