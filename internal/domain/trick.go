package domain

// Play is a card put on the table during a trick.
type Play struct {
	PlayerID string `json:"player_id"`
	Team     Team   `json:"team"`
	Card     Card   `json:"card"`
}

// ResolveTrick returns the winning team and the index of the winning play.
// When the strongest card is shared by both teams the trick is a parda and
// ResolveTrick returns TeamNone, -1.
func ResolveTrick(plays []Play) (Team, int) {
	best, idx := -1, -1
	for i, p := range plays {
		if pw := p.Card.TrickPower(); pw > best {
			best, idx = pw, i
		}
	}
	if idx < 0 {
		return TeamNone, -1
	}
	winner := plays[idx].Team
	for _, p := range plays {
		if p.Card.TrickPower() == best && p.Team != winner {
			return TeamNone, -1
		}
	}
	return winner, idx
}

// AttributeTricks credits each parda to the team that won the previous
// trick. Leading pardas stay undecided until a later trick breaks them, and
// are then credited to that trick's winner.
func AttributeTricks(results []Team) []Team {
	out := make([]Team, len(results))
	undecided := 0
	for i, r := range results {
		switch {
		case r != TeamNone:
			for j := i - undecided; j < i; j++ {
				out[j] = r
			}
			undecided = 0
			out[i] = r
		case i == undecided:
			undecided++
		default:
			out[i] = out[i-1]
		}
	}
	return out
}

// HandWinner decides the hand from trick results so far. A team wins with
// two attributed tricks; three pardas go to the mano's team.
func HandWinner(results []Team, mano Team) (Team, bool) {
	var wins [2]int
	for _, t := range AttributeTricks(results) {
		if t == TeamNone {
			continue
		}
		wins[t.Index()]++
		if wins[t.Index()] >= 2 {
			return t, true
		}
	}
	if len(results) >= 3 {
		return mano, true
	}
	return TeamNone, false
}
