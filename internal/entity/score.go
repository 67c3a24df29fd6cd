package entity

// Score holds the cumulative outcome tally across concluded games.
type Score struct {
	XWins int64 `json:"x_wins"`
	OWins int64 `json:"o_wins"`
	Draws int64 `json:"draws"`
}
