package entity

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-relay/internal/apperror"
)

const (
	StatusWaiting  = "waiting"
	StatusOngoing  = "ongoing"
	StatusFinished = "finished"

	PlayerX   = "X"
	PlayerO   = "O"
	PlayerTie = "-"

	EmptyCell = ""
)

// WinCombos lists the 8 winning triples in a fixed scan order:
// rows top to bottom, columns left to right, then the two diagonals.
var WinCombos = [][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Game holds the complete mutable state of the single room's game:
// the board, whose turn it is, and whether the game has concluded.
type Game struct {
	Board  [9]string `json:"board"`
	Turn   string    `json:"turn"`
	Winner string    `json:"winner,omitempty"`
	Status string    `json:"status"`
}

func NewGame() *Game {
	return &Game{
		Board:  [9]string{},
		Turn:   PlayerX,
		Status: StatusWaiting,
	}
}

// Start marks the game as ongoing. Moves are only accepted while ongoing.
func (that *Game) Start() {
	that.Status = StatusOngoing
}

// Reset returns the board to all-empty with X to move and the game waiting
// to be started. Resetting an already-reset game is a no-op in effect.
func (that *Game) Reset() {
	that.Board = [9]string{}
	that.Turn = PlayerX
	that.Winner = ""
	that.Status = StatusWaiting
}

// DetermineGameResult returns the winning mark, PlayerTie when the board is
// full with no winner, or EmptyCell while the game can still continue.
func (that *Game) DetermineGameResult() string {
	for _, combo := range WinCombos {
		a, b, c := that.Board[combo[0]], that.Board[combo[1]], that.Board[combo[2]]
		if a != EmptyCell && a == b && b == c {
			return a
		}
	}

	// the game will continue until all the squares are full
	for _, cell := range that.Board {
		if cell == EmptyCell {
			return EmptyCell
		}
	}

	return PlayerTie
}

// MakeTurn applies a move for playerMark at cell. It rejects the move without
// mutating anything if the game is not ongoing, the cell index is out of
// range, it is not that player's turn, or the cell is already occupied.
func (that *Game) MakeTurn(playerMark string, cell int) error {
	if that.IsWaiting() {
		return apperror.ErrGameIsNotStarted
	}

	if that.IsFinished() {
		return apperror.ErrGameFinished
	}

	if cell < 0 || cell >= len(that.Board) {
		return fmt.Errorf("%w: cell %d", apperror.ErrInvalidCell, cell)
	}

	if that.Turn != playerMark {
		return apperror.ErrNotYourTurn
	}

	if that.Board[cell] != EmptyCell {
		return apperror.ErrCellOccupied
	}

	that.Board[cell] = playerMark

	switch winner := that.DetermineGameResult(); winner {
	case PlayerX, PlayerO:
		that.Winner = winner
		that.Status = StatusFinished
	case PlayerTie:
		that.Winner = PlayerTie
		that.Status = StatusFinished
	default:
		that.Turn = toggleMark(playerMark)
	}

	return nil
}

func (that *Game) IsFinished() bool {
	return that.Status == StatusFinished
}

func (that *Game) IsOngoing() bool {
	return that.Status == StatusOngoing
}

func (that *Game) IsWaiting() bool {
	return that.Status == StatusWaiting
}

func toggleMark(currentMark string) string {
	if currentMark == PlayerX {
		return PlayerO
	}
	return PlayerX
}
