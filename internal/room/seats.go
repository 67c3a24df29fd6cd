package room

import (
	"github.com/rocketscienceinc/tictactoe-relay/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-relay/internal/entity"
)

const maxSeats = 2

// seatRegistry tracks which connection handles occupy the two game seats.
// It is only ever touched by the room loop, so it needs no locking.
type seatRegistry struct {
	seats []*entity.Seat
}

func newSeatRegistry() *seatRegistry {
	return &seatRegistry{
		seats: make([]*entity.Seat, 0, maxSeats),
	}
}

// Assign seats the connection and returns its seat. The first occupant gets
// X and the second O; when one seat is already taken the newcomer gets the
// mark its occupant does not hold. Returns ErrRoomFull once both seats are
// occupied.
func (that *seatRegistry) Assign(connID string) (*entity.Seat, error) {
	if len(that.seats) >= maxSeats {
		return nil, apperror.ErrRoomFull
	}

	seat := &entity.Seat{
		ConnID: connID,
		Mark:   that.freeMark(),
	}
	that.seats = append(that.seats, seat)

	return seat, nil
}

// Release frees the seat held by connID. It reports whether a seat was
// actually released and is a no-op for handles that hold no seat.
func (that *seatRegistry) Release(connID string) bool {
	for i, seat := range that.seats {
		if seat.ConnID == connID {
			that.seats = append(that.seats[:i], that.seats[i+1:]...)
			return true
		}
	}

	return false
}

// Find returns the seat held by connID, if any.
func (that *seatRegistry) Find(connID string) (*entity.Seat, bool) {
	for _, seat := range that.seats {
		if seat.ConnID == connID {
			return seat, true
		}
	}

	return nil, false
}

func (that *seatRegistry) Full() bool {
	return len(that.seats) == maxSeats
}

func (that *seatRegistry) freeMark() string {
	for _, seat := range that.seats {
		if seat.Mark == entity.PlayerX {
			return entity.PlayerO
		}
	}

	return entity.PlayerX
}
