package enums

// RoomStatus tracks whether a room still accepts claim changes.
type RoomStatus string

const (
	RoomStatusActive RoomStatus = "active"
	RoomStatusLocked RoomStatus = "locked"
)

func (s RoomStatus) IsValid() bool {
	switch s {
	case RoomStatusActive, RoomStatusLocked:
		return true
	}
	return false
}

func (s RoomStatus) String() string {
	return string(s)
}
