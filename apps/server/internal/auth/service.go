package auth

// Service is the seat-token contract consumed by the gateway and table.
type Service interface {
	// IssueSeat binds a fresh resume token to a seat in a room.
	IssueSeat(room, playerID, name string) (token string)
	// ResolveSeat validates and refreshes a resume token.
	ResolveSeat(token string) (Seat, bool)
	// RevokeRoom drops every token of a closed room.
	RevokeRoom(room string)
	Close() error
}
