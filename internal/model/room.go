package model

// Room is a bookable meeting room shared by all users.
//
// Fields:
//
//	ID       – primary key identifier assigned by the store.
//	Name     – globally unique, case-sensitive display name.
//	Capacity – number of people the room seats; always positive.
type Room struct {
	ID       uint64 `json:"id"`       // rooms.id
	Name     string `json:"name"`     // rooms.name (unique)
	Capacity int    `json:"capacity"` // rooms.capacity
}

// DefaultRoomCapacity is applied when a room is created or updated
// without a capacity.
const DefaultRoomCapacity = 1
