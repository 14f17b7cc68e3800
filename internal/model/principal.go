package model

// Principal is the authenticated caller resolved by the identity provider.
// ID is opaque to this service; IsSuperuser grants administrative rights.
type Principal struct {
	ID          string `json:"id"`
	IsSuperuser bool   `json:"is_superuser"`
}

// Owns reports whether the principal created the booking.
func (p Principal) Owns(b *Booking) bool {
	return b != nil && p.ID != "" && b.UserID == p.ID
}

// CanCancel reports whether the principal may delete the booking:
// administrators may cancel any booking, everyone else only their own.
func (p Principal) CanCancel(b *Booking) bool {
	return p.IsSuperuser || p.Owns(b)
}
