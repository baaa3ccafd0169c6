package domain

import "time"

// User represents a wallet identity. The address is the natural key; callers
// assert it as a bearer credential and signature verification happens in the
// auth layer upstream of this service.
type User struct {
	ID        string
	Address   string
	CreatedAt time.Time
}

// ShortAddress renders a wallet address in the abbreviated 0x1234...abcd form
// used for generated display names.
func ShortAddress(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}
