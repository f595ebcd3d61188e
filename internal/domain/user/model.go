package user

import "time"

// User is the minimal profile the scoring core needs. Identity and auth live
// upstream; this package only carries enough to list and label participants.
type User struct {
	ID          string
	DisplayName string
	CreatedAt   time.Time
}
