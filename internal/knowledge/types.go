package knowledge

import "github.com/google/uuid"

// Record is one persisted knowledge entry as returned by similarity search.
// The embedding itself is not read back; callers only need id and content.
type Record struct {
	ID      uuid.UUID `json:"id"`
	Content string    `json:"content"`
}

// DefaultSearchLimit is the number of nearest records returned when the
// caller does not ask for a specific limit.
const DefaultSearchLimit = 5
