package store

import (
	"errors"

	"chatrelay/pkg/models"
)

// ErrNotFound is returned when no live message has the requested id.
var ErrNotFound = errors.New("message not found")

// seedGreeting is committed once per store lifetime so a fresh conversation
// is never empty.
const seedGreeting = "Hello! I'm your assistant chatbot. How can I help you today?"

// Store is the canonical ordered, mutable message collection. Implementations
// own the stored instances; callers always receive copies.
type Store interface {
	// List returns all live messages ordered by timestamp ascending, ties
	// broken by id ascending.
	List() ([]models.Message, error)
	// Create assigns the next id, stamps the current time and appends the
	// draft. An empty delivery state defaults to "sent".
	Create(d models.Draft) (models.Message, error)
	// Update replaces content, sets the edited flag and stamps editedAt.
	// Returns ErrNotFound when the id does not exist.
	Update(id int64, content string, edited bool) (models.Message, error)
	// Delete removes a message permanently and reports whether it existed.
	Delete(id int64) (bool, error)
	Close() error
}
