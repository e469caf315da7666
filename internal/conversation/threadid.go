package conversation

import (
	"fmt"

	"github.com/google/uuid"
)

// ValidateThreadID accepts only the canonical 8-4-4-4-12 form of an RFC 4122
// UUID with version 1 to 5. uuid.Parse alone would also take the braced and
// urn: forms, which never appear in chat URLs.
func ValidateThreadID(id string) error {
	if len(id) != 36 {
		return fmt.Errorf("%w: %q", ErrInvalidThreadID, id)
	}
	u, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidThreadID, id)
	}
	if u.Variant() != uuid.RFC4122 || u.Version() < 1 || u.Version() > 5 {
		return fmt.Errorf("%w: %q", ErrInvalidThreadID, id)
	}
	return nil
}
