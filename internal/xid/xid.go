package xid

import (
	"fmt"

	"github.com/google/uuid"
)

// New returns a prefixed random identifier, e.g. "sale-3f0c...".
func New(prefix string) string {
	id, err := uuid.NewRandom()
	if err != nil {
		return fmt.Sprintf("%s-%s", prefix, uuid.Nil.String())
	}
	return fmt.Sprintf("%s-%s", prefix, id.String())
}
