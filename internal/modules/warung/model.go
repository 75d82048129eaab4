// README: Warung (partner storefront) read model.
package warung

import (
	"errors"

	"gelis/internal/types"
)

var ErrNotFound = errors.New("warung not found")

// Warung is a read dependency only: dispatch scopes driver eligibility to its
// wilayah, and checkout refuses orders while it is closed.
type Warung struct {
	ID      types.ID
	OwnerID types.ID
	Name    string
	IsOpen  bool
	Wilayah string
}
