package repository

import (
	"context"

	"github.com/flocknet/flockd/internal/model"
)

// CathedralRepository lists the rendezvous relays advertised to clients.
// Rows are provisioned out of band; this core only reads them.
type CathedralRepository interface {
	// List returns all known cathedrals ordered by address.
	List(ctx context.Context) ([]model.Cathedral, error)
}
