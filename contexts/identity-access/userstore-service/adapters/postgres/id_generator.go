package postgresadapter

import (
	"context"

	"github.com/google/uuid"
)

// UUIDGenerator implements ports.IDGenerator with UUID v4 values. User and
// group ids are stored in UM_USER_ID and UM_ROLE_ID.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
