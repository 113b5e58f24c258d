package restoring

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/valkey-io/valkey-go"

	cache_utils "tenantbase-backend/internal/util/cache"
)

const payloadStashTTL = 1 * time.Hour

type stagedPayload struct {
	Data []byte `json:"data"`
}

// ValkeyPayloadStash keeps the decrypted dump in valkey between initiation
// and execution, with a TTL as the backstop. The payload never touches the
// metadata database.
type ValkeyPayloadStash struct {
	cache *cache_utils.CacheUtil[stagedPayload]
}

func NewValkeyPayloadStash(client valkey.Client, logger *slog.Logger) *ValkeyPayloadStash {
	return &ValkeyPayloadStash{
		cache: cache_utils.NewCacheUtil[stagedPayload](
			client,
			"restore_payload:",
			payloadStashTTL,
			logger,
		),
	}
}

func (s *ValkeyPayloadStash) Put(restoreID uuid.UUID, payload []byte) error {
	return s.cache.Set(restoreID.String(), &stagedPayload{Data: payload})
}

func (s *ValkeyPayloadStash) Take(restoreID uuid.UUID) []byte {
	staged := s.cache.GetAndDelete(restoreID.String())
	if staged == nil {
		return nil
	}

	return staged.Data
}
