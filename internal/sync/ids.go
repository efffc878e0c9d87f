package sync

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/EMMADEKO10/restaurant-sub000/internal/models"
)

// offlinePrefix marks ids minted locally before the backing create has
// reached the server.
const offlinePrefix = "offline_"

// OfflineID mints a local id for a record created while the server id is not
// yet known. Order ids carry their own marker so they stay recognizable in
// logs and support tooling.
func OfflineID(collection models.Collection) string {
	rand := strings.SplitN(uuid.New().String(), "-", 2)[0]
	switch collection {
	case models.CollectionOrders:
		return fmt.Sprintf("offline_order_%d_%s", time.Now().UnixMilli(), rand)
	default:
		return fmt.Sprintf("offline_%d_%s", time.Now().UnixMilli(), rand)
	}
}

// IsOfflineID reports whether an id was minted locally and still awaits
// migration to a server-assigned id.
func IsOfflineID(id string) bool {
	return strings.HasPrefix(id, offlinePrefix)
}
