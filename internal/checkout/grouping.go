package checkout

import (
	"github.com/google/uuid"

	"github.com/soundbay/soundbay-backend/pkg/db/models"
)

// Group is one beneficiary's partition of the cart. A nil SellerID marks the
// platform's own lines.
type Group struct {
	SellerID   *uuid.UUID
	Lines      []models.CartLine
	GrossCents int
}

// Partition splits cart lines by beneficiary seller. Platform lines come back
// as a single group (nil when absent); seller groups keep first-seen order so
// purchase-unit ordering is deterministic.
func Partition(lines []models.CartLine) (platform *Group, sellers []Group) {
	index := make(map[uuid.UUID]int)
	for _, line := range lines {
		if line.SellerID == nil {
			if platform == nil {
				platform = &Group{}
			}
			platform.Lines = append(platform.Lines, line)
			platform.GrossCents += line.UnitPriceCents
			continue
		}

		sellerID := *line.SellerID
		i, ok := index[sellerID]
		if !ok {
			i = len(sellers)
			index[sellerID] = i
			id := sellerID
			sellers = append(sellers, Group{SellerID: &id})
		}
		sellers[i].Lines = append(sellers[i].Lines, line)
		sellers[i].GrossCents += line.UnitPriceCents
	}
	return platform, sellers
}
