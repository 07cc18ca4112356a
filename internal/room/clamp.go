// internal/room/clamp.go
package room

import "sort"

// clampBudgetUnsafe reduces a participant's bids until their total spend
// fits the room budget, then recomputes the derived spend. Assumes the room
// lock is held.
//
// Overage is absorbed smallest-bid-first so the participant's largest
// commitments survive; among equal amounts the most recently placed bid is
// trimmed first, with topic id as the final deterministic key. Every bid
// timestamp is rewritten to the clamp instant. Idempotent: a set already
// within budget is left untouched.
func (r *Room) clampBudgetUnsafe(participantID string) {
	bids := r.Bids[participantID]
	total := 0
	for _, b := range bids {
		total += b.Amount
	}
	if total <= r.Config.Budget {
		r.recomputeSpentUnsafe(participantID)
		return
	}

	type entry struct {
		topicID string
		bid     *Bid
	}
	order := make([]entry, 0, len(bids))
	for topicID, b := range bids {
		order = append(order, entry{topicID, b})
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.bid.Amount != b.bid.Amount {
			return a.bid.Amount < b.bid.Amount
		}
		if a.bid.PlacedAt != b.bid.PlacedAt {
			return a.bid.PlacedAt > b.bid.PlacedAt
		}
		return a.topicID < b.topicID
	})

	overage := total - r.Config.Budget
	now := nowMillis()
	for _, e := range order {
		if e.bid.Amount == 0 {
			continue
		}
		if overage > 0 {
			cut := e.bid.Amount
			if cut > overage {
				cut = overage
			}
			e.bid.Amount -= cut
			overage -= cut
		}
	}
	for _, b := range bids {
		b.PlacedAt = now
	}
	r.recomputeSpentUnsafe(participantID)
}
