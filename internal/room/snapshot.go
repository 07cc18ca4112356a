// internal/room/snapshot.go
package room

// Snapshot is the public view of a room broadcast with room_update and
// joined events. Participants are listed in join order. Bids are always
// included in full regardless of RevealBids; the flag is a display hint for
// the presentation layer, not a server-side redaction switch.
type Snapshot struct {
	Code         string                    `json:"id"`
	HostID       string                    `json:"hostId"`
	Config       Config                    `json:"config"`
	Locked       bool                      `json:"locked"`
	Topics       []Topic                   `json:"topics"`
	Participants []Participant             `json:"participants"`
	Bids         map[string]map[string]Bid `json:"bids"`
}

// snapshotUnsafe builds the public snapshot. Assumes the room lock is held.
func (r *Room) snapshotUnsafe() *Snapshot {
	snap := &Snapshot{
		Code:         r.Code,
		HostID:       r.HostID,
		Config:       r.Config,
		Locked:       r.Locked,
		Topics:       make([]Topic, len(r.Topics)),
		Participants: make([]Participant, 0, len(r.joinOrder)),
		Bids:         make(map[string]map[string]Bid, len(r.Bids)),
	}
	copy(snap.Topics, r.Topics)
	for _, id := range r.joinOrder {
		if p, ok := r.Participants[id]; ok {
			snap.Participants = append(snap.Participants, *p)
		}
	}
	for pid, bids := range r.Bids {
		if len(bids) == 0 {
			continue
		}
		view := make(map[string]Bid, len(bids))
		for topicID, b := range bids {
			view[topicID] = *b
		}
		snap.Bids[pid] = view
	}
	return snap
}
