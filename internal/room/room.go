// internal/room/room.go
package room

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/bidroom/bidroom/internal/allocation"
)

// Room is the authoritative in-memory state of one auction session. All
// mutations go through the lock-acquiring methods below, so events for one
// room serialize while independent rooms proceed in parallel.
type Room struct {
	Code   string
	HostID string
	Config Config
	Locked bool
	Topics []Topic

	Participants map[string]*Participant
	// joinOrder keeps participant insertion order so that host handoff and
	// broadcast fan-out are deterministic.
	joinOrder []string

	// Bids maps participant id -> topic id -> bid.
	Bids map[string]map[string]*Bid

	Mu sync.Mutex

	// SendFn delivers events to a participant's connection. Assigned by the
	// store at creation; never nil afterwards.
	SendFn SendFunc

	// OnEmpty is invoked after the last participant leaves, typically wired
	// by the store to remove the room.
	OnEmpty func(code string)
}

// NewRoom builds an unlocked room with default config and no members.
func NewRoom(code string) *Room {
	return &Room{
		Code: code,
		Config: Config{
			Budget:             DefaultBudget,
			RevealBids:         true,
			AllowJoinAfterLock: true,
		},
		Topics:       []Topic{},
		Participants: make(map[string]*Participant),
		Bids:         make(map[string]map[string]*Bid),
	}
}

// Join adds (or re-adds) a participant. The first joiner becomes host. A
// rejoin refreshes the display name and keeps any existing bid map. Returns
// ErrRoomLocked when the room is locked and late joins are disallowed.
func (r *Room) Join(participantID, name string) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.Locked && !r.Config.AllowJoinAfterLock {
		return ErrRoomLocked
	}

	name = normalizePlayerName(name)
	if p, ok := r.Participants[participantID]; ok {
		p.Name = name
	} else {
		r.Participants[participantID] = &Participant{ID: participantID, Name: name}
		r.joinOrder = append(r.joinOrder, participantID)
	}
	if r.HostID == "" {
		r.HostID = participantID
	}
	// Ensure a bid map exists without clearing one left from a prior join.
	if r.Bids[participantID] == nil {
		r.Bids[participantID] = make(map[string]*Bid)
	}
	r.recomputeSpentUnsafe(participantID)

	snap := r.snapshotUnsafe()
	r.SendFn(participantID, Event{Type: EventJoined, ParticipantID: participantID, Room: snap})
	r.broadcastUnsafe(Event{Type: EventRoomUpdate, Room: snap})
	return nil
}

// SetConfig applies a partial config change. Host-only; issuers that are
// not the host are silently ignored. A budget decrease can invalidate
// standing bids, so every participant is re-clamped afterwards.
func (r *Room) SetConfig(issuerID string, upd ConfigUpdate) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if !r.isHostUnsafe(issuerID) {
		logrus.Debugf("room %s: ignoring set_config from non-host %s", r.Code, issuerID)
		return
	}

	if upd.Budget != nil {
		r.Config.Budget = clampInt(*upd.Budget, MinBudget, MaxBudget)
	}
	if upd.RevealBids != nil {
		r.Config.RevealBids = *upd.RevealBids
	}
	if upd.AllowJoinAfterLock != nil {
		r.Config.AllowJoinAfterLock = *upd.AllowJoinAfterLock
	}

	for _, pid := range r.joinOrder {
		r.clampBudgetUnsafe(pid)
	}
	r.broadcastUnsafe(Event{Type: EventRoomUpdate, Room: r.snapshotUnsafe()})
}

// SetTopics wholesale-replaces the topic list. Host-only. Entries beyond the
// topic limit are dropped; entries without an id get a fresh one. Bids that
// reference a topic no longer present are pruned and every participant is
// re-clamped.
func (r *Room) SetTopics(issuerID string, inputs []TopicInput) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if !r.isHostUnsafe(issuerID) {
		logrus.Debugf("room %s: ignoring set_topics from non-host %s", r.Code, issuerID)
		return
	}

	if len(inputs) > MaxTopics {
		inputs = inputs[:MaxTopics]
	}
	topics := make([]Topic, 0, len(inputs))
	for _, in := range inputs {
		id := in.ID
		if id == "" {
			id = newTopicID()
		}
		capacity := MinCapacity
		if in.Capacity != nil {
			capacity = clampInt(*in.Capacity, MinCapacity, MaxCapacity)
		}
		topics = append(topics, Topic{
			ID:       id,
			Name:     normalizeTopicName(in.Name),
			Capacity: capacity,
		})
	}
	r.Topics = topics

	known := make(map[string]bool, len(topics))
	for _, t := range topics {
		known[t.ID] = true
	}
	for pid, bids := range r.Bids {
		for topicID := range bids {
			if !known[topicID] {
				delete(bids, topicID)
			}
		}
		r.recomputeSpentUnsafe(pid)
	}
	for _, pid := range r.joinOrder {
		r.clampBudgetUnsafe(pid)
	}
	r.broadcastUnsafe(Event{Type: EventRoomUpdate, Room: r.snapshotUnsafe()})
}

// SetLocked flips the room lock. Host-only. Existing bids are untouched.
func (r *Room) SetLocked(issuerID string, locked bool) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if !r.isHostUnsafe(issuerID) {
		logrus.Debugf("room %s: ignoring lock change from non-host %s", r.Code, issuerID)
		return
	}
	r.Locked = locked
	r.broadcastUnsafe(Event{Type: EventRoomUpdate, Room: r.snapshotUnsafe()})
}

// PlaceBid writes the issuer's bid for a topic with a fresh timestamp, then
// clamps the issuer's total spend to the budget. Rejected without
// notification when the room is locked, the topic is unknown, or the issuer
// is not in the room.
func (r *Room) PlaceBid(issuerID, topicID string, amount int) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if _, ok := r.Participants[issuerID]; !ok {
		return
	}
	if r.Locked {
		logrus.Debugf("room %s: bid from %s rejected, room locked", r.Code, issuerID)
		return
	}
	if !r.hasTopicUnsafe(topicID) {
		logrus.Debugf("room %s: bid from %s rejected, unknown topic %s", r.Code, issuerID, topicID)
		return
	}
	if amount < 0 {
		amount = 0
	}

	if r.Bids[issuerID] == nil {
		r.Bids[issuerID] = make(map[string]*Bid)
	}
	r.Bids[issuerID][topicID] = &Bid{Amount: amount, PlacedAt: nowMillis()}
	r.clampBudgetUnsafe(issuerID)
	r.broadcastUnsafe(Event{Type: EventRoomUpdate, Room: r.snapshotUnsafe()})
}

// ComputeWinners runs the allocation engine over the current topics and bids
// and broadcasts the result. Host-only. Purely read-then-broadcast: repeated
// invocations with no intervening mutation yield identical results.
func (r *Room) ComputeWinners(issuerID string) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if !r.isHostUnsafe(issuerID) {
		logrus.Debugf("room %s: ignoring compute_winners from non-host %s", r.Code, issuerID)
		return
	}

	topics := make([]allocation.Topic, 0, len(r.Topics))
	for _, t := range r.Topics {
		topics = append(topics, allocation.Topic{ID: t.ID, Capacity: t.Capacity})
	}
	bids := make([]allocation.Bid, 0)
	for pid, byTopic := range r.Bids {
		for topicID, b := range byTopic {
			bids = append(bids, allocation.Bid{
				ParticipantID: pid,
				TopicID:       topicID,
				Amount:        b.Amount,
				PlacedAt:      b.PlacedAt,
			})
		}
	}
	res := allocation.ComputeWinners(topics, bids)
	r.broadcastUnsafe(Event{
		Type:               EventWinners,
		WinnersByTopic:     res.WinnersByTopic,
		AssignmentByPlayer: res.AssignmentByPlayer,
	})
}

// Disconnect removes a participant and their bids. Host duty passes to the
// longest-standing remaining participant. When the room empties, OnEmpty
// fires and no further notification is sent.
func (r *Room) Disconnect(participantID string) {
	r.Mu.Lock()

	if _, ok := r.Participants[participantID]; !ok {
		r.Mu.Unlock()
		return
	}
	delete(r.Participants, participantID)
	delete(r.Bids, participantID)
	for i, id := range r.joinOrder {
		if id == participantID {
			r.joinOrder = append(r.joinOrder[:i], r.joinOrder[i+1:]...)
			break
		}
	}
	if r.HostID == participantID {
		if len(r.joinOrder) > 0 {
			r.HostID = r.joinOrder[0]
		} else {
			r.HostID = ""
		}
	}

	if len(r.Participants) == 0 {
		onEmpty := r.OnEmpty
		r.Mu.Unlock()
		if onEmpty != nil {
			onEmpty(r.Code)
		}
		return
	}
	r.broadcastUnsafe(Event{Type: EventRoomUpdate, Room: r.snapshotUnsafe()})
	r.Mu.Unlock()
}

// isHostUnsafe reports whether the issuer is the current host and still a
// member of the room. Assumes the lock is held.
func (r *Room) isHostUnsafe(issuerID string) bool {
	if issuerID == "" || issuerID != r.HostID {
		return false
	}
	_, ok := r.Participants[issuerID]
	return ok
}

func (r *Room) hasTopicUnsafe(topicID string) bool {
	for _, t := range r.Topics {
		if t.ID == topicID {
			return true
		}
	}
	return false
}

// recomputeSpentUnsafe refreshes the derived spend total. Assumes the lock
// is held.
func (r *Room) recomputeSpentUnsafe(participantID string) {
	p, ok := r.Participants[participantID]
	if !ok {
		return
	}
	total := 0
	for _, b := range r.Bids[participantID] {
		total += b.Amount
	}
	p.Spent = total
}

// broadcastUnsafe fans an event out to every participant in join order.
// Assumes the lock is held; SendFn must not block.
func (r *Room) broadcastUnsafe(ev Event) {
	for _, pid := range r.joinOrder {
		r.SendFn(pid, ev)
	}
}
