// internal/allocation/allocation.go

// Package allocation computes the deterministic single-topic-per-participant
// assignment for a set of capacity-limited topics and point bids.
package allocation

import (
	"sort"

	"github.com/sirupsen/logrus"
)

// maxResolutionPasses bounds the fixed-point loop against pathological
// inputs. Reaching it is abnormal but not fatal: the engine logs and returns
// the best state reached.
const maxResolutionPasses = 1000

// Topic is one allocatable item with a limited number of seats.
type Topic struct {
	ID       string
	Capacity int
}

// Bid is one participant's point commitment toward one topic. Amounts of
// zero or below never produce a candidate.
type Bid struct {
	ParticipantID string
	TopicID       string
	Amount        int
	PlacedAt      int64
}

// Result holds the final winner set per topic and the inverse mapping from
// participant to their single assigned topic. Winner slices are sorted by
// participant id for stable output.
type Result struct {
	WinnersByTopic     map[string][]string `json:"winnersByTopic"`
	AssignmentByPlayer map[string]string   `json:"assignmentByPlayer"`
}

type candidate struct {
	participantID string
	amount        int
	placedAt      int64
}

// ComputeWinners is a pure function of topics and bids: no side effects,
// deterministic, terminating.
//
// Each topic ranks its positive bids by amount (high first), then placement
// time (early first), then participant id. The top capacity candidates are
// seated tentatively; participants seated in several topics keep only their
// best seat (highest amount, then earliest placement, then smallest topic
// id) and freed seats are refilled by walking each topic's ranking onward —
// a candidate passed over is never reconsidered for that topic. The
// drop/refill loop runs to a fixed point.
func ComputeWinners(topics []Topic, bids []Bid) Result {
	known := make(map[string]bool, len(topics))
	for _, t := range topics {
		known[t.ID] = true
	}

	// Ranked candidate list per topic, positive bids only.
	ranked := make(map[string][]candidate, len(topics))
	byHolder := make(map[string]map[string]candidate) // participant -> topic -> bid
	for _, b := range bids {
		if b.Amount <= 0 || !known[b.TopicID] {
			continue
		}
		c := candidate{participantID: b.ParticipantID, amount: b.Amount, placedAt: b.PlacedAt}
		ranked[b.TopicID] = append(ranked[b.TopicID], c)
		if byHolder[b.ParticipantID] == nil {
			byHolder[b.ParticipantID] = make(map[string]candidate)
		}
		byHolder[b.ParticipantID][b.TopicID] = c
	}
	for topicID := range ranked {
		list := ranked[topicID]
		sort.Slice(list, func(i, j int) bool {
			a, b := list[i], list[j]
			if a.amount != b.amount {
				return a.amount > b.amount
			}
			if a.placedAt != b.placedAt {
				return a.placedAt < b.placedAt
			}
			return a.participantID < b.participantID
		})
	}

	seated := make(map[string]map[string]bool, len(topics)) // topic -> winners
	holding := make(map[string][]string)                    // participant -> topics held
	cursor := make(map[string]int, len(topics))

	seat := func(topicID, pid string) {
		if seated[topicID] == nil {
			seated[topicID] = make(map[string]bool)
		}
		seated[topicID][pid] = true
		holding[pid] = append(holding[pid], topicID)
	}
	unseat := func(topicID, pid string) {
		delete(seated[topicID], pid)
		held := holding[pid]
		for i, id := range held {
			if id == topicID {
				holding[pid] = append(held[:i], held[i+1:]...)
				break
			}
		}
	}

	// Tentative assignment: each topic independently takes its top
	// candidates up to capacity.
	for _, t := range topics {
		list := ranked[t.ID]
		n := t.Capacity
		if n > len(list) {
			n = len(list)
		}
		for i := 0; i < n; i++ {
			seat(t.ID, list[i].participantID)
		}
		cursor[t.ID] = n
	}

	converged := false
	for pass := 0; pass < maxResolutionPasses; pass++ {
		changed := false

		// Every multi-winner keeps only their best topic.
		conflicted := make([]string, 0)
		for pid, held := range holding {
			if len(held) > 1 {
				conflicted = append(conflicted, pid)
			}
		}
		sort.Strings(conflicted)
		for _, pid := range conflicted {
			best := bestHeldTopic(byHolder[pid], holding[pid])
			for _, topicID := range append([]string(nil), holding[pid]...) {
				if topicID != best {
					unseat(topicID, pid)
					changed = true
				}
			}
		}

		// Refill vacancies, continuing each topic's walk where it stopped.
		for _, t := range topics {
			list := ranked[t.ID]
			for len(seated[t.ID]) < t.Capacity && cursor[t.ID] < len(list) {
				c := list[cursor[t.ID]]
				cursor[t.ID]++
				if len(holding[c.participantID]) == 0 && !seated[t.ID][c.participantID] {
					seat(t.ID, c.participantID)
					changed = true
				}
			}
		}

		if !changed {
			converged = true
			break
		}
	}
	if !converged {
		logrus.Warnf("allocation: resolution pass ceiling (%d) reached, returning best state", maxResolutionPasses)
	}

	res := Result{
		WinnersByTopic:     make(map[string][]string, len(topics)),
		AssignmentByPlayer: make(map[string]string),
	}
	for _, t := range topics {
		winners := make([]string, 0, len(seated[t.ID]))
		for pid := range seated[t.ID] {
			winners = append(winners, pid)
			res.AssignmentByPlayer[pid] = t.ID
		}
		sort.Strings(winners)
		res.WinnersByTopic[t.ID] = winners
	}
	return res
}

// bestHeldTopic picks the topic a multi-winner keeps: highest bid amount,
// then earliest placement, then smallest topic id.
func bestHeldTopic(bids map[string]candidate, held []string) string {
	best := ""
	for _, topicID := range held {
		if best == "" {
			best = topicID
			continue
		}
		a, b := bids[topicID], bids[best]
		switch {
		case a.amount != b.amount:
			if a.amount > b.amount {
				best = topicID
			}
		case a.placedAt != b.placedAt:
			if a.placedAt < b.placedAt {
				best = topicID
			}
		case topicID < best:
			best = topicID
		}
	}
	return best
}
