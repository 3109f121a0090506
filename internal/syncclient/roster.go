package syncclient

import (
	"sort"
	"time"

	"livechat-backend/internal/dto"
)

const (
	// RosterEvictionWindow is the console-side liveness horizon. A row
	// whose last_seen_ts falls behind it disappears from the list.
	RosterEvictionWindow = 130 * time.Second

	// FullResyncEvery forces a full roster fetch on every Nth poll so
	// incremental-merge drift cannot accumulate.
	FullResyncEvery = 5
)

// Roster is the console's merged view of live visitors. Incremental
// responses are keyed off the previous response's server_ts; entries are
// replaced only by newer data and evicted locally by the 130s window.
type Roster struct {
	entries      map[string]dto.RosterVisitor
	lastServerTS int64
	polls        int

	// Selected is the visitor whose conversation is open in the console.
	// Eviction clears it so the transcript pane does not dangle.
	Selected string
}

func NewRoster() *Roster {
	return &Roster{entries: make(map[string]dto.RosterVisitor)}
}

// SinceParam returns the since value for the next poll: zero (full
// resync) on the first poll and every FullResyncEvery-th one, otherwise
// the server_ts of the previous response.
func (r *Roster) SinceParam() int64 {
	if r.polls%FullResyncEvery == 0 {
		return 0
	}
	return r.lastServerTS
}

// Apply merges one poll response. Returns the visitor ids dropped, either
// by the liveness window or by a full resync that no longer carries them.
func (r *Roster) Apply(resp dto.VisitorsResponse, now time.Time) []string {
	r.polls++
	r.lastServerTS = resp.ServerTS

	var evicted []string

	if resp.FullSync {
		r.entries = make(map[string]dto.RosterVisitor, len(resp.Visitors))
		for _, visitor := range resp.Visitors {
			r.entries[visitor.VisitorID] = visitor
		}
		// The authoritative list replaces everything; a selection it no
		// longer carries is gone.
		if r.Selected != "" {
			if _, ok := r.entries[r.Selected]; !ok {
				evicted = append(evicted, r.Selected)
				r.Selected = ""
			}
		}
	} else {
		for _, visitor := range resp.Visitors {
			existing, ok := r.entries[visitor.VisitorID]
			if ok && existing.LastSeenTS > visitor.LastSeenTS {
				continue
			}
			r.entries[visitor.VisitorID] = visitor
		}
	}

	cutoff := now.Add(-RosterEvictionWindow).Unix()
	for visitorID, visitor := range r.entries {
		if visitor.LastSeenTS < cutoff {
			delete(r.entries, visitorID)
			evicted = append(evicted, visitorID)
			if r.Selected == visitorID {
				r.Selected = ""
			}
		}
	}

	return evicted
}

// Sorted returns the roster newest activity first.
func (r *Roster) Sorted() []dto.RosterVisitor {
	visitors := make([]dto.RosterVisitor, 0, len(r.entries))
	for _, visitor := range r.entries {
		visitors = append(visitors, visitor)
	}
	sort.Slice(visitors, func(i, j int) bool {
		return visitors[i].LastSeenTS > visitors[j].LastSeenTS
	})
	return visitors
}

func (r *Roster) Len() int {
	return len(r.entries)
}
