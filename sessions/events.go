package sessions

import "time"

// Event reports a state transition or a credential renewal. Reason is set on
// forced transitions, e.g. ErrRefreshFailure.
//
// Seq increases by one per change, in the order the changes were applied.
// Events from different goroutines may reach subscribers out of that order;
// a subscriber that keeps the last state seen should ignore an event whose
// Seq is lower than one it already handled. State() is always current.
type Event struct {
	Seq      uint64
	Previous State
	Current  State
	Reason   error
	At       time.Time
}

// Forced reports whether the transition was imposed rather than requested.
func (e Event) Forced() bool {
	return e.Reason != nil
}

type subscription struct {
	id int
	fn func(Event)
}

// Subscribe registers fn for every event. Events are delivered synchronously,
// in subscription order, after the manager has released its lock, so fn may
// call back into the manager. The returned func removes the subscription.
func (m *Manager) Subscribe(fn func(Event)) func() {
	m.subsLock.Lock()
	defer m.subsLock.Unlock()

	m.nextSubID++
	id := m.nextSubID
	m.subs = append(m.subs, subscription{id: id, fn: fn})

	var once bool
	return func() {
		m.subsLock.Lock()
		defer m.subsLock.Unlock()
		if once {
			return
		}
		once = true
		for i, s := range m.subs {
			if s.id == id {
				m.subs = append(m.subs[:i:i], m.subs[i+1:]...)
				return
			}
		}
	}
}

func (m *Manager) emit(ev Event) {
	m.subsLock.Lock()
	subs := make([]subscription, len(m.subs))
	copy(subs, m.subs)
	m.subsLock.Unlock()

	for _, s := range subs {
		s.fn(ev)
	}
}
