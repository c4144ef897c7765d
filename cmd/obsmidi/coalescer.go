package main

// ControlEvent is a single control-change received from the surface.
type ControlEvent struct {
	Control uint8 `json:"control"`
	Value   uint8 `json:"value"`
}

// PendingQueue holds at most one coalesced raw value per control, in the
// order each control first became pending within the current batch.
type PendingQueue struct {
	order  []uint8
	values map[uint8]int
}

func newPendingQueue() *PendingQueue {
	return &PendingQueue{values: make(map[uint8]int)}
}

// Coalesce folds one raw event into the queue.
//
//   - unknown controls are dropped
//   - buttons drop release events and keep the highest press value
//   - faders and toggles keep the latest value
func (q *PendingQueue) Coalesce(reg *Registry, ev ControlEvent) {
	c, ok := reg.Lookup(ev.Control)
	if !ok {
		return
	}
	v := int(ev.Value)

	if c.Kind == Button {
		if v == c.Min {
			return
		}
		// Absent entries count as 0
		v = max(q.values[ev.Control], v)
	}
	q.set(ev.Control, v)
}

func (q *PendingQueue) set(control uint8, v int) {
	if _, ok := q.values[control]; !ok {
		q.order = append(q.order, control)
	}
	q.values[control] = v
}

// Get returns the pending value for control.
func (q *PendingQueue) Get(control uint8) (int, bool) {
	v, ok := q.values[control]
	return v, ok
}

// Len returns the number of pending controls.
func (q *PendingQueue) Len() int {
	return len(q.order)
}

// each visits pending entries in insertion order.
func (q *PendingQueue) each(fn func(control uint8, value int)) {
	for _, c := range q.order {
		fn(c, q.values[c])
	}
}

// Clear empties the queue, keeping allocated capacity.
func (q *PendingQueue) Clear() {
	q.order = q.order[:0]
	clear(q.values)
}
