package itemmodel

// Notifier fans notifications out to subscribed observers. Stores embed it.
// Like the stores themselves it is owned by one goroutine.
type Notifier struct {
	observers []Observer
}

// Subscribe adds o and returns a function that removes it.
func (n *Notifier) Subscribe(o Observer) func() {
	n.observers = append(n.observers, o)
	return func() {
		for i, existing := range n.observers {
			if existing == o {
				n.observers = append(n.observers[:i], n.observers[i+1:]...)
				return
			}
		}
	}
}

// Insert brackets mutate with insertion notifications for rows first..last.
func (n *Notifier) Insert(parent Index, first, last int, mutate func()) {
	for _, o := range n.observers {
		o.RowsAboutToBeInserted(parent, first, last)
	}
	mutate()
	for _, o := range n.observers {
		o.RowsInserted(parent, first, last)
	}
}

// Remove brackets mutate with removal notifications for rows first..last.
// An empty range (last < first) runs mutate without notifying.
func (n *Notifier) Remove(parent Index, first, last int, mutate func()) {
	if last < first {
		mutate()
		return
	}
	for _, o := range n.observers {
		o.RowsAboutToBeRemoved(parent, first, last)
	}
	mutate()
	for _, o := range n.observers {
		o.RowsRemoved(parent, first, last)
	}
}

// Changed reports an in-place update of the cells between topLeft and
// bottomRight.
func (n *Notifier) Changed(topLeft, bottomRight Index) {
	for _, o := range n.observers {
		o.DataChanged(topLeft, bottomRight)
	}
}
