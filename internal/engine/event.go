package engine

// ListenerID identifies a subscription so it can be removed later.
type ListenerID int

// Event is a multi-cast event carrying one argument. Listeners run in
// subscription order.
type Event[T any] struct {
	listeners []listener[T]
	next      ListenerID
}

type listener[T any] struct {
	id ListenerID
	fn func(T)
}

// AddListener subscribes callback and returns its id. A nil callback is ignored.
func (e *Event[T]) AddListener(callback func(T)) ListenerID {
	if callback == nil {
		return 0
	}
	e.next++
	e.listeners = append(e.listeners, listener[T]{id: e.next, fn: callback})
	return e.next
}

func (e *Event[T]) RemoveListener(id ListenerID) bool {
	for i, l := range e.listeners {
		if l.id == id {
			e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
			return true
		}
	}
	return false
}

func (e *Event[T]) RemoveAllListeners() {
	e.listeners = nil
}

func (e *Event[T]) Invoke(arg T) {
	for _, l := range e.listeners {
		l.fn(arg)
	}
}

func (e *Event[T]) ListenerCount() int {
	return len(e.listeners)
}
