package engine

// WatcherAction is what happens to an entity when one of its watchers fires.
type WatcherAction int

const (
	// ActionRemove deletes the entity at the end of the frame.
	ActionRemove WatcherAction = iota
	// ActionNone only runs the callback.
	ActionNone
)

// Watcher fires once after a number of frames or an amount of time,
// whichever is configured.
type Watcher struct {
	Frames   int
	Lifetime float32
	Action   WatcherAction
	Callback func(Entity)

	elapsed float32
	frames  int
}

// OneFrame removes its entity after the current frame.
func OneFrame() Watcher {
	return Watcher{Frames: 1, Action: ActionRemove}
}

// Disappearing removes its entity after lifetime seconds.
func Disappearing(lifetime float32) Watcher {
	return Watcher{Lifetime: lifetime, Action: ActionRemove}
}

// Tick advances the watcher by one frame of dt seconds and reports whether it fired.
func (w *Watcher) Tick(dt float32) bool {
	w.frames++
	w.elapsed += dt

	if w.Frames > 0 && w.frames >= w.Frames {
		return true
	}
	return w.Lifetime > 0 && w.elapsed >= w.Lifetime
}

// Watchers is the per-entity list of pending watchers.
type Watchers struct {
	List []Watcher
}

// Update ticks every watcher, drops the ones that fired and returns them.
func (ws *Watchers) Update(dt float32) []Watcher {
	var fired []Watcher
	kept := ws.List[:0]
	for _, w := range ws.List {
		if w.Tick(dt) {
			fired = append(fired, w)
		} else {
			kept = append(kept, w)
		}
	}
	ws.List = kept
	return fired
}
