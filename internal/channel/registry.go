package channel

import (
	"errors"
	"log/slog"
	"reflect"
	"unsafe"
	"weak"
)

var (
	errObserverNotPointer = errors.New("observer must be a non-nil pointer")
	errObserverZeroSize   = errors.New("observer must point to a value with non-zero size")
)

// observerSlot holds an observer weakly; ref keeps its identity after the
// observer is collected, typ rebuilds the interface value from it.
type observerSlot struct {
	ref  weak.Pointer[byte]
	typ  reflect.Type
	live bool
}

// observer returns the registered observer, or nil once it has been collected
func (s observerSlot) observer() Observer {
	p := s.ref.Value()
	if p == nil {
		return nil
	}
	return reflect.NewAt(s.typ.Elem(), unsafe.Pointer(p)).Interface().(Observer)
}

func (s observerSlot) is(ref weak.Pointer[byte], typ reflect.Type) bool {
	return s.live && s.ref == ref && s.typ == typ
}

// weakObserver takes a weak reference to o. Only pointer observers have an
// identity the garbage collector can track.
func weakObserver(o Observer) (weak.Pointer[byte], reflect.Type, error) {
	v := reflect.ValueOf(o)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return weak.Pointer[byte]{}, nil, errObserverNotPointer
	}
	if v.Type().Elem().Size() == 0 {
		return weak.Pointer[byte]{}, nil, errObserverZeroSize
	}
	return weak.Make((*byte)(v.UnsafePointer())), v.Type(), nil
}

// observerRegistry keeps observers in registration order. It is owned by the
// notification executor and never touched from anywhere else.
//
// Observers are held weakly: the registering code owns them, and an observer
// that is garbage collected silently drops out. Removal and collection only
// mark a slot dead; dead slots are skipped by notify and purged after the next
// full iteration, so iteration never sees the slice shift.
type observerRegistry struct {
	slots []observerSlot
	dead  int
}

func newObserverRegistry() *observerRegistry {
	return &observerRegistry{}
}

// add registers o once; adding an already registered observer is a no-op
func (r *observerRegistry) add(o Observer) bool {
	if o == nil {
		slog.Warn("attempted to add nil observer")
		return false
	}
	ref, typ, err := weakObserver(o)
	if err != nil {
		slog.Error("cannot register observer by identity",
			"type", reflect.TypeOf(o).String(),
			"error", err)
		return false
	}

	if r.indexOf(ref, typ) >= 0 {
		slog.Debug("observer already registered", "type", typ.String())
		return false
	}

	r.slots = append(r.slots, observerSlot{ref: ref, typ: typ, live: true})
	slog.Debug("observer registered", "type", typ.String(), "observers", r.len())
	return true
}

// remove unregisters o; unknown observers are ignored
func (r *observerRegistry) remove(o Observer) bool {
	if o == nil {
		return false
	}
	ref, typ, err := weakObserver(o)
	if err != nil {
		return false
	}

	i := r.indexOf(ref, typ)
	if i < 0 {
		slog.Debug("attempted to remove unregistered observer", "type", typ.String())
		return false
	}

	r.kill(i)
	slog.Debug("observer removed", "type", typ.String(), "observers", r.len())
	return true
}

func (r *observerRegistry) indexOf(ref weak.Pointer[byte], typ reflect.Type) int {
	for i, slot := range r.slots {
		if slot.is(ref, typ) {
			return i
		}
	}
	return -1
}

func (r *observerRegistry) kill(i int) {
	r.slots[i].live = false
	r.slots[i].ref = weak.Pointer[byte]{}
	r.dead++
}

// notify delivers e to every live observer in registration order. Slots whose
// observer has been collected are dropped.
func (r *observerRegistry) notify(e Event) {
	for i := 0; i < len(r.slots); i++ {
		slot := r.slots[i]
		if !slot.live {
			continue
		}
		o := slot.observer()
		if o == nil {
			slog.Debug("observer collected, dropping", "type", slot.typ.String())
			r.kill(i)
			continue
		}
		r.deliver(o, e)
	}
	r.purge()
}

// deliver isolates observers from each other's panics
func (r *observerRegistry) deliver(o Observer, e Event) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error("observer panicked during delivery",
				"event", e.Kind,
				"source_id", e.Source,
				"observer", reflect.TypeOf(o).String(),
				"panic", p)
		}
	}()
	e.Deliver(o)
}

func (r *observerRegistry) purge() {
	if r.dead == 0 {
		return
	}

	live := r.slots[:0]
	for _, slot := range r.slots {
		if slot.live {
			live = append(live, slot)
		}
	}
	for i := len(live); i < len(r.slots); i++ {
		r.slots[i] = observerSlot{}
	}
	r.slots = live
	r.dead = 0
}

func (r *observerRegistry) len() int {
	return len(r.slots) - r.dead
}

func (r *observerRegistry) clear() {
	r.slots = nil
	r.dead = 0
}
