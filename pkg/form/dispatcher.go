package form

import (
	"strings"
	"sync"

	"go.uber.org/zap"
)

// AnySelector matches every field.
const AnySelector = "*"

// EventContext is handed to listeners.
type EventContext struct {
	Event Event
	Field string
	Value any
}

// Handler reacts to a dispatched event.
type Handler func(EventContext)

type listenerKey struct {
	event    Event
	selector string
}

// Dispatcher is an explicit listener map keyed by event type and field
// selector. Listeners for a specific field run before AnySelector listeners,
// each group in registration order.
type Dispatcher struct {
	mu        sync.RWMutex
	listeners map[listenerKey][]Handler
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{listeners: make(map[listenerKey][]Handler)}
}

// On registers h for event on fields matching selector.
func (d *Dispatcher) On(event Event, selector string, h Handler) {
	if h == nil {
		return
	}
	selector = strings.TrimSpace(selector)
	if selector == "" {
		selector = AnySelector
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	key := listenerKey{event: event, selector: selector}
	d.listeners[key] = append(d.listeners[key], h)
}

// Off removes every listener for event and selector.
func (d *Dispatcher) Off(event Event, selector string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.listeners, listenerKey{event: event, selector: strings.TrimSpace(selector)})
}

// Dispatch invokes the matching listeners and returns how many ran.
// Handlers run without the dispatcher lock held.
func (d *Dispatcher) Dispatch(event Event, field string, value any) int {
	d.mu.RLock()
	var handlers []Handler
	if field != AnySelector {
		handlers = append(handlers, d.listeners[listenerKey{event: event, selector: field}]...)
	}
	handlers = append(handlers, d.listeners[listenerKey{event: event, selector: AnySelector}]...)
	d.mu.RUnlock()

	ctx := EventContext{Event: event, Field: field, Value: value}
	for _, h := range handlers {
		h(ctx)
	}
	return len(handlers)
}

// Bind wires the session to d: value events update field state and the
// submit event runs the gate. Outcomes of submit are delivered to onSubmit
// when it is non-nil.
func (s *Session) Bind(d *Dispatcher, onSubmit func(Outcome)) {
	for _, event := range []Event{EventInput, EventChange, EventFocusOut} {
		d.On(event, AnySelector, func(ctx EventContext) {
			if _, err := s.SetValue(ctx.Field, ctx.Value, ctx.Event); err != nil {
				s.cfg.logger.Warn("value event dropped",
					zap.String("event", string(ctx.Event)),
					zap.String("field", ctx.Field),
					zap.Error(err),
				)
			}
		})
	}
	d.On(EventSubmit, AnySelector, func(EventContext) {
		outcome := s.Submit()
		if onSubmit != nil {
			onSubmit(outcome)
		}
	})
}
