package container

import (
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ── Event broker ──────────────────────────────────────────────────────────────

// NotifyEvent dispatches event to every wired listener instance in wiring
// order, passing args through. Listener bindings that declare the event but
// have no wired instance yet are loaded first. Listeners without a handler
// for the event are skipped.
//
// A failing listener does not stop dispatch; all listener errors are
// combined into the returned error.
//
//	c.NotifyEvent("Initialize", 1, 2, 3)
func (c *Container) NotifyEvent(event string, args ...any) error {
	if err := c.activateListeners(event); err != nil {
		return err
	}

	c.mu.RLock()
	targets := append([]listener(nil), c.listeners[event]...)
	c.mu.RUnlock()

	var errs error
	for _, l := range targets {
		if l.handler == nil {
			continue
		}
		if err := l.handler(l.instance, args...); err != nil {
			c.logger.Warn("event listener failed",
				zap.String("event", event),
				zap.String("service", l.service),
				zap.Error(err),
			)
			errs = multierr.Append(errs, NewServiceError(l.service, "notify "+event, err))
		}
	}
	return errs
}

// Listeners returns the number of wired listener instances for event.
func (c *Container) Listeners(event string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.listeners[event])
}

// notifier builds the function assigned to a source's "_notify<event>" slot.
func (c *Container) notifier(event string) Notifier {
	return func(args ...any) error {
		return c.NotifyEvent(event, args...)
	}
}

// activateListeners loads, in registration order, each listener binding of
// event that has no wired instance.
func (c *Container) activateListeners(event string) error {
	for _, name := range c.registry.Names() {
		b, ok := c.registry.Lookup(name)
		if !ok || !b.listens(event) || c.wired(event, name) {
			continue
		}
		if _, err := c.Load(name); err != nil {
			return err
		}
	}
	return nil
}

func (c *Container) wired(event, service string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, l := range c.listeners[event] {
		if l.service == service {
			return true
		}
	}
	return false
}
