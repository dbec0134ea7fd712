package app

import (
	"time"

	"github.com/spf13/cast"

	"github.com/km-arc/go-ioc/framework/container"
)

// ServiceProvider binds the demo services and their default parameters.
type ServiceProvider struct {
	container.BaseProvider
}

func (p *ServiceProvider) Register(c *container.Container) error {
	bindings := []container.Binding{
		{Name: "clock", Service: NewClock, Singleton: true},
		{Name: "store", Service: NewStore, Requires: []string{"clock"}, Singleton: true},
		{
			Name:       "cache",
			Service:    NewCache,
			Requires:   []string{"store", "clock"},
			Parameters: []container.Parameter{{Name: "ttl", Validator: isDuration}},
			Singleton:  true,
		},
		{
			Name:    "mailer",
			Service: NewMailer,
			Parameters: []container.Parameter{
				{Name: "host", Rules: "required|string"},
				{Name: "port", Rules: "required|integer|between:1,65535"},
			},
			EventSource: []string{"MailSent"},
			Singleton:   true,
		},
		{
			Name:          "audit",
			Service:       NewAuditLog,
			EventListener: []string{"MailSent"},
			On: map[string]container.Handler{
				"MailSent": container.HandlerFor((*AuditLog).OnMailSent),
			},
			Singleton: true,
		},
		{Name: "reporter", Service: NewReporter, Requires: []string{"cache", "mailer"}},
	}
	for _, b := range bindings {
		if err := c.Register(b); err != nil {
			return err
		}
	}

	defaults := []struct {
		service, param string
		value          any
	}{
		{"cache", "ttl", time.Minute},
		{"mailer", "host", "localhost"},
		{"mailer", "port", 25},
	}
	for _, d := range defaults {
		if err := c.ConfigureParameter(d.service, d.param, d.value); err != nil {
			return err
		}
	}
	return nil
}

// Boot seeds the store.
func (p *ServiceProvider) Boot(c *container.Container) error {
	store, err := container.Resolve[*Store](c, "store")
	if err != nil {
		return err
	}
	store.Put("status", "all systems nominal")
	return nil
}

func isDuration(v any) bool {
	_, err := cast.ToDurationE(v)
	return err == nil
}
