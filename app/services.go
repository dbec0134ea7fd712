// Package app holds the demo application's services: a reporter that reads
// through a cache and mails its reports, with an audit log listening for
// sent mail.
package app

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/km-arc/go-ioc/framework/container"
)

// Clock tells the time.
type Clock struct{ container.Slots }

func NewClock() any { return &Clock{} }

func (c *Clock) Now() time.Time { return time.Now() }

// Store is an in-memory key value store.
type Store struct {
	container.Slots

	mu   sync.Mutex
	data map[string]string
}

func NewStore() any { return &Store{data: make(map[string]string)} }

func (s *Store) Put(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

func (s *Store) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

// Cache fronts the store, keeping entries for the "ttl" parameter.
type Cache struct {
	Store *Store        `ioc:"store"`
	Clock *Clock        `ioc:"clock"`
	TTL   time.Duration `ioc:"ttl"`

	mu      sync.Mutex
	entries map[string]cached
}

type cached struct {
	value   string
	expires time.Time
}

func NewCache() any { return &Cache{entries: make(map[string]cached)} }

func (c *Cache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.Clock.Now()
	if e, ok := c.entries[key]; ok && now.Before(e.expires) {
		return e.value, true
	}
	v, ok := c.Store.Get(key)
	if ok {
		c.entries[key] = cached{value: v, expires: now.Add(c.TTL)}
	}
	return v, ok
}

// Mailer sends mail and raises MailSent.
type Mailer struct{ container.Slots }

func NewMailer() any { return &Mailer{} }

func (m *Mailer) Addr() string {
	return fmt.Sprintf("%s:%d", m.String("host"), m.Int("port"))
}

func (m *Mailer) Send(to, body string) error {
	return m.Notify("MailSent", to, body)
}

// AuditLog records every MailSent event.
type AuditLog struct {
	container.Slots

	mu      sync.Mutex
	entries []string
}

func NewAuditLog() any { return &AuditLog{} }

func (a *AuditLog) OnMailSent(args ...any) error {
	if len(args) != 2 {
		return fmt.Errorf("MailSent: want recipient and body, got %d values", len(args))
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, fmt.Sprintf("mail to %v", args[0]))
	return nil
}

func (a *AuditLog) Entries() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.entries...)
}

// Reporter mails the cached value of a key.
type Reporter struct {
	Cache  *Cache  `ioc:"cache"`
	Mailer *Mailer `ioc:"mailer"`
}

func NewReporter() any { return &Reporter{} }

func (r *Reporter) Report(key, to string) error {
	v, ok := r.Cache.Get(key)
	if !ok {
		return fmt.Errorf("report %q: no such key", key)
	}
	return r.Mailer.Send(to, strings.TrimSpace(v))
}
