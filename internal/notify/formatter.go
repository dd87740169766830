package notify

import (
	"errors"
	"fmt"
	"sort"

	"commerce-backoffice/internal/domain"
)

// ErrNoFormatter is returned when no formatter is configured for an event.
var ErrNoFormatter = errors.New("no formatter configured")

// Email is the rendered content of a notification.
type Email struct {
	Subject     string
	HTML        string
	Text        string
	Attachments []Attachment
}

type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Formatter builds the email for one event.
type Formatter interface {
	Format(ev Event) (*Email, error)
}

type FormatterFunc func(ev Event) (*Email, error)

func (f FormatterFunc) Format(ev Event) (*Email, error) { return f(ev) }

type renderer interface {
	Render(name string, data any) (string, error)
}

// Registry resolves event kinds to formatters through a name table.
type Registry struct {
	available map[string]Formatter
	byKind    map[Kind]Formatter
}

// NewRegistry wires the built-in formatters. mapping overrides the default
// "kind -> formatter of the same name" assignment; an empty name disables
// the event.
func NewRegistry(r renderer, mapping map[string]string) (*Registry, error) {
	reg := &Registry{available: builtins(r), byKind: map[Kind]Formatter{}}
	for _, k := range []Kind{OrderConfirmation, StatusChange, Invoice, PaymentReceived, CartReminder} {
		reg.byKind[k] = reg.available[string(k)]
	}
	for kind, name := range mapping {
		if name == "" {
			delete(reg.byKind, Kind(kind))
			continue
		}
		f, ok := reg.available[name]
		if !ok {
			return nil, fmt.Errorf("%w: unknown formatter %q for %s", domain.ErrConfiguration, name, kind)
		}
		reg.byKind[Kind(kind)] = f
	}
	return reg, nil
}

// Register makes f available under name and binds it to kind.
func (r *Registry) Register(kind Kind, name string, f Formatter) {
	r.available[name] = f
	r.byKind[kind] = f
}

func (r *Registry) Format(ev Event) (*Email, error) {
	f, ok := r.byKind[ev.Kind]
	if !ok || f == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoFormatter, ev.Kind)
	}
	return f.Format(ev)
}

// Names lists the available formatter names.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.available))
	for name := range r.available {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
