package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

type Type string

const (
	TestCreated       Type = "test.created"
	TestUpdated       Type = "test.updated"
	TestReviewed      Type = "test.reviewed"
	TestApproved      Type = "test.approved"
	TestDeleted       Type = "test.deleted"
	SubmissionCreated Type = "submission.created"
)

// Event is one domain change. Key is the natural key of the change: the
// root test id for test events, the submission id for submissions.
type Event struct {
	Seq       int64           `json:"seq,omitempty"`
	SiteID    string          `json:"siteId"`
	Type      Type            `json:"type"`
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	CreatedAt int64           `json:"createdAt"`
}

// New builds an event with data encoded as JSON.
func New(typ Type, key string, data any) Event {
	raw, err := json.Marshal(data)
	if err != nil || data == nil {
		raw = json.RawMessage(`{}`)
	}
	return Event{Type: typ, Key: key, Data: raw, CreatedAt: time.Now().Unix()}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
