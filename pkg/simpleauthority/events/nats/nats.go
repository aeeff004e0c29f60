// Package nats publishes authority rename events to NATS.
package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/tendant/simple-authority/pkg/simpleauthority"
)

// DefaultSubject is the subject rename events are published on
const DefaultSubject = "authority.renamed"

// Publisher is the subset of *nats.Conn used by EventSink
type Publisher interface {
	PublishMsg(msg *nats.Msg) error
}

// EventSink implements simpleauthority.EventSink over NATS
type EventSink struct {
	conn    Publisher
	subject string
}

var _ simpleauthority.EventSink = (*EventSink)(nil)

// New creates an EventSink publishing on subject, or DefaultSubject when
// subject is empty
func New(conn Publisher, subject string) *EventSink {
	if subject == "" {
		subject = DefaultSubject
	}
	return &EventSink{conn: conn, subject: subject}
}

// AuthorityRenamed publishes the event as JSON. The old authority id is
// carried in a header so consumers can filter without decoding.
func (s *EventSink) AuthorityRenamed(ctx context.Context, event simpleauthority.AuthorityRenamed) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal rename event: %w", err)
	}
	msg := nats.NewMsg(s.subject)
	msg.Data = data
	msg.Header.Set("Authority-Id", event.OldID)
	msg.Header.Set("Authority-New-Id", event.NewID)
	if err := s.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish rename event: %w", err)
	}
	return nil
}
