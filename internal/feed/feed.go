// Package feed pumps inbound live events into the session. Sources produce
// entity upserts (remote messages, presence changes, node updates) and the
// pump applies them through the facade so every record goes through the same
// integrity checks as local writes. Records that fail validation are counted
// and dropped, never partially applied.
package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"nexus/internal/logging"
	"nexus/internal/session"
	"nexus/internal/types"
)

// EventKind discriminates the record carried by an Event.
type EventKind string

const (
	EventMessage EventKind = "message"
	EventUser    EventKind = "user"
	EventNode    EventKind = "node"
)

// Event is one inbound record. Exactly one of the payload pointers is set,
// matching Kind.
type Event struct {
	Kind    EventKind
	Message *types.Message
	User    *types.User
	Node    *types.Node
}

// Source produces events into out until the context is cancelled or the
// source is exhausted. Sources must not close out; the pump owns the channel.
type Source interface {
	Run(ctx context.Context, out chan<- Event) error
}

// Stats counts the pump's outcomes.
type Stats struct {
	Applied  int
	Rejected int
}

// Pump fans in events from all sources and applies them to the session.
type Pump struct {
	st      *session.State
	sources []Source

	mu    sync.Mutex
	stats Stats
}

// NewPump creates a pump over the session with the given sources.
func NewPump(st *session.State, sources ...Source) *Pump {
	return &Pump{st: st, sources: sources}
}

// Run drives all sources in parallel and applies their events until every
// source returns and the channel drains. It returns the first source error,
// or nil. Apply failures are not errors: they increment Stats.Rejected.
func (p *Pump) Run(ctx context.Context) error {
	events := make(chan Event, 64)

	g, gctx := errgroup.WithContext(ctx)
	for _, src := range p.sources {
		src := src
		g.Go(func() error {
			return src.Run(gctx, events)
		})
	}

	errc := make(chan error, 1)
	go func() {
		errc <- g.Wait()
		close(events)
	}()

	for ev := range events {
		p.apply(ev)
	}
	return <-errc
}

// Stats returns a copy of the pump's counters.
func (p *Pump) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

func (p *Pump) apply(ev Event) {
	var err error
	switch ev.Kind {
	case EventMessage:
		if ev.Message == nil {
			err = types.Integrityf("message event without message")
			break
		}
		err = p.st.UpsertMessage(*ev.Message)
	case EventUser:
		if ev.User == nil {
			err = types.Integrityf("user event without user")
			break
		}
		err = p.st.UpsertUser(*ev.User)
	case EventNode:
		if ev.Node == nil {
			err = types.Integrityf("node event without node")
			break
		}
		err = p.st.UpsertNode(*ev.Node)
	default:
		err = types.Integrityf("unknown event kind %q", ev.Kind)
	}

	p.mu.Lock()
	if err != nil {
		p.stats.Rejected++
	} else {
		p.stats.Applied++
	}
	p.mu.Unlock()

	if err != nil {
		logging.FeedWarn("event rejected (%s): %v", ev.Kind, err)
		return
	}
	logging.Feed("event applied: %s", ev.Kind)
}

// SimSource emits a deterministic burst of messages into one stream,
// standing in for a live transport during demos and tests.
type SimSource struct {
	StreamID string
	AuthorID string
	Count    int
	Interval time.Duration // 0 means emit back-to-back
	Start    time.Time     // timestamp of the first message
}

// Run emits Count messages, spacing their timestamps one second apart so the
// resulting order is stable regardless of wall-clock time.
func (s *SimSource) Run(ctx context.Context, out chan<- Event) error {
	start := s.Start
	if start.IsZero() {
		start = time.Now().UTC()
	}
	for i := 0; i < s.Count; i++ {
		msg := &types.Message{
			ID:        uuid.New().String(),
			StreamID:  s.StreamID,
			AuthorID:  s.AuthorID,
			Kind:      types.MessageText,
			Content:   fmt.Sprintf("Telemetry pulse %03d", i+1),
			Timestamp: start.Add(time.Duration(i) * time.Second),
		}
		select {
		case out <- Event{Kind: EventMessage, Message: msg}:
		case <-ctx.Done():
			return ctx.Err()
		}
		if s.Interval > 0 {
			select {
			case <-time.After(s.Interval):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}
