// Package redis provides the append-only request event journal. The
// requests table keeps only the current hash per request; the journal
// retains the full replacement history for audit.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/emperorhan/tx-relayer/internal/domain/model"
	"github.com/emperorhan/tx-relayer/internal/metrics"
	"github.com/redis/go-redis/v9"
)

// EventType labels one lifecycle transition of a request.
type EventType string

const (
	EventBroadcast  EventType = "broadcast"
	EventFeeBump    EventType = "fee_bump"
	EventMined      EventType = "mined"
	EventSuperseded EventType = "superseded"
	EventStuck      EventType = "stuck"
)

// Event is one journal entry. Broadcast events carry the signed
// envelope so a crashed process can rebuild the request row from the
// journal alone.
type Event struct {
	Type      EventType
	RequestID string
	Chain     model.Chain
	Nonce     uint64
	Hash      string
	Tx        *model.Envelope
}

// Journal appends request lifecycle events to a Redis stream.
type Journal struct {
	client *redis.Client
	stream string
}

func NewJournal(url, stream string) (*Journal, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Journal{client: client, stream: stream}, nil
}

// Append writes one event. Entries are never trimmed here; retention is
// an operational concern (XTRIM from a cron or MAXLEN policy).
func (j *Journal) Append(ctx context.Context, ev Event) error {
	values := map[string]interface{}{
		"type":       string(ev.Type),
		"request_id": ev.RequestID,
		"chain":      strconv.FormatInt(int64(ev.Chain), 10),
		"nonce":      strconv.FormatUint(ev.Nonce, 10),
		"hash":       ev.Hash,
		"at":         time.Now().UTC().Format(time.RFC3339Nano),
	}
	if ev.Tx != nil {
		txJSON, err := model.MarshalTx(*ev.Tx)
		if err != nil {
			return fmt.Errorf("journal marshal tx: %w", err)
		}
		values["tx"] = string(txJSON)
	}

	err := j.client.XAdd(ctx, &redis.XAddArgs{
		Stream: j.stream,
		Values: values,
	}).Err()
	if err != nil {
		metrics.JournalAppendsTotal.WithLabelValues(string(ev.Type), "error").Inc()
		return fmt.Errorf("journal append: %w", err)
	}
	metrics.JournalAppendsTotal.WithLabelValues(string(ev.Type), "ok").Inc()
	return nil
}

// Events returns every journal entry in append order. Recovery replays
// these to find broadcasts that never reached the requests table.
func (j *Journal) Events(ctx context.Context) ([]Event, error) {
	msgs, err := j.client.XRange(ctx, j.stream, "-", "+").Result()
	if err != nil {
		return nil, fmt.Errorf("journal read: %w", err)
	}

	out := make([]Event, 0, len(msgs))
	for _, msg := range msgs {
		ev, err := parseEvent(msg.Values)
		if err != nil {
			return nil, fmt.Errorf("journal entry %s: %w", msg.ID, err)
		}
		out = append(out, ev)
	}
	return out, nil
}

func parseEvent(values map[string]interface{}) (Event, error) {
	ev := Event{
		Type:      EventType(stringValue(values, "type")),
		RequestID: stringValue(values, "request_id"),
		Hash:      stringValue(values, "hash"),
	}

	chainID, err := strconv.ParseInt(stringValue(values, "chain"), 10, 64)
	if err != nil {
		return Event{}, fmt.Errorf("parse chain: %w", err)
	}
	ev.Chain = model.Chain(chainID)

	if ev.Nonce, err = strconv.ParseUint(stringValue(values, "nonce"), 10, 64); err != nil {
		return Event{}, fmt.Errorf("parse nonce: %w", err)
	}

	if raw := stringValue(values, "tx"); raw != "" {
		env, err := model.UnmarshalTx([]byte(raw))
		if err != nil {
			return Event{}, fmt.Errorf("parse tx: %w", err)
		}
		ev.Tx = &env
	}
	return ev, nil
}

func stringValue(values map[string]interface{}, key string) string {
	if v, ok := values[key].(string); ok {
		return v
	}
	return ""
}

func (j *Journal) Close() error {
	return j.client.Close()
}
