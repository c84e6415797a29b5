package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	appoutbox "staybook/internal/app/outbox"
	infraoutbox "staybook/internal/infra/outbox"
)

// DefaultClaimLease is how long a CLAIMED record stays with its worker before
// another worker may take it over.
const DefaultClaimLease = 2 * time.Minute

type outboxWriter struct{ u *Unit }

func (w outboxWriter) Add(ctx context.Context, rec appoutbox.EventRecord) error {
	if err := w.u.writable(); err != nil {
		return err
	}
	headers, err := json.Marshal(rec.Headers)
	if err != nil {
		return fmt.Errorf("outbox headers: %w", err)
	}
	payload := rec.Payload
	if payload == nil {
		payload = []byte("{}")
	}
	now := toMillis(time.Now())
	_, err = w.u.exec(ctx, `INSERT INTO outbox_events (id, name, aggregate, payload, headers, occurred_at, state,
			attempts, next_attempt_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		rec.ID, rec.Name, rec.Aggregate, payload, string(headers), toMillis(rec.OccurredAt),
		infraoutbox.StateNew, now, now)
	return err
}

// Outbox is the relay side of the outbox table.
type Outbox struct {
	Store *Store
	Lease time.Duration
}

func (s *Store) Outbox() *Outbox {
	return &Outbox{Store: s, Lease: DefaultClaimLease}
}

// Claim takes due records, and records whose claim lease expired, in commit order.
func (o *Outbox) Claim(ctx context.Context, workerID string, limit int) ([]infraoutbox.Pending, error) {
	if limit <= 0 {
		return nil, nil
	}
	lease := o.Lease
	if lease <= 0 {
		lease = DefaultClaimLease
	}
	now := time.Now()
	d := o.Store.dialect
	rows, err := o.Store.db.QueryContext(ctx, d.rebind(`UPDATE outbox_events SET state = ?, claimed_by = ?, claimed_at = ?
		WHERE id IN (
			SELECT id FROM outbox_events
			WHERE (state IN (?, ?) AND next_attempt_at <= ?) OR (state = ? AND claimed_at < ?)
			ORDER BY seq LIMIT ?`+d.skipLocked()+`
		)
		RETURNING seq, id, name, aggregate, payload, headers, occurred_at, attempts`),
		infraoutbox.StateClaimed, workerID, toMillis(now),
		infraoutbox.StateNew, infraoutbox.StateFailed, toMillis(now),
		infraoutbox.StateClaimed, toMillis(now.Add(-lease)),
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type claimed struct {
		seq int64
		infraoutbox.Pending
	}
	var batch []claimed
	for rows.Next() {
		var (
			c          claimed
			headers    string
			occurredAt int64
		)
		if err := rows.Scan(&c.seq, &c.ID, &c.Name, &c.Aggregate, &c.Payload, &headers, &occurredAt, &c.Attempts); err != nil {
			return nil, err
		}
		if headers != "" && headers != "null" {
			if err := json.Unmarshal([]byte(headers), &c.Headers); err != nil {
				return nil, fmt.Errorf("outbox headers %s: %w", c.ID, err)
			}
		}
		c.OccurredAt = fromMillis(occurredAt)
		batch = append(batch, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].seq < batch[j].seq })
	out := make([]infraoutbox.Pending, 0, len(batch))
	for _, c := range batch {
		out = append(out, c.Pending)
	}
	return out, nil
}

func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	_, err := o.Store.db.ExecContext(ctx, o.Store.dialect.rebind(
		`UPDATE outbox_events SET state = ?, sent_at = ?, last_error = '' WHERE id = ?`),
		infraoutbox.StateSent, toMillis(time.Now()), id)
	return err
}

func (o *Outbox) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	_, err := o.Store.db.ExecContext(ctx, o.Store.dialect.rebind(
		`UPDATE outbox_events SET state = ?, attempts = attempts + 1, next_attempt_at = ?, last_error = ?, claimed_by = ''
		WHERE id = ?`),
		infraoutbox.StateFailed, toMillis(next), errMsg, id)
	return err
}

// Pending counts records the relay has not delivered yet.
func (o *Outbox) Pending(ctx context.Context) (int, error) {
	var n int
	err := o.Store.db.QueryRowContext(ctx, o.Store.dialect.rebind(
		`SELECT COUNT(*) FROM outbox_events WHERE state <> ?`), infraoutbox.StateSent).Scan(&n)
	return n, err
}

var _ infraoutbox.Store = (*Outbox)(nil)
