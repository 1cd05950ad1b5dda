package repository

import (
	"context"
	"fmt"
)

type outboxRepo struct {
	q querier
}

func (r *outboxRepo) InsertEvent(ctx context.Context, eventType, aggregateID string, payload []byte) error {
	query := `INSERT INTO outbox_events (event_type, aggregate_id, payload, created_at)
	          VALUES ($1, $2, $3, NOW())`

	if _, err := r.q.ExecContext(ctx, query, eventType, aggregateID, payload); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

func (r *outboxRepo) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	query := `SELECT id, event_type, aggregate_id, payload, processed
	          FROM outbox_events WHERE NOT processed ORDER BY id LIMIT $1`

	rows, err := r.q.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var event OutboxEvent
		if err := rows.Scan(&event.ID, &event.EventType, &event.AggregateID, &event.Payload, &event.Processed); err != nil {
			return nil, fmt.Errorf("scan outbox event row: %w", err)
		}
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

func (r *outboxRepo) MarkEventAsProcessed(ctx context.Context, id int64) error {
	if _, err := r.q.ExecContext(ctx,
		`UPDATE outbox_events SET processed = TRUE WHERE id = $1`, id); err != nil {
		return fmt.Errorf("mark outbox event processed: %w", err)
	}
	return nil
}
