package events

import (
	"context"
	"database/sql"
	"time"
)

// SQLLog appends events to the event_log table created by db.Open.
type SQLLog struct {
	db     *sql.DB
	siteID string
}

func NewSQLLog(db *sql.DB, siteID string) *SQLLog {
	if siteID == "" {
		siteID = "local"
	}
	return &SQLLog{db: db, siteID: siteID}
}

func (r *SQLLog) Publish(ctx context.Context, e Event) error {
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().Unix()
	}
	site := e.SiteID
	if site == "" {
		site = r.siteID
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_log (site_id, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		site, string(e.Type), e.Key, string(e.Data), e.CreatedAt)
	return err
}

// Since returns up to limit events with a sequence number above seq, oldest first.
func (r *SQLLog) Since(ctx context.Context, seq int64, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT seq, site_id, typ, key, data, created_at FROM event_log
		 WHERE seq > $1 ORDER BY seq LIMIT $2`, seq, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e    Event
			typ  string
			data string
		)
		if err := rows.Scan(&e.Seq, &e.SiteID, &typ, &e.Key, &data, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Type = Type(typ)
		e.Data = []byte(data)
		out = append(out, e)
	}
	return out, rows.Err()
}
