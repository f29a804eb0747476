// Package store keeps a ledger of relay outcomes in sqlite.
// It is a record of what happened, not a cursor: the relayer never
// reads it to decide what to relay.
package store

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/FuelLabs/bridge-message-predicates/fuel"
	"github.com/bobg/sqlutil"
	"github.com/chain/txvm/errors"
)

const migrationsTable = `
CREATE TABLE IF NOT EXISTS migrations (
  hash BLOB NOT NULL PRIMARY KEY
);
`

var migrations = []string{
	`CREATE TABLE relays (
  message_id BLOB NOT NULL,
  cycle_id TEXT NOT NULL,
  outcome TEXT NOT NULL,
  tx_id BLOB,
  contract_id BLOB,
  amount INTEGER NOT NULL,
  detail TEXT NOT NULL DEFAULT '',
  recorded_ms INTEGER NOT NULL
);
CREATE INDEX relays_message_id ON relays (message_id);
CREATE INDEX relays_recorded_ms ON relays (recorded_ms);`,
}

// Record is one relay attempt.
type Record struct {
	MessageID fuel.MessageID  `json:"message_id"`
	CycleID   string          `json:"cycle_id"`
	Outcome   string          `json:"outcome"`
	TxID      fuel.TxID       `json:"tx_id"` // zero if no transaction was built
	Contract  fuel.ContractID `json:"contract"`
	Amount    uint64          `json:"amount"`
	Detail    string          `json:"detail,omitempty"`
	At        time.Time       `json:"at"`
}

type Store struct {
	db *sql.DB
}

// New applies any pending migrations to db and returns a Store using it.
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	_, err := db.ExecContext(ctx, migrationsTable)
	if err != nil {
		return nil, errors.Wrap(err, "creating migrations table")
	}
	err = sqlutil.Migrate(ctx, db, migrations)
	if err != nil {
		return nil, errors.Wrap(err, "migrating db")
	}
	return &Store{db: db}, nil
}

func (s *Store) Record(ctx context.Context, r *Record) error {
	const q = `INSERT INTO relays (message_id, cycle_id, outcome, tx_id, contract_id, amount, detail, recorded_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	var txid, contract []byte
	if !r.TxID.IsZero() {
		txid = r.TxID[:]
	}
	if !r.Contract.IsZero() {
		contract = r.Contract[:]
	}
	_, err := s.db.ExecContext(ctx, q, r.MessageID[:], r.CycleID, r.Outcome, txid, contract, int64(r.Amount), r.Detail, millis(r.At))
	return errors.Wrapf(err, "recording %s for message %s", r.Outcome, r.MessageID)
}

func millis(t time.Time) int64 {
	return t.UnixNano() / int64(time.Millisecond)
}

func fromMillis(ms int64) time.Time {
	return time.Unix(0, ms*int64(time.Millisecond))
}

const selectRecords = `SELECT message_id, cycle_id, outcome, tx_id, contract_id, amount, detail, recorded_ms FROM relays`

func (s *Store) query(ctx context.Context, q string, args ...interface{}) ([]*Record, error) {
	var out []*Record
	args = append(args, func(msgID []byte, cycleID, outcome string, txid, contract []byte, amount int64, detail string, ms int64) {
		r := &Record{
			CycleID: cycleID,
			Outcome: outcome,
			Amount:  uint64(amount),
			Detail:  detail,
			At:      fromMillis(ms),
		}
		copy(r.MessageID[:], msgID)
		copy(r.TxID[:], txid)
		copy(r.Contract[:], contract)
		out = append(out, r)
	})
	err := sqlutil.ForQueryRows(ctx, s.db, q, args...)
	return out, err
}

// History returns the records for one message, oldest first.
func (s *Store) History(ctx context.Context, msgID fuel.MessageID) ([]*Record, error) {
	recs, err := s.query(ctx, selectRecords+` WHERE message_id = $1 ORDER BY recorded_ms, rowid`, msgID[:])
	return recs, errors.Wrapf(err, "reading history of message %s", msgID)
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]*Record, error) {
	recs, err := s.query(ctx, selectRecords+` ORDER BY recorded_ms DESC, rowid DESC LIMIT $1`, limit)
	return recs, errors.Wrap(err, "reading recent records")
}

// Counts returns the number of records per outcome.
func (s *Store) Counts(ctx context.Context) (map[string]int, error) {
	out := make(map[string]int)
	err := sqlutil.ForQueryRows(ctx, s.db, `SELECT outcome, COUNT(*) FROM relays GROUP BY outcome`, func(outcome string, n int) {
		out[outcome] = n
	})
	return out, errors.Wrap(err, "counting outcomes")
}

// Expire deletes records older than cutoff and reports how many it removed.
func (s *Store) Expire(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM relays WHERE recorded_ms < $1`, millis(cutoff))
	if err != nil {
		return 0, errors.Wrap(err, "expiring records")
	}
	return res.RowsAffected()
}

// ExpireRecords runs as a goroutine,
// periodically removing records older than maxAge.
func (s *Store) ExpireRecords(ctx context.Context, maxAge, interval time.Duration) {
	defer log.Print("ExpireRecords exiting")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			n, err := s.Expire(ctx, time.Now().Add(-maxAge))
			if err != nil {
				log.Printf("error in ExpireRecords: %s", err)
				continue
			}
			if n > 0 {
				log.Printf("expired %d relay record(s) older than %s", n, maxAge)
			}
		}
	}
}
