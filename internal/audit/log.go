package audit

import (
	"context"

	"tranquility/internal/storage"
	dErrors "tranquility/pkg/domain-errors"
)

// Log is the transaction log writer.
type Log struct {
	exec storage.Executor
}

// NewLog creates a Log over exec.
func NewLog(exec storage.Executor) *Log {
	return &Log{exec: exec}
}

// Record inserts one transaction record and returns its generated id. The
// trail must already have passed Validate.
func (l *Log) Record(ctx context.Context, t Trail) (int64, error) {
	at, err := t.Time()
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeValidation, "parse update datetime")
	}
	id, err := l.exec.InsertReturning(ctx,
		`INSERT INTO sys_trans_audit (transaction_source, update_by, update_datetime, update_reason)
		 VALUES ($1, $2, $3, $4) RETURNING transaction_id`,
		string(t.TransactionSource), t.UpdateBy, at, t.UpdateReason)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodePersistence, "record transaction")
	}
	return id, nil
}

// Transaction reads one transaction record, or nil if absent.
func (l *Log) Transaction(ctx context.Context, id int64) (storage.Row, error) {
	row, err := l.exec.SelectOne(ctx,
		`SELECT transaction_id, transaction_source, update_by, update_datetime, update_reason
		 FROM sys_trans_audit WHERE transaction_id = $1`, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "read transaction")
	}
	return row, nil
}
