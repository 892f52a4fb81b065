// Package audit records who changed what, when and why. Every mutation
// writes exactly one transaction record through Log.
package audit

import (
	"context"
	"strings"
	"time"

	"tranquility/internal/response"
)

// DatetimeLayout is the only accepted wire format for UpdateDatetime.
const DatetimeLayout = "2006-01-02 15:04:05"

// Source identifies the channel a mutation came through.
type Source string

const (
	SourceFrontendUI Source = "audit_transaction_source_frontend_ui"
	SourceBackendUI  Source = "audit_transaction_source_backend_ui"
	SourceBatch      Source = "audit_transaction_source_batch"
	SourceAPIv1      Source = "audit_transaction_source_api_v1"
)

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	switch s {
	case SourceFrontendUI, SourceBackendUI, SourceBatch, SourceAPIv1:
		return true
	default:
		return false
	}
}

// Trail is the caller-supplied audit context for one mutation.
type Trail struct {
	UpdateBy          int64
	UpdateDatetime    string
	TransactionSource Source
	UpdateReason      string
}

// Time parses UpdateDatetime in the wire format.
func (t Trail) Time() (time.Time, error) {
	return time.ParseInLocation(DatetimeLayout, strings.TrimSpace(t.UpdateDatetime), time.UTC)
}

// Complete reports whether every field is present. Whitespace-only values
// count as missing.
func (t Trail) Complete() bool {
	return len(t.missing()) == 0
}

func (t Trail) missing() []string {
	var fields []string
	if t.UpdateBy == 0 {
		fields = append(fields, "updateBy")
	}
	if strings.TrimSpace(t.UpdateDatetime) == "" {
		fields = append(fields, "updateDatetime")
	}
	if strings.TrimSpace(string(t.TransactionSource)) == "" {
		fields = append(fields, "transactionSource")
	}
	if strings.TrimSpace(t.UpdateReason) == "" {
		fields = append(fields, "updateReason")
	}
	return fields
}

// ActorChecker confirms an actor id refers to a live entity.
type ActorChecker interface {
	ActorExists(ctx context.Context, id int64) (bool, error)
}

// Validator checks audit trails. A nil actor checker skips the existence check.
type Validator struct {
	actors ActorChecker
}

// NewValidator creates a Validator. Pass nil to disable the actor check.
func NewValidator(actors ActorChecker) *Validator {
	return &Validator{actors: actors}
}

// Validate returns one message per problem. Missing fields are reported
// before format checks run, so a trail with missing fields yields only 10001s.
func (v *Validator) Validate(ctx context.Context, t Trail) ([]response.Message, error) {
	var msgs []response.Message
	for _, field := range t.missing() {
		msgs = append(msgs, message(response.MsgAuditTrailMissing, field))
	}
	if len(msgs) > 0 {
		return msgs, nil
	}

	if v != nil && v.actors != nil {
		ok, err := v.actors.ActorExists(ctx, t.UpdateBy)
		if err != nil {
			return nil, err
		}
		if !ok {
			msgs = append(msgs, message(response.MsgEntityDoesNotExist, "updateBy"))
		}
	}
	if _, err := t.Time(); err != nil {
		msgs = append(msgs, message(response.MsgInvalidDatetime, "updateDatetime"))
	}
	if !t.TransactionSource.Valid() {
		msgs = append(msgs, message(response.MsgInvalidTransactionCode, "transactionSource"))
	}
	return msgs, nil
}

func message(code int, field string) response.Message {
	return response.Message{
		Code:    code,
		Text:    response.Text(code),
		Level:   response.LevelError,
		FieldID: field,
	}
}
