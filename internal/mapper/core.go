// Package mapper turns validated caller input into atomic, audited mutations
// of business rows. Every create, update and delete records a transaction,
// snapshots the prior row to history and moves the entity version forward
// inside one unit of work, then reports the outcome as a response.Response.
package mapper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"tranquility/internal/audit"
	"tranquility/internal/changefeed"
	"tranquility/internal/entity"
	"tranquility/internal/platform/metrics"
	"tranquility/internal/projection"
	"tranquility/internal/response"
	"tranquility/internal/storage"
	"tranquility/pkg/platform/sentinel"
)

// errHistory aborts a unit of work whose snapshot copied nothing.
var errHistory = errors.New("history snapshot copied no rows")

// TxRunner runs fn inside a unit of work; nested calls enlist.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ChangeRecorder receives one event per committed mutation, written inside
// the mutation's unit of work.
type ChangeRecorder interface {
	Append(ctx context.Context, ev changefeed.Event) error
}

// Option configures the shared mapper core.
type Option func(*core)

func WithLogger(l *slog.Logger) Option {
	return func(c *core) { c.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *core) { c.metrics = m }
}

func WithChangeRecorder(r ChangeRecorder) Option {
	return func(c *core) { c.changes = r }
}

func WithTracer(t trace.Tracer) Option {
	return func(c *core) { c.tracer = t }
}

// WithActorCheck makes audit validation reject updateBy ids that are not live entities.
func WithActorCheck(enabled bool) Option {
	return func(c *core) { c.checkActor = enabled }
}

// core holds the collaborators every concrete mapper shares.
type core struct {
	exec       storage.Executor
	tx         TxRunner
	registry   *entity.Registry
	history    *entity.History
	txlog      *audit.Log
	validator  *audit.Validator
	changes    ChangeRecorder
	checkActor bool
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
}

func newCore(exec storage.Executor, tx TxRunner, opts ...Option) *core {
	c := &core{
		exec:     exec,
		tx:       tx,
		registry: entity.NewRegistry(exec),
		history:  entity.NewHistory(exec),
		txlog:    audit.NewLog(exec),
		logger:   slog.Default(),
		tracer:   otel.Tracer("tranquility/mapper"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.checkActor {
		c.validator = audit.NewValidator(c.registry)
	} else {
		c.validator = audit.NewValidator(nil)
	}
	return c
}

type messageCodes struct {
	listed       int
	retrieved    int
	created      int
	createFailed int
	updated      int
	updateFailed int
	deleted      int
	deleteFailed int
	// conflict, when set, reports a unique-key collision as 409.
	conflict int
}

// kind describes one business type to the generic flows.
type kind struct {
	name       string
	entityType entity.Type
	// subtype, when set, must match the entity row for updates and deletes.
	subtype string
	tables  entity.Tables
	fields  projection.FieldSet
	// hidden columns are stored and snapshotted but never selected for reads.
	hidden []string
	codes  messageCodes
}

func (k *kind) selectSQL() string {
	cols := []string{"b.id"}
	for _, c := range k.tables.Columns {
		if c == "transaction_id" || k.isHidden(c) {
			continue
		}
		cols = append(cols, "b."+c)
	}
	cols = append(cols, "e.version", "e.subtype",
		"a.transaction_id", "a.transaction_source", "a.update_by", "a.update_datetime", "a.update_reason")
	return fmt.Sprintf(`SELECT %s FROM %s b JOIN entity e ON e.id = b.id LEFT JOIN sys_trans_audit a ON a.transaction_id = b.transaction_id WHERE e.deleted = FALSE`,
		strings.Join(cols, ", "), k.tables.Business)
}

func (k *kind) isHidden(col string) bool {
	for _, h := range k.hidden {
		if h == col {
			return true
		}
	}
	return false
}

// createPlan carries the type-specific parts of a create.
type createPlan struct {
	subtype string
	// parentID, when non-zero, is linked to the new entity through an xref.
	parentID int64
	// before runs after the entity row exists but before the business insert.
	before func(ctx context.Context, id, txID int64) error
	insert func(ctx context.Context, id, txID int64) error
}

// updatePlan carries the type-specific parts of an update.
type updatePlan struct {
	// before runs ahead of the target's own snapshot.
	before func(ctx context.Context, txID int64) error
	apply  func(ctx context.Context, txID int64) (int64, error)
}

// create runs the create protocol. resp may already carry field validation
// messages; any error-level message stops the create before storage is touched.
func (c *core) create(ctx context.Context, k *kind, trail audit.Trail, resp *response.Response, plan createPlan) (out *response.Response, err error) {
	ctx, span := c.start(ctx, k, changefeed.OpCreate)
	defer span.End()
	start := time.Now()
	defer func() { c.observe(k, changefeed.OpCreate, out, start) }()

	if err := c.validateTrail(ctx, trail, resp); err != nil {
		return nil, err
	}
	if resp.HasErrors() {
		resp.BadRequest()
		return resp, nil
	}

	var id int64
	txID, err := c.mutate(ctx, k, changefeed.OpCreate, trail, func(ctx context.Context, txID int64) (int64, error) {
		var err error
		id, err = c.registry.CreateEntity(ctx, k.entityType, plan.subtype)
		if err != nil {
			return 0, err
		}
		if plan.before != nil {
			if err := plan.before(ctx, id, txID); err != nil {
				return 0, err
			}
		}
		if err := plan.insert(ctx, id, txID); err != nil {
			return 0, err
		}
		if plan.parentID != 0 {
			if err := c.registry.CreateXref(ctx, plan.parentID, id, txID); err != nil {
				return 0, err
			}
		}
		return id, nil
	})
	if err != nil {
		c.fail(ctx, span, k, resp, k.codes.createFailed, err)
		return resp, nil
	}
	span.SetAttributes(attribute.Int64("entity.id", id))
	return c.reload(ctx, k, resp, id, txID, k.codes.created)
}

// update runs the update protocol against an existing, live entity.
func (c *core) update(ctx context.Context, k *kind, id int64, trail audit.Trail, resp *response.Response, plan updatePlan) (out *response.Response, err error) {
	ctx, span := c.start(ctx, k, changefeed.OpUpdate)
	defer span.End()
	span.SetAttributes(attribute.Int64("entity.id", id))
	start := time.Now()
	defer func() { c.observe(k, changefeed.OpUpdate, out, start) }()

	if err := c.validateTrail(ctx, trail, resp); err != nil {
		return nil, err
	}
	if resp.HasErrors() {
		resp.BadRequest()
		return resp, nil
	}
	live, err := c.live(ctx, k, id)
	if err != nil {
		return nil, err
	}
	if !live {
		resp.AddMessage(response.MsgEntityDoesNotExist, response.LevelError, "id")
		return resp, nil
	}

	txID, err := c.mutate(ctx, k, changefeed.OpUpdate, trail, func(ctx context.Context, txID int64) (int64, error) {
		if plan.before != nil {
			if err := plan.before(ctx, txID); err != nil {
				return 0, err
			}
		}
		if err := c.snapshotAndBump(ctx, k, id); err != nil {
			return 0, err
		}
		n, err := plan.apply(ctx, txID)
		if err != nil {
			return 0, err
		}
		if n == 0 {
			return 0, sentinel.ErrNoRowsAffected
		}
		return id, nil
	})
	if err != nil {
		c.fail(ctx, span, k, resp, k.codes.updateFailed, err)
		return resp, nil
	}
	return c.reload(ctx, k, resp, id, txID, k.codes.updated)
}

// delete runs the logical delete protocol. Deleting something that is
// already gone is reported as OK with an error-level message.
func (c *core) delete(ctx context.Context, k *kind, id int64, trail audit.Trail) (out *response.Response, err error) {
	ctx, span := c.start(ctx, k, changefeed.OpDelete)
	defer span.End()
	span.SetAttributes(attribute.Int64("entity.id", id))
	start := time.Now()
	defer func() { c.observe(k, changefeed.OpDelete, out, start) }()
	resp := response.New()

	if err := c.validateTrail(ctx, trail, resp); err != nil {
		return nil, err
	}
	if resp.HasErrors() {
		resp.BadRequest()
		return resp, nil
	}
	live, err := c.live(ctx, k, id)
	if err != nil {
		return nil, err
	}
	if !live {
		resp.AddMessage(response.MsgEntityDoesNotExist, response.LevelError, "id")
		return resp, nil
	}

	txID, err := c.mutate(ctx, k, changefeed.OpDelete, trail, func(ctx context.Context, txID int64) (int64, error) {
		ok, err := c.history.Snapshot(ctx, k.tables, id)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, errHistory
		}
		ok, err = c.registry.SoftDelete(ctx, id)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, sentinel.ErrNoRowsAffected
		}
		if _, err := c.exec.Update(ctx,
			fmt.Sprintf(`UPDATE %s SET transaction_id = $1 WHERE id = $2`, k.tables.Business), txID, id); err != nil {
			return 0, err
		}
		return id, nil
	})
	if err != nil {
		c.fail(ctx, span, k, resp, k.codes.deleteFailed, err)
		return resp, nil
	}
	resp.AddMessage(k.codes.deleted, response.LevelSuccess, "")
	resp.AddTransactionID(txID)
	return resp, nil
}

// mutate records the transaction, runs fn and appends the change event, all
// in one unit of work.
func (c *core) mutate(ctx context.Context, k *kind, op changefeed.Operation, trail audit.Trail, fn func(ctx context.Context, txID int64) (int64, error)) (int64, error) {
	var txID int64
	err := c.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		txID, err = c.txlog.Record(ctx, trail)
		if err != nil {
			return err
		}
		id, err := fn(ctx, txID)
		if err != nil {
			return err
		}
		return c.emit(ctx, k, op, id, txID)
	})
	return txID, err
}

func (c *core) emit(ctx context.Context, k *kind, op changefeed.Operation, id, txID int64) error {
	if c.changes == nil {
		return nil
	}
	e, err := c.registry.Details(ctx, id)
	if err != nil {
		return err
	}
	if e == nil {
		return sentinel.ErrNoRowsAffected
	}
	return c.changes.Append(ctx, changefeed.Event{
		EntityID:      id,
		EntityType:    string(k.entityType),
		Subtype:       e.Subtype,
		Operation:     op,
		TransactionID: txID,
		Version:       e.Version,
	})
}

// snapshotAndBump copies the current row to history and then advances the
// version; the order keeps history.version equal to the pre-change version.
func (c *core) snapshotAndBump(ctx context.Context, k *kind, id int64) error {
	ok, err := c.history.Snapshot(ctx, k.tables, id)
	if err != nil {
		return err
	}
	if !ok {
		return errHistory
	}
	ok, err = c.registry.IncrementVersion(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return sentinel.ErrNoRowsAffected
	}
	return nil
}

// live reports whether id is a non-deleted entity of k's type and subtype.
func (c *core) live(ctx context.Context, k *kind, id int64) (bool, error) {
	e, err := c.registry.Details(ctx, id)
	if err != nil || e == nil {
		return false, err
	}
	if e.Deleted || e.Type != k.entityType {
		return false, nil
	}
	return k.subtype == "" || e.Subtype == k.subtype, nil
}

func (c *core) validateTrail(ctx context.Context, trail audit.Trail, resp *response.Response) error {
	msgs, err := c.validator.Validate(ctx, trail)
	if err != nil {
		return err
	}
	resp.AddMessages(msgs...)
	return nil
}

func (c *core) fail(ctx context.Context, span trace.Span, k *kind, resp *response.Response, failCode int, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	c.logger.ErrorContext(ctx, "mutation rolled back", "entity", k.name, "error", err)

	if k.codes.conflict != 0 && errors.Is(err, sentinel.ErrConflict) {
		_ = resp.SetCode(http.StatusConflict)
		resp.AddMessage(k.codes.conflict, response.LevelError, "")
		return
	}
	resp.InternalError()
	if errors.Is(err, errHistory) {
		resp.AddMessage(response.MsgHistoryFailed, response.LevelError, "")
		return
	}
	resp.AddMessage(failCode, response.LevelError, "")
}

// reload re-reads a committed record into resp, verbose, with the success
// message and transaction id attached.
func (c *core) reload(ctx context.Context, k *kind, resp *response.Response, id, txID int64, successCode int) (*response.Response, error) {
	rows, err := c.exec.Select(ctx, k.selectSQL()+" AND b.id = $1", id)
	if err != nil {
		return nil, err
	}
	resp.SetContent(projection.Transform(rows, k.fields, projection.Selection{Verbose: true}))
	resp.AddMessage(successCode, response.LevelSuccess, "")
	resp.AddTransactionID(txID)
	return resp, nil
}

func (c *core) start(ctx context.Context, k *kind, op changefeed.Operation) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, k.name+"."+string(op), trace.WithAttributes(
		attribute.String("entity.type", string(k.entityType)),
		attribute.String("entity.kind", k.name),
	))
}

func (c *core) observe(k *kind, op changefeed.Operation, resp *response.Response, start time.Time) {
	if resp == nil {
		c.metrics.ObserveMutation(k.name, string(op), metrics.OutcomeFailed, start)
		return
	}
	outcome := metrics.OutcomeSuccess
	switch {
	case resp.Code() == http.StatusBadRequest:
		outcome = metrics.OutcomeRejected
	case resp.Code() >= http.StatusInternalServerError || resp.Code() == http.StatusConflict:
		outcome = metrics.OutcomeFailed
	case resp.ContainsMessageCode(response.MsgEntityDoesNotExist):
		outcome = metrics.OutcomeNotFound
	}
	c.metrics.ObserveMutation(k.name, string(op), outcome, start)
}
