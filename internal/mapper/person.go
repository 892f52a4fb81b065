package mapper

import (
	"context"
	"strings"

	"tranquility/internal/audit"
	"tranquility/internal/entity"
	"tranquility/internal/projection"
	"tranquility/internal/response"
	"tranquility/internal/storage"
)

// Person is the caller-supplied state of a person.
type Person struct {
	Title     string
	FirstName string
	LastName  string
	Position  string
}

var personKind = &kind{
	name:       "person",
	entityType: entity.TypePerson,
	tables: entity.Tables{
		Business: "entity_people",
		History:  "history_people",
		Columns:  []string{"title", "first_name", "last_name", "position", "transaction_id"},
	},
	fields: projection.FieldSet{
		{Key: "id", Column: "id"},
		{Key: "title", Column: "title"},
		{Key: "firstName", Column: "first_name"},
		{Key: "lastName", Column: "last_name"},
		{Key: "position", Column: "position"},
	},
	codes: messageCodes{
		listed:       response.MsgPersonListRetrieved,
		retrieved:    response.MsgPersonRetrieved,
		created:      response.MsgPersonCreated,
		createFailed: response.MsgPersonCreateFailed,
		updated:      response.MsgPersonUpdated,
		updateFailed: response.MsgPersonUpdateFailed,
		deleted:      response.MsgPersonDeleted,
		deleteFailed: response.MsgPersonDeleteFailed,
	},
}

// PersonMapper manages people.
type PersonMapper struct {
	*core
}

// NewPersonMapper builds a PersonMapper with its own collaborators.
func NewPersonMapper(exec storage.Executor, tx TxRunner, opts ...Option) *PersonMapper {
	return &PersonMapper{core: newCore(exec, tx, opts...)}
}

// Fields returns the default field set.
func (m *PersonMapper) Fields() projection.FieldSet {
	return personKind.fields
}

func (m *PersonMapper) validate(p Person) *response.Response {
	resp := response.New()
	require(resp,
		field("title", p.Title),
		field("firstName", p.FirstName),
		field("lastName", p.LastName),
	)
	return resp
}

// Create adds a person.
func (m *PersonMapper) Create(ctx context.Context, p Person, trail audit.Trail) (*response.Response, error) {
	p = p.trimmed()
	return m.create(ctx, personKind, trail, m.validate(p), createPlan{
		insert: func(ctx context.Context, id, txID int64) error {
			_, err := m.exec.Insert(ctx,
				`INSERT INTO entity_people (id, title, first_name, last_name, position, transaction_id) VALUES ($1, $2, $3, $4, $5, $6)`,
				id, p.Title, p.FirstName, p.LastName, p.Position, txID)
			return err
		},
	})
}

// Update replaces the state of person id.
func (m *PersonMapper) Update(ctx context.Context, id int64, p Person, trail audit.Trail) (*response.Response, error) {
	p = p.trimmed()
	return m.update(ctx, personKind, id, trail, m.validate(p), updatePlan{
		apply: func(ctx context.Context, txID int64) (int64, error) {
			return m.exec.Update(ctx,
				`UPDATE entity_people SET title = $1, first_name = $2, last_name = $3, position = $4, transaction_id = $5 WHERE id = $6`,
				p.Title, p.FirstName, p.LastName, p.Position, txID, id)
		},
	})
}

// Delete logically deletes person id.
func (m *PersonMapper) Delete(ctx context.Context, id int64, trail audit.Trail) (*response.Response, error) {
	return m.delete(ctx, personKind, id, trail)
}

// List returns live people matching q.
func (m *PersonMapper) List(ctx context.Context, q Query) (*response.Response, error) {
	return m.list(ctx, personKind, q)
}

// Get returns person id.
func (m *PersonMapper) Get(ctx context.Context, id int64, sel projection.Selection) (*response.Response, error) {
	return m.get(ctx, personKind, id, sel)
}

// History returns the prior versions of person id.
func (m *PersonMapper) History(ctx context.Context, id int64) (*response.Response, error) {
	return m.historyOf(ctx, personKind, id)
}

func (p Person) trimmed() Person {
	return Person{
		Title:     strings.TrimSpace(p.Title),
		FirstName: strings.TrimSpace(p.FirstName),
		LastName:  strings.TrimSpace(p.LastName),
		Position:  strings.TrimSpace(p.Position),
	}
}
