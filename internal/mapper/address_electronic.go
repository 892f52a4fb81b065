package mapper

import (
	"context"

	"tranquility/internal/audit"
	"tranquility/internal/entity"
	"tranquility/internal/projection"
	"tranquility/internal/response"
	"tranquility/internal/storage"
)

const (
	ElectronicEmail = "email"
	ElectronicURL   = "url"
)

var electronicKind = &kind{
	name:       "address_electronic",
	entityType: entity.TypeAddress,
	subtype:    string(AddressElectronic),
	tables: entity.Tables{
		Business: "entity_addresses_electronic",
		History:  "history_addresses_electronic",
		Columns:  []string{"address_type", "category", "address_text", "primary_contact", "transaction_id"},
	},
	fields: projection.FieldSet{
		{Key: "id", Column: "id"},
		{Key: "addressType", Column: "address_type"},
		{Key: "category", Column: "category"},
		{Key: "addressText", Column: "address_text"},
		{Key: "primaryContact", Column: "primary_contact"},
	},
	codes: addressCodes,
}

// ElectronicMapper manages email and web addresses.
type ElectronicMapper struct {
	*core
}

func NewElectronicMapper(exec storage.Executor, tx TxRunner, opts ...Option) *ElectronicMapper {
	return &ElectronicMapper{core: newCore(exec, tx, opts...)}
}

func (m *ElectronicMapper) validate(ctx context.Context, id int64, a Address) (*response.Response, error) {
	resp := response.New()
	require(resp,
		field("addressType", a.Type),
		field("category", a.Category),
		field("addressText", a.AddressText),
	)
	switch a.Type {
	case "":
	case ElectronicEmail:
		if a.AddressText != "" && !validEmail(a.AddressText) {
			resp.AddMessage(response.MsgInvalidEmail, response.LevelError, "addressText")
		}
	case ElectronicURL:
		if a.AddressText != "" && !validURL(a.AddressText) {
			resp.AddMessage(response.MsgInvalidURL, response.LevelError, "addressText")
		}
	default:
		resp.AddMessage(response.MsgInvalidAddressType, response.LevelError, "addressType")
	}
	if id == 0 {
		if err := m.checkParent(ctx, resp, a.ParentID); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// Create adds an electronic address; a primary one demotes its siblings.
func (m *ElectronicMapper) Create(ctx context.Context, a Address, trail audit.Trail) (*response.Response, error) {
	a = a.trimmed()
	resp, err := m.validate(ctx, 0, a)
	if err != nil {
		return nil, err
	}
	return m.create(ctx, electronicKind, trail, resp, createPlan{
		subtype:  string(AddressElectronic),
		parentID: a.ParentID,
		before:   m.primaryOnCreate(electronicKind, a),
		insert: func(ctx context.Context, id, txID int64) error {
			_, err := m.exec.Insert(ctx,
				`INSERT INTO entity_addresses_electronic (id, address_type, category, address_text, primary_contact, transaction_id)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				id, a.Type, a.Category, a.AddressText, a.PrimaryContact, txID)
			return err
		},
	})
}

// Update replaces electronic address id.
func (m *ElectronicMapper) Update(ctx context.Context, id int64, a Address, trail audit.Trail) (*response.Response, error) {
	a = a.trimmed()
	resp, err := m.validate(ctx, id, a)
	if err != nil {
		return nil, err
	}
	return m.update(ctx, electronicKind, id, trail, resp, updatePlan{
		before: m.primaryOnUpdate(electronicKind, id, a),
		apply: func(ctx context.Context, txID int64) (int64, error) {
			return m.exec.Update(ctx,
				`UPDATE entity_addresses_electronic SET address_type = $1, category = $2, address_text = $3, primary_contact = $4, transaction_id = $5
				 WHERE id = $6`,
				a.Type, a.Category, a.AddressText, a.PrimaryContact, txID, id)
		},
	})
}

func (m *ElectronicMapper) Delete(ctx context.Context, id int64, trail audit.Trail) (*response.Response, error) {
	return m.delete(ctx, electronicKind, id, trail)
}

func (m *ElectronicMapper) List(ctx context.Context, q Query) (*response.Response, error) {
	return m.list(ctx, electronicKind, q)
}

func (m *ElectronicMapper) Get(ctx context.Context, id int64, sel projection.Selection) (*response.Response, error) {
	return m.get(ctx, electronicKind, id, sel)
}

func (m *ElectronicMapper) History(ctx context.Context, id int64) (*response.Response, error) {
	return m.historyOf(ctx, electronicKind, id)
}

func (m *ElectronicMapper) addressKind() *kind { return electronicKind }
