package mapper

import (
	"context"
	"slices"

	"tranquility/internal/audit"
	"tranquility/internal/entity"
	"tranquility/internal/projection"
	"tranquility/internal/response"
	"tranquility/internal/storage"
)

// PhoneTypes are the accepted addressType values for phone numbers.
var PhoneTypes = []string{"home", "mobile", "work", "company", "pager", "workFax", "homeFax"}

var phoneKind = &kind{
	name:       "address_phone",
	entityType: entity.TypeAddress,
	subtype:    string(AddressPhone),
	tables: entity.Tables{
		Business: "entity_addresses_phone",
		History:  "history_addresses_phone",
		Columns:  []string{"address_type", "address_text", "primary_contact", "transaction_id"},
	},
	fields: projection.FieldSet{
		{Key: "id", Column: "id"},
		{Key: "addressType", Column: "address_type"},
		{Key: "addressText", Column: "address_text"},
		{Key: "primaryContact", Column: "primary_contact"},
	},
	codes: addressCodes,
}

// PhoneMapper manages phone numbers.
type PhoneMapper struct {
	*core
}

func NewPhoneMapper(exec storage.Executor, tx TxRunner, opts ...Option) *PhoneMapper {
	return &PhoneMapper{core: newCore(exec, tx, opts...)}
}

func (m *PhoneMapper) validate(ctx context.Context, id int64, a Address) (*response.Response, error) {
	resp := response.New()
	require(resp,
		field("addressType", a.Type),
		field("addressText", a.AddressText),
	)
	if a.Type != "" && !slices.Contains(PhoneTypes, a.Type) {
		resp.AddMessage(response.MsgInvalidAddressType, response.LevelError, "addressType")
	}
	if a.AddressText != "" && !validPhone(a.AddressText) {
		resp.AddMessage(response.MsgInvalidPhoneNumber, response.LevelError, "addressText")
	}
	if id == 0 {
		if err := m.checkParent(ctx, resp, a.ParentID); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// Create adds a phone number; a primary one demotes its siblings.
func (m *PhoneMapper) Create(ctx context.Context, a Address, trail audit.Trail) (*response.Response, error) {
	a = a.trimmed()
	resp, err := m.validate(ctx, 0, a)
	if err != nil {
		return nil, err
	}
	return m.create(ctx, phoneKind, trail, resp, createPlan{
		subtype:  string(AddressPhone),
		parentID: a.ParentID,
		before:   m.primaryOnCreate(phoneKind, a),
		insert: func(ctx context.Context, id, txID int64) error {
			_, err := m.exec.Insert(ctx,
				`INSERT INTO entity_addresses_phone (id, address_type, address_text, primary_contact, transaction_id) VALUES ($1, $2, $3, $4, $5)`,
				id, a.Type, a.AddressText, a.PrimaryContact, txID)
			return err
		},
	})
}

// Update replaces phone number id.
func (m *PhoneMapper) Update(ctx context.Context, id int64, a Address, trail audit.Trail) (*response.Response, error) {
	a = a.trimmed()
	resp, err := m.validate(ctx, id, a)
	if err != nil {
		return nil, err
	}
	return m.update(ctx, phoneKind, id, trail, resp, updatePlan{
		before: m.primaryOnUpdate(phoneKind, id, a),
		apply: func(ctx context.Context, txID int64) (int64, error) {
			return m.exec.Update(ctx,
				`UPDATE entity_addresses_phone SET address_type = $1, address_text = $2, primary_contact = $3, transaction_id = $4 WHERE id = $5`,
				a.Type, a.AddressText, a.PrimaryContact, txID, id)
		},
	})
}

func (m *PhoneMapper) Delete(ctx context.Context, id int64, trail audit.Trail) (*response.Response, error) {
	return m.delete(ctx, phoneKind, id, trail)
}

func (m *PhoneMapper) List(ctx context.Context, q Query) (*response.Response, error) {
	return m.list(ctx, phoneKind, q)
}

func (m *PhoneMapper) Get(ctx context.Context, id int64, sel projection.Selection) (*response.Response, error) {
	return m.get(ctx, phoneKind, id, sel)
}

func (m *PhoneMapper) History(ctx context.Context, id int64) (*response.Response, error) {
	return m.historyOf(ctx, phoneKind, id)
}

func (m *PhoneMapper) addressKind() *kind { return phoneKind }
