package mapper

import (
	"context"
	"slices"

	"tranquility/internal/audit"
	"tranquility/internal/entity"
	"tranquility/internal/geolocation"
	"tranquility/internal/projection"
	"tranquility/internal/response"
	"tranquility/internal/storage"
)

// PhysicalTypes are the accepted addressType values for physical addresses.
var PhysicalTypes = []string{"home", "postal", "billing"}

var physicalKind = &kind{
	name:       "address_physical",
	entityType: entity.TypeAddress,
	subtype:    string(AddressPhysical),
	tables: entity.Tables{
		Business: "entity_addresses_physical",
		History:  "history_addresses_physical",
		Columns: []string{"address_type", "address_line1", "address_line2", "address_line3", "address_line4",
			"city", "state", "postcode", "country", "latitude", "longitude", "transaction_id"},
	},
	fields: projection.FieldSet{
		{Key: "id", Column: "id"},
		{Key: "addressType", Column: "address_type"},
		{Key: "addressLine1", Column: "address_line1"},
		{Key: "addressLine2", Column: "address_line2"},
		{Key: "addressLine3", Column: "address_line3"},
		{Key: "addressLine4", Column: "address_line4"},
		{Key: "city", Column: "city"},
		{Key: "state", Column: "state"},
		{Key: "postcode", Column: "postcode"},
		{Key: "country", Column: "country"},
		{Key: "latitude", Column: "latitude"},
		{Key: "longitude", Column: "longitude"},
	},
	codes: addressCodes,
}

// PhysicalMapper manages postal addresses and resolves their coordinates.
type PhysicalMapper struct {
	*core
	geocoder geolocation.Geocoder
}

// NewPhysicalMapper builds a PhysicalMapper. A nil geocoder disables lookups.
func NewPhysicalMapper(exec storage.Executor, tx TxRunner, geocoder geolocation.Geocoder, opts ...Option) *PhysicalMapper {
	return newPhysicalMapper(newCore(exec, tx, opts...), geocoder)
}

func newPhysicalMapper(c *core, geocoder geolocation.Geocoder) *PhysicalMapper {
	if geocoder == nil {
		geocoder = geolocation.Disabled{}
	}
	return &PhysicalMapper{core: c, geocoder: geocoder}
}

func (m *PhysicalMapper) validate(ctx context.Context, id int64, a Address) (*response.Response, error) {
	resp := response.New()
	require(resp,
		field("addressType", a.Type),
		field("addressLine1", a.Line1),
		field("city", a.City),
		field("state", a.State),
		field("postcode", a.Postcode),
		field("country", a.Country),
	)
	if a.Type != "" && !slices.Contains(PhysicalTypes, a.Type) {
		resp.AddMessage(response.MsgInvalidAddressType, response.LevelError, "addressType")
	}
	if id == 0 {
		if err := m.checkParent(ctx, resp, a.ParentID); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// locate geocodes a; any failure leaves the coordinates at zero.
func (m *PhysicalMapper) locate(ctx context.Context, a Address) (float64, float64) {
	res := m.geocoder.Geocode(ctx, geolocation.Address{
		Line1: a.Line1, Line2: a.Line2, Line3: a.Line3, Line4: a.Line4,
		City: a.City, State: a.State, Postcode: a.Postcode, Country: a.Country,
	})
	if res.Status != geolocation.StatusSuccess {
		m.logger.InfoContext(ctx, "geocode unavailable, storing zero coordinates", "status", string(res.Status))
		return 0, 0
	}
	return res.Latitude, res.Longitude
}

// Create adds a physical address under a.ParentID.
func (m *PhysicalMapper) Create(ctx context.Context, a Address, trail audit.Trail) (*response.Response, error) {
	a = a.trimmed()
	resp, err := m.validate(ctx, 0, a)
	if err != nil {
		return nil, err
	}
	var lat, lng float64
	if !resp.HasErrors() && trail.Complete() {
		lat, lng = m.locate(ctx, a)
	}
	return m.create(ctx, physicalKind, trail, resp, createPlan{
		subtype:  string(AddressPhysical),
		parentID: a.ParentID,
		insert: func(ctx context.Context, id, txID int64) error {
			_, err := m.exec.Insert(ctx,
				`INSERT INTO entity_addresses_physical (id, address_type, address_line1, address_line2, address_line3, address_line4,
				 city, state, postcode, country, latitude, longitude, transaction_id)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
				id, a.Type, a.Line1, a.Line2, a.Line3, a.Line4, a.City, a.State, a.Postcode, a.Country, lat, lng, txID)
			return err
		},
	})
}

// Update replaces physical address id and re-resolves its coordinates.
func (m *PhysicalMapper) Update(ctx context.Context, id int64, a Address, trail audit.Trail) (*response.Response, error) {
	a = a.trimmed()
	resp, err := m.validate(ctx, id, a)
	if err != nil {
		return nil, err
	}
	var lat, lng float64
	if !resp.HasErrors() && trail.Complete() {
		live, err := m.live(ctx, physicalKind, id)
		if err != nil {
			return nil, err
		}
		if live {
			lat, lng = m.locate(ctx, a)
		}
	}
	return m.update(ctx, physicalKind, id, trail, resp, updatePlan{
		apply: func(ctx context.Context, txID int64) (int64, error) {
			return m.exec.Update(ctx,
				`UPDATE entity_addresses_physical SET address_type = $1, address_line1 = $2, address_line2 = $3, address_line3 = $4,
				 address_line4 = $5, city = $6, state = $7, postcode = $8, country = $9, latitude = $10, longitude = $11, transaction_id = $12
				 WHERE id = $13`,
				a.Type, a.Line1, a.Line2, a.Line3, a.Line4, a.City, a.State, a.Postcode, a.Country, lat, lng, txID, id)
		},
	})
}

func (m *PhysicalMapper) Delete(ctx context.Context, id int64, trail audit.Trail) (*response.Response, error) {
	return m.delete(ctx, physicalKind, id, trail)
}

func (m *PhysicalMapper) List(ctx context.Context, q Query) (*response.Response, error) {
	return m.list(ctx, physicalKind, q)
}

func (m *PhysicalMapper) Get(ctx context.Context, id int64, sel projection.Selection) (*response.Response, error) {
	return m.get(ctx, physicalKind, id, sel)
}

func (m *PhysicalMapper) History(ctx context.Context, id int64) (*response.Response, error) {
	return m.historyOf(ctx, physicalKind, id)
}

func (m *PhysicalMapper) addressKind() *kind { return physicalKind }
