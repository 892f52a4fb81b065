package mapper_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"tranquility/internal/audit"
	"tranquility/internal/changefeed"
	"tranquility/internal/geolocation"
	"tranquility/internal/geolocation/mocks"
	"tranquility/internal/mapper"
	"tranquility/internal/projection"
	"tranquility/internal/refdata"
	"tranquility/internal/response"
	"tranquility/internal/storage"
	"tranquility/internal/storage/storagetest"
	dErrors "tranquility/pkg/domain-errors"
	"tranquility/pkg/platform/tx"
)

type MapperSuite struct {
	suite.Suite
	ctx      context.Context
	store    *storage.Store
	geocoder *mocks.MockGeocoder
	mappers  *mapper.Set
}

func TestMapperSuite(t *testing.T) {
	suite.Run(t, new(MapperSuite))
}

func (s *MapperSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = storagetest.NewSQLite(s.T())
	_, err := refdata.Seed(s.ctx, s.store)
	s.Require().NoError(err)

	ctrl := gomock.NewController(s.T())
	s.geocoder = mocks.NewMockGeocoder(ctrl)
	s.mappers = mapper.NewSet(mapper.Deps{
		Exec:     s.store,
		Tx:       tx.NewManager(s.store.DB()),
		Geocoder: s.geocoder,
		RefData:  refdata.New(s.store),
	}, []mapper.Option{
		mapper.WithChangeRecorder(changefeed.NewOutbox(s.store, "tranquility.entity-changes")),
	}, mapper.WithPasswordCost(4))
}

func trail() audit.Trail {
	return audit.Trail{
		UpdateBy:          1,
		UpdateDatetime:    "2024-05-01 10:00:00",
		TransactionSource: audit.SourceBackendUI,
		UpdateReason:      "test",
	}
}

func (s *MapperSuite) count(table, where string, args ...any) int64 {
	return storagetest.Count(s.T(), s.store, table, where, args...)
}

func (s *MapperSuite) entityRow(id int64) storage.Row {
	row, err := s.store.SelectOne(s.ctx, `SELECT version, deleted FROM entity WHERE id = $1`, id)
	s.Require().NoError(err)
	s.Require().NotNil(row)
	return row
}

func (s *MapperSuite) createPerson(first, last string) int64 {
	resp, err := s.mappers.Person.Create(s.ctx, mapper.Person{Title: "Mr", FirstName: first, LastName: last}, trail())
	s.Require().NoError(err)
	s.Require().Equal(http.StatusOK, resp.Code(), resp.Messages())
	id, ok := resp.Content()[0]["id"].(int64)
	s.Require().True(ok)
	return id
}

func created(s *MapperSuite, resp *response.Response, err error) int64 {
	s.Require().NoError(err)
	s.Require().Equal(http.StatusOK, resp.Code(), resp.Messages())
	s.Require().Len(resp.Content(), 1)
	return resp.Content()[0]["id"].(int64)
}

func (s *MapperSuite) TestPersonLifecycle() {
	var id int64

	s.Run("create returns version 1 and no history", func() {
		resp, err := s.mappers.Person.Create(s.ctx, mapper.Person{Title: "Mr", FirstName: "A", LastName: "B"}, trail())
		s.Require().NoError(err)
		s.Equal(http.StatusOK, resp.Code())
		s.True(resp.ContainsMessageCode(response.MsgPersonCreated))
		s.NotZero(resp.TransactionID())
		s.Require().Len(resp.Content(), 1)
		rec := resp.Content()[0]
		id = rec["id"].(int64)
		s.Equal(int64(1), rec["version"])
		s.Equal("B", rec["lastName"])
		s.Equal("test", rec["updateReason"])
		s.Zero(s.count("history_people", "id = $1", id))
	})

	s.Run("update bumps the version and snapshots the prior values", func() {
		resp, err := s.mappers.Person.Update(s.ctx, id, mapper.Person{Title: "Mr", FirstName: "A", LastName: "C"}, trail())
		s.Require().NoError(err)
		s.Equal(http.StatusOK, resp.Code())
		s.True(resp.ContainsMessageCode(response.MsgPersonUpdated))
		s.Equal(int64(2), resp.Content()[0]["version"])
		s.Equal("C", resp.Content()[0]["lastName"])

		hist, err := s.mappers.Person.History(s.ctx, id)
		s.Require().NoError(err)
		s.Require().Len(hist.Content(), 1)
		s.Equal("B", hist.Content()[0]["lastName"])
		s.Equal(int64(1), hist.Content()[0]["version"])
	})

	s.Run("delete marks the entity deleted at version 3", func() {
		resp, err := s.mappers.Person.Delete(s.ctx, id, trail())
		s.Require().NoError(err)
		s.Equal(http.StatusOK, resp.Code())
		s.True(resp.ContainsMessageCode(response.MsgPersonDeleted))

		row := s.entityRow(id)
		s.Equal(true, row["deleted"])
		s.Equal(int64(3), row["version"])
		s.Equal(int64(2), s.count("history_people", "id = $1", id))
	})

	s.Run("deleted people are not listed", func() {
		resp, err := s.mappers.Person.Get(s.ctx, id, projection.Selection{})
		s.Require().NoError(err)
		s.Empty(resp.Content())
		s.True(resp.ContainsMessageCode(response.MsgNoRecords))
	})

	s.Run("deleting again is OK with a does-not-exist error message", func() {
		resp, err := s.mappers.Person.Delete(s.ctx, id, trail())
		s.Require().NoError(err)
		s.Equal(http.StatusOK, resp.Code())
		s.Require().True(resp.ContainsMessageCode(response.MsgEntityDoesNotExist))
		s.True(resp.HasErrors())
		s.Equal(int64(3), s.entityRow(id)["version"])
	})

	s.Run("every mutation emitted a change event", func() {
		s.Equal(int64(3), s.count("outbox", "aggregate_id = $1", id))
	})
}

func (s *MapperSuite) TestVersionTracksUpdates() {
	id := s.createPerson("Ann", "Lee")
	const updates = 4
	for i := 0; i < updates; i++ {
		resp, err := s.mappers.Person.Update(s.ctx, id, mapper.Person{Title: "Ms", FirstName: "Ann", LastName: "Lee"}, trail())
		s.Require().NoError(err)
		s.Require().Equal(http.StatusOK, resp.Code())
	}
	s.Equal(int64(updates), s.count("history_people", "id = $1", id))
	s.Equal(int64(updates+1), s.entityRow(id)["version"])
}

func (s *MapperSuite) TestRejectedInputWritesNothing() {
	s.Run("missing mandatory field", func() {
		resp, err := s.mappers.Person.Create(s.ctx, mapper.Person{Title: "Mr", FirstName: "A"}, trail())
		s.Require().NoError(err)
		s.Equal(http.StatusBadRequest, resp.Code())
		s.Require().Len(resp.Messages(), 1)
		s.Equal(response.MsgMandatoryFieldMissing, resp.Messages()[0].Code)
		s.Equal("lastName", resp.Messages()[0].FieldID)
	})

	s.Run("missing audit trail", func() {
		resp, err := s.mappers.Person.Create(s.ctx, mapper.Person{Title: "Mr", FirstName: "A", LastName: "B"}, audit.Trail{})
		s.Require().NoError(err)
		s.Equal(http.StatusBadRequest, resp.Code())
		s.True(resp.ContainsMessageCode(response.MsgAuditTrailMissing))
	})

	s.Zero(s.count("entity", ""))
	s.Zero(s.count("entity_people", ""))
	s.Zero(s.count("sys_trans_audit", ""))
	s.Zero(s.count("outbox", ""))
}

func (s *MapperSuite) TestUpdateMissingTarget() {
	resp, err := s.mappers.Person.Update(s.ctx, 4242, mapper.Person{Title: "Mr", FirstName: "A", LastName: "B"}, trail())
	s.Require().NoError(err)
	s.Equal(http.StatusOK, resp.Code())
	s.True(resp.ContainsMessageCode(response.MsgEntityDoesNotExist))
	s.Zero(s.count("sys_trans_audit", ""))
}

func (s *MapperSuite) TestFailedUnitRollsBack() {
	id := s.createPerson("A", "B")
	txBefore := s.count("sys_trans_audit", "")
	_, err := s.store.DB().ExecContext(s.ctx, `DROP TABLE history_people`)
	s.Require().NoError(err)

	resp, err := s.mappers.Person.Update(s.ctx, id, mapper.Person{Title: "Mr", FirstName: "A", LastName: "C"}, trail())
	s.Require().NoError(err)
	s.Equal(http.StatusInternalServerError, resp.Code())
	s.True(resp.ContainsMessageCode(response.MsgPersonUpdateFailed))
	s.Equal(int64(1), s.entityRow(id)["version"])
	s.Equal(txBefore, s.count("sys_trans_audit", ""))
}

func (s *MapperSuite) TestEmptySnapshotRollsBack() {
	id := s.createPerson("A", "B")
	txBefore := s.count("sys_trans_audit", "")
	_, err := s.store.DB().ExecContext(s.ctx, `DELETE FROM entity_people WHERE id = $1`, id)
	s.Require().NoError(err)

	resp, err := s.mappers.Person.Update(s.ctx, id, mapper.Person{Title: "Mr", FirstName: "A", LastName: "C"}, trail())
	s.Require().NoError(err)
	s.Equal(http.StatusInternalServerError, resp.Code())
	s.True(resp.ContainsMessageCode(response.MsgHistoryFailed))
	s.Equal(int64(1), s.entityRow(id)["version"])
	s.Zero(s.count("history_people", "id = $1", id))
	s.Equal(txBefore, s.count("sys_trans_audit", ""))
}

func (s *MapperSuite) TestProjection() {
	id := s.createPerson("A", "B")
	auditKeys := []string{"version", "transactionId", "transactionSource", "updateBy", "updateDatetime", "updateReason"}

	s.Run("default omits the audit trail", func() {
		resp, err := s.mappers.Person.Get(s.ctx, id, projection.Selection{})
		s.Require().NoError(err)
		s.Require().Len(resp.Content(), 1)
		rec := resp.Content()[0]
		s.Len(rec, len(s.mappers.Person.Fields()))
		for _, key := range auditKeys {
			s.NotContains(rec, key)
		}
	})

	s.Run("verbose includes the audit trail", func() {
		resp, err := s.mappers.Person.Get(s.ctx, id, projection.Selection{Verbose: true})
		s.Require().NoError(err)
		rec := resp.Content()[0]
		for _, key := range auditKeys {
			s.Contains(rec, key)
		}
		s.Equal("2024-05-01 10:00:00", rec["updateDatetime"])
		s.Equal(string(audit.SourceBackendUI), rec["transactionSource"])
	})

	s.Run("custom selection", func() {
		resp, err := s.mappers.Person.Get(s.ctx, id, projection.Selection{
			Custom: projection.Pick(s.mappers.Person.Fields(), "lastName", "version"),
		})
		s.Require().NoError(err)
		s.Equal(response.Record{"lastName": "B", "version": int64(1)}, resp.Content()[0])
	})
}

func (s *MapperSuite) TestList() {
	s.createPerson("A", "Zed")
	s.createPerson("B", "Young")
	s.createPerson("C", "Young")

	s.Run("filter and order", func() {
		resp, err := s.mappers.Person.List(s.ctx, mapper.Query{
			Filter:  map[string]any{"lastName": "Young"},
			OrderBy: []string{"-firstName"},
		})
		s.Require().NoError(err)
		s.Require().Equal(2, resp.ItemCount())
		s.Equal("C", resp.Content()[0]["firstName"])
		s.True(resp.ContainsMessageCode(response.MsgPersonListRetrieved))
	})

	s.Run("limit and offset", func() {
		resp, err := s.mappers.Person.List(s.ctx, mapper.Query{Limit: 1, Offset: 1})
		s.Require().NoError(err)
		s.Require().Equal(1, resp.ItemCount())
		s.Equal("B", resp.Content()[0]["firstName"])
	})

	s.Run("unknown filter key is rejected", func() {
		_, err := s.mappers.Person.List(s.ctx, mapper.Query{Filter: map[string]any{"shoeSize": 9}})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	})

	s.Run("empty result warns", func() {
		resp, err := s.mappers.Person.List(s.ctx, mapper.Query{Filter: map[string]any{"lastName": "Nobody"}})
		s.Require().NoError(err)
		s.Equal(http.StatusOK, resp.Code())
		s.Require().Len(resp.Messages(), 1)
		s.Equal(response.LevelWarning, resp.Messages()[0].Level)
	})
}

func (s *MapperSuite) TestPrimaryContactExclusivity() {
	parent := s.createPerson("A", "B")
	phone := func(number string, primary bool) int64 {
		resp, err := s.mappers.Address.Create(s.ctx, mapper.AddressPhone, mapper.Address{
			ParentID: parent, Type: "mobile", AddressText: number, PrimaryContact: primary,
		}, trail())
		return created(s, resp, err)
	}

	first := phone("+61 400 000 001", true)
	second := phone("+61 400 000 002", true)

	s.Equal(int64(1), s.count("entity_addresses_phone", "primary_contact = TRUE"))
	s.Equal(int64(1), s.count("entity_addresses_phone", "primary_contact = TRUE AND id = $1", second))
	s.Equal(int64(1), s.count("history_addresses_phone", "id = $1 AND primary_contact = TRUE", first))
	s.Equal(int64(2), s.entityRow(first)["version"])

	s.Run("update to primary demotes the sibling", func() {
		resp, err := s.mappers.Address.Update(s.ctx, "", first, mapper.Address{
			Type: "mobile", AddressText: "+61 400 000 001", PrimaryContact: true,
		}, trail())
		s.Require().NoError(err)
		s.Require().Equal(http.StatusOK, resp.Code(), resp.Messages())
		s.Equal(int64(1), s.count("entity_addresses_phone", "primary_contact = TRUE"))
		s.Equal(int64(1), s.count("entity_addresses_phone", "primary_contact = TRUE AND id = $1", first))
		s.Equal(int64(1), s.count("history_addresses_phone", "id = $1", second))
	})

	s.Run("other families are untouched", func() {
		resp, err := s.mappers.Address.Create(s.ctx, mapper.AddressElectronic, mapper.Address{
			ParentID: parent, Type: mapper.ElectronicEmail, Category: "work", AddressText: "a@example.com", PrimaryContact: true,
		}, trail())
		created(s, resp, err)
		s.Equal(int64(1), s.count("entity_addresses_phone", "primary_contact = TRUE"))
		s.Equal(int64(1), s.count("entity_addresses_electronic", "primary_contact = TRUE"))
	})
}

func (s *MapperSuite) TestPrimaryContactRepairsDuplicates() {
	var logs bytes.Buffer
	set := mapper.NewSet(mapper.Deps{
		Exec:     s.store,
		Tx:       tx.NewManager(s.store.DB()),
		Geocoder: s.geocoder,
		RefData:  refdata.New(s.store),
	}, []mapper.Option{
		mapper.WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
	})
	parent := s.createPerson("A", "B")
	phone := func(number string, primary bool) int64 {
		resp, err := set.Address.Create(s.ctx, mapper.AddressPhone, mapper.Address{
			ParentID: parent, Type: "mobile", AddressText: number, PrimaryContact: primary,
		}, trail())
		return created(s, resp, err)
	}

	a := phone("+61 400 000 011", false)
	b := phone("+61 400 000 012", false)
	_, err := s.store.DB().ExecContext(s.ctx,
		`UPDATE entity_addresses_phone SET primary_contact = TRUE WHERE id IN ($1, $2)`, a, b)
	s.Require().NoError(err)

	c := phone("+61 400 000 013", true)

	s.Contains(logs.String(), "multiple primary contacts found")
	s.Equal(int64(1), s.count("entity_addresses_phone", "primary_contact = TRUE"))
	s.Equal(int64(1), s.count("entity_addresses_phone", "primary_contact = TRUE AND id = $1", c))
	for _, id := range []int64{a, b} {
		s.Equal(int64(1), s.count("history_addresses_phone", "id = $1 AND primary_contact = TRUE", id))
		s.Equal(int64(2), s.entityRow(id)["version"])
	}
}

func (s *MapperSuite) TestAddressDispatch() {
	parent := s.createPerson("A", "B")

	s.Run("unknown type is an error", func() {
		_, err := s.mappers.Address.Create(s.ctx, mapper.AddressType("pigeon"), mapper.Address{ParentID: parent}, trail())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	})

	s.Run("empty type resolves from the entity subtype", func() {
		resp, err := s.mappers.Address.Create(s.ctx, mapper.AddressElectronic, mapper.Address{
			ParentID: parent, Type: mapper.ElectronicURL, Category: "home", AddressText: "https://example.com",
		}, trail())
		id := created(s, resp, err)

		del, err := s.mappers.Address.Delete(s.ctx, "", id, trail())
		s.Require().NoError(err)
		s.True(del.ContainsMessageCode(response.MsgAddressDeleted))

		again, err := s.mappers.Address.Delete(s.ctx, "", id, trail())
		s.Require().NoError(err)
		s.Equal(http.StatusOK, again.Code())
		s.True(again.ContainsMessageCode(response.MsgEntityDoesNotExist))
	})

	s.Run("deleted address keeps its history through an untagged lookup", func() {
		resp, err := s.mappers.Address.Create(s.ctx, mapper.AddressPhone, mapper.Address{
			ParentID: parent, Type: "mobile", AddressText: "+61 400 000 009",
		}, trail())
		id := created(s, resp, err)

		del, err := s.mappers.Address.Delete(s.ctx, "", id, trail())
		s.Require().NoError(err)
		s.Require().True(del.ContainsMessageCode(response.MsgAddressDeleted))

		hist, err := s.mappers.Address.History(s.ctx, "", id)
		s.Require().NoError(err)
		s.Equal(http.StatusOK, hist.Code())
		s.Equal(1, hist.ItemCount())
		s.False(hist.ContainsMessageCode(response.MsgNoRecords))

		get, err := s.mappers.Address.Get(s.ctx, "", id, projection.Selection{})
		s.Require().NoError(err)
		s.True(get.ContainsMessageCode(response.MsgNoRecords))
	})

	s.Run("wrong family reports does not exist", func() {
		resp, err := s.mappers.Address.Create(s.ctx, mapper.AddressPhone, mapper.Address{
			ParentID: parent, Type: "home", AddressText: "(02) 9999 0000",
		}, trail())
		id := created(s, resp, err)

		del, err := s.mappers.Address.Delete(s.ctx, mapper.AddressElectronic, id, trail())
		s.Require().NoError(err)
		s.True(del.ContainsMessageCode(response.MsgEntityDoesNotExist))
	})

	s.Run("parse", func() {
		t, err := mapper.ParseAddressType("phone")
		s.Require().NoError(err)
		s.Equal(mapper.AddressPhone, t)
		_, err = mapper.ParseAddressType("fax")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	})
}

func (s *MapperSuite) TestAddressValidation() {
	parent := s.createPerson("A", "B")
	cases := []struct {
		name   string
		family mapper.AddressType
		input  mapper.Address
		code   int
	}{
		{"bad email", mapper.AddressElectronic, mapper.Address{ParentID: parent, Type: "email", Category: "work", AddressText: "not-an-email"}, response.MsgInvalidEmail},
		{"bad url", mapper.AddressElectronic, mapper.Address{ParentID: parent, Type: "url", Category: "work", AddressText: "ftp:/nope"}, response.MsgInvalidURL},
		{"bad electronic type", mapper.AddressElectronic, mapper.Address{ParentID: parent, Type: "pager", Category: "work", AddressText: "x"}, response.MsgInvalidAddressType},
		{"bad phone", mapper.AddressPhone, mapper.Address{ParentID: parent, Type: "home", AddressText: "call me"}, response.MsgInvalidPhoneNumber},
		{"short phone", mapper.AddressPhone, mapper.Address{ParentID: parent, Type: "home", AddressText: "123"}, response.MsgInvalidPhoneNumber},
		{"bad phone type", mapper.AddressPhone, mapper.Address{ParentID: parent, Type: "satellite", AddressText: "0299990000"}, response.MsgInvalidAddressType},
		{"bad physical type", mapper.AddressPhysical, mapper.Address{ParentID: parent, Type: "moon", Line1: "1 St", City: "C", State: "S", Postcode: "2000", Country: "AU"}, response.MsgInvalidAddressType},
		{"missing parent", mapper.AddressPhone, mapper.Address{Type: "home", AddressText: "0299990000"}, response.MsgMandatoryFieldMissing},
		{"unknown parent", mapper.AddressPhone, mapper.Address{ParentID: 9999, Type: "home", AddressText: "0299990000"}, response.MsgParentNotFound},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			resp, err := s.mappers.Address.Create(s.ctx, tc.family, tc.input, trail())
			s.Require().NoError(err)
			s.Equal(http.StatusBadRequest, resp.Code())
			s.True(resp.ContainsMessageCode(tc.code), resp.Messages())
		})
	}
	s.Zero(s.count("entity", "type = $1", "address"))
}

func (s *MapperSuite) TestPhysicalGeocoding() {
	parent := s.createPerson("A", "B")
	addr := mapper.Address{
		ParentID: parent, Type: "home", Line1: "1 Macquarie St", City: "Sydney", State: "NSW", Postcode: "2000", Country: "AU",
	}

	s.Run("success stores coordinates", func() {
		s.geocoder.EXPECT().Geocode(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, a geolocation.Address) geolocation.Result {
				s.Equal("Sydney", a.City)
				return geolocation.Result{Status: geolocation.StatusSuccess, Latitude: -33.86, Longitude: 151.21}
			})
		resp, err := s.mappers.Address.Create(s.ctx, mapper.AddressPhysical, addr, trail())
		id := created(s, resp, err)
		s.Equal(-33.86, resp.Content()[0]["latitude"])
		s.Equal(151.21, resp.Content()[0]["longitude"])

		s.Run("failure leaves zero coordinates", func() {
			s.geocoder.EXPECT().Geocode(gomock.Any(), gomock.Any()).
				Return(geolocation.Result{Status: geolocation.StatusLimitExceeded})
			resp, err := s.mappers.Physical.Update(s.ctx, id, addr, trail())
			s.Require().NoError(err)
			s.Require().Equal(http.StatusOK, resp.Code())
			s.Equal(float64(0), resp.Content()[0]["latitude"])
			s.Equal(int64(2), resp.Content()[0]["version"])
		})
	})

	s.Run("rejected input skips the lookup", func() {
		bad := addr
		bad.City = ""
		resp, err := s.mappers.Address.Create(s.ctx, mapper.AddressPhysical, bad, trail())
		s.Require().NoError(err)
		s.Equal(http.StatusBadRequest, resp.Code())
	})
}

func (s *MapperSuite) TestListForParent() {
	parent := s.createPerson("A", "B")
	other := s.createPerson("C", "D")

	s.Run("no addresses warns", func() {
		resp, err := s.mappers.Address.ListForParent(s.ctx, parent, projection.Selection{})
		s.Require().NoError(err)
		s.True(resp.ContainsMessageCode(response.MsgNoRecords))
	})

	for _, n := range []string{"0299990001", "0299990002"} {
		resp, err := s.mappers.Address.Create(s.ctx, mapper.AddressPhone, mapper.Address{ParentID: parent, Type: "work", AddressText: n}, trail())
		created(s, resp, err)
	}
	resp, err := s.mappers.Address.Create(s.ctx, mapper.AddressElectronic, mapper.Address{
		ParentID: parent, Type: "email", Category: "home", AddressText: "a@example.com",
	}, trail())
	created(s, resp, err)
	resp, err = s.mappers.Address.Create(s.ctx, mapper.AddressPhone, mapper.Address{ParentID: other, Type: "work", AddressText: "0299990003"}, trail())
	created(s, resp, err)

	grouped, err := s.mappers.Address.ListForParent(s.ctx, parent, projection.Selection{})
	s.Require().NoError(err)
	s.Equal(3, grouped.ItemCount())
	s.Len(grouped.Groups()["phone"], 2)
	s.Len(grouped.Groups()["electronic"], 1)
	s.NotContains(grouped.Groups(), "physical")
	s.True(grouped.ContainsMessageCode(response.MsgAddressListRetrieved))
}

func (s *MapperSuite) TestUser() {
	person := s.createPerson("A", "B")
	newUser := mapper.User{
		ParentID:        person,
		Username:        "ann",
		Password:        "correct horse",
		Timezone:        "Australia/Sydney",
		Locale:          "en-AU",
		SecurityGroupID: 2,
	}
	var id int64

	s.Run("create hides the password", func() {
		resp, err := s.mappers.User.Create(s.ctx, newUser, trail())
		id = created(s, resp, err)
		rec := resp.Content()[0]
		s.NotContains(rec, "password")
		s.Equal(true, rec["active"])
		s.NotNil(rec["registeredDateTime"])
		s.Nil(rec["lastVisitDateTime"])
	})

	s.Run("password check", func() {
		ok, err := s.mappers.User.CheckPassword(s.ctx, "ann", "correct horse")
		s.Require().NoError(err)
		s.True(ok)
		ok, err = s.mappers.User.CheckPassword(s.ctx, "ann", "wrong")
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("lookup by parent", func() {
		resp, err := s.mappers.User.UserByParent(s.ctx, person, projection.Selection{})
		s.Require().NoError(err)
		s.Require().Len(resp.Content(), 1)
		s.Equal(id, resp.Content()[0]["id"])
	})

	s.Run("duplicate username", func() {
		dup := newUser
		dup.ParentID = s.createPerson("C", "D")
		resp, err := s.mappers.User.Create(s.ctx, dup, trail())
		s.Require().NoError(err)
		s.Equal(http.StatusBadRequest, resp.Code())
		s.True(resp.ContainsMessageCode(response.MsgUsernameInUse))
	})

	s.Run("reference data checks", func() {
		bad := newUser
		bad.Username = "bob"
		bad.Timezone = "Mars/Olympus"
		bad.Locale = "xx-YY"
		bad.SecurityGroupID = 99
		resp, err := s.mappers.User.Create(s.ctx, bad, trail())
		s.Require().NoError(err)
		s.Equal(http.StatusBadRequest, resp.Code())
		s.True(resp.ContainsMessageCode(response.MsgInvalidTimezone))
		s.True(resp.ContainsMessageCode(response.MsgInvalidLocale))
		s.True(resp.ContainsMessageCode(response.MsgInvalidRole))
	})

	s.Run("update keeps the password and can deactivate", func() {
		inactive := false
		upd := newUser
		upd.Password = ""
		upd.Active = &inactive
		upd.Locale = "en-GB"
		resp, err := s.mappers.User.Update(s.ctx, id, upd, trail())
		s.Require().NoError(err)
		s.Require().Equal(http.StatusOK, resp.Code(), resp.Messages())
		s.Equal(false, resp.Content()[0]["active"])
		s.Equal("en-GB", resp.Content()[0]["locale"])

		ok, err := s.mappers.User.CheckPassword(s.ctx, "ann", "correct horse")
		s.Require().NoError(err)
		s.True(ok)
		s.Equal(int64(1), s.count("history_users", "id = $1", id))
	})
}
