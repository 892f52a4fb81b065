package mapper

import (
	"context"
	"strconv"
	"strings"

	"tranquility/internal/audit"
	"tranquility/internal/entity"
	"tranquility/internal/projection"
	"tranquility/internal/response"
	"tranquility/internal/storage"
	dErrors "tranquility/pkg/domain-errors"
	"tranquility/pkg/requestcontext"
	"tranquility/pkg/secrets"
)

// RefData answers the reference-data questions user validation asks.
type RefData interface {
	IsValidTimezone(ctx context.Context, code string) (bool, error)
	IsValidLocale(ctx context.Context, code string) (bool, error)
	IsValidSecurityRole(ctx context.Context, id int64) (bool, error)
}

// User is the caller-supplied state of a user account. ParentID and Password
// are required on create; on update a blank Password keeps the stored hash
// and a nil Active keeps the stored flag.
type User struct {
	ParentID        int64
	Username        string
	Password        string
	Timezone        string
	Locale          string
	SecurityGroupID int64
	Active          *bool
}

var userKind = &kind{
	name:       "user",
	entityType: entity.TypeUser,
	tables: entity.Tables{
		Business: "entity_users",
		History:  "history_users",
		Columns: []string{"username", "password", "timezone_code", "locale_code", "active",
			"security_group_id", "registered_date_time", "last_visit_date_time", "transaction_id"},
	},
	fields: projection.FieldSet{
		{Key: "id", Column: "id"},
		{Key: "username", Column: "username"},
		{Key: "timezone", Column: "timezone_code"},
		{Key: "locale", Column: "locale_code"},
		{Key: "active", Column: "active"},
		{Key: "securityGroupId", Column: "security_group_id"},
		{Key: "registeredDateTime", Column: "registered_date_time"},
		{Key: "lastVisitDateTime", Column: "last_visit_date_time"},
	},
	hidden: []string{"password"},
	codes: messageCodes{
		listed:       response.MsgUserListRetrieved,
		retrieved:    response.MsgUserRetrieved,
		created:      response.MsgUserCreated,
		createFailed: response.MsgUserCreateFailed,
		updated:      response.MsgUserUpdated,
		updateFailed: response.MsgUserUpdateFailed,
		deleted:      response.MsgUserDeleted,
		deleteFailed: response.MsgUserDeleteFailed,
		conflict:     response.MsgUsernameInUse,
	},
}

// UserMapper manages user accounts owned by people.
type UserMapper struct {
	*core
	refdata      RefData
	passwordCost int
}

// UserOption configures a UserMapper.
type UserOption func(*UserMapper)

// WithPasswordCost overrides the bcrypt cost; tests use the minimum.
func WithPasswordCost(cost int) UserOption {
	return func(m *UserMapper) { m.passwordCost = cost }
}

// NewUserMapper builds a UserMapper with its own collaborators.
func NewUserMapper(exec storage.Executor, tx TxRunner, refdata RefData, opts []Option, userOpts ...UserOption) *UserMapper {
	return newUserMapper(newCore(exec, tx, opts...), refdata, userOpts...)
}

func newUserMapper(c *core, refdata RefData, opts ...UserOption) *UserMapper {
	m := &UserMapper{core: c, refdata: refdata, passwordCost: secrets.DefaultCost}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Fields returns the default field set.
func (m *UserMapper) Fields() projection.FieldSet {
	return userKind.fields
}

// validate checks u; id is zero for a new user.
func (m *UserMapper) validate(ctx context.Context, id int64, u User) (*response.Response, error) {
	resp := response.New()
	required := [][2]string{
		field("username", u.Username),
		field("timezone", u.Timezone),
		field("locale", u.Locale),
		field("securityGroupId", nonZero(u.SecurityGroupID)),
	}
	if id == 0 {
		required = append(required, field("parentId", nonZero(u.ParentID)), field("password", u.Password))
	}
	require(resp, required...)
	if resp.HasErrors() {
		return resp, nil
	}

	if id == 0 {
		ok, err := m.registry.Exists(ctx, u.ParentID, entity.TypePerson, false)
		if err != nil {
			return nil, err
		}
		if !ok {
			resp.AddMessage(response.MsgParentNotFound, response.LevelError, "parentId")
		}
	}
	if ok, err := m.refdata.IsValidTimezone(ctx, u.Timezone); err != nil {
		return nil, err
	} else if !ok {
		resp.AddMessage(response.MsgInvalidTimezone, response.LevelError, "timezone")
	}
	if ok, err := m.refdata.IsValidLocale(ctx, u.Locale); err != nil {
		return nil, err
	} else if !ok {
		resp.AddMessage(response.MsgInvalidLocale, response.LevelError, "locale")
	}
	if ok, err := m.refdata.IsValidSecurityRole(ctx, u.SecurityGroupID); err != nil {
		return nil, err
	} else if !ok {
		resp.AddMessage(response.MsgInvalidRole, response.LevelError, "securityGroupId")
	}
	taken, err := m.usernameTaken(ctx, u.Username, id)
	if err != nil {
		return nil, err
	}
	if taken {
		resp.AddMessage(response.MsgUsernameInUse, response.LevelError, "username")
	}
	return resp, nil
}

// usernameTaken reports whether any other account, deleted or not, holds username.
func (m *UserMapper) usernameTaken(ctx context.Context, username string, self int64) (bool, error) {
	row, err := m.exec.SelectOne(ctx,
		`SELECT id FROM entity_users WHERE username = $1 AND id <> $2`, username, self)
	if err != nil {
		return false, err
	}
	return row != nil, nil
}

// Create adds an account for the person u.ParentID.
func (m *UserMapper) Create(ctx context.Context, u User, trail audit.Trail) (*response.Response, error) {
	u = u.trimmed()
	resp, err := m.validate(ctx, 0, u)
	if err != nil {
		return nil, err
	}
	var hash string
	if !resp.HasErrors() {
		if hash, err = secrets.HashWithCost(u.Password, m.passwordCost); err != nil {
			if !dErrors.HasCode(err, dErrors.CodeValidation) {
				return nil, err
			}
			resp.AddMessage(response.MsgMandatoryFieldMissing, response.LevelError, "password")
		}
	}
	active := true
	if u.Active != nil {
		active = *u.Active
	}
	return m.create(ctx, userKind, trail, resp, createPlan{
		parentID: u.ParentID,
		insert: func(ctx context.Context, id, txID int64) error {
			_, err := m.exec.Insert(ctx,
				`INSERT INTO entity_users (id, username, password, timezone_code, locale_code, active, security_group_id, registered_date_time, transaction_id)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				id, u.Username, hash, u.Timezone, u.Locale, active, u.SecurityGroupID, requestcontext.Now(ctx).UTC(), txID)
			return err
		},
	})
}

// Update replaces the account state of user id.
func (m *UserMapper) Update(ctx context.Context, id int64, u User, trail audit.Trail) (*response.Response, error) {
	u = u.trimmed()
	resp, err := m.validate(ctx, id, u)
	if err != nil {
		return nil, err
	}
	var hash string
	if u.Password != "" && !resp.HasErrors() {
		if hash, err = secrets.HashWithCost(u.Password, m.passwordCost); err != nil {
			if !dErrors.HasCode(err, dErrors.CodeValidation) {
				return nil, err
			}
			resp.AddMessage(response.MsgMandatoryFieldMissing, response.LevelError, "password")
		}
	}
	return m.update(ctx, userKind, id, trail, resp, updatePlan{
		apply: func(ctx context.Context, txID int64) (int64, error) {
			set := []string{"username = $1", "timezone_code = $2", "locale_code = $3", "security_group_id = $4", "transaction_id = $5"}
			args := []any{u.Username, u.Timezone, u.Locale, u.SecurityGroupID, txID}
			if hash != "" {
				args = append(args, hash)
				set = append(set, "password = $"+strconv.Itoa(len(args)))
			}
			if u.Active != nil {
				args = append(args, *u.Active)
				set = append(set, "active = $"+strconv.Itoa(len(args)))
			}
			args = append(args, id)
			return m.exec.Update(ctx,
				"UPDATE entity_users SET "+strings.Join(set, ", ")+" WHERE id = $"+strconv.Itoa(len(args)), args...)
		},
	})
}

// Delete logically deletes user id.
func (m *UserMapper) Delete(ctx context.Context, id int64, trail audit.Trail) (*response.Response, error) {
	return m.delete(ctx, userKind, id, trail)
}

// List returns live users matching q.
func (m *UserMapper) List(ctx context.Context, q Query) (*response.Response, error) {
	return m.list(ctx, userKind, q)
}

// Get returns user id.
func (m *UserMapper) Get(ctx context.Context, id int64, sel projection.Selection) (*response.Response, error) {
	return m.get(ctx, userKind, id, sel)
}

// History returns the prior versions of user id.
func (m *UserMapper) History(ctx context.Context, id int64) (*response.Response, error) {
	return m.historyOf(ctx, userKind, id)
}

// UserByParent returns the live account owned by personID.
func (m *UserMapper) UserByParent(ctx context.Context, personID int64, sel projection.Selection) (*response.Response, error) {
	rows, err := m.exec.Select(ctx,
		userKind.selectSQL()+" AND b.id IN (SELECT child_id FROM entity_xref WHERE parent_id = $1) ORDER BY b.id", personID)
	if err != nil {
		return nil, err
	}
	return m.respond(rows, userKind, sel, userKind.codes.retrieved), nil
}

// CheckPassword reports whether password matches the live account username.
func (m *UserMapper) CheckPassword(ctx context.Context, username, password string) (bool, error) {
	row, err := m.exec.SelectOne(ctx,
		`SELECT u.password FROM entity_users u JOIN entity e ON e.id = u.id WHERE u.username = $1 AND e.deleted = FALSE`,
		strings.TrimSpace(username))
	if err != nil || row == nil {
		return false, err
	}
	hash, _ := row["password"].(string)
	if err := secrets.Verify(password, hash); err != nil {
		if dErrors.HasCode(err, dErrors.CodeValidation) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (u User) trimmed() User {
	u.Username = strings.TrimSpace(u.Username)
	u.Timezone = strings.TrimSpace(u.Timezone)
	u.Locale = strings.TrimSpace(u.Locale)
	return u
}

func nonZero(v int64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatInt(v, 10)
}
