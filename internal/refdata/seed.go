package refdata

import (
	"context"

	"tranquility/internal/storage"
	dErrors "tranquility/pkg/domain-errors"
)

// DefaultTimezones, DefaultLocales and DefaultRoles are loaded by Seed.
var (
	DefaultTimezones = []Timezone{
		{Code: "UTC", Description: "Coordinated Universal Time", Ordering: 1},
		{Code: "Australia/Sydney", Description: "Sydney", DaylightSavings: true, Ordering: 2},
		{Code: "Australia/Melbourne", Description: "Melbourne", DaylightSavings: true, Ordering: 3},
		{Code: "Australia/Brisbane", Description: "Brisbane", Ordering: 4},
		{Code: "Europe/London", Description: "London", DaylightSavings: true, Ordering: 5},
		{Code: "America/New_York", Description: "New York", DaylightSavings: true, Ordering: 6},
	}
	DefaultLocales = []Locale{
		{Code: "en-AU", Description: "English (Australia)", Ordering: 1},
		{Code: "en-GB", Description: "English (United Kingdom)", Ordering: 2},
		{Code: "en-US", Description: "English (United States)", Ordering: 3},
	}
	DefaultRoles = []Role{
		{ID: 1, Name: "administrator", Description: "Full access", Ordering: 1},
		{ID: 2, Name: "staff", Description: "Back office access", Ordering: 2},
		{ID: 3, Name: "customer", Description: "Self service access", Ordering: 3},
	}
)

// Seed inserts the default code tables, skipping rows that already exist.
// It returns the number of rows written.
func Seed(ctx context.Context, exec storage.Executor) (int, error) {
	written := 0
	insertIfMissing := func(check string, key any, insert string, args ...any) error {
		row, err := exec.SelectOne(ctx, check, key)
		if err != nil {
			return err
		}
		if row != nil {
			return nil
		}
		n, err := exec.Insert(ctx, insert, args...)
		written += int(n)
		return err
	}

	for _, z := range DefaultTimezones {
		if err := insertIfMissing(`SELECT code FROM cd_timezones WHERE code = $1`, z.Code,
			`INSERT INTO cd_timezones (code, description, daylight_savings, ordering) VALUES ($1, $2, $3, $4)`,
			z.Code, z.Description, z.DaylightSavings, z.Ordering); err != nil {
			return written, dErrors.Wrap(err, dErrors.CodePersistence, "seed timezones")
		}
	}
	for _, l := range DefaultLocales {
		if err := insertIfMissing(`SELECT code FROM cd_locales WHERE code = $1`, l.Code,
			`INSERT INTO cd_locales (code, description, ordering) VALUES ($1, $2, $3)`,
			l.Code, l.Description, l.Ordering); err != nil {
			return written, dErrors.Wrap(err, dErrors.CodePersistence, "seed locales")
		}
	}
	for _, r := range DefaultRoles {
		if err := insertIfMissing(`SELECT id FROM sys_acl_roles WHERE id = $1`, r.ID,
			`INSERT INTO sys_acl_roles (id, name, description, ordering) VALUES ($1, $2, $3, $4)`,
			r.ID, r.Name, r.Description, r.Ordering); err != nil {
			return written, dErrors.Wrap(err, dErrors.CodePersistence, "seed roles")
		}
	}
	return written, nil
}
