package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"tranquility/internal/geolocation"
	"tranquility/internal/mapper"
	"tranquility/internal/refdata"
	"tranquility/internal/response"
	"tranquility/internal/storage"
	"tranquility/pkg/platform/tx"
)

// NewMigrateCommand applies pending schema migrations.
func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, cfg, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			dialect, err := storage.DialectFor(cfg.Driver)
			if err != nil {
				return err
			}
			applied, err := storage.Migrate(cmd.Context(), db, dialect)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
				return nil
			}
			for _, name := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", name)
			}
			return nil
		},
	}
}

// NewSeedCommand loads the default reference data.
func NewSeedCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load default timezones, locales and security roles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, _, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := refdata.Seed(cmd.Context(), storage.New(db))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d rows\n", n)
			return nil
		},
	}
}

// historyTypes are the accepted --type values.
var historyTypes = []string{"person", "user", "physical", "electronic", "phone"}

// NewHistoryCommand prints the prior versions of one entity as JSON.
func NewHistoryCommand(opts *RootOptions) *cobra.Command {
	var typ string
	cmd := &cobra.Command{
		Use:   "history <id>",
		Short: "Print the version history of an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", args[0], err)
			}
			db, _, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			store := storage.New(db)
			set := mapper.NewSet(mapper.Deps{
				Exec:     store,
				Tx:       tx.NewManager(db),
				Geocoder: geolocation.Disabled{},
				RefData:  refdata.New(store),
			}, nil)

			var resp *response.Response
			switch typ {
			case "person":
				resp, err = set.Person.History(cmd.Context(), id)
			case "user":
				resp, err = set.User.History(cmd.Context(), id)
			default:
				var family mapper.AddressType
				if family, err = mapper.ParseAddressType(typ); err != nil {
					return fmt.Errorf("--type must be one of %v", historyTypes)
				}
				resp, err = set.Address.History(cmd.Context(), family, id)
			}
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resp.Document())
		},
	}
	cmd.Flags().StringVar(&typ, "type", "person", fmt.Sprintf("entity type %v", historyTypes))
	return cmd
}
