package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/nettodev/realms-auth/app/entity"
	"github.com/nettodev/realms-auth/app/repository"
	"github.com/nettodev/realms-auth/app/service"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var realmCmd = &cobra.Command{
	Use:   "realm",
	Short: "Manage tenant realms",
}

var realmCreateCmd = &cobra.Command{
	Use:   "create <name> <redirect_url> [background_url]",
	Short: "Create a realm",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(_ *cobra.Command, args []string) error {
		realmService, db, err := newRealmServiceForCommands()
		if err != nil {
			return err
		}
		defer db.Close()

		realm := &entity.Realm{
			Name:        args[0],
			RedirectURL: args[1],
		}
		if len(args) == 3 {
			realm.BackgroundURL = sql.NullString{String: args[2], Valid: true}
		}

		if err = realmService.Create(context.Background(), realm); err != nil {
			if errors.Is(err, service.ErrRealmExists) {
				return fmt.Errorf("realm %q already exists", realm.Name)
			}
			return err
		}

		fmt.Printf("id: %d\n", realm.ID)
		fmt.Printf("name: %s\n", realm.Name)
		fmt.Printf("redirect_url: %s\n", realm.RedirectURL)
		return nil
	},
}

var realmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all realms",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		realmService, db, err := newRealmServiceForCommands()
		if err != nil {
			return err
		}
		defer db.Close()

		realms, err := realmService.List(context.Background(), 0, "")
		if err != nil {
			return err
		}

		for _, realm := range realms {
			fmt.Printf("%d\t%s\t%s\n", realm.ID, realm.Name, realm.RedirectURL)
		}
		return nil
	},
}

func init() {
	realmCmd.AddCommand(realmCreateCmd)
	realmCmd.AddCommand(realmListCmd)
	rootCmd.AddCommand(realmCmd)
}

func newRealmServiceForCommands() (service.RealmService, *sql.DB, error) {
	_ = godotenv.Load()

	dsn := strings.TrimSpace(os.Getenv("MYSQL_DSN"))
	if dsn == "" {
		return nil, nil, errors.New("MYSQL_DSN environment variable is required")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, nil, err
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, nil, err
	}

	return service.NewRealmService(repository.NewRealmRepository(db)), db, nil
}
