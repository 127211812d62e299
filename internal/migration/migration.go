package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	authdomain "github.com/smallbiznis/orderdesk/internal/auth/domain"
	customerdomain "github.com/smallbiznis/orderdesk/internal/customer/domain"
	notificationdomain "github.com/smallbiznis/orderdesk/internal/notification/domain"
	orderdomain "github.com/smallbiznis/orderdesk/internal/order/domain"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Models lists every persisted type in dependency order.
func Models() []any {
	return []any{
		&authdomain.User{},
		&authdomain.Token{},
		&customerdomain.Customer{},
		&orderdomain.Order{},
		&notificationdomain.Notification{},
	}
}

// AutoMigrate creates the schema from the gorm models. Used for sqlite and
// mysql, where the versioned SQL files do not apply.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}
	return db.AutoMigrate(Models()...)
}

// Source returns the embedded versioned migrations.
func Source() (fs.FS, error) {
	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}
	return sub, nil
}

// RunMigrations applies the embedded SQL migrations to a postgres database.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := Source()
	if err != nil {
		return err
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// migrator.Close would close the shared *sql.DB

	return nil
}
