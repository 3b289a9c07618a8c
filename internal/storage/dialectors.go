package storage

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/vaultgram/vaultgram-server/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func createDialector(config *config.DatabaseConfig) (gorm.Dialector, error) {
	switch config.Driver {
	case "sqlite3", "sqlite":
		return sqlite.Open(config.Connection), nil
	case "postgres":
		return postgres.Open(config.Connection), nil
	case "mysql":
		return mysql.Open(config.Connection), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", config.Driver)
	}
}
