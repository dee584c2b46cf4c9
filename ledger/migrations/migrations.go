package migrations

import (
	_ "embed"

	"github.com/shieldedlabs/midenbridge/db"
	"github.com/shieldedlabs/midenbridge/db/types"
)

//go:embed ledger0001.sql
var mig001 string

func RunMigrations(dbPath string) error {
	migrations := []types.Migration{
		{
			ID:  "ledger0001",
			SQL: mig001,
		},
	}
	return db.RunMigrations(dbPath, migrations)
}
