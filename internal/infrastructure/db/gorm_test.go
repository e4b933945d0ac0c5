package db

import (
	"context"
	"errors"
	"testing"

	workflowDomain "coop-loans/internal/domain/workflow"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
)

func TestOpenGormWithDialector_Success(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer sqlDB.Close()

	// exactly one ping: gorm's automatic ping is off, OpenGormWithDialector pings itself
	mock.ExpectPing()

	// mysql dialector over the mocked *sql.DB; skip the @@version probe
	dial := mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	})

	gdb, err := OpenGormWithDialector(dial)
	require.NoError(t, err)
	require.NotNil(t, gdb)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenGormWithDialector_PingFails(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectPing().WillReturnError(errors.New("no ping"))

	dial := mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	})

	gdb, err := OpenGormWithDialector(dial)
	assert.Error(t, err, "gdb=%v", gdb)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateAndSeedTemplates(t *testing.T) {
	gdb, err := OpenGormWithDialector(sqlite.Open("file:migrate_test?mode=memory&cache=shared"))
	require.NoError(t, err)
	sqlDB, _ := gdb.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	ctx := context.Background()
	require.NoError(t, Migrate(ctx, gdb))
	for _, m := range Models() {
		assert.True(t, gdb.Migrator().HasTable(m), "missing table for %T", m)
	}

	require.NoError(t, SeedTemplates(ctx, gdb))
	require.NoError(t, SeedTemplates(ctx, gdb)) // second run is a no-op

	var tpls []workflowDomain.Template
	require.NoError(t, gdb.Order("priority").Find(&tpls).Error)
	require.Len(t, tpls, 2)
	assert.Equal(t, []string{"loan_officer", "credit_committee"}, tpls[0].Roles())
	assert.Len(t, tpls[1].Roles(), 3)
	assert.False(t, tpls[1].MaxAmount.Valid)
}
