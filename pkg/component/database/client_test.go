package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	options "github.com/kart-io/knowledge-clone/pkg/options/database"
)

func TestNew_SQLiteMemory(t *testing.T) {
	opts := options.NewOptions()
	opts.DSN = ":memory:"

	c, err := New(context.Background(), opts)
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, "sqlite", c.Name())

	type sampleRow struct {
		ID   uint
		Name string
	}
	require.NoError(t, c.DB().AutoMigrate(&sampleRow{}))
	require.NoError(t, c.DB().Create(&sampleRow{Name: "x"}).Error)

	var n int64
	require.NoError(t, c.DB().Model(&sampleRow{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestNew_InvalidDriver(t *testing.T) {
	opts := options.NewOptions()
	opts.Driver = "oracle"

	_, err := New(context.Background(), opts)
	assert.Error(t, err)
}

func TestDialector(t *testing.T) {
	for _, driver := range []string{options.DriverSQLite, options.DriverMySQL, options.DriverPostgres} {
		d, err := Dialector(driver, "dsn")
		require.NoError(t, err, driver)
		assert.Equal(t, driver, d.Name())
	}
}
