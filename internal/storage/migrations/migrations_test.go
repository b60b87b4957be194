package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://default@localhost:9000/sleep")
	require.NoError(t, err)
	assert.Equal(t, "sleep", db)

	_, err = databaseFromDSN("clickhouse://localhost:9000")
	assert.Error(t, err)
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, "`sleep`", quoteIdent("sleep"))
	assert.Equal(t, "`a``b`", quoteIdent("a`b"))
}
