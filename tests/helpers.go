package tests

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/myxmaster/zeus/db"
)

// NewTestDB opens a migrated in-memory database unique to the test.
func NewTestDB(t *testing.T) *gorm.DB {
	name := strings.ReplaceAll(t.Name(), "/", "_")
	gormDB, err := db.NewDB(fmt.Sprintf("file:%s?mode=memory&cache=shared", name), false)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Stop(gormDB)
	})
	return gormDB
}
