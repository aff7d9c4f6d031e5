package plans

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dariovega/vidora-backend/pkg/config"
	"github.com/dariovega/vidora-backend/pkg/enums"
)

func TestNew_IndexesByProductID(t *testing.T) {
	catalog, err := New([]Plan{
		{ProductID: "plan_basic", Name: "Basic", Credits: 300, GroupID: "core", Category: enums.PlanCategorySubscription},
		{ProductID: "pack_small", Name: "Starter Pack", Credits: 100, Category: enums.PlanCategoryOneTime},
	})
	require.NoError(t, err)

	plan, ok := catalog.Find("plan_basic")
	require.True(t, ok, "expected plan_basic present")
	assert.Equal(t, int64(300), plan.Credits)
	assert.True(t, plan.IsRecurring())

	pack, ok := catalog.Find("pack_small")
	require.True(t, ok, "expected pack_small present")
	assert.False(t, pack.IsRecurring())
}

func TestNew_RejectsInvalidEntries(t *testing.T) {
	_, err := New([]Plan{{ProductID: "", Credits: 10, Category: enums.PlanCategoryOneTime}})
	assert.Error(t, err, "missing product id must be rejected")

	_, err = New([]Plan{{ProductID: "p", Credits: 10, Category: "weekly"}})
	assert.Error(t, err, "unknown category must be rejected")

	_, err = New([]Plan{
		{ProductID: "p", Credits: 10, Category: enums.PlanCategoryOneTime},
		{ProductID: "p", Credits: 20, Category: enums.PlanCategoryOneTime},
	})
	assert.Error(t, err, "duplicate product id must be rejected")
}

func TestLoad_InlineJSONWinsOverPath(t *testing.T) {
	catalog, err := Load(config.CatalogConfig{
		JSON: `[{"product_id":"plan_pro","credits":1000,"category":"subscription"}]`,
		Path: "does-not-exist.json",
	})
	require.NoError(t, err)

	_, ok := catalog.Find("plan_pro")
	assert.True(t, ok, "expected plan_pro from inline JSON")
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	payload := `[{"product_id":"plan_basic","credits":300,"category":"subscription","group_id":"core"}]`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))

	catalog, err := Load(config.CatalogConfig{Path: path})
	require.NoError(t, err)
	assert.Equal(t, 1, catalog.Len())
}

func TestLoad_EmptyConfigYieldsEmptyCatalog(t *testing.T) {
	catalog, err := Load(config.CatalogConfig{})
	require.NoError(t, err)
	assert.Equal(t, 0, catalog.Len())

	_, ok := catalog.Find("anything")
	assert.False(t, ok, "expected no hit in empty catalog")
}
