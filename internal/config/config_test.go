package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	svcerrors "github.com/suiven-network/suiven/internal/errors"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, FallbackPackageID, cfg.PackageID)
	assert.Equal(t, "0x0000000000000000000000000000000000000000000000000000000000000006", cfg.Clock())
	assert.Empty(t, cfg.OrganizerCapID)
	assert.Equal(t, PurchaseSplitGas, cfg.PurchaseMode)
	assert.Equal(t, 50, cfg.QueryPageLimit)
	assert.Equal(t, 30*time.Second, cfg.RPCTimeout)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv(EnvPackageID, "0xABC")
	t.Setenv(EnvOrganizerCapID, "0x1")
	t.Setenv(EnvAdminCapID, "0x2")
	t.Setenv("SUIVEN_FEATURED_EVENT_IDS", "0x10, 0x11,0x10")
	t.Setenv("SUIVEN_PURCHASE_MODE", "AMOUNT_ARG")
	t.Setenv("SUIVEN_CACHE_TTL", "5s")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "0x0000000000000000000000000000000000000000000000000000000000000abc", cfg.PackageID)
	assert.Equal(t, cfg.PackageID+"::suiven_events::Event", cfg.EventType())
	assert.Equal(t, cfg.PackageID+"::suiven_tickets::TicketNFT", cfg.TicketType())
	assert.Equal(t, cfg.PackageID+"::suiven_poap::POAP", cfg.ProofType())
	assert.Equal(t, cfg.PackageID+"::suiven_events::EventCreated", cfg.EventCreatedType())
	assert.Len(t, cfg.FeaturedEventIDs, 2)
	assert.Equal(t, PurchaseAmountArg, cfg.PurchaseMode)
	assert.Equal(t, 5*time.Second, cfg.CacheTTL)

	capID, err := cfg.OrganizerCap()
	require.NoError(t, err)
	assert.Equal(t, "0x0000000000000000000000000000000000000000000000000000000000000001", capID)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("SUIVEN_ADMIN_CAP_ID=0x77\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv(EnvAdminCapID) })

	cfg, err := Load(envFile)
	require.NoError(t, err)

	admin, err := cfg.AdminCap()
	require.NoError(t, err)
	assert.Equal(t, "0x0000000000000000000000000000000000000000000000000000000000000077", admin)
}

func TestLoad_YAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "suiven.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
featured_event_ids:
  - 0xaa
  - 0xbb
gateway:
  addr: ":9090"
refresh_schedule: "@every 10s"
`), 0o600))
	t.Setenv(EnvConfigFile, path)

	cfg, err := Load(filepath.Join(dir, "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"0x00000000000000000000000000000000000000000000000000000000000000aa",
		"0x00000000000000000000000000000000000000000000000000000000000000bb",
	}, cfg.FeaturedEventIDs)
	assert.Equal(t, ":9090", cfg.GatewayAddr)
	assert.Equal(t, "@every 10s", cfg.RefreshSchedule)
}

func TestLoad_RejectsUnknownPurchaseMode(t *testing.T) {
	t.Setenv("SUIVEN_PURCHASE_MODE", "barter")
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestCapabilityAccessors_Missing(t *testing.T) {
	cfg := Default()

	_, err := cfg.OrganizerCap()
	require.Error(t, err)
	assert.True(t, svcerrors.IsConfigMissing(err))
	assert.Contains(t, err.Error(), EnvOrganizerCapID)

	_, err = cfg.AdminCap()
	require.Error(t, err)
	assert.True(t, svcerrors.IsConfigMissing(err))
	assert.Contains(t, err.Error(), EnvAdminCapID)
}
