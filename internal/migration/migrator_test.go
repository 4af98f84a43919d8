package migration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/core-coin/tokensale/internal/config"
	"github.com/core-coin/tokensale/internal/models"
	"github.com/core-coin/tokensale/pkg/logger"
)

func testConfig() *config.Config {
	sale := models.DefaultSaleConfig()
	return &config.Config{
		Chain:           "core",
		Network:         "development",
		WriteArtifacts:  true,
		TokenName:       sale.Name,
		TokenSymbol:     sale.Symbol,
		TokenDecimals:   sale.Decimals,
		SaleRate:        sale.Rate,
		SaleTotalTokens: sale.TotalTokensForSale,
		SaleStartOffset: sale.StartOffset,
		SaleDuration:    sale.Duration,
		LockTTL:         time.Minute,
	}
}

type migratorFixture struct {
	chain       *fakeChain
	artifacts   *fakeArtifacts
	repo        *fakeRepo
	notificator *fakeNotificator
	tokens      *fakeTokens
	config      *config.Config
}

func newMigratorFixture() *migratorFixture {
	return &migratorFixture{
		chain:       newFakeChain(),
		artifacts:   &fakeArtifacts{},
		repo:        newFakeRepo(),
		notificator: &fakeNotificator{},
		tokens:      &fakeTokens{tokens: map[string]*models.Token{}},
		config:      testConfig(),
	}
}

func (f *migratorFixture) migrator() *Migrator {
	return NewMigrator(f.repo, f.chain, f.artifacts, f.notificator, f.tokens, logger.NewNopLogger(), f.config)
}

func TestMigrateRecordsRun(t *testing.T) {
	f := newMigratorFixture()

	run, err := f.migrator().Migrate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusSucceeded, run.Status)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "core", run.Chain)
	assert.Equal(t, "3", run.NetworkID)
	assert.Equal(t, "0xdeployer", run.Deployer)
	assert.Equal(t, "0xwallet", run.Wallet)
	assert.Equal(t, f.chain.now+20, run.StartTime)
	require.NotNil(t, run.FinishedAt)

	stored, err := f.repo.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSucceeded, stored.Status)

	require.Len(t, f.repo.deployments, 4)
	for i, d := range f.repo.deployments {
		assert.Equal(t, run.ID, d.RunID)
		assert.Equal(t, "development", d.Network)
		assert.Equal(t, i+1, d.Step)
	}
	assert.Equal(t, "Example Token,ETK,18", f.repo.deployments[1].Args)

	require.Len(t, f.artifacts.recorded, 4)
	assert.Equal(t, networkRecord{models.UnitTokenSale, "3", addressOf(models.UnitTokenSale), "0xtx4"}, f.artifacts.recorded[3])

	require.Len(t, f.notificator.reports, 1)
	report := f.notificator.reports[0]
	assert.Equal(t, run.ID, report.RunID)
	assert.Len(t, report.Units, 4)

	assert.Empty(t, f.repo.locks)
	assert.Equal(t, []string{"migration:development"}, f.repo.released)
}

func TestMigrateSkipsArtifactWriteBack(t *testing.T) {
	f := newMigratorFixture()
	f.config.WriteArtifacts = false

	_, err := f.migrator().Migrate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, f.artifacts.recorded)
	assert.Len(t, f.repo.deployments, 4)
}

func TestMigrateFailedStep(t *testing.T) {
	f := newMigratorFixture()
	f.chain.failUnit = models.UnitWhitelist

	run, err := f.migrator().Migrate(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDeployStep))

	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.Contains(t, run.Error, "Whitelist")

	stored, err := f.repo.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, stored.Status)

	assert.Len(t, f.repo.deployments, 2)
	require.Len(t, f.notificator.reports, 1)
	assert.Equal(t, models.RunStatusFailed, f.notificator.reports[0].Status)
	assert.Len(t, f.notificator.reports[0].Units, 2)
	assert.Empty(t, f.repo.locks)
}

func TestMigrateLocked(t *testing.T) {
	f := newMigratorFixture()
	f.repo.locks[models.MigrationLockName("development")] = "other-instance"

	run, err := f.migrator().Migrate(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLocked))
	assert.Nil(t, run)
	assert.Empty(t, f.chain.calls)
	assert.Empty(t, f.repo.runs)
	assert.Empty(t, f.notificator.reports)
}

func TestMigrateLockError(t *testing.T) {
	f := newMigratorFixture()
	f.repo.lockErr = errors.New("connection reset")

	_, err := f.migrator().Migrate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to acquire migration lock")
	assert.Empty(t, f.chain.calls)
}

func TestMigrateSymbolTaken(t *testing.T) {
	f := newMigratorFixture()
	f.tokens.tokens["ETK"] = &models.Token{Symbol: "ETK", Address: "0xexisting"}

	run, err := f.migrator().Migrate(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSymbolTaken))
	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.Empty(t, f.chain.calls)
	require.Len(t, f.notificator.reports, 1)
}

func TestMigrateAllowDuplicateSymbol(t *testing.T) {
	f := newMigratorFixture()
	f.config.AllowDuplicateSymbol = true
	f.tokens.tokens["ETK"] = &models.Token{Symbol: "ETK", Address: "0xexisting"}

	run, err := f.migrator().Migrate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSucceeded, run.Status)
	assert.Len(t, f.chain.calls, 4)
}

func TestMigrateSymbolLookupError(t *testing.T) {
	f := newMigratorFixture()
	f.tokens.err = errors.New("well-known unavailable")

	_, err := f.migrator().Migrate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to check token symbol")
	assert.Empty(t, f.chain.calls)
}

func TestMigrateWithoutOptionalServices(t *testing.T) {
	f := newMigratorFixture()
	m := NewMigrator(nil, f.chain, f.artifacts, nil, nil, logger.NewNopLogger(), f.config)

	run, err := m.Migrate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSucceeded, run.Status)
	assert.Len(t, f.chain.calls, 4)
	assert.Len(t, f.artifacts.recorded, 4)
}

func TestMigratorPlan(t *testing.T) {
	f := newMigratorFixture()

	window, planned, err := f.migrator().Plan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, f.chain.now+20, window.Start)
	assert.Len(t, planned, 4)
	assert.Empty(t, f.chain.calls)
	assert.Empty(t, f.repo.runs)
}

func TestMigrateMissingArtifact(t *testing.T) {
	f := newMigratorFixture()
	f.artifacts.missing = models.UnitTokenSale

	run, err := f.migrator().Migrate(context.Background())
	require.Error(t, err)
	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.Contains(t, run.Error, models.UnitTokenSale)
	assert.Empty(t, f.chain.calls)
	assert.Empty(t, f.repo.deployments)
	assert.Empty(t, f.artifacts.recorded)
}
