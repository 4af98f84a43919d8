package migration

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/core-coin/tokensale/internal/config"
	"github.com/core-coin/tokensale/internal/models"
	"github.com/core-coin/tokensale/pkg/logger"
)

// Migrator runs the token sale migration against one network.
// Around the sequencer it holds the network lock, checks the token symbol,
// keeps the registry and the artifacts up to date and reports the outcome.
type Migrator struct {
	logger *logger.Logger
	config *config.Config

	repo        models.Repository
	chain       models.ChainBackend
	artifacts   models.ArtifactStore
	notificator models.NotificationService
	tokens      models.TokenDirectory

	instanceID string
	now        func() time.Time
}

// NewMigrator creates a new Migrator. repo, notificator and tokens are optional and may be nil.
func NewMigrator(
	repo models.Repository,
	chain models.ChainBackend,
	artifacts models.ArtifactStore,
	notificator models.NotificationService,
	tokens models.TokenDirectory,
	logger *logger.Logger,
	config *config.Config,
) *Migrator {
	return &Migrator{
		repo:        repo,
		chain:       chain,
		artifacts:   artifacts,
		notificator: notificator,
		tokens:      tokens,
		logger:      logger.With("network", config.Network),
		config:      config,
		instanceID:  uuid.NewString(),
		now:         time.Now,
	}
}

func (m *Migrator) sequencer(observer Observer) *Sequencer {
	return NewSequencer(m.chain, m.artifacts, m.config.SaleConfig(), observer, m.logger)
}

// Plan computes the sale window and the constructor arguments of every unit without deploying.
func (m *Migrator) Plan(ctx context.Context) (models.SaleWindow, []PlannedStep, error) {
	accounts, err := m.chain.Accounts(ctx)
	if err != nil {
		return models.SaleWindow{}, nil, err
	}
	return m.sequencer(nil).Plan(ctx, accounts)
}

// Migrate deploys the token sale. The returned run is never nil once the lock is held.
func (m *Migrator) Migrate(ctx context.Context) (*models.MigrationRun, error) {
	if m.repo != nil {
		lockName := models.MigrationLockName(m.config.Network)
		acquired, err := m.repo.AcquireLock(lockName, m.instanceID, m.config.LockTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire migration lock: %w", err)
		}
		if !acquired {
			return nil, fmt.Errorf("%w on %s", ErrLocked, m.config.Network)
		}
		defer func() {
			if err := m.repo.ReleaseLock(lockName, m.instanceID); err != nil {
				m.logger.Error("Failed to release migration lock", "error", err)
			}
		}()
	}

	run := &models.MigrationRun{
		ID:        uuid.NewString(),
		Chain:     m.chain.Chain(),
		Network:   m.config.Network,
		NetworkID: m.chain.NetworkID().String(),
		Status:    models.RunStatusRunning,
		StartedAt: m.now().UTC(),
	}
	log := m.logger.With("run", run.ID)

	if m.repo != nil {
		if err := m.repo.CreateRun(run); err != nil {
			log.Error("Failed to record migration run", "error", err)
		}
	}

	result, err := m.migrate(ctx, run, log)
	if result != nil {
		run.Deployer = result.Deployer
		run.Wallet = result.Wallet
		run.StartTime = result.Window.Start
		run.EndTime = result.Window.End
	}

	finishedAt := m.now().UTC()
	run.FinishedAt = &finishedAt
	run.Status = models.RunStatusSucceeded
	if err != nil {
		run.Status = models.RunStatusFailed
		run.Error = err.Error()
	}

	if m.repo != nil {
		if err := m.repo.UpdateRun(run); err != nil {
			log.Error("Failed to update migration run", "error", err)
		}
	}

	m.report(run, result)

	return run, err
}

func (m *Migrator) migrate(ctx context.Context, run *models.MigrationRun, log *logger.Logger) (*Result, error) {
	if err := m.checkSymbol(ctx); err != nil {
		return nil, err
	}

	accounts, err := m.chain.Accounts(ctx)
	if err != nil {
		return nil, err
	}

	recorder := &runRecorder{migrator: m, run: run, logger: log}
	return m.sequencer(recorder).Run(ctx, m.config.Network, accounts)
}

// checkSymbol fails when a token with the configured symbol is already listed on the network.
func (m *Migrator) checkSymbol(ctx context.Context) error {
	if m.tokens == nil {
		return nil
	}
	symbol := m.config.TokenSymbol
	token, err := m.tokens.FindBySymbol(ctx, symbol)
	if err != nil {
		return fmt.Errorf("failed to check token symbol: %w", err)
	}
	if token == nil {
		return nil
	}
	if m.config.AllowDuplicateSymbol {
		m.logger.Warn("Token symbol already exists on network", "symbol", symbol, "address", token.Address)
		return nil
	}
	return fmt.Errorf("%w: %s at %s", ErrSymbolTaken, symbol, token.Address)
}

func (m *Migrator) report(run *models.MigrationRun, result *Result) {
	if m.notificator == nil {
		return
	}
	report := &models.Report{
		RunID:   run.ID,
		Chain:   run.Chain,
		Network: run.Network,
		Status:  run.Status,
		Error:   run.Error,
	}
	if result != nil {
		report.Window = result.Window
		report.Units = result.Units
	}
	m.notificator.SendReport(report)
}

// runRecorder writes every deployed unit to the registry and the artifacts.
type runRecorder struct {
	migrator *Migrator
	run      *models.MigrationRun
	logger   *logger.Logger
}

func (r *runRecorder) UnitDeployed(ctx context.Context, unit *models.DeployedUnit) {
	m := r.migrator
	if m.repo != nil {
		if err := m.repo.AddDeployment(unit.Record(r.run.ID, r.run.Network)); err != nil {
			r.logger.Error("Failed to record deployment", "unit", unit.Unit, "error", err)
		}
	}
	if m.config.WriteArtifacts {
		if err := m.artifacts.RecordNetwork(unit.Unit, r.run.NetworkID, unit.Address, unit.TxHash); err != nil {
			r.logger.Error("Failed to write deployment into artifact", "unit", unit.Unit, "error", err)
		}
	}
}
