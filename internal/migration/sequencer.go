package migration

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/core-coin/tokensale/internal/models"
	"github.com/core-coin/tokensale/pkg/logger"
)

// step is one deployment of the sequence. args builds the constructor arguments
// from the addresses deployed so far.
type step struct {
	unit string
	args func(p *params) ([]interface{}, error)
}

// params is what the steps draw their constructor arguments from.
type params struct {
	sale      *models.SaleConfig
	window    models.SaleWindow
	wallet    string
	addresses map[string]string
}

func (p *params) address(unit string) (string, error) {
	addr, ok := p.addresses[unit]
	if !ok {
		return "", fmt.Errorf("%s is not deployed yet", unit)
	}
	return addr, nil
}

// steps is the deployment order. Each unit only depends on units listed before it.
var steps = []step{
	{unit: models.UnitStandardToken, args: noArgs},
	{unit: models.UnitTokenFactory, args: func(p *params) ([]interface{}, error) {
		return []interface{}{p.sale.Name, p.sale.Symbol, p.sale.Decimals}, nil
	}},
	{unit: models.UnitWhitelist, args: noArgs},
	{unit: models.UnitTokenSale, args: func(p *params) ([]interface{}, error) {
		whitelist, err := p.address(models.UnitWhitelist)
		if err != nil {
			return nil, err
		}
		token, err := p.address(models.UnitStandardToken)
		if err != nil {
			return nil, err
		}
		factory, err := p.address(models.UnitTokenFactory)
		if err != nil {
			return nil, err
		}
		return []interface{}{
			new(big.Int).SetUint64(p.window.Start),
			new(big.Int).SetUint64(p.window.End),
			whitelist,
			token,
			factory,
			p.sale.RateInt(),
			p.wallet,
			new(big.Int).Set(p.sale.TotalTokensForSale),
		}, nil
	}},
}

func noArgs(*params) ([]interface{}, error) { return nil, nil }

// Units returns the contract units in deployment order.
func Units() []string {
	units := make([]string, len(steps))
	for i, s := range steps {
		units[i] = s.unit
	}
	return units
}

// Observer is notified after every successful step.
type Observer interface {
	UnitDeployed(ctx context.Context, unit *models.DeployedUnit)
}

// Result is the outcome of a sequence run. On failure it holds the units deployed before the failing step.
type Result struct {
	Deployer string
	Wallet   string
	Window   models.SaleWindow
	Units    []*models.DeployedUnit
}

// Address returns the deployed address of unit, or "" when it was not deployed.
func (r *Result) Address(unit string) string {
	for _, u := range r.Units {
		if u.Unit == unit {
			return u.Address
		}
	}
	return ""
}

// Sequencer deploys the token sale units in dependency order.
type Sequencer struct {
	logger    *logger.Logger
	chain     models.ChainBackend
	artifacts models.ArtifactStore
	sale      *models.SaleConfig
	observer  Observer
	now       func() time.Time
}

// NewSequencer creates a Sequencer. observer may be nil.
func NewSequencer(
	chain models.ChainBackend,
	artifacts models.ArtifactStore,
	sale *models.SaleConfig,
	observer Observer,
	logger *logger.Logger,
) *Sequencer {
	return &Sequencer{
		logger:    logger.With("stage", "sequencer"),
		chain:     chain,
		artifacts: artifacts,
		sale:      sale,
		observer:  observer,
		now:       time.Now,
	}
}

// resolveAccounts splits the account list into the deployer and the sale wallet.
func (s *Sequencer) resolveAccounts(accounts []string) (deployer, wallet string, err error) {
	if len(accounts) == 0 {
		return "", "", errors.New("no deployment account available")
	}
	deployer = accounts[0]
	wallet = s.sale.Wallet
	if wallet == "" {
		if len(accounts) < 2 {
			return "", "", errors.New("no wallet configured and no second account to receive sale proceeds")
		}
		wallet = accounts[1]
	}
	return deployer, wallet, nil
}

// Window reads the time oracle and returns the sale window starting from it.
func (s *Sequencer) Window(ctx context.Context) (models.SaleWindow, error) {
	now, err := s.chain.LatestTimestamp(ctx)
	if err != nil {
		return models.SaleWindow{}, fmt.Errorf("failed to read chain time: %w", err)
	}
	return models.NewSaleWindow(now, s.sale.StartOffset, s.sale.Duration), nil
}

// Run deploys every unit in order on network. accounts[0] deploys; accounts[1] is the
// default sale wallet. The first failing step aborts the run with a *StepError;
// units deployed before it stay deployed.
func (s *Sequencer) Run(ctx context.Context, network string, accounts []string) (*Result, error) {
	if err := s.sale.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sale configuration: %w", err)
	}
	deployer, wallet, err := s.resolveAccounts(accounts)
	if err != nil {
		return nil, err
	}
	blueprints, err := s.loadBlueprints()
	if err != nil {
		return nil, err
	}

	window, err := s.Window(ctx)
	if err != nil {
		return nil, err
	}

	log := s.logger.With("network", network, "deployer", deployer)
	log.Info("Starting token sale deployment", "wallet", wallet, "start_time", window.Start, "end_time", window.End)

	p := &params{sale: s.sale, window: window, wallet: wallet, addresses: make(map[string]string, len(steps))}
	result := &Result{Deployer: deployer, Wallet: wallet, Window: window}

	for i, st := range steps {
		unit, err := s.deploy(ctx, i+1, st, blueprints[i], p, deployer)
		if err != nil {
			log.Error("Deployment step failed", "step", i+1, "unit", st.unit, "error", err)
			return result, &StepError{Step: i + 1, Unit: st.unit, Err: err}
		}
		p.addresses[st.unit] = unit.Address
		result.Units = append(result.Units, unit)
		log.Info("Unit deployed", "step", unit.Step, "unit", unit.Unit, "address", unit.Address, "tx", unit.TxHash)

		if s.observer != nil {
			s.observer.UnitDeployed(ctx, unit)
		}
	}

	log.Info("Token sale deployed", "sale", result.Address(models.UnitTokenSale))
	return result, nil
}

// loadBlueprints loads every unit of the sequence.
func (s *Sequencer) loadBlueprints() ([]*models.Blueprint, error) {
	blueprints := make([]*models.Blueprint, len(steps))
	for i, st := range steps {
		blueprint, err := s.artifacts.Load(st.unit)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", st.unit, err)
		}
		blueprints[i] = blueprint
	}
	return blueprints, nil
}

func (s *Sequencer) deploy(ctx context.Context, n int, st step, blueprint *models.Blueprint, p *params, deployer string) (*models.DeployedUnit, error) {
	args, err := st.args(p)
	if err != nil {
		return nil, err
	}

	receipt, err := s.chain.Deploy(ctx, deployer, blueprint, args...)
	if err != nil {
		return nil, err
	}

	return &models.DeployedUnit{
		Step:        n,
		Unit:        st.unit,
		Address:     receipt.Address,
		TxHash:      receipt.TxHash,
		BlockNumber: receipt.BlockNumber,
		Args:        RenderArgs(args),
		DeployedAt:  s.now().UTC(),
	}, nil
}

// PlannedStep is a step of a dry run.
type PlannedStep struct {
	Step int
	Unit string
	Args []string
}

// Plan computes the sale window and every constructor argument list without deploying.
// Addresses of units that would be deployed earlier are shown as "<Unit>".
func (s *Sequencer) Plan(ctx context.Context, accounts []string) (models.SaleWindow, []PlannedStep, error) {
	if err := s.sale.Validate(); err != nil {
		return models.SaleWindow{}, nil, fmt.Errorf("invalid sale configuration: %w", err)
	}
	_, wallet, err := s.resolveAccounts(accounts)
	if err != nil {
		return models.SaleWindow{}, nil, err
	}
	if _, err := s.loadBlueprints(); err != nil {
		return models.SaleWindow{}, nil, err
	}
	window, err := s.Window(ctx)
	if err != nil {
		return models.SaleWindow{}, nil, err
	}

	p := &params{sale: s.sale, window: window, wallet: wallet, addresses: make(map[string]string, len(steps))}
	planned := make([]PlannedStep, 0, len(steps))
	for i, st := range steps {
		args, err := st.args(p)
		if err != nil {
			return models.SaleWindow{}, nil, err
		}
		planned = append(planned, PlannedStep{Step: i + 1, Unit: st.unit, Args: RenderArgs(args)})
		p.addresses[st.unit] = "<" + st.unit + ">"
	}
	return window, planned, nil
}

// RenderArgs formats constructor arguments for logs and the registry.
func RenderArgs(args []interface{}) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = fmt.Sprint(a)
	}
	return out
}
