package migration

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/core-coin/tokensale/internal/models"
)

type deployCall struct {
	from string
	unit string
	args []interface{}
}

type fakeChain struct {
	mu        sync.Mutex
	accounts  []string
	now       uint64
	timeErr   error
	failUnit  string
	calls     []deployCall
	nowCalls  int
	networkID *big.Int
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		accounts:  []string{"0xdeployer", "0xwallet"},
		now:       1_700_000_000,
		networkID: big.NewInt(3),
	}
}

func (c *fakeChain) Chain() string       { return "core" }
func (c *fakeChain) NetworkID() *big.Int { return c.networkID }
func (c *fakeChain) Close() error        { return nil }

func (c *fakeChain) Accounts(ctx context.Context) ([]string, error) {
	return c.accounts, nil
}

func (c *fakeChain) LatestTimestamp(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nowCalls++
	return c.now, c.timeErr
}

func (c *fakeChain) Deploy(ctx context.Context, from string, blueprint *models.Blueprint, args ...interface{}) (*models.DeployReceipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, deployCall{from: from, unit: blueprint.Name, args: args})
	if blueprint.Name == c.failUnit {
		return nil, errors.New("out of energy")
	}
	n := len(c.calls)
	return &models.DeployReceipt{
		Address:     addressOf(blueprint.Name),
		TxHash:      fmt.Sprintf("0xtx%d", n),
		BlockNumber: uint64(100 + n),
	}, nil
}

func (c *fakeChain) deployedUnits() []string {
	units := make([]string, len(c.calls))
	for i, call := range c.calls {
		units[i] = call.unit
	}
	return units
}

func addressOf(unit string) string {
	return "0x" + unit
}

type networkRecord struct {
	unit, networkID, address, txHash string
}

type fakeArtifacts struct {
	missing  string
	recorded []networkRecord
}

func (a *fakeArtifacts) Load(name string) (*models.Blueprint, error) {
	if name == a.missing {
		return nil, fmt.Errorf("artifact %s not found", name)
	}
	return &models.Blueprint{Name: name, ABI: "[]", Bytecode: []byte{0x60, 0x80}}, nil
}

func (a *fakeArtifacts) RecordNetwork(name, networkID, address, txHash string) error {
	a.recorded = append(a.recorded, networkRecord{name, networkID, address, txHash})
	return nil
}

type fakeRepo struct {
	mu          sync.Mutex
	runs        map[string]*models.MigrationRun
	deployments []*models.Deployment
	locks       map[string]string
	lockErr     error
	released    []string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{runs: map[string]*models.MigrationRun{}, locks: map[string]string{}}
}

func (r *fakeRepo) CreateRun(run *models.MigrationRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *run
	r.runs[run.ID] = &cp
	return nil
}

func (r *fakeRepo) UpdateRun(run *models.MigrationRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[run.ID]; !ok {
		return models.ErrNotFound
	}
	cp := *run
	r.runs[run.ID] = &cp
	return nil
}

func (r *fakeRepo) GetRun(id string) (*models.MigrationRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return run, nil
}

func (r *fakeRepo) GetRuns(network string, limit int) ([]*models.MigrationRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var runs []*models.MigrationRun
	for _, run := range r.runs {
		if run.Network == network {
			runs = append(runs, run)
		}
	}
	return runs, nil
}

func (r *fakeRepo) AddDeployment(d *models.Deployment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deployments = append(r.deployments, d)
	return nil
}

func (r *fakeRepo) GetDeployments(network string) ([]*models.Deployment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deployments, nil
}

func (r *fakeRepo) AcquireLock(name, instanceID string, ttl time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lockErr != nil {
		return false, r.lockErr
	}
	if holder, ok := r.locks[name]; ok && holder != instanceID {
		return false, nil
	}
	r.locks[name] = instanceID
	return true, nil
}

func (r *fakeRepo) ReleaseLock(name, instanceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.locks[name] == instanceID {
		delete(r.locks, name)
	}
	r.released = append(r.released, name)
	return nil
}

func (r *fakeRepo) Close() error { return nil }

type fakeNotificator struct {
	reports []*models.Report
}

func (n *fakeNotificator) SendReport(report *models.Report) {
	n.reports = append(n.reports, report)
}

type fakeTokens struct {
	tokens map[string]*models.Token
	err    error
}

func (t *fakeTokens) FindBySymbol(ctx context.Context, symbol string) (*models.Token, error) {
	if t.err != nil {
		return nil, t.err
	}
	return t.tokens[symbol], nil
}

type recordingObserver struct {
	units []*models.DeployedUnit
}

func (o *recordingObserver) UnitDeployed(ctx context.Context, unit *models.DeployedUnit) {
	o.units = append(o.units, unit)
}
