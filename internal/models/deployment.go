package models

import (
	"strings"
	"time"
)

// Run statuses
const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// MigrationRun is one execution of the deployment sequence against a network.
type MigrationRun struct {
	// ID is a random UUID assigned when the run starts.
	ID string `json:"id" gorm:"column:id;primaryKey;size:36"`
	// Chain is the chain family (core, ethereum).
	Chain string `json:"chain" gorm:"column:chain;not null"`
	// Network is the name the operator deployed to (devin, mainnet, development...).
	Network string `json:"network" gorm:"column:network;index;not null"`
	// NetworkID is the numeric network id reported by the node.
	NetworkID string `json:"network_id" gorm:"column:network_id"`
	// Deployer is the account that sent the deployment transactions.
	Deployer string `json:"deployer" gorm:"column:deployer"`
	// Wallet is the beneficiary of sale proceeds.
	Wallet string `json:"wallet" gorm:"column:wallet"`
	// StartTime and EndTime are the sale window passed to the sale controller.
	StartTime uint64 `json:"start_time" gorm:"column:start_time"`
	EndTime   uint64 `json:"end_time" gorm:"column:end_time"`
	Status    string `json:"status" gorm:"column:status;index;not null"`
	// Error is the failure reason of a failed run.
	Error      string     `json:"error,omitempty" gorm:"column:error"`
	StartedAt  time.Time  `json:"started_at" gorm:"column:started_at;index"`
	FinishedAt *time.Time `json:"finished_at,omitempty" gorm:"column:finished_at"`

	Deployments []Deployment `json:"deployments,omitempty" gorm:"foreignKey:RunID;references:ID;constraint:OnDelete:CASCADE"`
}

// Deployment is one contract unit published during a run.
type Deployment struct {
	ID      int64  `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	RunID   string `json:"run_id" gorm:"column:run_id;index;size:36;not null"`
	Network string `json:"network" gorm:"column:network;index;not null"`
	// Step is the 1-based position in the deployment sequence.
	Step        int    `json:"step" gorm:"column:step"`
	Unit        string `json:"unit" gorm:"column:unit;not null"`
	Address     string `json:"address" gorm:"column:address;not null"`
	TxHash      string `json:"tx_hash" gorm:"column:tx_hash"`
	BlockNumber uint64 `json:"block_number" gorm:"column:block_number"`
	// Args are the constructor arguments joined by ArgsSeparator.
	Args       string    `json:"args" gorm:"column:args"`
	DeployedAt time.Time `json:"deployed_at" gorm:"column:deployed_at"`
}

// ArgsSeparator joins rendered constructor arguments in Deployment.Args.
const ArgsSeparator = ","

// DeployedUnit is the outcome of one step of the sequence.
type DeployedUnit struct {
	Step        int
	Unit        string
	Address     string
	TxHash      string
	BlockNumber uint64
	Args        []string
	DeployedAt  time.Time
}

// Record converts the unit into its registry row.
func (u *DeployedUnit) Record(runID, network string) *Deployment {
	return &Deployment{
		RunID:       runID,
		Network:     network,
		Step:        u.Step,
		Unit:        u.Unit,
		Address:     u.Address,
		TxHash:      u.TxHash,
		BlockNumber: u.BlockNumber,
		Args:        strings.Join(u.Args, ArgsSeparator),
		DeployedAt:  u.DeployedAt,
	}
}
