package models

import (
	"errors"
	"time"
)

// ErrNotFound is returned by the repository when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Repository is the deployment registry.
type Repository interface {
	CreateRun(run *MigrationRun) error
	UpdateRun(run *MigrationRun) error
	GetRun(id string) (*MigrationRun, error)
	GetRuns(network string, limit int) ([]*MigrationRun, error)

	AddDeployment(deployment *Deployment) error
	GetDeployments(network string) ([]*Deployment, error)

	AcquireLock(name, instanceID string, ttl time.Duration) (bool, error)
	ReleaseLock(name, instanceID string) error

	Close() error
}
