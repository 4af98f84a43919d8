package repository

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormLogger "gorm.io/gorm/logger"

	"github.com/core-coin/tokensale/internal/models"
	"github.com/core-coin/tokensale/pkg/logger"
)

type PostgresDB struct {
	logger *logger.Logger

	Conn *gorm.DB
}

func NewPostgresDB(user, password, dbname, host string, port int, logger *logger.Logger) (*PostgresDB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		host, user, password, dbname, port)
	return NewPostgresDBFromDSN(dsn, logger)
}

// NewPostgresDBFromDSN connects to the registry database and migrates its schema.
func NewPostgresDBFromDSN(dsn string, logger *logger.Logger) (*PostgresDB, error) {
	// Configure GORM logger to suppress "record not found" messages
	gormLogger := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %s", err)
	}

	if err := db.AutoMigrate(&models.MigrationRun{}, &models.Deployment{}, &models.AppLock{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate models: %s", err)
	}
	logger.Info("Successfully connected to PostgreSQL!")
	return &PostgresDB{Conn: db, logger: logger}, nil
}

func (db *PostgresDB) Close() error {
	sqlDB, err := db.Conn.DB()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %s", err)
	}
	return sqlDB.Close()
}

func (db *PostgresDB) CreateRun(run *models.MigrationRun) error {
	if err := db.Conn.Omit(clause.Associations).Create(run).Error; err != nil {
		return fmt.Errorf("failed to create migration run: %w", err)
	}
	return nil
}

func (db *PostgresDB) UpdateRun(run *models.MigrationRun) error {
	res := db.Conn.Model(&models.MigrationRun{}).Where("id = ?", run.ID).Updates(map[string]interface{}{
		"deployer":    run.Deployer,
		"wallet":      run.Wallet,
		"start_time":  run.StartTime,
		"end_time":    run.EndTime,
		"status":      run.Status,
		"error":       run.Error,
		"finished_at": run.FinishedAt,
	})
	if res.Error != nil {
		return fmt.Errorf("failed to update migration run: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (db *PostgresDB) GetRun(id string) (*models.MigrationRun, error) {
	var run models.MigrationRun
	err := db.Conn.
		Preload("Deployments", func(tx *gorm.DB) *gorm.DB { return tx.Order("step ASC") }).
		Where("id = ?", id).
		First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get migration run: %w", err)
	}
	return &run, nil
}

// GetRuns returns the runs on network, newest first. A non-positive limit returns all of them.
func (db *PostgresDB) GetRuns(network string, limit int) ([]*models.MigrationRun, error) {
	var runs []*models.MigrationRun
	q := db.Conn.Order("started_at DESC")
	if network != "" {
		q = q.Where("network = ?", network)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to get migration runs: %w", err)
	}
	return runs, nil
}

func (db *PostgresDB) AddDeployment(deployment *models.Deployment) error {
	db.logger.Debug("Adding deployment", "unit", deployment.Unit, "address", deployment.Address)
	if err := db.Conn.Create(deployment).Error; err != nil {
		return fmt.Errorf("failed to add deployment: %w", err)
	}
	return nil
}

// GetDeployments returns every unit deployed on network in deployment order.
func (db *PostgresDB) GetDeployments(network string) ([]*models.Deployment, error) {
	var deployments []*models.Deployment
	q := db.Conn.Order("deployed_at ASC").Order("step ASC")
	if network != "" {
		q = q.Where("network = ?", network)
	}
	if err := q.Find(&deployments).Error; err != nil {
		return nil, fmt.Errorf("failed to get deployments: %w", err)
	}
	return deployments, nil
}

// AcquireLock takes the named lock for instanceID until ttl elapses.
// Expired locks are taken over. A holder acquiring again extends its lock.
func (db *PostgresDB) AcquireLock(name, instanceID string, ttl time.Duration) (bool, error) {
	now := time.Now()
	acquired := false

	err := db.Conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("lock_name = ? AND expires_at < ?", name, now.Unix()).Delete(&models.AppLock{}).Error; err != nil {
			return err
		}

		lock := models.AppLock{
			LockName:   name,
			InstanceID: instanceID,
			AcquiredAt: now.Unix(),
			ExpiresAt:  now.Add(ttl).Unix(),
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&lock)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			acquired = true
			return nil
		}

		res = tx.Model(&models.AppLock{}).
			Where("lock_name = ? AND instance_id = ?", name, instanceID).
			Update("expires_at", lock.ExpiresAt)
		if res.Error != nil {
			return res.Error
		}
		acquired = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", name, err)
	}

	if acquired {
		db.logger.Debug("Lock acquired", "lock", name, "instance", instanceID)
	}
	return acquired, nil
}

func (db *PostgresDB) ReleaseLock(name, instanceID string) error {
	err := db.Conn.Where("lock_name = ? AND instance_id = ?", name, instanceID).Delete(&models.AppLock{}).Error
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", name, err)
	}
	return nil
}
