package models

// AppLock is a named lock row in the registry database.
// A migration holds "migration:<network>" so that two runs never deploy to the same network at once.
type AppLock struct {
	LockName   string `gorm:"primaryKey;size:255"`
	InstanceID string `gorm:"size:255;not null"`
	AcquiredAt int64  `gorm:"not null;index"`
	ExpiresAt  int64  `gorm:"not null;index"`
}

// TableName specifies the table name for GORM
func (AppLock) TableName() string {
	return "app_locks"
}

// MigrationLockName returns the lock guarding migrations on network.
func MigrationLockName(network string) string {
	return "migration:" + network
}
