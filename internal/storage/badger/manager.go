package badger

import (
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/funnel/internal/common"
	"github.com/ternarybob/funnel/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db       *BadgerDB
	security interfaces.SecurityStorage
	logger   arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:       db,
		security: NewSecurityStorage(db, logger),
		logger:   logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// SecurityStorage returns the security storage interface
func (m *Manager) SecurityStorage() interfaces.SecurityStorage {
	return m.security
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
