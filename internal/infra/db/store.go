package db

import (
	"fmt"
	"log/slog"

	"receiptd/internal/config"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Store struct {
	DB *gorm.DB
}

func NewStore(cfg config.Config, log *slog.Logger) (*Store, error) {
	if cfg.PostgresDSN == "" {
		log.Warn("POSTGRES_DSN not set; starting in no-db mode, lookups will fail")
		return &Store{DB: nil}, nil
	}

	gdb, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	return &Store{DB: gdb}, nil
}

func (s *Store) Installations() *InstallationRepository {
	return NewInstallationRepository(s.DB)
}

func (s *Store) Products() *ProductRepository {
	return NewProductRepository(s.DB)
}

func (s *Store) Purchases() *PurchaseRepository {
	return NewPurchaseRepository(s.DB)
}

func (s *Store) Close() error {
	if s.DB == nil {
		return nil
	}
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
