package system_healthcheck

import (
	"errors"

	"gorm.io/gorm"
)

type HealthcheckResponse struct {
	Status string `json:"status"`
}

type HealthcheckService struct {
	db *gorm.DB
}

func NewHealthcheckService(db *gorm.DB) *HealthcheckService {
	return &HealthcheckService{db: db}
}

func (s *HealthcheckService) IsHealthy() error {
	if err := s.db.Raw("SELECT 1").Error; err != nil {
		return errors.New("cannot connect to the metadata database")
	}

	return nil
}
