package projects

import (
	"time"

	"github.com/google/uuid"
)

// Project is one tenant. Each project owns exactly one schema in the shared
// tenant cluster; SchemaName is the live slot that answers queries.
type Project struct {
	ID         uuid.UUID `json:"id"         gorm:"column:id;type:uuid;primaryKey"`
	Name       string    `json:"name"       gorm:"column:name;type:text;not null"`
	SchemaName string    `json:"schemaName" gorm:"column:schema_name;type:text;not null;uniqueIndex"`

	CreatedAt time.Time `json:"createdAt" gorm:"column:created_at;default:now()"`
}

func (p *Project) TableName() string {
	return "projects"
}
