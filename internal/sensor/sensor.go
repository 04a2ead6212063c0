// Package sensor provides ambient temperature and humidity sources.
package sensor

import (
	"context"

	"controlling_heatpump/internal/models"
)

// Sensor reports ambient temperature and humidity.
type Sensor interface {
	Read(ctx context.Context) (models.Reading, error)
}
