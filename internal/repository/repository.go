package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"controlling_heatpump/internal/models"
)

var (
	// ErrStateNotInitialized is returned when a reading is saved before any control state.
	ErrStateNotInitialized = errors.New("heatpump state not initialized")
	// ErrUsernameTaken is returned when an API account with the same name exists.
	ErrUsernameTaken = errors.New("username already taken")
)

type Authorization interface {
	Create(ctx context.Context, username, hash string) (int, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// StateRepo stores the single heatpump_state row. Control fields and ambient
// readings are written by separate statements so the sampler never overwrites
// a concurrent control update.
type StateRepo interface {
	Save(ctx context.Context, s models.HeatpumpState) error
	SaveReading(ctx context.Context, r models.Reading, operatingState string) error
	Load(ctx context.Context) (models.HeatpumpState, error)
}

type EventRepo interface {
	Append(ctx context.Context, e models.HeatpumpEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.HeatpumpEvent, error)
}

type Repository struct {
	StateRepo StateRepo
	EventRepo EventRepo
	Auth      Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		StateRepo: NewStateSQLite(db),
		EventRepo: NewEventSQLite(db),
		Auth:      NewUserRepository(db),
	}
}
