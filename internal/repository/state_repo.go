package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"controlling_heatpump/internal/models"
)

type StateSQLite struct {
	db *sql.DB
}

func NewStateSQLite(db *sql.DB) *StateSQLite {
	return &StateSQLite{db: db}
}

const (
	heatpumpStateRowID = 1

	upsertControlSQL = `
		INSERT INTO heatpump_state (id, mode, target_temp, fan_speed, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			mode=excluded.mode,
			target_temp=excluded.target_temp,
			fan_speed=excluded.fan_speed,
			updated_at=excluded.updated_at
	`

	updateReadingSQL = `
		UPDATE heatpump_state
		SET current_temp=?, current_humidity=?, operating_state=?, updated_at=?
		WHERE id=?
	`

	selectStateSQL = `
		SELECT id, mode, target_temp, fan_speed, current_temp, current_humidity, operating_state, updated_at
		FROM heatpump_state WHERE id=?
	`
)

// utcOrNow normalizes t to UTC, substituting the current time for zero.
func utcOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

// Save upserts the control fields of the heatpump_state row (id always 1).
func (r *StateSQLite) Save(ctx context.Context, state models.HeatpumpState) error {
	_, err := r.db.ExecContext(ctx, upsertControlSQL,
		heatpumpStateRowID,
		state.Mode,
		state.TargetTemperature,
		state.FanSpeed,
		utcOrNow(state.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save heatpump state: %w", err)
	}
	return nil
}

// SaveReading records the latest ambient sample on the existing row.
func (r *StateSQLite) SaveReading(ctx context.Context, reading models.Reading, operatingState string) error {
	res, err := r.db.ExecContext(ctx, updateReadingSQL,
		reading.Temperature,
		reading.Humidity,
		operatingState,
		utcOrNow(reading.TakenAt),
		heatpumpStateRowID,
	)
	if err != nil {
		return fmt.Errorf("save reading: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save reading: rows affected: %w", err)
	}
	if n == 0 {
		return ErrStateNotInitialized
	}
	return nil
}

// Load fetches the single heatpump_state row (id=1). A missing row yields the
// zero state and no error.
func (r *StateSQLite) Load(ctx context.Context) (models.HeatpumpState, error) {
	row := r.db.QueryRowContext(ctx, selectStateSQL, heatpumpStateRowID)

	var s models.HeatpumpState
	if err := row.Scan(
		&s.ID,
		&s.Mode,
		&s.TargetTemperature,
		&s.FanSpeed,
		&s.CurrentTemperature,
		&s.CurrentHumidity,
		&s.OperatingState,
		&s.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.HeatpumpState{}, nil
		}
		return models.HeatpumpState{}, fmt.Errorf("load heatpump state: %w", err)
	}
	s.UpdatedAt = s.UpdatedAt.UTC()

	return s, nil
}
