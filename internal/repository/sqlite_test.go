package repository_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"controlling_heatpump/internal/models"
	"controlling_heatpump/internal/repository"
	"controlling_heatpump/internal/repository/db"
)

func newSQLiteRepos(t *testing.T) *repository.Repository {
	t.Helper()
	conn, err := db.InitDB(filepath.Join(t.TempDir(), "heatpump.db"))
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return repository.NewRepository(conn)
}

func TestSQLite_StateRoundTrip(t *testing.T) {
	repos := newSQLiteRepos(t)
	ctx := context.Background()

	err := repos.StateRepo.SaveReading(ctx, models.Reading{Temperature: 20}, models.OperatingIdle)
	if err != repository.ErrStateNotInitialized {
		t.Fatalf("SaveReading before Save = %v, want ErrStateNotInitialized", err)
	}

	if err := repos.StateRepo.Save(ctx, models.HeatpumpState{Mode: "COOL", TargetTemperature: 24, FanSpeed: 60}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	reading := models.Reading{Temperature: 26.3, Humidity: 51.5, TakenAt: time.Now()}
	if err := repos.StateRepo.SaveReading(ctx, reading, models.OperatingCooling); err != nil {
		t.Fatalf("SaveReading: %v", err)
	}
	// a later control update must keep the reading
	if err := repos.StateRepo.Save(ctx, models.HeatpumpState{Mode: "OFF", TargetTemperature: 24, FanSpeed: 60}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := repos.StateRepo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.ID != 1 || got.Mode != "OFF" || got.TargetTemperature != 24 || got.FanSpeed != 60 {
		t.Fatalf("control fields = %+v", got)
	}
	if got.CurrentTemperature != 26.3 || got.CurrentHumidity != 51.5 || got.OperatingState != models.OperatingCooling {
		t.Fatalf("reading fields = %+v", got)
	}
}

func TestSQLite_EventsFilteredByRangeAndType(t *testing.T) {
	repos := newSQLiteRepos(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	events := []models.HeatpumpEvent{
		{OccurredAt: base.Add(-time.Hour), Type: models.EventStartup, Description: "boot"},
		{OccurredAt: base, Type: models.EventTransmit, Description: "first"},
		{OccurredAt: base.Add(time.Minute), Type: models.EventTransmit, Description: "second", Metadata: map[string]any{"bits": 72}},
		{OccurredAt: base.Add(2 * time.Minute), Type: models.EventError, Description: "failed"},
	}
	// inserted out of order; List sorts
	for _, i := range []int{3, 1, 0, 2} {
		if err := repos.EventRepo.Append(ctx, events[i]); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := repos.EventRepo.List(ctx, base, base.Add(90*time.Second), "transmit")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[0].Description != "first" || got[1].Description != "second" {
		t.Fatalf("List = %+v", got)
	}
	if m, ok := got[1].Metadata.(map[string]any); !ok || m["bits"] != float64(72) {
		t.Fatalf("metadata = %#v", got[1].Metadata)
	}

	all, err := repos.EventRepo.List(ctx, time.Time{}, time.Time{}, "")
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 4 || all[0].Type != models.EventStartup || all[3].Type != models.EventError {
		t.Fatalf("List all = %+v", all)
	}
}

func TestSQLite_Users(t *testing.T) {
	repos := newSQLiteRepos(t)
	ctx := context.Background()

	id, err := repos.Auth.Create(ctx, "alice", "hash")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	u, err := repos.Auth.GetByUsername(ctx, "alice")
	if err != nil || u == nil {
		t.Fatalf("GetByUsername = %v, %v", u, err)
	}
	if u.ID != id || u.PasswordHash != "hash" || u.CreatedAt.IsZero() {
		t.Fatalf("user = %+v", u)
	}
	if _, err := repos.Auth.Create(ctx, "alice", "other"); !errors.Is(err, repository.ErrUsernameTaken) {
		t.Fatalf("duplicate username: err = %v, want ErrUsernameTaken", err)
	}
	missing, err := repos.Auth.GetByUsername(ctx, "bob")
	if err != nil || missing != nil {
		t.Fatalf("GetByUsername(bob) = %v, %v", missing, err)
	}
}
