package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"controlling_heatpump/internal/models"
	"controlling_heatpump/internal/service"
)

// eventHistory is an in-memory repository.EventRepo that records the last query.
type eventHistory struct {
	events []models.HeatpumpEvent
	err    error

	queries  int
	lastFrom time.Time
	lastTo   time.Time
	lastType string
}

func (r *eventHistory) Append(ctx context.Context, e models.HeatpumpEvent) error {
	r.events = append(r.events, e)
	return nil
}

func (r *eventHistory) List(ctx context.Context, from, to time.Time, typ string) ([]models.HeatpumpEvent, error) {
	r.queries++
	r.lastFrom, r.lastTo, r.lastType = from, to, typ
	if r.err != nil {
		return nil, r.err
	}
	var out []models.HeatpumpEvent
	for _, e := range r.events {
		if (!from.IsZero() && e.OccurredAt.Before(from)) || (!to.IsZero() && e.OccurredAt.After(to)) {
			continue
		}
		if typ != "" && e.Type != typ {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

var heatingMorning = time.Date(2025, 8, 1, 6, 30, 0, 0, time.UTC)

func newLogsRouter(history *eventHistory) http.Handler {
	return newTestRouter(&service.Service{
		Authorization: &mockAuth{parseID: 7},
		EventLog:      service.NewEventLogService(history),
	})
}

func morningHistory() *eventHistory {
	return &eventHistory{events: []models.HeatpumpEvent{
		{EventID: "boot", OccurredAt: heatingMorning, Type: models.EventStartup, Description: "controller started"},
		{EventID: "heat", OccurredAt: heatingMorning.Add(time.Minute), Type: models.EventStateChange, Description: "target state changed"},
		{EventID: "ir", OccurredAt: heatingMorning.Add(time.Minute + time.Second), Type: models.EventTransmit, Description: "ir signal transmitted"},
		{EventID: "next-day", OccurredAt: heatingMorning.Add(24 * time.Hour), Type: models.EventTransmit, Description: "ir signal transmitted"},
	}}
}

func getLogsAs(r http.Handler, query string) (int, map[string]json.RawMessage) {
	w := doJSON(r, http.MethodGet, "/api/v1/logs/"+query, "")
	var body map[string]json.RawMessage
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w.Code, body
}

func TestGetLogs_Filters(t *testing.T) {
	cases := []struct {
		name  string
		query string
		want  []string
	}{
		{"everything", "", []string{"boot", "heat", "ir", "next-day"}},
		{"transmits lowercase type", "?type=transmit", []string{"ir", "next-day"}},
		{"date-only bounds cover the day", "?from=2025-08-01&to=2025-08-01", []string{"boot", "heat", "ir"}},
		{"rfc3339 window", "?from=2025-08-01T06:31:00Z&to=2025-08-01T06:31:00Z", []string{"heat"}},
		{"space layout", "?from=2025-08-02%2000:00:00&type=TRANSMIT", []string{"next-day"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, body := getLogsAs(newLogsRouter(morningHistory()), tc.query)
			if code != http.StatusOK {
				t.Fatalf("status = %d, body = %v", code, body)
			}
			var events []models.HeatpumpEvent
			if err := json.Unmarshal(body["events"], &events); err != nil {
				t.Fatalf("events: %v", err)
			}
			var got []string
			for _, e := range events {
				got = append(got, e.EventID)
			}
			if strings.Join(got, ",") != strings.Join(tc.want, ",") {
				t.Fatalf("events = %v, want %v", got, tc.want)
			}
			if string(body["count"]) != strconv.Itoa(len(tc.want)) {
				t.Fatalf("count = %s, want %d", body["count"], len(tc.want))
			}
		})
	}
}

func TestGetLogs_DateOnlyToIsEndOfDay(t *testing.T) {
	history := morningHistory()
	if code, _ := getLogsAs(newLogsRouter(history), "?to=2025-08-01"); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	want := time.Date(2025, 8, 1, 23, 59, 59, 999999999, time.UTC)
	if !history.lastTo.Equal(want) {
		t.Fatalf("to = %v, want %v", history.lastTo, want)
	}
}

func TestGetLogs_BadQueries(t *testing.T) {
	cases := []struct {
		name    string
		query   string
		errPart string
	}{
		{"unparseable from", "?from=yesterday", "invalid 'from'"},
		{"unparseable to", "?to=2025-13-01", "invalid 'to'"},
		{"inverted range", "?from=2025-08-02&to=2025-08-01", "from must not be after to"},
		{"retired event type", "?type=MODE_CHANGE", "unknown event type"},
		{"unrelated type", "?type=IGNITION", "unknown event type"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			history := morningHistory()
			code, body := getLogsAs(newLogsRouter(history), tc.query)
			if code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", code)
			}
			var msg string
			_ = json.Unmarshal(body["error"], &msg)
			if !strings.Contains(msg, tc.errPart) {
				t.Fatalf("error = %q, want it to mention %q", msg, tc.errPart)
			}
			if history.queries != 0 {
				t.Fatalf("repository queried %d times for a bad query", history.queries)
			}
		})
	}
}

func TestGetLogs_StorageFailure(t *testing.T) {
	code, body := getLogsAs(newLogsRouter(&eventHistory{err: errors.New("database is locked")}), "")
	if code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", code)
	}
	var msg string
	_ = json.Unmarshal(body["error"], &msg)
	if msg != errLoadLogs {
		t.Fatalf("error = %q, want %q", msg, errLoadLogs)
	}
}
