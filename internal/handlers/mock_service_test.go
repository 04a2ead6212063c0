package handlers

import (
	"context"
	"net/http"

	"controlling_heatpump/internal/models"
	"controlling_heatpump/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(ctx context.Context, username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(ctx context.Context, username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockHeatpump struct {
	state       models.HeatpumpState
	applyErr    error
	transmitErr error
	signal      service.SignalInfo
	signalErr   error

	lastTarget    service.TargetParams
	applyCalls    int
	transmitCalls int
}

func (m *mockHeatpump) EnsureState(ctx context.Context) (models.HeatpumpState, error) {
	return m.state, nil
}
func (m *mockHeatpump) ApplyTarget(ctx context.Context, p service.TargetParams) (models.HeatpumpState, error) {
	m.applyCalls++
	m.lastTarget = p
	return m.state, m.applyErr
}
func (m *mockHeatpump) TransmitCurrent(ctx context.Context) error {
	m.transmitCalls++
	return m.transmitErr
}
func (m *mockHeatpump) TransmitOnStartup(ctx context.Context) error { return m.transmitErr }
func (m *mockHeatpump) Signal(ctx context.Context) (service.SignalInfo, error) {
	return m.signal, m.signalErr
}
func (m *mockHeatpump) HandleTargetMessage(ctx context.Context, topic string, payload []byte) {}

type mockMonitoring struct {
	state models.HeatpumpState
	err   error
}

func (m *mockMonitoring) GetState(ctx context.Context) (models.HeatpumpState, error) {
	return m.state, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
