package models

import "time"

// Operating state estimates published with each temperature sample.
const (
	OperatingIdle    = "IDLE"
	OperatingHeating = "HEATING"
	OperatingCooling = "COOLING"
)

// HeatpumpState is the persisted control state plus the latest ambient sample.
type HeatpumpState struct {
	ID                 int       `json:"id"`
	Mode               string    `json:"mode"`                // AUTO | COOL | HEAT | OFF
	TargetTemperature  int       `json:"target_temperature"`  // °C, 17..30
	FanSpeed           int       `json:"fan_speed"`           // 0 = auto, 1..100
	CurrentTemperature float64   `json:"current_temperature"` // °C
	CurrentHumidity    float64   `json:"current_humidity"`    // %RH
	OperatingState     string    `json:"operating_state"`     // IDLE | HEATING | COOLING
	UpdatedAt          time.Time `json:"updated_at"`
}

// Reading is one ambient sample.
type Reading struct {
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	TakenAt     time.Time `json:"taken_at"`
}
