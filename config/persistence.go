package config

import (
	"encoding/json"
	"log"
	"time"

	"github.com/quasilyte/gdata"
)

// SavedNetcode holds the client netcode overrides stored on disk. Zero
// values keep the built-in default.
type SavedNetcode struct {
	InterpolationDelay int     `json:"interpolationDelay"`
	MaxExtrapolation   int     `json:"maxExtrapolation"`
	SmoothingDistance  float64 `json:"smoothingDistance"`
	SwitchDurationMs   int     `json:"switchDurationMs"`
	PlayerName         string  `json:"playerName"`
	ReconnectToken     string  `json:"reconnectToken"`
}

const netcodeItem = "netcode"

// Store persists client settings through gdata.
type Store struct {
	m *gdata.Manager
}

// OpenStore opens the settings store of app. A store that fails to open is
// still usable; loads return nothing and saves are dropped.
func OpenStore(app string) *Store {
	m, err := gdata.Open(gdata.Config{
		AppName: app,
	})
	if err != nil {
		log.Printf("Warning: Could not initialize persistence: %v", err)
		return &Store{}
	}
	return &Store{m: m}
}

// LoadNetcode loads saved overrides, or nil when none exist.
func (s *Store) LoadNetcode() (*SavedNetcode, error) {
	if s == nil || s.m == nil {
		return nil, nil
	}

	data, err := s.m.LoadItem(netcodeItem)
	if err != nil {
		log.Printf("Warning: Could not load netcode settings: %v", err)
		return nil, nil
	}
	if len(data) == 0 {
		return nil, nil
	}

	var saved SavedNetcode
	if err := json.Unmarshal(data, &saved); err != nil {
		log.Printf("Warning: Could not parse saved netcode settings: %v", err)
		return nil, err
	}
	return &saved, nil
}

func (s *Store) SaveNetcode(saved *SavedNetcode) error {
	if s == nil || s.m == nil {
		return nil
	}

	data, err := json.Marshal(saved)
	if err != nil {
		log.Printf("Warning: Could not serialize netcode settings: %v", err)
		return err
	}
	if err := s.m.SaveItem(netcodeItem, data); err != nil {
		log.Printf("Warning: Could not save netcode settings: %v", err)
		return err
	}
	return nil
}

// Apply copies the non-zero overrides onto cfg.
func (saved *SavedNetcode) Apply(cfg *NetcodeConfig) {
	if saved == nil {
		return
	}
	if saved.InterpolationDelay > 0 {
		cfg.InterpolationDelay = saved.InterpolationDelay
	}
	if saved.MaxExtrapolation > 0 {
		cfg.MaxExtrapolation = saved.MaxExtrapolation
	}
	if saved.SmoothingDistance > 0 {
		cfg.SmoothingDistance = saved.SmoothingDistance
	}
	if saved.SwitchDurationMs > 0 {
		cfg.SwitchDuration = time.Duration(saved.SwitchDurationMs) * time.Millisecond
	}
}
