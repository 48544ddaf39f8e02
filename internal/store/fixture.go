package store

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Round is one rounds row.
type Round struct {
	ID              int64  `yaml:"id"`
	MapName         string `yaml:"map_name"`
	RoundNumber     int    `yaml:"round_number"`
	RoundDate       string `yaml:"round_date,omitempty"`
	RoundTime       string `yaml:"round_time,omitempty"`
	GamingSessionID *int64 `yaml:"gaming_session_id,omitempty"`
}

// PlayerStats is one player_comprehensive_stats row.
type PlayerStats struct {
	RoundID           int64   `yaml:"round_id"`
	PlayerGUID        string  `yaml:"player_guid"`
	PlayerName        string  `yaml:"player_name"`
	Team              int     `yaml:"team,omitempty"`
	TimePlayedSeconds int     `yaml:"time_played_seconds"`
	TimeDeadMinutes   float64 `yaml:"time_dead_minutes"`
	DeniedPlaytime    int     `yaml:"denied_playtime"`
}

// RoundTeams is one lua_round_teams snapshot. A nil duration models a
// capture that never recorded one.
type RoundTeams struct {
	RoundID               int64     `yaml:"round_id"`
	ActualDurationSeconds *int      `yaml:"actual_duration_seconds"`
	CapturedAt            time.Time `yaml:"captured_at,omitempty"`
}

// SpawnStats is one lua_spawn_stats row.
type SpawnStats struct {
	RoundID     int64  `yaml:"round_id"`
	PlayerGUID  string `yaml:"player_guid"`
	PlayerName  string `yaml:"player_name,omitempty"`
	DeadSeconds int    `yaml:"dead_seconds"`
}

// Fixture is a complete data set for the four tables.
//
// Example YAML:
//
//	rounds:
//	  - id: 101
//	    map_name: supply
//	    round_number: 1
//	player_stats:
//	  - round_id: 101
//	    player_guid: A1B2C3D4E5F60718293A4B5C6D7E8F90
//	    player_name: alpha
//	    time_played_seconds: 600
//	    time_dead_minutes: 2.5
//	    denied_playtime: 40
//	round_teams:
//	  - round_id: 101
//	    actual_duration_seconds: 600
//	    captured_at: 2026-01-10T21:40:00Z
//	spawn_stats:
//	  - round_id: 101
//	    player_guid: a1b2c3d4
//	    dead_seconds: 120
type Fixture struct {
	Rounds      []Round       `yaml:"rounds"`
	PlayerStats []PlayerStats `yaml:"player_stats"`
	RoundTeams  []RoundTeams  `yaml:"round_teams"`
	SpawnStats  []SpawnStats  `yaml:"spawn_stats"`
}

// LoadFixture reads and parses a fixture YAML file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture parses fixture YAML with strict field validation.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid fixture: %w", err)
	}

	return &f, nil
}

// Validate checks required fields and fills defaults.
func (f *Fixture) Validate() error {
	seen := make(map[int64]bool, len(f.Rounds))
	for i, r := range f.Rounds {
		if r.ID <= 0 {
			return fmt.Errorf("rounds[%d]: id must be positive", i)
		}
		if seen[r.ID] {
			return fmt.Errorf("rounds[%d]: duplicate id %d", i, r.ID)
		}
		seen[r.ID] = true
	}

	for i, p := range f.PlayerStats {
		if !seen[p.RoundID] {
			return fmt.Errorf("player_stats[%d]: round_id %d is not declared in rounds", i, p.RoundID)
		}
		if p.PlayerGUID == "" {
			return fmt.Errorf("player_stats[%d]: player_guid is required", i)
		}
	}

	for i := range f.RoundTeams {
		if f.RoundTeams[i].RoundID <= 0 {
			return fmt.Errorf("round_teams[%d]: round_id must be positive", i)
		}
		if f.RoundTeams[i].CapturedAt.IsZero() {
			f.RoundTeams[i].CapturedAt = defaultCapturedAt
		}
	}

	for i, sp := range f.SpawnStats {
		if sp.RoundID <= 0 {
			return fmt.Errorf("spawn_stats[%d]: round_id must be positive", i)
		}
		if sp.PlayerGUID == "" {
			return fmt.Errorf("spawn_stats[%d]: player_guid is required", i)
		}
	}

	return nil
}
