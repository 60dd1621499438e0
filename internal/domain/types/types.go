// Package types contains the read shapes returned by the HTTP API.
package types

import "time"

// GamificationStatus is the body of GET /api/gamification.
type GamificationStatus struct {
	Score float64 `json:"score"`
	Level string  `json:"level"`
}

// UpdateResult is the body of a successful POST /api/gamification/update.
type UpdateResult struct {
	Success  bool    `json:"success"`
	NewScore float64 `json:"new_score"`
	NewLevel string  `json:"new_level"`
}

// CategorySlice is one slice of the category pie chart.
type CategorySlice struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// DayTotal is one bar of the weekly chart.
type DayTotal struct {
	Day   string `json:"day"`
	Value int64  `json:"value"`
}

// DailyBreakdown is today's reading per activity.
type DailyBreakdown struct {
	EmailsSent    float64 `json:"emails_sent"`
	BrowsingHours float64 `json:"browsing_hours"`
	CloudStorage  float64 `json:"cloud_storage"`
}

// TotalCO2 is today's combined footprint.
type TotalCO2 struct {
	Total float64 `json:"total"`
}

// HistoryEntry is one journaled point adjustment.
type HistoryEntry struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Points      float64   `json:"points"`
	Description string    `json:"description,omitempty"`
	ScoreAfter  float64   `json:"score_after"`
	LevelAfter  string    `json:"level_after"`
	At          time.Time `json:"at"`
}
