// Package model contains domain models passed between layers.
package model

import "time"

// AdjustmentType names the direction of a point change.
type AdjustmentType string

// Supported adjustment types.
const (
	AdjustmentAdd    AdjustmentType = "add"
	AdjustmentDeduct AdjustmentType = "deduct"
)

// Valid reports whether t is one of the supported types.
func (t AdjustmentType) Valid() bool {
	return t == AdjustmentAdd || t == AdjustmentDeduct
}

// Adjustment records one accepted change to the gamification score.
type Adjustment struct {
	ID          string         // uuid assigned when the change is applied
	Type        AdjustmentType // add or deduct
	Points      float64        // points as submitted, before clamping
	Description string         // optional free text from the client
	ScoreAfter  float64        // score once the change was applied
	LevelAfter  string         // level once the change was applied
	At          time.Time      // when the change was applied (UTC)
}
