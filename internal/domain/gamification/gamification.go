// Package gamification tracks a user's running emission score and the level
// derived from it.
//
// The score accumulates emission points, so a lower score is better: users
// with fewer emissions are classified as Expert and users with many as
// Beginner.
package gamification

import "sync"

// Level is the categorical classification of a score.
type Level string

// Levels ordered from the best (lowest emissions) to the worst.
const (
	LevelExpert       Level = "Expert"
	LevelIntermediate Level = "Intermediate"
	LevelBeginner     Level = "Beginner"
)

// Classification thresholds. Both bounds are exclusive.
const (
	expertCeiling       = 200.0
	intermediateCeiling = 500.0
)

// String implements fmt.Stringer.
func (l Level) String() string { return string(l) }

// Classify maps a score onto a level.
func Classify(score float64) Level {
	switch {
	case score < expertCeiling:
		return LevelExpert
	case score < intermediateCeiling:
		return LevelIntermediate
	default:
		return LevelBeginner
	}
}

// Status is a consistent view of the tracker state.
type Status struct {
	Score float64
	Level Level
}

// Tracker holds the emission score and its level. All methods are safe for
// concurrent use.
//
// Callers are trusted to pass finite point values; the HTTP layer rejects
// anything that is not a JSON number before it reaches the tracker.
type Tracker struct {
	mu    sync.Mutex
	score float64
	level Level
}

// NewTracker returns a tracker at score 0. The stored level starts as
// Beginner and is recomputed on the first level query.
func NewTracker() *Tracker {
	return &Tracker{level: LevelBeginner}
}

// Score returns the current score.
func (t *Tracker) Score() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.score
}

// Level recomputes the level from the current score, stores it and returns it.
func (t *Tracker) Level() Level {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.updateLevel()
	return t.level
}

// LastLevel returns the stored level without recomputing it. Before the
// first mutation or level query this is the initial Beginner level.
func (t *Tracker) LastLevel() Level {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.level
}

// Status returns the score and the freshly recomputed level in one step.
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.updateLevel()
	return Status{Score: t.score, Level: t.level}
}

// AddPoints adds points to the score. Negative values lower the score and
// are not clamped. The description does not take part in the computation.
func (t *Tracker) AddPoints(points float64, _ string) Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.score += points
	t.updateLevel()
	return Status{Score: t.score, Level: t.level}
}

// DeductPoints subtracts points from the score, clamping at zero.
func (t *Tracker) DeductPoints(points float64, description string) Status {
	st, _ := t.DeductPointsClamped(points, description)
	return st
}

// DeductPointsClamped is DeductPoints that also reports whether the score
// was clamped at zero.
func (t *Tracker) DeductPointsClamped(points float64, _ string) (Status, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.score -= points
	clamped := t.score < 0
	if clamped {
		t.score = 0
	}
	t.updateLevel()
	return Status{Score: t.score, Level: t.level}, clamped
}

// updateLevel must be called with mu held.
func (t *Tracker) updateLevel() {
	t.level = Classify(t.score)
}
