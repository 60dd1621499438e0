package loadgen

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/okian/ecotrack/internal/domain/model"
	"github.com/okian/ecotrack/pkg/logger"
)

const randomFloatDivisor = 1000000

var descriptions = []string{
	"biked to work",
	"unsubscribed from newsletters",
	"cleared cloud backups",
	"streamed in HD",
	"sent large attachments",
	"left the laptop on overnight",
}

// getRandomFloat returns a random float64 in [0, 1) using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// getRandomInt returns a random int in [0, n).
func getRandomInt(n int) int {
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// generateAdjustments creates the configured number of adjustments, each with
// a fresh idempotency key. Points are whole numbers so sums stay exact.
func generateAdjustments(ctx context.Context, config *Config, stats *Stats) ([]Adjustment, error) {
	logger.Get().Info(ctx, "generating adjustments", logger.Int("count", config.NumAdjustments))

	out := make([]Adjustment, 0, config.NumAdjustments)
	for i := 0; i < config.NumAdjustments; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during generation: %w", err)
		}
		out = append(out, generateSingleAdjustment(config))
	}

	stats.Generated = len(out)
	logger.Get().Info(ctx, "generated adjustments", logger.Int("count", len(out)))
	return out, nil
}

func generateSingleAdjustment(config *Config) Adjustment {
	typ := model.AdjustmentAdd
	if getRandomFloat() < config.DeductRatio {
		typ = model.AdjustmentDeduct
	}
	return Adjustment{
		Key:         uuid.NewString(),
		Type:        typ,
		Points:      float64(1 + getRandomInt(config.MaxPoints)),
		Description: descriptions[getRandomInt(len(descriptions))],
	}
}
