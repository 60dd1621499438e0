package loadgen

import (
	"context"
	"fmt"

	"github.com/okian/ecotrack/internal/domain/gamification"
	"github.com/okian/ecotrack/pkg/logger"
)

// verifyResults checks the final score against what the run applied. Without
// deductions the score must equal the starting score plus every applied add.
// With deductions clamping makes the order matter, so only the bounds and
// the level classification are checked.
func verifyResults(ctx context.Context, config *Config, stats *Stats) error {
	logger.Get().Info(ctx, "verifying results")

	if want := gamification.Classify(stats.FinalScore).String(); stats.FinalLevel != want {
		return fmt.Errorf("%w: level %q does not match score %.2f (want %q)",
			ErrVerification, stats.FinalLevel, stats.FinalScore, want)
	}

	upper := stats.InitialScore + stats.AppliedAdds
	if stats.AppliedDeducts == 0 {
		if stats.FinalScore != upper {
			return fmt.Errorf("%w: score %.2f, want %.2f",
				ErrVerification, stats.FinalScore, upper)
		}
	} else {
		if stats.FinalScore < 0 {
			return fmt.Errorf("%w: negative score %.2f", ErrVerification, stats.FinalScore)
		}
		if stats.FinalScore > upper {
			return fmt.Errorf("%w: score %.2f above upper bound %.2f",
				ErrVerification, stats.FinalScore, upper)
		}
	}

	if config.Replays > 0 && stats.Replayed == 0 {
		logger.Get().Warn(ctx, "no replays were recognised; idempotency may be disabled on the server",
			logger.Int("replays", config.Replays))
	}

	logger.Get().Info(ctx, "result verification completed",
		logger.Float64("finalScore", stats.FinalScore),
		logger.String("finalLevel", stats.FinalLevel))
	return nil
}
