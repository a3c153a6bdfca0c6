package notifier

import (
	"context"
	"log/slog"

	"github.com/amishk599/cvvin/internal/model"
)

var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes completed analyses to the logger.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the score and skill lists. It never fails.
func (n *LogNotifier) Notify(_ context.Context, res model.MatchResult) error {
	n.logger.Info("analysis result",
		"run_id", res.RunID,
		"score", res.MatchScore,
		"matched", res.MatchedSkills,
		"missing", res.MissingSkills,
	)
	return nil
}
