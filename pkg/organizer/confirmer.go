package organizer

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pkg/errors"

	"github.com/sortd-ai/sortd/pkg/presenter"
	organizertypes "github.com/sortd-ai/sortd/pkg/types/organizer"
)

// ErrCancelled is returned by a Confirmer when the user declines every
// proposed strategy. A cancelled run is a normal outcome, not a failure.
var ErrCancelled = errors.New("organization cancelled")

// Confirmer decides which of the ranked strategies, if any, gets applied.
type Confirmer interface {
	Confirm(ctx context.Context, strategies []organizertypes.Strategy) (organizertypes.Strategy, error)
}

// AutoConfirmer picks the top-ranked strategy without asking. Used for
// --yes runs.
type AutoConfirmer struct{}

func (AutoConfirmer) Confirm(ctx context.Context, strategies []organizertypes.Strategy) (organizertypes.Strategy, error) {
	if len(strategies) == 0 {
		return organizertypes.Strategy{}, ErrCancelled
	}
	return strategies[0], nil
}

// maxPromptAttempts bounds how often an unparsable answer is re-asked
// before the run is treated as cancelled.
const maxPromptAttempts = 3

// listStrategies prints the ranked strategies with their folder layouts.
func listStrategies(out presenter.Presenter, strategies []organizertypes.Strategy) {
	out.Section("Proposed strategies")
	for i, s := range strategies {
		label := fmt.Sprintf("%d. %s (%s, score %.2f, %d files)", i+1, s.Description, s.Type, s.Score, len(s.Assignments))
		if s.Fallback {
			label += " [fallback]"
		}
		out.Info(label)
		if s.Rationale != "" {
			out.Info("   " + s.Rationale)
		}
		for _, name := range s.FolderNames() {
			out.Info("   -> " + name + "/")
		}
	}
}

// ConsoleConfirmer lists the strategies on the terminal and reads the
// user's pick.
type ConsoleConfirmer struct {
	Out presenter.Presenter
}

func (c *ConsoleConfirmer) Confirm(ctx context.Context, strategies []organizertypes.Strategy) (organizertypes.Strategy, error) {
	if len(strategies) == 0 {
		return organizertypes.Strategy{}, ErrCancelled
	}

	listStrategies(c.Out, strategies)

	question := fmt.Sprintf("Apply which strategy? (1-%d, n to cancel)", len(strategies))
	for attempt := 0; attempt < maxPromptAttempts; attempt++ {
		answer := c.Out.Prompt(question)
		switch answer {
		case "", "n", "N", "q":
			return organizertypes.Strategy{}, ErrCancelled
		case "y", "Y":
			return strategies[0], nil
		}
		if idx, err := strconv.Atoi(answer); err == nil && idx >= 1 && idx <= len(strategies) {
			return strategies[idx-1], nil
		}
		c.Out.Warning("Unrecognized answer: " + answer)
	}
	return organizertypes.Strategy{}, ErrCancelled
}
