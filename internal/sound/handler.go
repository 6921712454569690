package sound

import (
	"log/slog"

	"github.com/markussekhon/twitch-soundbot/internal/dispatch"
	"github.com/markussekhon/twitch-soundbot/internal/metrics"
)

// filePlayer is the playback capability the handler needs.
type filePlayer interface {
	Play(path string) error
}

// RedemptionHandler plays the catalogued sound matching a redemption's
// reward title. Playback failures are logged and swallowed; nothing is
// surfaced back to the dispatch loop.
type RedemptionHandler struct {
	catalog *Catalog
	player  filePlayer
}

func NewRedemptionHandler(catalog *Catalog, player filePlayer) *RedemptionHandler {
	return &RedemptionHandler{catalog: catalog, player: player}
}

// Handle implements dispatch.Handler.
func (h *RedemptionHandler) Handle(ev dispatch.RedemptionEvent) {
	slog.Info("Redemption received", "user_name", ev.UserName, "reward_title", ev.RewardTitle)

	path, ok := h.catalog.Lookup(ev.RewardTitle)
	if !ok {
		metrics.PlaybackResults.WithLabelValues("no_match").Inc()
		slog.Info("No matching sound for reward", "reward_title", ev.RewardTitle)
		return
	}

	if err := h.player.Play(path); err != nil {
		metrics.PlaybackResults.WithLabelValues("error").Inc()
		slog.Error("Sound playback failed", "path", path, "error", err)
		return
	}
	metrics.PlaybackResults.WithLabelValues("played").Inc()
}
