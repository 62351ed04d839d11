package server

import (
	"context"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/crypgo-dev/crypgo-web/internal/api"
	"github.com/crypgo-dev/crypgo-web/internal/poller"
)

// streamWithdrawal handles GET /session/withdrawals/:id/stream. It polls the
// withdrawal and pushes every status as a server-sent event until the
// withdrawal settles or the visitor goes away. Once settled the refreshed
// profile is sent as the final "done" event.
func (s *Server) streamWithdrawal(c *gin.Context) {
	ctx := c.Request.Context()
	sc := s.newScope(c)
	user := s.userSession(sc)
	id := c.Param("id")
	log := s.requestLogger(c).With().Str("withdrawal_id", id).Logger()

	updates := make(chan *api.Withdrawal)
	failures := make(chan error)

	p := poller.New(
		func(ctx context.Context) (*api.Withdrawal, error) {
			return sc.client.Withdrawal(ctx, id)
		},
		poller.Options{
			Interval: s.pollInterval,
			OnUpdate: func(runCtx context.Context, w *api.Withdrawal) {
				select {
				case updates <- w:
				case <-runCtx.Done():
				}
			},
			OnError: func(runCtx context.Context, err error) {
				select {
				case failures <- err:
				case <-runCtx.Done():
				}
			},
			OnTerminal: func(runCtx context.Context, w *api.Withdrawal) {
				if _, err := user.RefreshProfile(runCtx); err != nil {
					log.Warn().Err(err).Msg("Failed to refresh profile after withdrawal settled")
				}
			},
		},
		log,
	)

	if err := p.Start(ctx); err != nil {
		s.respondWithError(c, err)
		return
	}
	defer p.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	c.Stream(func(w io.Writer) bool {
		select {
		case withdrawal := <-updates:
			c.SSEvent("withdrawal", withdrawal)
			return true
		case err := <-failures:
			c.SSEvent("error", gin.H{"error": api.Message(err)})
			// A lost session will not come back by polling
			return !api.IsAuth(err)
		case <-p.Done():
			c.SSEvent("done", gin.H{"user": user.Snapshot().User})
			return false
		case <-ctx.Done():
			return false
		}
	})
}
