package system

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/julianstephens/habitual/internal/cli"
	"github.com/julianstephens/habitual/internal/logger"
	"github.com/julianstephens/habitual/internal/server"
)

// ServeCmd runs the local action listener and the minute dispatcher until
// interrupted.
type ServeCmd struct {
	Addr string `help:"Listen address (defaults to server.addr from the config)."`
}

func (c *ServeCmd) Run(ctx *cli.Context) error {
	addr := c.Addr
	if addr == "" {
		addr = ctx.App.Config.Server.Addr
	}

	secret := ctx.App.CallbackSecret()
	if secret == "" {
		logger.Warn("No callback secret configured, action endpoints are unauthenticated")
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(ctx.App.Scheduler, ctx.App.Backend, ctx.App.Dispatcher, secret)
	return srv.Run(runCtx, addr)
}
