package service

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(
		NewAuth,
		NewBookmarks,
		NewDisplay,
		NewDispatcher,
	),
	fx.Invoke(registerDrain),
)

// registerDrain lets background writes finish before the store closes.
func registerDrain(lc fx.Lifecycle, auth *Auth, display *Display) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			auth.Wait()
			display.Wait()
			return nil
		},
	})
}
