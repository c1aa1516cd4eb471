// Package bootstrap wires configuration, logging, the control store, the
// services and the HTTP surface into a runnable application.
//
// Usage:
//
//	app, err := bootstrap.NewApp(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer app.Shutdown()
//
//	if err := app.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Wait for shutdown signal
//	app.WaitForShutdown()
//
// Commands that only need the store (seed, migrate, one-shot tool calls) use
// InitLogger, InitConfig, InitStorage and NewDispatcher directly.
package bootstrap
