// Tether - Resilient WebSocket Channel Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tether

/*
Package supervisor runs Tether's long-lived services under suture v4.

	tether
	├── messaging-layer
	│   ├── ConnectionService   the WebSocket channel
	│   └── BridgeService       NATS bridge (if enabled)
	└── api-layer
	    └── HTTPServerService   /healthz, /state, /metrics

Each layer counts failures on its own, so a broker outage that keeps the
bridge restarting does not take the ops server down with it.

Supervisor events go through sutureslog to a *slog.Logger. Pass
logging.NewSlogLogger() to keep them in the zerolog stream:

	tree := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
	    FailureThreshold: cfg.Supervisor.FailureThreshold,
	    FailureBackoff:   cfg.Supervisor.FailureBackoff,
	})
	tree.AddMessagingService(services.NewConnectionService(manager, true))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	err := tree.Serve(ctx)

The service wrappers live in the services subpackage.
*/
package supervisor
