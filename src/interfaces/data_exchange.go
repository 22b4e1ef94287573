package interfaces

import "stock-watch/src/models"

// -----------------------------------------------------------------------------
// IBroadcaster receives the result of every refresh pass.
// -----------------------------------------------------------------------------

type IBroadcaster interface {

	// Broadcast pushes one refresh pass to every listener.
	Broadcast(update *models.MLatestData)
}

// -----------------------------------------------------------------------------
// IDataExchanger pushes refresh results to connected clients.
// -----------------------------------------------------------------------------

type IDataExchanger interface {
	IBroadcaster

	// -----------------------------------------------------------------------------

	// Start the server
	Start() error

	// -----------------------------------------------------------------------------

	// Stop the server gracefully
	Stop() error
}

// -----------------------------------------------------------------------------
// IHealthReporter mirrors the refresh loop state to health checks.
// -----------------------------------------------------------------------------

type IHealthReporter interface {
	SetServing(serving bool)
}
