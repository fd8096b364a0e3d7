package interfaces

import (
	"context"

	"request-monitor/src/models"
)

// -----------------------------------------------------------------------------
// IPageRenderer turns a page definition and a service into chart data.
// -----------------------------------------------------------------------------

type IPageRenderer interface {
	// Pages lists the configured pages in display order.
	Pages() []models.MPageConfig

	// Page returns one page definition; unknown names yield a NotFoundError.
	Page(name string) (models.MPageConfig, error)

	// ResolveHours applies the default window and the upper cap; negative
	// values yield a ValidationError.
	ResolveHours(hours int) (int, error)

	// RenderPage runs the page queries and returns the chart payload.
	// A page whose sources returned no rows yields a payload with NoData set.
	RenderPage(ctx context.Context, page string, service string, hours int) (*models.MChartPayload, error)

	// Services lists the services that have logged requests.
	Services(ctx context.Context) ([]string, error)

	// Logs returns one page of the request log.
	Logs(ctx context.Context, q models.MLogQuery) (models.MLogPage, error)
}

// -----------------------------------------------------------------------------
// IHealthProbe reports whether a backing dependency is reachable.
// -----------------------------------------------------------------------------

type IHealthProbe interface {
	Ping(ctx context.Context) error
}

// -----------------------------------------------------------------------------
// IDataExchanger is the outward-facing server.
// -----------------------------------------------------------------------------

type IDataExchanger interface {
	// Start the server; blocks until ctx is cancelled or the listener fails.
	Start(ctx context.Context) error

	// Stop the server gracefully
	Stop() error
}
