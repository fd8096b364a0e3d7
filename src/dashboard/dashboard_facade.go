package dashboard

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"request-monitor/src/analysis"
	"request-monitor/src/helpers"
	"request-monitor/src/interfaces"
	"request-monitor/src/logger"
	"request-monitor/src/models"
	"request-monitor/src/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MaxHours bounds the reporting window a request may ask for.
const MaxHours = 24 * 7

var serviceIDPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)

// -----------------------------------------------------------------------------

// DashboardFacade renders configured pages: it runs each page's source
// queries and turns the results into chart payloads.
type DashboardFacade struct {
	Config  *models.MConfig
	DB      interfaces.IDatabase
	History *utils.RenderHistory
	Logger  *logger.Logger

	tracer trace.Tracer
	now    func() time.Time
}

// -----------------------------------------------------------------------------

func NewDashboardFacade(cfg *models.MConfig, db interfaces.IDatabase, history *utils.RenderHistory, log *logger.Logger) *DashboardFacade {
	if history == nil {
		history = utils.NewRenderHistory(utils.DefaultHistoryCapacity)
	}
	return &DashboardFacade{
		Config:  cfg,
		DB:      db,
		History: history,
		Logger:  log,
		tracer:  otel.Tracer("request-monitor/dashboard"),
		now:     time.Now,
	}
}

// -----------------------------------------------------------------------------

// Pages lists the configured pages in display order.
func (d *DashboardFacade) Pages() []models.MPageConfig {
	return d.Config.Pages
}

// -----------------------------------------------------------------------------

// Page returns the named page or a NotFoundError.
func (d *DashboardFacade) Page(name string) (models.MPageConfig, error) {
	for _, p := range d.Config.Pages {
		if p.Name == name {
			return p, nil
		}
	}
	return models.MPageConfig{}, helpers.NewNotFoundError(fmt.Sprintf("unknown page '%s'", name))
}

// -----------------------------------------------------------------------------

// ValidateService checks a service identifier taken from a request.
func ValidateService(service string) error {
	if !serviceIDPattern.MatchString(service) {
		return helpers.NewValidationError(fmt.Sprintf("invalid service identifier '%s'", service))
	}
	return nil
}

// -----------------------------------------------------------------------------

// ResolveHours applies the configured default and the MaxHours cap.
func (d *DashboardFacade) ResolveHours(hours int) (int, error) {
	if hours < 0 {
		return 0, helpers.NewValidationError(fmt.Sprintf("hours must be positive, got %d", hours))
	}
	if hours == 0 {
		hours = d.Config.DefaultHours
		if hours <= 0 {
			hours = 1
		}
	}
	if hours > MaxHours {
		hours = MaxHours
	}
	return hours, nil
}

// -----------------------------------------------------------------------------

// RenderPage runs the page queries and returns the chart payload.
// A page whose sources returned no rows yields a payload with NoData set.
func (d *DashboardFacade) RenderPage(ctx context.Context, pageName string, service string, hours int) (payload *models.MChartPayload, err error) {
	ctx, span := d.tracer.Start(ctx, "RenderPage", trace.WithAttributes(
		attribute.String("page", pageName),
		attribute.String("service", service),
	))
	defer span.End()

	start := d.now()
	metrics := models.MRenderMetrics{Page: pageName, Service: service, Timestamp: start.Unix()}
	defer func() {
		metrics.RenderSeconds = time.Since(start).Seconds()
		metrics.Failed = err != nil
		if payload != nil {
			metrics.NoData = payload.NoData
			metrics.Buckets = len(payload.Labels)
		}
		d.History.Append(metrics)

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	page, err := d.Page(pageName)
	if err != nil {
		return nil, err
	}
	if len(page.Queries) == 0 {
		return nil, helpers.NewValidationError(fmt.Sprintf("page '%s' has no queries", page.Name))
	}
	if err := ValidateService(service); err != nil {
		return nil, err
	}
	hours, err = d.ResolveHours(hours)
	if err != nil {
		return nil, err
	}

	params := models.MQueryParams{
		Service: service,
		Since:   start.Add(-time.Duration(hours) * time.Hour).Unix(),
	}
	metrics.Queries = len(page.Queries)

	payload = &models.MChartPayload{
		Page:       page.Name,
		Title:      page.Title,
		Kind:       page.Kind,
		Service:    service,
		Hours:      hours,
		Labels:     []string{},
		TickLabels: []string{},
		Series:     []models.MSeriesData{},
		Generated:  start.Unix(),
	}

	switch page.Kind {
	case models.PageKindPie:
		err = d.renderPie(ctx, page, params, payload)
	case models.PageKindTable:
		err = d.renderTables(ctx, page, params, payload)
	default:
		err = d.renderTimeseries(ctx, page, params, payload)
	}
	if err != nil {
		d.Logger.Error("Render of page %s for %s failed: %v", page.Name, service, err)
		return nil, err
	}

	span.SetAttributes(attribute.Bool("no_data", payload.NoData), attribute.Int("buckets", len(payload.Labels)))
	d.Logger.Debug("Rendered page %s for %s (%d buckets, no_data=%v)", page.Name, service, len(payload.Labels), payload.NoData)
	return payload, nil
}

// -----------------------------------------------------------------------------

func (d *DashboardFacade) renderTimeseries(ctx context.Context, page models.MPageConfig, params models.MQueryParams, payload *models.MChartPayload) error {
	names := make([]string, len(page.Series))
	for i, s := range page.Series {
		names[i] = s.Name
	}

	agg, err := analysis.NewBucketAggregator(names, d.aggregatorOptions(page))
	if err != nil {
		return err
	}

	sources := make([]models.MResultSet, 0, len(page.Queries))
	for i, query := range page.Queries {
		set, err := runQuery(d, ctx, page.Name, i, func(ctx context.Context) (models.MResultSet, error) {
			return d.DB.QueryResultSet(ctx, query, params)
		})
		if err != nil {
			return err
		}
		sources = append(sources, set)
	}

	table, err := agg.Aggregate(sources...)
	if errors.Is(err, analysis.ErrNoData) {
		payload.NoData = true
		return nil
	}
	if err != nil {
		return err
	}

	payload.Labels = table.Labels()
	payload.TickLabels = table.TickLabels
	for i, s := range page.Series {
		values := table.Column(i)
		payload.Series = append(payload.Series, models.MSeriesData{
			Name:    s.Name,
			Label:   s.Label,
			Unit:    s.Unit,
			Axis:    s.Axis,
			Values:  values,
			Summary: analysis.Summarize(values),
		})
	}
	return nil
}

// -----------------------------------------------------------------------------

// renderPie plots the first query: column one names the slice, column two sizes it.
func (d *DashboardFacade) renderPie(ctx context.Context, page models.MPageConfig, params models.MQueryParams, payload *models.MChartPayload) error {
	table, err := runQuery(d, ctx, page.Name, 0, func(ctx context.Context) (models.MTableData, error) {
		return d.DB.QueryTable(ctx, page.Queries[0], params)
	})
	if err != nil {
		return err
	}
	if len(table.Columns) < 2 {
		return helpers.NewValidationError(fmt.Sprintf("pie page '%s' query must return a label and a value column", page.Name))
	}

	payload.Tables = []models.MTableData{table}
	if len(table.Rows) == 0 {
		payload.NoData = true
		return nil
	}

	series := models.MSeriesData{Name: table.Columns[1], Label: table.Columns[1], Axis: models.AxisLeft}
	if len(page.Series) > 0 {
		series.Label, series.Unit = page.Series[0].Label, page.Series[0].Unit
	}
	for _, row := range table.Rows {
		payload.Labels = append(payload.Labels, fmt.Sprint(row[0]))
		series.Values = append(series.Values, numeric(row[1]))
	}
	series.Summary = analysis.Summarize(series.Values)
	payload.Series = append(payload.Series, series)
	payload.TickLabels = payload.Labels
	return nil
}

// -----------------------------------------------------------------------------

func (d *DashboardFacade) renderTables(ctx context.Context, page models.MPageConfig, params models.MQueryParams, payload *models.MChartPayload) error {
	payload.NoData = true
	for i, query := range page.Queries {
		table, err := runQuery(d, ctx, page.Name, i, func(ctx context.Context) (models.MTableData, error) {
			return d.DB.QueryTable(ctx, query, params)
		})
		if err != nil {
			return err
		}
		if len(table.Rows) > 0 {
			payload.NoData = false
		}
		payload.Tables = append(payload.Tables, table)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *DashboardFacade) aggregatorOptions(page models.MPageConfig) analysis.AggregatorOptions {
	opts := analysis.AggregatorOptions{
		DensityThreshold: d.Config.Aggregation.DensityThreshold,
		TickStep:         d.Config.Aggregation.TickStep,
		SortMode:         d.Config.Aggregation.SortMode,
	}
	if page.DensityThreshold > 0 {
		opts.DensityThreshold = page.DensityThreshold
	}
	if page.TickStep > 0 {
		opts.TickStep = page.TickStep
	}
	if page.SortMode != "" {
		opts.SortMode = page.SortMode
	}
	return opts
}

// -----------------------------------------------------------------------------

// runQuery wraps one source query in a child span.
func runQuery[T any](d *DashboardFacade, ctx context.Context, page string, index int, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := d.tracer.Start(ctx, "SourceQuery", trace.WithAttributes(
		attribute.String("page", page),
		attribute.Int("index", index),
	))
	defer span.End()

	res, err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return res, err
}

// -----------------------------------------------------------------------------

// Services lists the services that have logged requests.
func (d *DashboardFacade) Services(ctx context.Context) ([]string, error) {
	return d.DB.ListServices(ctx)
}

// -----------------------------------------------------------------------------

// Logs returns one page of the request log. An empty service lists all services.
func (d *DashboardFacade) Logs(ctx context.Context, q models.MLogQuery) (models.MLogPage, error) {
	if q.Service != "" {
		if err := ValidateService(q.Service); err != nil {
			return models.MLogPage{Data: []models.MLogEntry{}}, err
		}
	}
	return d.DB.QueryLogs(ctx, q)
}

// -----------------------------------------------------------------------------

func numeric(v interface{}) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int64:
		return float64(x)
	case int32:
		return float64(x)
	case int:
		return float64(x)
	case string:
		var f float64
		if _, err := fmt.Sscan(x, &f); err == nil {
			return f
		}
	}
	return 0
}
