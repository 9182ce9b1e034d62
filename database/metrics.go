package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
	"github.com/memberpulse/memberpulse/helper"
	"github.com/memberpulse/memberpulse/model"
	loadSql "github.com/memberpulse/memberpulse/sql"
)

// MetricsDBHandlerFunctions defines the interface for metric database operations.
type MetricsDBHandlerFunctions interface {
	InsertMetricRow(row *model.MetricRow) error
	SelectMetricRows(ctx context.Context, entityIDs []string, focusArea model.FocusArea, dateRange model.DateRange) ([]*model.MetricRow, error)
	SelectEntityReviewCounts(ctx context.Context, dateRange model.DateRange) ([]model.EntityCoverage, error)
	SelectCorpusBounds(ctx context.Context) (time.Time, time.Time, error)
	DeleteMetricRows(entityID string) error
}

// MetricsDBHandler handles precomputed metric database operations
type MetricsDBHandler struct {
	db *helper.Database
}

// NewMetricsDBHandler creates a new metrics database handler.
// It initializes the database connection and loads metric-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewMetricsDBHandler(db *helper.Database, force bool) (*MetricsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	metricsDbHandler := &MetricsDBHandler{
		db: db,
	}

	err := loadSql.LoadMetricsSql(metricsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load metrics sql", err)
	}

	err = metricsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized MetricsDBHandler")

	return metricsDbHandler, nil
}

// CreateTable creates the 'metrics' table in the database.
// If the table already exists, it does not create it again.
func (h *MetricsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_metrics();`)
	if err != nil {
		log.Panicf("error initializing metrics table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table metrics")

	return nil
}

// InsertMetricRow inserts a new precomputed metric row
func (h *MetricsDBHandler) InsertMetricRow(metricRow *model.MetricRow) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_metric_row($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		metricRow.EntityID,
		metricRow.BucketStart,
		metricRow.BucketEnd,
		string(metricRow.FocusArea),
		metricRow.Channel,
		metricRow.Product,
		metricRow.ReviewCount,
		metricRow.AvgRating,
		metricRow.AvgSentimentScore,
		metricRow.PctNegative,
		metricRow.PctPositive,
		metricRow.NetSentimentScore,
		metricRow.PeerAvgSentiment,
		metricRow.PeerReviewCount,
		metricRow.MetricVersion,
	)

	err := scanMetricRow(row, metricRow)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectMetricRows retrieves the top-level metric rows whose bucket overlaps
// the date range, for the given entities and focus area
func (h *MetricsDBHandler) SelectMetricRows(ctx context.Context, entityIDs []string, focusArea model.FocusArea, dateRange model.DateRange) ([]*model.MetricRow, error) {
	if dateRange.Empty {
		return nil, nil
	}

	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_metric_rows($1, $2, $3, $4)`,
		pq.Array(entityIDs),
		string(focusArea),
		dateRange.Start,
		dateRange.End,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var results []*model.MetricRow
	for rows.Next() {
		metricRow := &model.MetricRow{}
		err := scanMetricRow(rows, metricRow)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		results = append(results, metricRow)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return results, nil
}

// SelectEntityReviewCounts retrieves the total review count per entity over
// a date range, from the top-level overall rows
func (h *MetricsDBHandler) SelectEntityReviewCounts(ctx context.Context, dateRange model.DateRange) ([]model.EntityCoverage, error) {
	if dateRange.Empty {
		return nil, nil
	}

	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_entity_review_counts($1, $2)`,
		dateRange.Start,
		dateRange.End,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var counts []model.EntityCoverage
	for rows.Next() {
		coverage := model.EntityCoverage{}
		err := rows.Scan(&coverage.EntityID, &coverage.ReviewCount)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		counts = append(counts, coverage)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return counts, nil
}

// SelectCorpusBounds retrieves the earliest bucket start and latest bucket
// end present in the metrics table
func (h *MetricsDBHandler) SelectCorpusBounds(ctx context.Context) (time.Time, time.Time, error) {
	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM select_corpus_bounds()`,
	)

	var start, cutoff sql.NullTime
	err := row.Scan(&start, &cutoff)
	if err != nil {
		return time.Time{}, time.Time{}, helper.NewError("scan", err)
	}
	if !start.Valid || !cutoff.Valid {
		return time.Time{}, time.Time{}, helper.NewError("corpus bounds", fmt.Errorf("no metric rows loaded"))
	}

	return start.Time, cutoff.Time, nil
}

// DeleteMetricRows deletes all metric rows for an entity
func (h *MetricsDBHandler) DeleteMetricRows(entityID string) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_metric_rows($1)`,
		entityID,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// scanner covers both sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanMetricRow(row scanner, metricRow *model.MetricRow) error {
	return row.Scan(
		&metricRow.ID,
		&metricRow.EntityID,
		&metricRow.BucketStart,
		&metricRow.BucketEnd,
		&metricRow.FocusArea,
		&metricRow.Channel,
		&metricRow.Product,
		&metricRow.ReviewCount,
		&metricRow.AvgRating,
		&metricRow.AvgSentimentScore,
		&metricRow.PctNegative,
		&metricRow.PctPositive,
		&metricRow.NetSentimentScore,
		&metricRow.PeerAvgSentiment,
		&metricRow.PeerReviewCount,
		&metricRow.MetricVersion,
		&metricRow.CreatedAt,
	)
}
