package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
	"github.com/memberpulse/memberpulse/helper"
	"github.com/memberpulse/memberpulse/model"
	loadSql "github.com/memberpulse/memberpulse/sql"
	"github.com/pgvector/pgvector-go"
)

// SnippetsDBHandlerFunctions defines the interface for snippet database operations.
type SnippetsDBHandlerFunctions interface {
	InsertSnippet(snippet *model.EvidenceSnippet) error
	SelectSnippet(id int) (*model.EvidenceSnippet, error)
	SelectSnippetsBySimilarity(ctx context.Context, embedding []float32, limit int, threshold float64, filter model.SnippetFilter) ([]*model.EvidenceSnippet, error)
	SelectSourceNames(ctx context.Context) ([]string, error)
	DeleteSnippet(id int) error
}

// SnippetsDBHandler handles evidence snippet database operations
type SnippetsDBHandler struct {
	db *helper.Database
}

// NewSnippetsDBHandler creates a new snippets database handler.
// It initializes the database connection and loads snippet-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewSnippetsDBHandler(db *helper.Database, embeddingDim int, force bool) (*SnippetsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	snippetsDbHandler := &SnippetsDBHandler{
		db: db,
	}

	err := loadSql.LoadSnippetsSql(snippetsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load snippets sql", err)
	}

	err = snippetsDbHandler.CreateTable(embeddingDim)
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized SnippetsDBHandler")

	return snippetsDbHandler, nil
}

// CreateTable creates the 'snippets' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary indexes, including the vector index.
func (h *SnippetsDBHandler) CreateTable(embeddingDim int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_snippets($1);`, embeddingDim)
	if err != nil {
		log.Panicf("error initializing snippets table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table snippets")

	return nil
}

// InsertSnippet inserts a new evidence snippet
func (h *SnippetsDBHandler) InsertSnippet(snippet *model.EvidenceSnippet) error {
	if snippet.Metadata == nil {
		snippet.Metadata = model.Metadata{}
	}

	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_snippet($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		snippet.EntityID,
		snippet.Source,
		snippet.ReviewDate,
		snippet.Rating,
		string(snippet.SentimentLabel),
		pq.Array(focusAreaStrings(snippet.FocusAreas)),
		pq.Array(snippet.Topics),
		snippet.DisplayText,
		pq.Array(snippet.Embedding),
		snippet.Metadata,
	)

	var focusAreas []string
	err := row.Scan(
		&snippet.ID,
		&snippet.RID,
		&snippet.EntityID,
		&snippet.Source,
		&snippet.ReviewDate,
		&snippet.Rating,
		&snippet.SentimentLabel,
		pq.Array(&focusAreas),
		pq.Array(&snippet.Topics),
		&snippet.DisplayText,
		&snippet.Metadata,
		&snippet.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}
	snippet.FocusAreas = focusAreasFromStrings(focusAreas)

	return nil
}

// SelectSnippet retrieves a snippet by ID
func (h *SnippetsDBHandler) SelectSnippet(id int) (*model.EvidenceSnippet, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_snippet($1)`,
		id,
	)

	snippet := &model.EvidenceSnippet{}
	var focusAreas []string
	err := row.Scan(
		&snippet.ID,
		&snippet.RID,
		&snippet.EntityID,
		&snippet.Source,
		&snippet.ReviewDate,
		&snippet.Rating,
		&snippet.SentimentLabel,
		pq.Array(&focusAreas),
		pq.Array(&snippet.Topics),
		&snippet.DisplayText,
		&snippet.Metadata,
		&snippet.CreatedAt,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}
	snippet.FocusAreas = focusAreasFromStrings(focusAreas)

	return snippet, nil
}

// SelectSnippetsBySimilarity performs vector similarity search over the
// snippet index, restricted by the filter. Zero-value filter dimensions
// are not applied.
func (h *SnippetsDBHandler) SelectSnippetsBySimilarity(ctx context.Context, embedding []float32, limit int, threshold float64, filter model.SnippetFilter) ([]*model.EvidenceSnippet, error) {
	embeddingVector := pgvector.NewVector(embedding)

	var entityIDsParam interface{}
	if len(filter.EntityIDs) > 0 {
		entityIDsParam = pq.Array(filter.EntityIDs)
	}

	var dateStartParam, dateEndParam interface{}
	if !filter.Range.Empty && !filter.Range.Start.IsZero() {
		dateStartParam = filter.Range.Start
	}
	if !filter.Range.Empty && !filter.Range.End.IsZero() {
		dateEndParam = filter.Range.End
	}

	var sentimentLabelsParam interface{}
	if len(filter.SentimentLabels) > 0 {
		labels := make([]string, len(filter.SentimentLabels))
		for i, label := range filter.SentimentLabels {
			labels[i] = string(label)
		}
		sentimentLabelsParam = pq.Array(labels)
	}

	var focusAreasParam interface{}
	if len(filter.FocusAreas) > 0 {
		focusAreasParam = pq.Array(focusAreaStrings(filter.FocusAreas))
	}

	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_snippets_by_similarity($1, $2, $3, $4, $5, $6, $7, $8)`,
		embeddingVector,
		limit,
		threshold,
		entityIDsParam,
		dateStartParam,
		dateEndParam,
		sentimentLabelsParam,
		focusAreasParam,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var results []*model.EvidenceSnippet
	for rows.Next() {
		snippet := &model.EvidenceSnippet{}
		var focusAreas []string
		err := rows.Scan(
			&snippet.ID,
			&snippet.RID,
			&snippet.EntityID,
			&snippet.Source,
			&snippet.ReviewDate,
			&snippet.Rating,
			&snippet.SentimentLabel,
			pq.Array(&focusAreas),
			pq.Array(&snippet.Topics),
			&snippet.DisplayText,
			&snippet.Metadata,
			&snippet.CreatedAt,
			&snippet.Similarity,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		snippet.FocusAreas = focusAreasFromStrings(focusAreas)

		results = append(results, snippet)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return results, nil
}

// SelectSourceNames retrieves the distinct review sources in the index
func (h *SnippetsDBHandler) SelectSourceNames(ctx context.Context) ([]string, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_source_names()`,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var sources []string
	for rows.Next() {
		var source string
		err := rows.Scan(&source)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		sources = append(sources, source)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return sources, nil
}

// DeleteSnippet deletes a snippet by ID
func (h *SnippetsDBHandler) DeleteSnippet(id int) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_snippet($1)`,
		id,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

func focusAreaStrings(areas []model.FocusArea) []string {
	strs := make([]string, len(areas))
	for i, area := range areas {
		strs[i] = string(area)
	}
	return strs
}

func focusAreasFromStrings(strs []string) []model.FocusArea {
	if len(strs) == 0 {
		return nil
	}
	areas := make([]model.FocusArea, len(strs))
	for i, s := range strs {
		areas[i] = model.FocusArea(s)
	}
	return areas
}
