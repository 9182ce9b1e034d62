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
)

// EntitiesDBHandlerFunctions defines the interface for entity database operations.
type EntitiesDBHandlerFunctions interface {
	InsertEntity(entity *model.Entity) error
	SelectEntity(id string) (*model.Entity, error)
	SelectAllEntities(ctx context.Context) ([]*model.Entity, error)
	SelectEntitiesBySizeBucket(bucket model.SizeBucket) ([]*model.Entity, error)
	DeleteEntity(id string) error
}

// EntitiesDBHandler handles entity-related database operations
type EntitiesDBHandler struct {
	db *helper.Database
}

// NewEntitiesDBHandler creates a new entities database handler.
// It initializes the database connection and loads entity-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewEntitiesDBHandler(db *helper.Database, force bool) (*EntitiesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	entitiesDbHandler := &EntitiesDBHandler{
		db: db,
	}

	err := loadSql.LoadEntitiesSql(entitiesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load entities sql", err)
	}

	err = entitiesDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized EntitiesDBHandler")

	return entitiesDbHandler, nil
}

// CreateTable creates the 'entities' table in the database.
// If the table already exists, it does not create it again.
func (h *EntitiesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_entities();`)
	if err != nil {
		log.Panicf("error initializing entities table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table entities")

	return nil
}

// InsertEntity inserts or updates an entity. The registry snapshot is the
// source of truth, so an existing row with the same id is overwritten.
func (h *EntitiesDBHandler) InsertEntity(entity *model.Entity) error {
	if entity.Metadata == nil {
		entity.Metadata = model.Metadata{}
	}

	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_entity($1, $2, $3, $4, $5)`,
		entity.ID,
		entity.CanonicalName,
		pq.Array(entity.ReportingNames),
		string(entity.SizeBucket),
		entity.Metadata,
	)

	err := row.Scan(
		&entity.ID,
		&entity.CanonicalName,
		pq.Array(&entity.ReportingNames),
		&entity.SizeBucket,
		&entity.Metadata,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectEntity retrieves an entity by id
func (h *EntitiesDBHandler) SelectEntity(id string) (*model.Entity, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_entity($1)`,
		id,
	)

	entity := &model.Entity{}
	err := row.Scan(
		&entity.ID,
		&entity.CanonicalName,
		pq.Array(&entity.ReportingNames),
		&entity.SizeBucket,
		&entity.Metadata,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return entity, nil
}

// SelectAllEntities retrieves all entities ordered by id
func (h *EntitiesDBHandler) SelectAllEntities(ctx context.Context) ([]*model.Entity, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_all_entities()`,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var entities []*model.Entity
	for rows.Next() {
		entity := &model.Entity{}
		err := rows.Scan(
			&entity.ID,
			&entity.CanonicalName,
			pq.Array(&entity.ReportingNames),
			&entity.SizeBucket,
			&entity.Metadata,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		entities = append(entities, entity)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return entities, nil
}

// SelectEntitiesBySizeBucket retrieves all entities in one peer group
func (h *EntitiesDBHandler) SelectEntitiesBySizeBucket(bucket model.SizeBucket) ([]*model.Entity, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_entities_by_size_bucket($1)`,
		string(bucket),
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var entities []*model.Entity
	for rows.Next() {
		entity := &model.Entity{}
		err := rows.Scan(
			&entity.ID,
			&entity.CanonicalName,
			pq.Array(&entity.ReportingNames),
			&entity.SizeBucket,
			&entity.Metadata,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		entities = append(entities, entity)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return entities, nil
}

// DeleteEntity deletes an entity by id
func (h *EntitiesDBHandler) DeleteEntity(id string) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_entity($1)`,
		id,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}
