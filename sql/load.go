package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
)

//go:embed init.sql
var initSQL string

//go:embed entities.sql
var entitiesSQL string

//go:embed metrics.sql
var metricsSQL string

//go:embed snippets.sql
var snippetsSQL string

// Function lists for verification
var EntitiesFunctions = []string{
	"init_entities",
	"insert_entity",
	"select_entity",
	"select_all_entities",
	"select_entities_by_size_bucket",
	"delete_entity",
}

var MetricsFunctions = []string{
	"init_metrics",
	"insert_metric_row",
	"select_metric_rows",
	"select_entity_review_counts",
	"select_corpus_bounds",
	"delete_metric_rows",
}

var SnippetsFunctions = []string{
	"init_snippets",
	"insert_snippet",
	"select_snippet",
	"select_snippets_by_similarity",
	"select_source_names",
	"delete_snippet",
}

// Init intializes db extensions
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}

	log.Println("Database extensions initialized successfully")
	return nil
}

// LoadEntitiesSql loads entity-related SQL functions
func LoadEntitiesSql(db *sql.DB, force bool) error {
	if !force {
		exist, err := checkFunctions(db, EntitiesFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing entities functions: %w", err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(entitiesSQL)
	if err != nil {
		return fmt.Errorf("error executing entities SQL: %w", err)
	}

	exist, err := checkFunctions(db, EntitiesFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Println("SQL entities functions loaded successfully")
	return nil
}

// LoadMetricsSql loads metric-related SQL functions
func LoadMetricsSql(db *sql.DB, force bool) error {
	if !force {
		exist, err := checkFunctions(db, MetricsFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing metrics functions: %w", err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(metricsSQL)
	if err != nil {
		return fmt.Errorf("error executing metrics SQL: %w", err)
	}

	exist, err := checkFunctions(db, MetricsFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Println("SQL metrics functions loaded successfully")
	return nil
}

// LoadSnippetsSql loads snippet-related SQL functions
func LoadSnippetsSql(db *sql.DB, force bool) error {
	if !force {
		exist, err := checkFunctions(db, SnippetsFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing snippets functions: %w", err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(snippetsSQL)
	if err != nil {
		return fmt.Errorf("error executing snippets SQL: %w", err)
	}

	exist, err := checkFunctions(db, SnippetsFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Println("SQL snippets functions loaded successfully")
	return nil
}

// LoadAllSql loads all SQL functions
func LoadAllSql(db *sql.DB, force bool) error {
	if err := LoadEntitiesSql(db, force); err != nil {
		return err
	}

	if err := LoadMetricsSql(db, force); err != nil {
		return err
	}

	if err := LoadSnippetsSql(db, force); err != nil {
		return err
	}

	return nil
}

// checkFunctions verifies that all required functions exist in the database
func checkFunctions(db *sql.DB, sqlFunctions []string) (bool, error) {
	var allExist bool
	for _, f := range sqlFunctions {
		err := db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);`,
			f,
		).Scan(&allExist)
		if err != nil {
			return false, fmt.Errorf("error checking existence of function %s: %w", f, err)
		}
		if !allExist {
			log.Printf("Function %s does not exist", f)
			break
		}
	}
	return allExist, nil
}
