package memberpulse

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/memberpulse/memberpulse/core/pipeline"
	"github.com/memberpulse/memberpulse/core/resolve"
	"github.com/memberpulse/memberpulse/core/retrieval"
	"github.com/memberpulse/memberpulse/database"
	"github.com/memberpulse/memberpulse/helper"
	"github.com/memberpulse/memberpulse/model"
	"github.com/memberpulse/memberpulse/parse"
	"github.com/memberpulse/memberpulse/registry"
	loadSql "github.com/memberpulse/memberpulse/sql"
	"golang.org/x/sync/errgroup"
)

// MemberPulse provides a unified interface to the resolution and retrieval
// layers and all database handlers
type MemberPulse struct {
	DB       *helper.Database
	Entities *database.EntitiesDBHandler
	Metrics  *database.MetricsDBHandler
	Snippets *database.SnippetsDBHandler
	Registry *registry.Registry
	Sessions *resolve.SessionManager
	Engine   *retrieval.Engine
	Parser   *parse.Parser // Optional question parser
	Config   model.QueryConfig

	embed retrieval.EmbedFunc
	// Logging
	log *slog.Logger
}

// NewMemberPulse creates a new MemberPulse instance with all handlers initialized
func NewMemberPulse(config *helper.DatabaseConfiguration, embeddingDim int) (*MemberPulse, error) {
	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	// Initialize database
	db := helper.NewDatabase("memberpulse", config, logger)
	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	// Create all handlers
	// force=false to not reload if functions already exist
	entities, err := database.NewEntitiesDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create entities handler", err)
	}

	metrics, err := database.NewMetricsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create metrics handler", err)
	}

	snippets, err := database.NewSnippetsDBHandler(db, embeddingDim, false)
	if err != nil {
		return nil, helper.NewError("create snippets handler", err)
	}

	// Load the tracked organization registry
	reg, err := registry.LoadDefault()
	if err != nil {
		return nil, helper.NewError("load entity registry", err)
	}

	queryConfig := model.DefaultQueryConfig()

	pulse := &MemberPulse{
		DB:       db,
		Entities: entities,
		Metrics:  metrics,
		Snippets: snippets,
		Registry: reg,
		Sessions: resolve.NewSessionManager(),
		Config:   queryConfig,
		log:      logger,
	}

	// The engine holds a stable reference to the embedder indirection so
	// SetEmbedder can be called after construction
	pulse.Engine = retrieval.NewEngine(metrics, snippets, reg, pulse.embedQuery, queryConfig, logger)

	return pulse, nil
}

// Close closes the database connection
func (p *MemberPulse) Close() error {
	if p.DB != nil && p.DB.Instance != nil {
		return p.DB.Instance.Close()
	}
	return nil
}

// SetEmbedder sets the embedding function used for evidence retrieval.
// The same function must have been used to embed the snippet index.
func (p *MemberPulse) SetEmbedder(embed retrieval.EmbedFunc) {
	p.embed = embed
}

// UseDefaultEmbedder sets up the default embedder with the all-MiniLM-L6-v2
// model (384 dimensions)
func (p *MemberPulse) UseDefaultEmbedder() error {
	embedder, err := pipeline.DefaultEmbedder()
	if err != nil {
		return helper.NewError("create default embedder", err)
	}

	p.embed = func(_ context.Context, text string) ([]float32, error) {
		return embedder(text)
	}
	return nil
}

// SetParser sets the question parser used by Ask
func (p *MemberPulse) SetParser(parser *parse.Parser) {
	p.Parser = parser
}

func (p *MemberPulse) embedQuery(ctx context.Context, text string) ([]float32, error) {
	if p.embed == nil {
		return nil, helper.NewError("embed query", fmt.Errorf("embedder not set, use SetEmbedder() or UseDefaultEmbedder() first"))
	}
	return p.embed(ctx, text)
}

// SyncRegistry persists the registry entities into the entities table so
// that metric and snippet rows can reference them
func (p *MemberPulse) SyncRegistry() error {
	for _, entity := range p.Registry.Entities() {
		if err := p.Entities.InsertEntity(&entity); err != nil {
			return helper.NewError(fmt.Sprintf("sync registry entity %s", entity.ID), err)
		}
	}

	p.log.Info("Synced registry", slog.Int("entities", len(p.Registry.Entities())), slog.String("version", p.Registry.Version()))
	return nil
}

// ResolveTurn resolves one parsed question against the session context and
// retrieves the grounding payload for it. Metrics, evidence and coverage are
// retrieved concurrently. The session context is updated only after the
// payload has been assembled and checked, so a failed turn leaves the
// previous turn's context in place.
func (p *MemberPulse) ResolveTurn(ctx context.Context, sessionID uuid.UUID, parsed model.ParsedIntent) (*model.GroundingPayload, error) {
	corpusStart, cutoff, err := p.Metrics.SelectCorpusBounds(ctx)
	if err != nil {
		return nil, helper.NewError("select corpus bounds", err)
	}

	consolidator := resolve.NewConsolidator(
		resolve.NewAliasResolver(p.Registry, p.Config),
		resolve.NewTimeframeResolver(corpusStart, cutoff),
		p.log,
	)

	prior := p.Sessions.Prior(sessionID)
	intent := consolidator.Consolidate(parsed, prior)

	var (
		metrics  []model.MetricAggregate
		evidence []model.EvidenceSnippet
		coverage model.Coverage
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		metrics, err = p.Engine.RetrieveMetrics(groupCtx, intent)
		return err
	})
	group.Go(func() error {
		var err error
		evidence, err = p.Engine.RetrieveEvidence(groupCtx, intent)
		return err
	})
	group.Go(func() error {
		var err error
		coverage, err = p.Engine.RetrieveCoverage(groupCtx, intent)
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, helper.NewError("retrieve grounding data", err)
	}

	payload, err := retrieval.AssembleGrounding(intent, metrics, evidence, coverage)
	if err != nil {
		return nil, helper.NewError("assemble grounding payload", err)
	}

	p.Sessions.Commit(sessionID, intent)

	p.log.Info(
		"Resolved turn",
		slog.String("session_id", sessionID.String()),
		slog.Int("metrics", len(payload.Metrics)),
		slog.Int("evidence", len(payload.Evidence)),
		slog.Bool("unresolved", intent.Unresolved),
	)

	return payload, nil
}

// Ask parses a free-text question and resolves it in one call
func (p *MemberPulse) Ask(ctx context.Context, sessionID uuid.UUID, question string) (*model.GroundingPayload, error) {
	if p.Parser == nil {
		return nil, helper.NewError("parse question", fmt.Errorf("parser not set, use SetParser() first"))
	}

	parsed, err := p.Parser.Parse(ctx, question)
	if err != nil {
		return nil, helper.NewError("parse question", err)
	}

	return p.ResolveTurn(ctx, sessionID, parsed)
}
