package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"

	"github.com/pc1e0/comm/internal/domain"
)

// configNamespace seeds the deterministic document ids of System entries so
// that a name always maps to the same document.
var configNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("comm-bot/system"))

// Store is the knowledge base: curated factoids and system configuration,
// kept in chromem collections.
type Store struct {
	db    *chromem.DB
	embed chromem.EmbeddingFunc
}

type Config struct {
	// Path is the persistence directory. Empty keeps everything in memory.
	Path     string
	Compress bool
	Embed    chromem.EmbeddingFunc
}

func Open(cfg Config) (*Store, error) {
	if cfg.Embed == nil {
		return nil, &StoreError{Op: "open", Err: errors.New("embedding function is required")}
	}

	var db *chromem.DB
	if cfg.Path == "" {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(cfg.Path, cfg.Compress)
		if err != nil {
			return nil, &StoreError{Op: "open", Err: err}
		}
	}

	return &Store{db: db, embed: cfg.Embed}, nil
}

// EnsureSchema creates the collections that do not exist yet. With reset,
// existing collections and their documents are dropped first.
func (s *Store) EnsureSchema(ctx context.Context, reset bool) error {
	if reset {
		for _, c := range schema {
			if err := s.db.DeleteCollection(c.name); err != nil {
				return &StoreError{Op: "reset schema", Err: fmt.Errorf("deleting %s: %w", c.name, err)}
			}
		}
		slog.InfoContext(ctx, "knowledge schema deleted")
	}

	for _, c := range schema {
		if _, err := s.db.GetOrCreateCollection(c.name, map[string]string{"description": c.description}, s.embed); err != nil {
			return &StoreError{Op: "create schema", Err: fmt.Errorf("creating %s: %w", c.name, err)}
		}
	}

	slog.InfoContext(ctx, "knowledge schema ready", "collections", len(schema))
	return nil
}

// WriteFactoid stores f, assigning an id and creation time when missing.
// It returns the id the factoid was stored under.
func (s *Store) WriteFactoid(ctx context.Context, f domain.Factoid) (string, error) {
	if strings.TrimSpace(f.Content) == "" {
		return "", &StoreError{Op: "write factoid", Err: errors.New("factoid content is empty")}
	}
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	if f.ReviewStatus == "" {
		f.ReviewStatus = domain.ReviewStatusPending
	}

	col, err := s.collection(CollectionFactoid)
	if err != nil {
		return "", &StoreError{Op: "write factoid", Err: err}
	}

	err = col.AddDocument(ctx, chromem.Document{
		ID:      f.ID,
		Content: f.Content,
		Metadata: map[string]string{
			metaSummary:      f.Summary,
			metaAuthor:       f.Author,
			metaSource:       f.Source,
			metaCategory:     f.Category,
			metaSuggestedBy:  f.SuggestedBy,
			metaReviewStatus: string(f.ReviewStatus),
			metaCreatedAt:    f.CreatedAt.Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", &StoreError{Op: "write factoid", Err: err}
	}

	slog.InfoContext(ctx, "factoid stored",
		"factoid_id", f.ID,
		"category", f.Category,
		"review_status", f.ReviewStatus)

	return f.ID, nil
}

// SearchFactoids returns up to limit factoids closest to query, best match first.
func (s *Store) SearchFactoids(ctx context.Context, query string, limit int) ([]domain.Factoid, error) {
	if limit <= 0 {
		limit = 10
	}

	col, err := s.collection(CollectionFactoid)
	if err != nil {
		return nil, &StoreError{Op: "search factoids", Err: err}
	}

	// chromem requires nResults <= collection size
	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}

	results, err := col.Query(ctx, query, limit, nil, nil)
	if err != nil {
		return nil, &StoreError{Op: "search factoids", Err: err}
	}

	factoids := make([]domain.Factoid, 0, len(results))
	for _, r := range results {
		factoids = append(factoids, factoidFromDocument(r.ID, r.Content, r.Metadata))
	}
	return factoids, nil
}

// GetFactoid returns a factoid by id.
func (s *Store) GetFactoid(ctx context.Context, id string) (domain.Factoid, error) {
	col, err := s.collection(CollectionFactoid)
	if err != nil {
		return domain.Factoid{}, &StoreError{Op: "get factoid", Err: err}
	}
	doc, err := col.GetByID(ctx, id)
	if err != nil {
		return domain.Factoid{}, &StoreError{Op: "get factoid", Err: err}
	}
	return factoidFromDocument(doc.ID, doc.Content, doc.Metadata), nil
}

// WriteConfig creates or replaces the System entry called name.
func (s *Store) WriteConfig(ctx context.Context, name, content string) error {
	if name == "" {
		return &StoreError{Op: "write config", Err: errors.New("config name is empty")}
	}
	if strings.TrimSpace(content) == "" {
		return &StoreError{Op: "write config", Err: fmt.Errorf("config %q has empty content", name)}
	}

	col, err := s.collection(CollectionSystem)
	if err != nil {
		return &StoreError{Op: "write config", Err: err}
	}

	err = col.AddDocument(ctx, chromem.Document{
		ID:      configID(name),
		Content: content,
		Metadata: map[string]string{
			metaName:    name,
			metaVersion: time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return &StoreError{Op: "write config", Err: err}
	}

	slog.InfoContext(ctx, "config entry written", "name", name)
	return nil
}

// ReadConfig returns the content of the System entry called name. The match is
// exact; ErrConfigNotFound is returned when there is none.
func (s *Store) ReadConfig(ctx context.Context, name string) (string, error) {
	col := s.db.GetCollection(CollectionSystem, s.embed)
	if col == nil {
		return "", &StoreError{Op: "read config", Err: fmt.Errorf("%q: %w", name, ErrConfigNotFound)}
	}

	if err := ctx.Err(); err != nil {
		return "", &StoreError{Op: "read config", Err: err}
	}

	doc, err := col.GetByID(ctx, configID(name))
	switch {
	case err != nil && isMissingDocument(err):
		return "", &StoreError{Op: "read config", Err: fmt.Errorf("%q: %w", name, ErrConfigNotFound)}
	case err != nil:
		return "", &StoreError{Op: "read config", Err: fmt.Errorf("%q: %w", name, err)}
	case doc.Metadata[metaName] != name:
		return "", &StoreError{Op: "read config", Err: fmt.Errorf("%q: %w", name, ErrConfigNotFound)}
	}
	return doc.Content, nil
}

// isMissingDocument recognizes chromem's GetByID miss, which has no sentinel.
func isMissingDocument(err error) bool {
	return strings.Contains(err.Error(), "not found")
}

// Count returns the number of documents in a collection, 0 if it does not exist.
func (s *Store) Count(name string) int {
	col := s.db.GetCollection(name, s.embed)
	if col == nil {
		return 0
	}
	return col.Count()
}

func (s *Store) collection(name string) (*chromem.Collection, error) {
	col := s.db.GetCollection(name, s.embed)
	if col == nil {
		return nil, fmt.Errorf("collection %s does not exist, run schema setup first", name)
	}
	return col, nil
}

func configID(name string) string {
	return uuid.NewSHA1(configNamespace, []byte(name)).String()
}

func factoidFromDocument(id, content string, meta map[string]string) domain.Factoid {
	f := domain.Factoid{
		ID:           id,
		Content:      content,
		Summary:      meta[metaSummary],
		Author:       meta[metaAuthor],
		Source:       meta[metaSource],
		Category:     meta[metaCategory],
		SuggestedBy:  meta[metaSuggestedBy],
		ReviewStatus: domain.ReviewStatus(meta[metaReviewStatus]),
	}
	if t, err := time.Parse(time.RFC3339, meta[metaCreatedAt]); err == nil {
		f.CreatedAt = t
	}
	return f
}
