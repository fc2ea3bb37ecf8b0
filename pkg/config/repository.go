package config

import (
	"context"
	"fmt"

	"github.com/marmos91/dittocmis/internal/logger"
	"github.com/marmos91/dittocmis/pkg/cmis"
	"github.com/marmos91/dittocmis/pkg/content"
	"github.com/marmos91/dittocmis/pkg/gc"
	"github.com/marmos91/dittocmis/pkg/model"
	"github.com/marmos91/dittocmis/pkg/repository"
	blob "github.com/marmos91/dittocmis/pkg/store/content"
)

// Collection names used in the metadata store.
const (
	FoldersCollection   = "folders"
	DocumentsCollection = "documents"
)

// Repository is a bridge assembled from configuration together with the
// stores it owns. Close releases them.
type Repository struct {
	Bridge    *cmis.Bridge
	Folders   *repository.Store
	Documents *repository.Store
	Blobs     blob.Store

	metadata repository.BackendProvider
}

// unversioned hides the versioning methods of a repository, so the bridge
// reports versioning as unsupported.
type unversioned struct {
	repository.Repository
}

// OpenRepository creates the configured stores and assembles a bridge over
// them.
//
// The sequence is:
//  1. Create the metadata store and open the folder and document collections
//  2. Create the content store
//  3. Build the bridge from the repository section
//
// Parameters:
//   - ctx: Context for store initialization
//   - cfg: Validated configuration
//   - m: Metrics from InitializeMetrics. nil disables metrics.
func OpenRepository(ctx context.Context, cfg *Config, m *MetricsResult) (_ *Repository, err error) {
	if m == nil {
		m = noopMetrics()
	}

	// ========================================================================
	// Step 1: Metadata
	// ========================================================================

	provider, err := CreateMetadataStore(ctx, &cfg.Metadata, m.MetadataMetrics(cfg.Metadata.Type))
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = provider.Close()
		}
	}()

	if err := provider.Healthcheck(ctx); err != nil {
		return nil, fmt.Errorf("metadata store is not healthy: %w", err)
	}

	folders, err := openCollection(provider, FoldersCollection, func() model.Object { return &model.Folder{} })
	if err != nil {
		return nil, err
	}
	documents, err := openCollection(provider, DocumentsCollection, func() model.Object { return &model.Document{} })
	if err != nil {
		return nil, err
	}

	// ========================================================================
	// Step 2: Content
	// ========================================================================

	blobs, err := CreateContentStore(ctx, &cfg.Content, m.S3Metrics)
	if err != nil {
		return nil, err
	}

	// ========================================================================
	// Step 3: Bridge
	// ========================================================================

	var documentRepo repository.Repository = documents
	if !cfg.Repository.VersioningEnabled() {
		documentRepo = unversioned{documents}
	}

	bridge, err := cmis.NewBridge(cmis.Config{
		Folders:      folders,
		Documents:    documentRepo,
		Content:      content.NewStore(blobs, content.Config{MaxContentSize: cfg.Content.MaxContentSize}),
		RootFolderID: cfg.Repository.RootFolderID,
		Info: cmis.RepositoryInfo{
			ID:             cfg.Repository.ID,
			Name:           cfg.Repository.Name,
			Description:    cfg.Repository.Description,
			VendorName:     cfg.Repository.VendorName,
			ProductName:    cfg.Repository.ProductName,
			ProductVersion: cfg.Repository.ProductVersion,
		},
		FulltextIndexed: cfg.Repository.FulltextIndexed,
		Metrics:         m.BridgeMetrics,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to assemble repository bridge: %w", err)
	}

	logger.Info("Repository %q opened: metadata=%s content=%s", cfg.Repository.ID, cfg.Metadata.Type, cfg.Content.Type)

	return &Repository{
		Bridge:    bridge,
		Folders:   folders,
		Documents: documents,
		Blobs:     blobs,
		metadata:  provider,
	}, nil
}

func openCollection(provider repository.BackendProvider, name string, newFn func() model.Object) (*repository.Store, error) {
	backend, err := provider.Collection(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s collection: %w", name, err)
	}
	return repository.NewStore(backend, repository.StoreConfig{Name: name, New: newFn})
}

// NewCollector creates a garbage collector deleting blobs that no document
// of the repository references.
func (r *Repository) NewCollector(cfg gc.Config, m *MetricsResult) (*gc.Collector, error) {
	if m == nil {
		m = noopMetrics()
	}
	return gc.NewCollector([]gc.ReferenceSource{r.Documents}, r.Blobs, cfg, m.GCMetrics)
}

// Healthcheck reports whether the metadata store can serve requests.
func (r *Repository) Healthcheck(ctx context.Context) error {
	if r.metadata == nil {
		return fmt.Errorf("repository is closed")
	}
	return r.metadata.Healthcheck(ctx)
}

// Close closes the metadata store.
func (r *Repository) Close() error {
	if r.metadata == nil {
		return nil
	}
	err := r.metadata.Close()
	r.metadata = nil
	if err != nil {
		return fmt.Errorf("failed to close metadata store: %w", err)
	}
	return nil
}
