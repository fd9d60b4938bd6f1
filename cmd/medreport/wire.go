package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/medreport/internal/adapters/driven/config/file"
	"github.com/custodia-labs/medreport/internal/adapters/driven/embedding"
	"github.com/custodia-labs/medreport/internal/adapters/driven/index/memory"
	"github.com/custodia-labs/medreport/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/medreport/internal/adapters/driving/cli"
	"github.com/custodia-labs/medreport/internal/clinical/assembler"
	"github.com/custodia-labs/medreport/internal/clinical/extraction"
	"github.com/custodia-labs/medreport/internal/clinical/knowledge"
	"github.com/custodia-labs/medreport/internal/clinical/recommend"
	"github.com/custodia-labs/medreport/internal/core/domain"
	"github.com/custodia-labs/medreport/internal/core/ports/driven"
	"github.com/custodia-labs/medreport/internal/core/services"
	"github.com/custodia-labs/medreport/internal/extractors"
	"github.com/custodia-labs/medreport/internal/logger"
	"github.com/custodia-labs/medreport/internal/normaliser"
	"github.com/custodia-labs/medreport/internal/postprocessors"
)

// bootstrap builds every service from the settings in configDir.
func bootstrap(configDir string) (*cli.Services, error) {
	if configDir == "" {
		dir, err := file.DefaultDir()
		if err != nil {
			return nil, err
		}
		configDir = dir
	}

	configStore, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore, embedding.Validator{})

	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	if err := settings.Validate(); err != nil {
		// Settings stay editable so the bad value can be corrected.
		logger.Error("invalid settings in %s: %v", settingsService.Path(), err)
		return &cli.Services{Settings: settingsService}, nil
	}

	dataDir := settings.VectorStore.Path
	if dataDir == "" {
		dataDir = filepath.Join(configDir, "data")
	}
	// A store that cannot be opened only costs history and retrieval; reports
	// are still produced from the current document.
	var index driven.VectorIndex
	var reports driven.ReportStore
	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		logger.Error("report history and retrieval unavailable: %v", err)
		store = nil
	} else {
		index = store.VectorIndex()
		reports = store.ReportStore()
	}
	if settings.VectorStore.Backend == domain.VectorBackendMemory {
		index = memory.New()
	}

	// Without an embedder the indexer reports every call as unavailable and
	// reports are produced with degraded retrieval.
	embedder, err := embedding.NewService(&settings.Embedding)
	if err != nil {
		logger.Warn("embedding disabled: %v", err)
		embedder = nil
	}

	indexer := services.NewIndexer(index, embedder,
		services.WithEmbeddingTimeout(settings.Embedding.Timeout),
		services.WithIndexTimeout(settings.VectorStore.Timeout),
	)

	closeAll := func() error {
		var errs []error
		if embedder != nil {
			errs = append(errs, embedder.Close())
		}
		// The sqlite index is closed with its store.
		if mem, ok := index.(*memory.Index); ok {
			errs = append(errs, mem.Close())
		}
		if store != nil {
			errs = append(errs, store.Close())
		}
		return errors.Join(errs...)
	}

	table, err := loadKnowledge(settings.Knowledge.Path)
	if err != nil {
		_ = closeAll()
		return nil, err
	}

	chunker, err := postprocessors.BuildPipeline(postprocessors.DefaultRegistry(), settingsService.GetPipelineConfig())
	if err != nil {
		_ = closeAll()
		return nil, fmt.Errorf("building chunking pipeline: %w", err)
	}

	reportService, err := services.NewReportService(services.ReportDeps{
		Extractors:  extractors.Default(settings.OCR),
		Normaliser:  normaliser.New(normaliser.WithMaxBytes(settings.Pipeline.MaxFileSizeBytes())),
		Chunker:     chunker,
		Indexer:     indexer,
		Extractor:   extraction.New(table),
		Recommender: recommend.New(table),
		Assembler:   assembler.New(),
		Reports:     reports,
	},
		services.WithTopK(settings.Retrieval.TopK),
		services.WithQueryChars(settings.Retrieval.QueryChars),
		services.WithWorkers(settings.Batch.Workers),
		services.WithMaxFileBytes(settings.Pipeline.MaxFileSizeBytes()),
	)
	if err != nil {
		_ = closeAll()
		return nil, err
	}

	logger.Debug("config: %s, data: %s, index: %s, embedding: %s/%s",
		configDir, dataDir, settings.VectorStore.Backend, settings.Embedding.Provider, settings.Embedding.Model)

	return &cli.Services{
		Reports:  reportService,
		Context:  services.NewContextService(indexer, reports),
		Settings: settingsService,
		Close:    closeAll,
	}, nil
}

func loadKnowledge(path string) (*knowledge.Table, error) {
	if path == "" {
		return knowledge.Load()
	}
	table, err := knowledge.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading knowledge table %s: %w", path, err)
	}
	return table, nil
}
