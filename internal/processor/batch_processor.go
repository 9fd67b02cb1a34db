package processor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"landsphere/server/config"
	"landsphere/server/internal/catalog"
	"landsphere/server/internal/database"
	"landsphere/server/internal/models"
	"landsphere/server/internal/queue"
)

// Transactor is the part of *gorm.DB the processor needs.
type Transactor interface {
	Transaction(fc func(*gorm.DB) error, opts ...*sql.TxOptions) error
}

// BatchProcessor writes catalog batches from the queue, one transaction per batch
type BatchProcessor struct {
	db       Transactor
	logger   *logrus.Logger
	config   *config.Config
	queue    *queue.CatalogQueue
	once     sync.Once
	records  atomic.Int64
	failures atomic.Int64
	sleep    func(time.Duration)
}

// NewBatchProcessor creates a new batch processor instance
func NewBatchProcessor(db Transactor, queue *queue.CatalogQueue, config *config.Config, logger *logrus.Logger) *BatchProcessor {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &BatchProcessor{
		db:     db,
		queue:  queue,
		config: config,
		logger: logger,
		sleep:  time.Sleep,
	}
}

// Start subscribes to the queue and launches the configured number of workers
func (p *BatchProcessor) Start() {
	p.once.Do(func() {
		p.queue.Subscribe(p.processBatch)
		p.queue.Start(p.config.BatchProcessing.ProcessorCount)
	})
}

// Stop closes the queue and waits for queued batches to be written
func (p *BatchProcessor) Stop() {
	p.queue.Close()
}

// Stats reports how many records were written and how many batches gave up.
func (p *BatchProcessor) Stats() (records, failedBatches int64) {
	return p.records.Load(), p.failures.Load()
}

// processBatch upserts a single batch of records with transaction and retry logic
func (p *BatchProcessor) processBatch(batch []*models.PropertyRecord) error {
	var err error
	for attempt := 0; attempt <= p.config.BatchProcessing.MaxRetries; attempt++ {
		if attempt > 0 {
			p.logger.Infof("Retrying batch processing, attempt %d of %d", attempt, p.config.BatchProcessing.MaxRetries)
			p.sleep(p.config.BatchProcessing.RetryDelay)
		}

		err = p.db.Transaction(func(tx *gorm.DB) error {
			if err := database.UpsertCatalog(tx, batch); err != nil {
				return fmt.Errorf("failed to upsert catalog batch: %w", err)
			}
			return nil
		})

		if err == nil {
			p.records.Add(int64(len(batch)))
			p.logger.Infof("Successfully processed batch of %d catalog records", len(batch))
			return nil
		}

		p.logger.Errorf("Batch processing failed: %v", err)
	}

	p.failures.Add(1)
	return fmt.Errorf("failed to process batch after %d attempts: %w", p.config.BatchProcessing.MaxRetries+1, err)
}

// Import streams a catalog export through the queue in batches and waits until every
// batch has been written. It returns the number of records read.
func (p *BatchProcessor) Import(ctx context.Context, reader *catalog.CSVReader) (int, error) {
	p.Start()

	size := p.config.BatchProcessing.MaxBatchSize
	if size < 1 {
		size = 1
	}

	read := 0
	batch := make([]*models.PropertyRecord, 0, size)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := p.queue.PushWait(ctx, batch); err != nil {
			return fmt.Errorf("failed to queue catalog batch: %w", err)
		}
		batch = make([]*models.PropertyRecord, 0, size)
		return nil
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			p.Stop()
			return read, err
		}
		read++
		batch = append(batch, record)
		if len(batch) == size {
			if err := flush(); err != nil {
				p.Stop()
				return read, err
			}
		}
	}
	if err := flush(); err != nil {
		p.Stop()
		return read, err
	}

	p.Stop()
	if _, failed := p.Stats(); failed > 0 {
		return read, fmt.Errorf("%d catalog batches could not be written", failed)
	}

	p.logger.WithField("records", read).Info("Catalog import finished")
	return read, nil
}
