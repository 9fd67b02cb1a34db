package queue

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"landsphere/server/internal/models"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// CatalogQueue is an in-memory queue of catalog record batches consumed by a fixed
// number of workers.
type CatalogQueue struct {
	items     chan []*models.PropertyRecord
	drained   chan struct{}
	maxSize   int
	closed    bool
	started   bool
	mu        sync.RWMutex
	handlerMu sync.RWMutex
	workers   sync.WaitGroup
	logger    *logrus.Logger
	handlers  []func([]*models.PropertyRecord) error
}

// NewCatalogQueue creates a new queue with the specified buffer size
func NewCatalogQueue(bufferSize int, logger *logrus.Logger) *CatalogQueue {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &CatalogQueue{
		items:    make(chan []*models.PropertyRecord, bufferSize),
		drained:  make(chan struct{}),
		maxSize:  bufferSize,
		logger:   logger,
		handlers: make([]func([]*models.PropertyRecord) error, 0),
	}
}

// Push adds a batch without blocking.
func (q *CatalogQueue) Push(batch []*models.PropertyRecord) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.items <- batch:
		q.logger.WithField("batch_size", len(batch)).Debug("Pushed batch to queue")
		return nil
	default:
		return ErrQueueFull
	}
}

// PushWait adds a batch, waiting for room until ctx is done. The queue must have been
// started, otherwise a full buffer never frees up.
func (q *CatalogQueue) PushWait(ctx context.Context, batch []*models.PropertyRecord) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case q.items <- batch:
		q.logger.WithField("batch_size", len(batch)).Debug("Pushed batch to queue")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe adds a handler function that will be called for each batch
func (q *CatalogQueue) Subscribe(handler func([]*models.PropertyRecord) error) {
	q.handlerMu.Lock()
	defer q.handlerMu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Start launches the workers. Calling it again has no effect.
func (q *CatalogQueue) Start(workers int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.started = true

	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		q.workers.Add(1)
		go q.process()
	}
	go func() {
		q.workers.Wait()
		close(q.drained)
	}()
}

func (q *CatalogQueue) process() {
	defer q.workers.Done()
	for batch := range q.items {
		q.processBatch(batch)
	}
}

// processBatch sends the batch to all subscribed handlers
func (q *CatalogQueue) processBatch(batch []*models.PropertyRecord) {
	q.handlerMu.RLock()
	handlers := q.handlers
	q.handlerMu.RUnlock()

	for _, handler := range handlers {
		if err := handler(batch); err != nil {
			q.logger.WithError(err).Error("Handler failed to process batch")
		}
	}
}

// Close stops accepting batches and, once started, waits until every queued batch has
// been handled.
func (q *CatalogQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.items)
	started := q.started
	q.mu.Unlock()

	if started {
		<-q.drained
	}
	return nil
}

// Len returns the current number of batches in the queue
func (q *CatalogQueue) Len() int {
	return len(q.items)
}

// IsClosed returns whether the queue has been closed
func (q *CatalogQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
