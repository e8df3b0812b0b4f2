package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/bitbridge/backend/internal/config"
	"github.com/bitbridge/backend/pkg/logger"
	"github.com/hibiken/asynq"
)

const (
	TaskTypeRewardsIssued = "rewards:issued"
)

// RewardProcessor handles one completion's payout after it has committed.
type RewardProcessor func(context.Context, *CompletionResult) error

// TaskQueue defines the interface for reward task processing
type TaskQueue interface {
	// Enqueue adds a task to the queue
	Enqueue(ctx context.Context, result *CompletionResult) error
	// IsAsync returns true if queue processes tasks asynchronously
	IsAsync() bool
	// Close gracefully shuts down the queue
	Close() error
}

// Global task queue instance
var (
	globalTaskQueue TaskQueue
	taskQueueOnce   sync.Once
)

// InitTaskQueue initializes the global task queue based on config
func InitTaskQueue(cfg *config.Config) TaskQueue {
	taskQueueOnce.Do(func() {
		globalTaskQueue = NewTaskQueue(&cfg.Redis)
	})
	return globalTaskQueue
}

// NewTaskQueue returns an asynq queue when Redis is enabled and reachable,
// otherwise an in-process queue.
func NewTaskQueue(cfg *config.RedisConfig) TaskQueue {
	if !cfg.Enabled {
		logger.Infof("[TaskQueue] Sync queue initialized (Redis disabled)")
		return NewSyncQueue()
	}

	queue, err := NewAsyncQueue(cfg)
	if err != nil {
		logger.Warnf("[TaskQueue] Redis unavailable, falling back to sync mode: %v", err)
		return NewSyncQueue()
	}
	logger.Infof("[TaskQueue] Async queue initialized with Redis at %s", cfg.Addr)
	return queue
}

// QueueNotifier hands completions to a TaskQueue.
type QueueNotifier struct {
	queue TaskQueue
}

func NewQueueNotifier(queue TaskQueue) *QueueNotifier {
	return &QueueNotifier{queue: queue}
}

func (n *QueueNotifier) NotifyRewardsIssued(ctx context.Context, result *CompletionResult) error {
	return n.queue.Enqueue(ctx, result)
}

func newRewardsIssuedTask(result *CompletionResult) (*asynq.Task, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeRewardsIssued, payload), nil
}

func parseRewardsIssuedTask(t *asynq.Task) (*CompletionResult, error) {
	var result CompletionResult
	if err := json.Unmarshal(t.Payload(), &result); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", TaskTypeRewardsIssued, err)
	}
	return &result, nil
}

// AsyncQueue implements TaskQueue using asynq (Redis-based)
type AsyncQueue struct {
	client *asynq.Client
}

func redisClientOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// NewAsyncQueue creates a new Redis-based async queue
func NewAsyncQueue(cfg *config.RedisConfig) (*AsyncQueue, error) {
	redisOpt := redisClientOpt(cfg)
	client := asynq.NewClient(redisOpt)

	inspector := asynq.NewInspector(redisOpt)
	defer inspector.Close()

	// Try to get queue info to verify connection
	if _, err := inspector.Queues(); err != nil {
		client.Close()
		return nil, err
	}

	return &AsyncQueue{client: client}, nil
}

// Enqueue adds a reward task to the async queue. A project completes once,
// so its id doubles as the task id.
func (q *AsyncQueue) Enqueue(ctx context.Context, result *CompletionResult) error {
	t, err := newRewardsIssuedTask(result)
	if err != nil {
		return err
	}

	info, err := q.client.EnqueueContext(ctx, t,
		asynq.Queue("default"),
		asynq.MaxRetry(3),
		asynq.TaskID(fmt.Sprintf("rewards:%d", result.ProjectID)),
	)
	if err != nil {
		return err
	}

	logger.Infof("[AsyncQueue] Task enqueued: id=%s, queue=%s", info.ID, info.Queue)
	return nil
}

// IsAsync returns true for async queue
func (q *AsyncQueue) IsAsync() bool {
	return true
}

// Close closes the async queue client
func (q *AsyncQueue) Close() error {
	return q.client.Close()
}

// SyncQueue implements TaskQueue in-process (no Redis)
type SyncQueue struct {
	mu        sync.RWMutex
	processor RewardProcessor
	wg        sync.WaitGroup
}

// NewSyncQueue creates a new synchronous queue
func NewSyncQueue() *SyncQueue {
	return &SyncQueue{}
}

// SetProcessor sets the function to process tasks
func (q *SyncQueue) SetProcessor(processor RewardProcessor) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.processor = processor
}

// Enqueue processes the task on its own goroutine so the request that
// completed the project does not wait for it.
func (q *SyncQueue) Enqueue(_ context.Context, result *CompletionResult) error {
	q.mu.RLock()
	processor := q.processor
	q.mu.RUnlock()

	if processor == nil {
		logger.Warnf("[SyncQueue] no processor set, task for project %d will be dropped", result.ProjectID)
		return nil
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		if err := processor(context.Background(), result); err != nil {
			logger.Errorf("[SyncQueue] Task processing failed: %v", err)
		}
	}()

	return nil
}

// Wait blocks until every enqueued task has been processed.
func (q *SyncQueue) Wait() {
	q.wg.Wait()
}

// IsAsync returns false for sync queue
func (q *SyncQueue) IsAsync() bool {
	return false
}

// Close waits for in-flight tasks.
func (q *SyncQueue) Close() error {
	q.wg.Wait()
	return nil
}
