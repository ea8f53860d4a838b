package store

import (
	"context"
	"errors"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"taskboard/internal/models"
)

const cacheKeyPrefix = "taskboard:"

func tasksCacheKey(ownerID string) string  { return cacheKeyPrefix + "tasks:" + ownerID }
func countsCacheKey(ownerID string) string { return cacheKeyPrefix + "counts:" + ownerID }

// Cache wraps a Store with Redis-backed caching for an owner's task list and
// status counts. Every write for an owner evicts that owner's keys.
type Cache struct {
	Store
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching Store wrapper using the provided Redis client and TTL.
func NewCache(base Store, client *redis.Client, ttl time.Duration) (*Cache, error) {
	if base == nil {
		return nil, ErrStoreNil
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{Store: base, redis: client, ttl: ttl}, nil
}

// ListTasks serves the owner's tasks from Redis when present.
func (c *Cache) ListTasks(ctx context.Context, ownerID string) ([]models.Task, error) {
	var tasks []models.Task
	if c.load(ctx, tasksCacheKey(ownerID), &tasks) {
		return tasks, nil
	}

	tasks, err := c.Store.ListTasks(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	c.save(ctx, tasksCacheKey(ownerID), tasks)
	return tasks, nil
}

// CountTasksByStatus serves the owner's counts from Redis when present.
func (c *Cache) CountTasksByStatus(ctx context.Context, ownerID string) (models.StatusCounts, error) {
	var counts models.StatusCounts
	if c.load(ctx, countsCacheKey(ownerID), &counts) {
		return counts, nil
	}

	counts, err := c.Store.CountTasksByStatus(ctx, ownerID)
	if err != nil {
		return models.StatusCounts{}, err
	}

	c.save(ctx, countsCacheKey(ownerID), counts)
	return counts, nil
}

func (c *Cache) CreateTask(ctx context.Context, task *models.Task) error {
	if err := c.Store.CreateTask(ctx, task); err != nil {
		return err
	}
	c.evict(ctx, task.OwnerID)
	return nil
}

func (c *Cache) UpdateTask(ctx context.Context, task *models.Task) error {
	if err := c.Store.UpdateTask(ctx, task); err != nil {
		return err
	}
	c.evict(ctx, task.OwnerID)
	return nil
}

func (c *Cache) UpdateTaskStatus(ctx context.Context, ownerID string, id int64, status models.Status) (*models.Task, error) {
	task, err := c.Store.UpdateTaskStatus(ctx, ownerID, id, status)
	if err != nil {
		return nil, err
	}
	c.evict(ctx, ownerID)
	return task, nil
}

func (c *Cache) MoveTask(ctx context.Context, ownerID string, id int64, status models.Status, pos float64) (*models.Task, error) {
	task, err := c.Store.MoveTask(ctx, ownerID, id, status, pos)
	if err != nil {
		return nil, err
	}
	c.evict(ctx, ownerID)
	return task, nil
}

func (c *Cache) RespaceGroup(ctx context.Context, ownerID string, status models.Status) error {
	if err := c.Store.RespaceGroup(ctx, ownerID, status); err != nil {
		return err
	}
	c.evict(ctx, ownerID)
	return nil
}

func (c *Cache) DeleteTask(ctx context.Context, ownerID string, id int64) error {
	if err := c.Store.DeleteTask(ctx, ownerID, id); err != nil {
		return err
	}
	c.evict(ctx, ownerID)
	return nil
}

func (c *Cache) DeleteUser(ctx context.Context, id string) error {
	if err := c.Store.DeleteUser(ctx, id); err != nil {
		return err
	}
	c.evict(ctx, id)
	return nil
}

func (c *Cache) load(ctx context.Context, key string, dst any) bool {
	if c.redis == nil {
		return false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			// On redis errors fall back to the backing store without failing.
			log.WithError(err).WithField("key", key).Warn("cache read failed")
			_ = c.redis.Del(ctx, key).Err()
		}
		return false
	}
	if err := sonic.Unmarshal(data, dst); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return false
	}
	return true
}

func (c *Cache) save(ctx context.Context, key string, value any) {
	if c.redis == nil {
		return
	}
	data, err := sonic.Marshal(value)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.WithError(err).WithField("key", key).Warn("cache write failed")
	}
}

func (c *Cache) evict(ctx context.Context, ownerID string) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Del(ctx, tasksCacheKey(ownerID), countsCacheKey(ownerID)).Err(); err != nil {
		log.WithError(err).WithField("owner_id", ownerID).Warn("cache evict failed")
	}
}
