package store

import (
	"context"
	"fmt"
	"time"

	"github.com/antonlukisha/md5-cracker/internal/model"
	"github.com/antonlukisha/md5-cracker/internal/retry"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.uber.org/zap"
)

const (
	writeTimeout = 5 * time.Second
	dbName       = "md5_cracker"
)

// MongoConfig configures the connection to the replica set backing the
// store.
type MongoConfig struct {
	URI          string
	RetryAttempts int
	RetryBase     time.Duration
	RetryBackoff  float64
}

// Mongo is the MongoDB-backed implementation of Store. It mirrors the
// collection layout and write-concern choices of the document store the
// service was originally built on: majority writes with a 5s timeout,
// and reads that can be steered toward secondaries for non-authoritative
// status checks.
type Mongo struct {
	client   *mongo.Client
	requests *mongo.Collection
	tasks    *mongo.Collection
	logger   *zap.Logger
}

// NewMongo dials MongoDB, retrying the initial connection with the
// configured backoff. It does not create indexes; call EnsureIndexes.
func NewMongo(ctx context.Context, cfg MongoConfig, logger *zap.Logger) (*Mongo, error) {
	wc := writeconcern.Majority()
	wc.WTimeout = writeTimeout

	clientOpts := options.Client().ApplyURI(cfg.URI).
		SetWriteConcern(wc).
		SetReadPreference(readpref.SecondaryPreferred()).
		SetServerSelectionTimeout(5 * time.Second).
		SetConnectTimeout(5 * time.Second)

	var client *mongo.Client
	err := retry.Do(ctx, cfg.RetryAttempts, cfg.RetryBase, cfg.RetryBackoff, func() error {
		c, err := mongo.Connect(ctx, clientOpts)
		if err != nil {
			return fmt.Errorf("mongo connect: %w", err)
		}
		if err := c.Ping(ctx, readpref.Primary()); err != nil {
			_ = c.Disconnect(ctx)
			return fmt.Errorf("mongo ping: %w", err)
		}
		client = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	db := client.Database(dbName)
	// Task counts back the completion check, which must observe the result
	// write it follows, so task reads go to the primary.
	taskOpts := options.Collection().SetReadPreference(readpref.Primary())
	m := &Mongo{
		client:   client,
		requests: db.Collection("requests"),
		tasks:    db.Collection("tasks", taskOpts),
		logger:   logger,
	}

	logger.Info("connected to MongoDB", zap.String("database", dbName))
	return m, nil
}

// EnsureIndexes creates the unique and secondary indexes named in
// spec.md §3.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	reqIdx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "requestId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	}
	taskIdx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "taskId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "requestId", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "needs_retry", Value: 1}}},
	}

	if _, err := m.requests.Indexes().CreateMany(ctx, reqIdx); err != nil {
		return fmt.Errorf("store: create request indexes: %w", err)
	}
	if _, err := m.tasks.Indexes().CreateMany(ctx, taskIdx); err != nil {
		return fmt.Errorf("store: create task indexes: %w", err)
	}
	return nil
}

// Ping checks connectivity against the primary.
func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// InsertRequest persists a new request document.
func (m *Mongo) InsertRequest(ctx context.Context, req model.Request) error {
	_, err := m.requests.InsertOne(ctx, req)
	if err != nil {
		return fmt.Errorf("store: insert request: %w", err)
	}
	return nil
}

// InsertTasks persists the given task documents in one batch insert.
func (m *Mongo) InsertTasks(ctx context.Context, tasks []model.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	docs := make([]interface{}, len(tasks))
	for i, t := range tasks {
		docs[i] = t
	}
	_, err := m.tasks.InsertMany(ctx, docs)
	if err != nil {
		return fmt.Errorf("store: insert tasks: %w", err)
	}
	return nil
}

// GetRequest fetches a request by ID. preferSecondary steers the read to
// a secondary replica for non-authoritative status polling; completion
// checks should pass false to read their own writes.
func (m *Mongo) GetRequest(ctx context.Context, requestID string, preferSecondary bool) (*model.Request, error) {
	opts := options.FindOne()
	if preferSecondary {
		opts.SetReadPreference(readpref.SecondaryPreferred())
	} else {
		opts.SetReadPreference(readpref.Primary())
	}

	var req model.Request
	err := m.requests.FindOne(ctx, bson.M{"requestId": requestID}, opts).Decode(&req)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get request: %w", err)
	}
	return &req, nil
}

// UpdateTaskResult sets a task's terminal status, completion timestamp,
// and results (when non-empty). Updating a task already in that terminal
// state is a no-op in effect: the same fields are written again.
func (m *Mongo) UpdateTaskResult(ctx context.Context, taskID string, status model.TaskStatus, results []string) error {
	now := time.Now().UTC()
	set := bson.M{"status": status, "completed_at": now}
	if len(results) > 0 {
		set["results"] = results
	}
	_, err := m.tasks.UpdateOne(ctx, bson.M{"taskId": taskID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("store: update task result: %w", err)
	}
	return nil
}

// UpdateTaskStatus sets only a task's status, used by the submission path
// when a publish fails and the task is parked for the sweeper.
func (m *Mongo) UpdateTaskStatus(ctx context.Context, taskID string, status model.TaskStatus) error {
	set := bson.M{"status": status}
	if status == model.TaskQueued {
		set["needs_retry"] = true
	}
	_, err := m.tasks.UpdateOne(ctx, bson.M{"taskId": taskID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("store: update task status: %w", err)
	}
	return nil
}

// AppendRequestResults merges results into the request's results array
// with set-union semantics, so a redelivered ResultMessage never produces
// duplicate entries. This replaces the original implementation's $push,
// which is the dedup fix spec.md §9 calls for.
func (m *Mongo) AppendRequestResults(ctx context.Context, requestID string, results []string) error {
	if len(results) == 0 {
		return nil
	}
	_, err := m.requests.UpdateOne(ctx,
		bson.M{"requestId": requestID},
		bson.M{
			"$addToSet": bson.M{"results": bson.M{"$each": results}},
			"$set":      bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return fmt.Errorf("store: append request results: %w", err)
	}
	return nil
}

// CountTasksByRequest counts tasks for requestID, optionally filtered to
// the given statuses.
func (m *Mongo) CountTasksByRequest(ctx context.Context, requestID string, statuses ...model.TaskStatus) (int64, error) {
	filter := bson.M{"requestId": requestID}
	if len(statuses) > 0 {
		filter["status"] = bson.M{"$in": statuses}
	}
	n, err := m.tasks.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("store: count tasks by request: %w", err)
	}
	return n, nil
}

// TryCompleteRequest atomically transitions a request from IN_PROGRESS to
// READY. The filter on status=IN_PROGRESS makes the transition
// idempotent: a racing or redelivered completion check that arrives after
// the first succeeds finds no matching document and reports false instead
// of writing again.
func (m *Mongo) TryCompleteRequest(ctx context.Context, requestID string) (bool, error) {
	now := time.Now().UTC()
	res, err := m.requests.UpdateOne(ctx,
		bson.M{"requestId": requestID, "status": model.RequestInProgress},
		bson.M{"$set": bson.M{"status": model.RequestReady, "completed_at": now, "updated_at": now}},
	)
	if err != nil {
		return false, fmt.Errorf("store: complete request: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

// FailedTasks returns tasks flagged for retry by a prior publish failure.
func (m *Mongo) FailedTasks(ctx context.Context) ([]model.Task, error) {
	cur, err := m.tasks.Find(ctx, bson.M{"needs_retry": true, "status": model.TaskQueued})
	if err != nil {
		return nil, fmt.Errorf("store: find failed tasks: %w", err)
	}
	defer cur.Close(ctx)

	var tasks []model.Task
	if err := cur.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("store: decode failed tasks: %w", err)
	}
	return tasks, nil
}

// ClearRetryFlag clears needs_retry after a successful sweeper re-publish.
func (m *Mongo) ClearRetryFlag(ctx context.Context, taskID string) error {
	_, err := m.tasks.UpdateOne(ctx, bson.M{"taskId": taskID}, bson.M{"$set": bson.M{"needs_retry": false}})
	if err != nil {
		return fmt.Errorf("store: clear retry flag: %w", err)
	}
	return nil
}

// CountRequestsByStatus backs the requests portion of /metrics/manager.
func (m *Mongo) CountRequestsByStatus(ctx context.Context) (map[model.RequestStatus]int64, error) {
	counts := map[model.RequestStatus]int64{}
	for _, status := range []model.RequestStatus{model.RequestInProgress, model.RequestReady, model.RequestError} {
		n, err := m.requests.CountDocuments(ctx, bson.M{"status": status})
		if err != nil {
			return nil, fmt.Errorf("store: count requests by status: %w", err)
		}
		counts[status] = n
	}
	return counts, nil
}

// CountTasksByStatus backs the tasks portion of /metrics/manager.
func (m *Mongo) CountTasksByStatus(ctx context.Context) (map[model.TaskStatus]int64, error) {
	counts := map[model.TaskStatus]int64{}
	for _, status := range []model.TaskStatus{model.TaskPending, model.TaskQueued, model.TaskDone, model.TaskError} {
		n, err := m.tasks.CountDocuments(ctx, bson.M{"status": status})
		if err != nil {
			return nil, fmt.Errorf("store: count tasks by status: %w", err)
		}
		counts[status] = n
	}
	return counts, nil
}
