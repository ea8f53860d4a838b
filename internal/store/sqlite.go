package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"taskboard/internal/models"
	"taskboard/internal/position"
)

const taskColumns = `id, owner_id, title, description, status, position, created_at, updated_at`

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given database path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// _txlock=immediate takes the write lock at BEGIN so a read-check-write
	// transaction cannot interleave with another writer.
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_txlock=immediate&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if err := runMigrations(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks the connection and returns the applied schema version.
func (s *SQLiteStore) Ping(ctx context.Context) (int, error) {
	if err := s.db.PingContext(ctx); err != nil {
		return 0, fmt.Errorf("failed to ping database: %w", err)
	}
	return currentSchemaVersion(ctx, s.db)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	task := &models.Task{}
	var status string
	err := row.Scan(
		&task.ID,
		&task.OwnerID,
		&task.Title,
		&task.Description,
		&status,
		&task.Position,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	task.Status = models.Status(status)
	return task, nil
}

func queryTasks(ctx context.Context, q interface {
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
}, query string, args ...any) ([]models.Task, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}

	return tasks, rows.Err()
}

// CreateTask inserts a new task and fills in its id and timestamps.
func (s *SQLiteStore) CreateTask(ctx context.Context, task *models.Task) error {
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (owner_id, title, description, status, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, task.OwnerID, task.Title, task.Description, string(task.Status), task.Position, now, now)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	task.ID = id

	return nil
}

// GetTask retrieves a task by id. Tasks owned by someone else are reported as ErrNotFound.
func (s *SQLiteStore) GetTask(ctx context.Context, ownerID string, id int64) (*models.Task, error) {
	task, err := scanTask(s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ? AND owner_id = ?`, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// ListTasks retrieves all of an owner's tasks ordered by status group, position and id.
func (s *SQLiteStore) ListTasks(ctx context.Context, ownerID string) ([]models.Task, error) {
	return queryTasks(ctx, s.db, `
		SELECT `+taskColumns+`
		FROM tasks WHERE owner_id = ?
		ORDER BY status ASC, position ASC, id ASC
	`, ownerID)
}

// ListTasksByStatus retrieves one status group ordered by position, then id.
func (s *SQLiteStore) ListTasksByStatus(ctx context.Context, ownerID string, status models.Status) ([]models.Task, error) {
	return queryTasks(ctx, s.db, `
		SELECT `+taskColumns+`
		FROM tasks WHERE owner_id = ? AND status = ?
		ORDER BY position ASC, id ASC
	`, ownerID, string(status))
}

// TailPosition returns the highest position in a status group, or nil when the group is empty.
func (s *SQLiteStore) TailPosition(ctx context.Context, ownerID string, status models.Status) (*float64, error) {
	var tail sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(position) FROM tasks WHERE owner_id = ? AND status = ?`, ownerID, string(status)).Scan(&tail)
	if err != nil {
		return nil, fmt.Errorf("failed to read tail position: %w", err)
	}
	if !tail.Valid {
		return nil, nil
	}
	return &tail.Float64, nil
}

// UpdateTask writes a task's title and description. Status and position are not touched.
func (s *SQLiteStore) UpdateTask(ctx context.Context, task *models.Task) error {
	task.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET title = ?, description = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?
	`, task.Title, task.Description, task.UpdatedAt, task.ID, task.OwnerID)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	return requireAffected(result, "task", task.ID)
}

// UpdateTaskStatus changes only the status column and returns the updated task.
// The position is left as-is, so it may not fit the ordering of the new group.
func (s *SQLiteStore) UpdateTaskStatus(ctx context.Context, ownerID string, id int64, status models.Status) (*models.Task, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET status = ?, updated_at = ? WHERE id = ? AND owner_id = ?
	`, string(status), time.Now().UTC(), id, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to update task status: %w", err)
	}
	if err := requireAffected(result, "task", id); err != nil {
		return nil, err
	}

	return s.GetTask(ctx, ownerID, id)
}

// MoveTask re-checks existence and ownership and writes status and position in
// one transaction. A missing task yields ErrNotFound, a foreign one ErrForbidden.
func (s *SQLiteStore) MoveTask(ctx context.Context, ownerID string, id int64, status models.Status, pos float64) (*models.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var currentOwner string
	err = tx.QueryRowContext(ctx, `SELECT owner_id FROM tasks WHERE id = ?`, id).Scan(&currentOwner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load task for move: %w", err)
	}
	if currentOwner != ownerID {
		return nil, fmt.Errorf("task %d: %w", id, ErrForbidden)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE tasks SET status = ?, position = ?, updated_at = ? WHERE id = ?
	`, string(status), pos, time.Now().UTC(), id); err != nil {
		return nil, fmt.Errorf("failed to move task: %w", err)
	}

	task, err := scanTask(tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to reload moved task: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit move: %w", err)
	}
	return task, nil
}

// RespaceGroup rewrites the positions of one status group to 0..n-1, keeping the current order.
func (s *SQLiteStore) RespaceGroup(ctx context.Context, ownerID string, status models.Status) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT id FROM tasks WHERE owner_id = ? AND status = ? ORDER BY position ASC, id ASC
	`, ownerID, string(status))
	if err != nil {
		return fmt.Errorf("failed to list group: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan task id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to list group: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `UPDATE tasks SET position = ? WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, p := range position.Respace(len(ids)) {
		if _, err := stmt.ExecContext(ctx, p, ids[i]); err != nil {
			return fmt.Errorf("failed to respace task %d: %w", ids[i], err)
		}
	}

	return tx.Commit()
}

// DeleteTask deletes an owner's task by id.
func (s *SQLiteStore) DeleteTask(ctx context.Context, ownerID string, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return requireAffected(result, "task", id)
}

// CountTasksByStatus returns per-status task counts; missing groups count as zero.
func (s *SQLiteStore) CountTasksByStatus(ctx context.Context, ownerID string) (models.StatusCounts, error) {
	var counts models.StatusCounts

	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM tasks WHERE owner_id = ? GROUP BY status
	`, ownerID)
	if err != nil {
		return counts, fmt.Errorf("failed to count tasks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return counts, fmt.Errorf("failed to scan count: %w", err)
		}
		counts.Set(models.Status(status), n)
	}

	return counts, rows.Err()
}

// UpsertUser inserts the user or refreshes its email and name. An empty name
// never overwrites a stored one.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = CASE WHEN excluded.email <> '' THEN excluded.email ELSE users.email END,
			name = CASE WHEN excluded.name <> '' THEN excluded.name ELSE users.name END,
			updated_at = excluded.updated_at
	`, user.ID, user.Email, user.Name, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	stored, err := s.GetUser(ctx, user.ID)
	if err != nil {
		return err
	}
	*user = *stored
	return nil
}

// GetUser retrieves a user by id.
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, name, created_at, updated_at FROM users WHERE id = ?
	`, id).Scan(&user.ID, &user.Email, &user.Name, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// UpdateUser writes a user's email and name.
func (s *SQLiteStore) UpdateUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET email = ?, name = ?, updated_at = ? WHERE id = ?
	`, user.Email, user.Name, user.UpdatedAt, user.ID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("user %s: %w", user.ID, ErrNotFound)
	}
	return nil
}

// DeleteUser deletes a user; their tasks are removed by the foreign key cascade.
func (s *SQLiteStore) DeleteUser(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return nil
}

func requireAffected(result sql.Result, kind string, id int64) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
	}
	return nil
}
