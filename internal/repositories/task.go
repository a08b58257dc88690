package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/cloudmirror/sharesync/internal/models"
	"github.com/cloudmirror/sharesync/internal/shared"
)

const taskColumns = `
	id, sequence, name, account_id, share_id, share_mode, access_code,
	remote_folder_id, dest_folder_id, dest_folder_path, dest_root_id,
	status, current_episodes, total_episodes, last_error, retry_count,
	next_retry_at, last_file_update_at, last_check_at,
	match_pattern, match_operator, match_value, rename_source, rename_target,
	enable_cron, cron_expr, created_at, updated_at, deleted_at
`

// TaskRepository implements models.Repository[*models.Task].
//
// Handles task CRUD with soft delete support and the criteria filters the
// sweep jobs depend on: status, cron-enabled flag, and retry-due timestamp.
type TaskRepository struct {
	db *sql.DB
}

// NewTaskRepository creates a new TaskRepository with the given database connection
func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts a new task into the database with generated ID and sequence
func (r *TaskRepository) Create(task *models.Task) error {
	sequence, err := NextSequence(r.db, "tasks")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	task.SetID(id)
	task.SetSequence(sequence)

	if err := task.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		task.Name,
		task.AccountID,
		task.ShareID,
		int(task.ShareMode),
		task.AccessCode,
		task.RemoteFolderID,
		task.DestFolderID,
		task.DestFolderPath,
		task.DestRootID,
		string(task.Status),
		task.CurrentEpisodes,
		task.TotalEpisodes,
		task.LastError,
		task.RetryCount,
		task.NextRetryAt,
		task.LastFileUpdateAt,
		task.LastCheckAt,
		task.MatchPattern,
		string(task.MatchOperator),
		task.MatchValue,
		task.RenameSource,
		task.RenameTarget,
		task.EnableCron,
		task.CronExpr,
		task.CreatedAt(),
		task.UpdatedAt(),
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}

	return nil
}

// Get retrieves a task by ID, excluding soft-deleted tasks
func (r *TaskRepository) Get(id string) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ? AND deleted_at IS NULL`
	return r.scanOne(r.db.QueryRow(query, id))
}

// Update modifies an existing task in the database
func (r *TaskRepository) Update(task *models.Task) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	task.SetUpdatedAt(now)

	query := `
		UPDATE tasks
		SET name = ?, account_id = ?, share_id = ?, share_mode = ?, access_code = ?,
			remote_folder_id = ?, dest_folder_id = ?, dest_folder_path = ?, dest_root_id = ?,
			status = ?, current_episodes = ?, total_episodes = ?, last_error = ?,
			retry_count = ?, next_retry_at = ?, last_file_update_at = ?, last_check_at = ?,
			match_pattern = ?, match_operator = ?, match_value = ?,
			rename_source = ?, rename_target = ?, enable_cron = ?, cron_expr = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		task.Name,
		task.AccountID,
		task.ShareID,
		int(task.ShareMode),
		task.AccessCode,
		task.RemoteFolderID,
		task.DestFolderID,
		task.DestFolderPath,
		task.DestRootID,
		string(task.Status),
		task.CurrentEpisodes,
		task.TotalEpisodes,
		task.LastError,
		task.RetryCount,
		task.NextRetryAt,
		task.LastFileUpdateAt,
		task.LastCheckAt,
		task.MatchPattern,
		string(task.MatchOperator),
		task.MatchValue,
		task.RenameSource,
		task.RenameTarget,
		task.EnableCron,
		task.CronExpr,
		now,
		task.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrTaskNotFound, task.ID())
	}

	return nil
}

// Delete soft-deletes a task by ID
func (r *TaskRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE tasks
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrTaskNotFound, id)
	}

	return nil
}

// List retrieves all tasks matching the given criteria, excluding soft-deleted tasks.
//
// Supported criteria: "status" (string), "account_id" (string),
// "enable_cron" (bool), "retry_due_before" (time.Time).
func (r *TaskRepository) List(criteria map[string]any) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE deleted_at IS NULL`

	args := []any{}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	if accountID, ok := criteria["account_id"].(string); ok && accountID != "" {
		query += " AND account_id = ?"
		args = append(args, accountID)
	}

	if enableCron, ok := criteria["enable_cron"].(bool); ok {
		query += " AND enable_cron = ?"
		args = append(args, enableCron)
	}

	if dueBefore, ok := criteria["retry_due_before"].(time.Time); ok {
		query += " AND next_retry_at IS NOT NULL AND next_retry_at <= ?"
		args = append(args, dueBefore)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tasks, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanTask scans a single row into a [models.Task]
func (r *TaskRepository) scanTask(row rowScanner) (*models.Task, error) {
	var (
		id               string
		sequence         int
		name             string
		accountID        string
		shareID          string
		shareMode        int
		accessCode       string
		remoteFolderID   string
		destFolderID     string
		destFolderPath   string
		destRootID       string
		status           string
		currentEpisodes  int
		totalEpisodes    sql.NullInt64
		lastError        string
		retryCount       int
		nextRetryAt      sql.NullTime
		lastFileUpdateAt sql.NullTime
		lastCheckAt      sql.NullTime
		matchPattern     string
		matchOperator    string
		matchValue       string
		renameSource     string
		renameTarget     string
		enableCron       bool
		cronExpr         string
		createdAt        time.Time
		updatedAt        time.Time
		deletedAt        sql.NullTime
	)

	err := row.Scan(
		&id, &sequence, &name, &accountID, &shareID, &shareMode, &accessCode,
		&remoteFolderID, &destFolderID, &destFolderPath, &destRootID,
		&status, &currentEpisodes, &totalEpisodes, &lastError, &retryCount,
		&nextRetryAt, &lastFileUpdateAt, &lastCheckAt,
		&matchPattern, &matchOperator, &matchValue, &renameSource, &renameTarget,
		&enableCron, &cronExpr, &createdAt, &updatedAt, &deletedAt,
	)
	if err == sql.ErrNoRows {
		return nil, shared.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}

	task := &models.Task{
		Name:            name,
		AccountID:       accountID,
		ShareID:         shareID,
		ShareMode:       models.ShareMode(shareMode),
		AccessCode:      accessCode,
		RemoteFolderID:  remoteFolderID,
		DestFolderID:    destFolderID,
		DestFolderPath:  destFolderPath,
		DestRootID:      destRootID,
		Status:          models.TaskStatus(status),
		CurrentEpisodes: currentEpisodes,
		LastError:       lastError,
		RetryCount:      retryCount,
		MatchPattern:    matchPattern,
		MatchOperator:   models.MatchOperator(matchOperator),
		MatchValue:      matchValue,
		RenameSource:    renameSource,
		RenameTarget:    renameTarget,
		EnableCron:      enableCron,
		CronExpr:        cronExpr,
	}
	task.SetID(id)
	task.SetSequence(sequence)
	task.SetCreatedAt(createdAt)
	task.SetUpdatedAt(updatedAt)

	if totalEpisodes.Valid {
		total := int(totalEpisodes.Int64)
		task.TotalEpisodes = &total
	}
	if nextRetryAt.Valid {
		t := nextRetryAt.Time
		task.NextRetryAt = &t
	}
	if lastFileUpdateAt.Valid {
		t := lastFileUpdateAt.Time
		task.LastFileUpdateAt = &t
	}
	if lastCheckAt.Valid {
		t := lastCheckAt.Time
		task.LastCheckAt = &t
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		task.SetDeletedAt(&t)
	}

	return task, nil
}

func (r *TaskRepository) scanOne(row *sql.Row) (*models.Task, error) {
	return r.scanTask(row)
}

func (r *TaskRepository) scanRow(rows *sql.Rows) (*models.Task, error) {
	return r.scanTask(rows)
}
