package database

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// Upload session statuses as recorded in history.
const (
	UploadStatusUploading  = "uploading"
	UploadStatusProcessing = "processing"
	UploadStatusDone       = "done"
	UploadStatusFailed     = "failed"
)

// UploadSession is one row of the upload history table.
type UploadSession struct {
	ID        string  `json:"upload_id"`
	FileCount int     `json:"file_count"`
	Status    string  `json:"status"`
	AlbumID   *string `json:"album_id,omitempty"`
	Error     *string `json:"error,omitempty"`
	CreatedAt int64   `json:"created_at"`
	UpdatedAt int64   `json:"updated_at"`
}

// InitHistoryDB opens the sqlite history store and ensures its schema.
func InitHistoryDB(dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// enable write-ahead logging for better concurrency
	_, err = db.Exec("PRAGMA journal_mode=WAL;")
	if err != nil {
		log.Printf("warning: failed to set WAL mode: %v", err)
	}

	sqlStmt := `
	CREATE TABLE IF NOT EXISTS upload_sessions (
		id TEXT PRIMARY KEY,
		file_count INTEGER NOT NULL,
		status TEXT NOT NULL,
		album_id TEXT,
		error TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	_, err = db.Exec(sqlStmt)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create upload_sessions table: %w", err)
	}

	log.Println("upload history database initialized at", dataSourceName)
	return db, nil
}

// InsertUploadSession records a freshly started upload.
func InsertUploadSession(db *sql.DB, id string, fileCount int) error {
	now := time.Now().Unix()

	queryBuilder := psql.Insert("upload_sessions").
		Columns("id", "file_count", "status", "created_at", "updated_at").
		Values(id, fileCount, UploadStatusUploading, now, now)

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build SQL for InsertUploadSession: %w", err)
	}

	if _, err := db.Exec(sqlStr, args...); err != nil {
		return fmt.Errorf("failed to insert upload session %s: %w", id, err)
	}
	return nil
}

// SetUploadSessionStatus moves a session to a new status, optionally
// recording the created album or the failure message.
func SetUploadSessionStatus(db *sql.DB, id, status string, albumID, errMsg *string) error {
	queryBuilder := psql.Update("upload_sessions").
		Set("status", status).
		Set("updated_at", time.Now().Unix()).
		Where(sq.Eq{"id": id})
	if albumID != nil {
		queryBuilder = queryBuilder.Set("album_id", *albumID)
	}
	if errMsg != nil {
		queryBuilder = queryBuilder.Set("error", *errMsg)
	}

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build SQL for SetUploadSessionStatus: %w", err)
	}

	if _, err := db.Exec(sqlStr, args...); err != nil {
		return fmt.Errorf("failed to update upload session %s: %w", id, err)
	}
	return nil
}

// GetUploadSession looks up a single session row. Returns sql.ErrNoRows
// when the id is unknown.
func GetUploadSession(db *sql.DB, id string) (*UploadSession, error) {
	queryBuilder := psql.Select("id", "file_count", "status", "album_id", "error", "created_at", "updated_at").
		From("upload_sessions").
		Where(sq.Eq{"id": id})

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL for GetUploadSession: %w", err)
	}

	var s UploadSession
	row := db.QueryRow(sqlStr, args...)
	err = row.Scan(&s.ID, &s.FileCount, &s.Status, &s.AlbumID, &s.Error, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan upload session %s: %w", id, err)
	}
	return &s, nil
}

// ListUploadSessions returns recent sessions, newest first. status and
// since are optional filters; limit caps the result (default 50).
func ListUploadSessions(db *sql.DB, status string, since int64, limit int) ([]UploadSession, error) {
	if limit <= 0 {
		limit = 50
	}

	queryBuilder := psql.Select("id", "file_count", "status", "album_id", "error", "created_at", "updated_at").
		From("upload_sessions").
		OrderBy("created_at DESC").
		Limit(uint64(limit))
	if status != "" {
		queryBuilder = queryBuilder.Where(sq.Eq{"status": status})
	}
	if since > 0 {
		queryBuilder = queryBuilder.Where(sq.GtOrEq{"created_at": since})
	}

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL for ListUploadSessions: %w", err)
	}

	rows, err := db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute ListUploadSessions query: %w", err)
	}
	defer rows.Close()

	sessions := []UploadSession{}
	for rows.Next() {
		var s UploadSession
		err := rows.Scan(&s.ID, &s.FileCount, &s.Status, &s.AlbumID, &s.Error, &s.CreatedAt, &s.UpdatedAt)
		if err != nil {
			log.Printf("Error scanning upload session row: %v", err)
			continue
		}
		sessions = append(sessions, s)
	}

	if err = rows.Err(); err != nil {
		return sessions, fmt.Errorf("error iterating upload session rows: %w", err)
	}
	return sessions, nil
}
