package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/streamhub/internal/apperror"
	"github.com/sakif/streamhub/internal/model"
	"github.com/sakif/streamhub/internal/repository"
)

// compile-time check that *StreamRepo implements repository.StreamRepository
var _ repository.StreamRepository = (*StreamRepo)(nil)

// StreamRepo provides stream persistence on top of a shared DB handle.
type StreamRepo struct {
	db *DB
}

// NewStreamRepo returns a StreamRepo backed by db.
func NewStreamRepo(db *DB) *StreamRepo {
	return &StreamRepo{db: db}
}

// streamColumns is the SELECT list shared by all stream reads. Every scan
// below must stay in this order. The owner summary is joined in so a single
// query produces the full API response shape.
const streamColumns = `
	s.id, s.slug, s.title, s.description, s.visibility, s.is_live,
	s.hls_url, s.user_id, s.created_at, s.updated_at,
	u.id, u.name, u.avatar_url`

func scanStream(row interface{ Scan(...any) error }) (*model.Stream, error) {
	var (
		st    model.Stream
		owner model.UserSummary
	)
	err := row.Scan(
		&st.ID, &st.Slug, &st.Title, &st.Description, &st.Visibility,
		&st.IsLive, &st.HlsURL, &st.UserID, &st.CreatedAt, &st.UpdatedAt,
		&owner.ID, &owner.Name, &owner.AvatarURL,
	)
	if err != nil {
		return nil, err
	}
	st.Owner = &owner
	return &st, nil
}

// Create inserts a new stream. The ID and timestamps are assigned here; the
// caller provides everything else, including an already-assigned slug.
// A slug collision with a concurrent writer returns apperror.ErrConflict.
func (r *StreamRepo) Create(ctx context.Context, stream *model.Stream) error {
	stream.ID = xid.New().String()

	now := time.Now()
	stream.CreatedAt = now
	stream.UpdatedAt = now

	_, err := r.db.conn.ExecContext(ctx,
		`INSERT INTO streams (id, slug, title, description, visibility, is_live, hls_url, user_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stream.ID,
		stream.Slug,
		stream.Title,
		stream.Description,
		string(stream.Visibility),
		stream.IsLive,
		stream.HlsURL,
		stream.UserID,
		stream.CreatedAt,
		stream.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "streams.slug") {
			return apperror.Conflict("slug already in use")
		}
		return fmt.Errorf("sqlite: creating stream: %w", err)
	}

	return nil
}

// GetByID retrieves a single stream with its owner summary.
// Returns apperror.ErrNotFound if no stream exists with that ID.
func (r *StreamRepo) GetByID(ctx context.Context, id string) (*model.Stream, error) {
	row := r.db.conn.QueryRowContext(ctx,
		`SELECT`+streamColumns+`
		 FROM streams s JOIN users u ON u.id = s.user_id
		 WHERE s.id = ?`,
		id,
	)

	stream, err := scanStream(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("stream", id)
		}
		return nil, fmt.Errorf("sqlite: getting stream %s: %w", id, err)
	}

	return stream, nil
}

// GetBySlug retrieves a single stream by its slug.
// Returns apperror.ErrNotFound if no stream holds that slug.
func (r *StreamRepo) GetBySlug(ctx context.Context, slug string) (*model.Stream, error) {
	row := r.db.conn.QueryRowContext(ctx,
		`SELECT`+streamColumns+`
		 FROM streams s JOIN users u ON u.id = s.user_id
		 WHERE s.slug = ?`,
		slug,
	)

	stream, err := scanStream(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("stream", slug)
		}
		return nil, fmt.Errorf("sqlite: getting stream by slug %s: %w", slug, err)
	}

	return stream, nil
}

// escapeLike neutralizes LIKE metacharacters so a search term matches
// itself literally. Pairs with ESCAPE '\' in the query.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

// List retrieves streams matching the filter.
//
// The WHERE clause is assembled from the typed filter: every set field adds
// one conjunct, and the caller's scope always contributes one, so a filter
// can narrow the scope but never escape it.
func (r *StreamRepo) List(ctx context.Context, filter repository.StreamFilter) ([]model.Stream, error) {
	where := make([]string, 0, 4)
	args := make([]any, 0, 8)

	// Scope conjunct. The default discovery scope never includes private
	// streams, so the SQL mirrors policy.Scope.Allows exactly.
	switch {
	case filter.Scope.MineOnly:
		where = append(where, "s.user_id = ?")
		args = append(args, filter.Scope.CallerID)
	case filter.Scope.CallerID != "":
		where = append(where, "s.visibility IN ('public', 'unlisted')")
	default:
		where = append(where, "s.visibility = 'public'")
	}

	if filter.Search != "" {
		// SQLite LIKE is case-insensitive for ASCII, which is the
		// case-insensitivity the API promises. The term itself matches
		// literally, so its wildcard characters are escaped.
		where = append(where, `(s.title LIKE ? ESCAPE '\' OR s.description LIKE ? ESCAPE '\')`)
		pattern := "%" + escapeLike(filter.Search) + "%"
		args = append(args, pattern, pattern)
	}

	if filter.IsLive != nil {
		where = append(where, "s.is_live = ?")
		args = append(args, *filter.IsLive)
	}

	if len(filter.Visibility) > 0 {
		placeholders := make([]string, len(filter.Visibility))
		for i, v := range filter.Visibility {
			placeholders[i] = "?"
			args = append(args, string(v))
		}
		where = append(where, "s.visibility IN ("+strings.Join(placeholders, ", ")+")")
	}

	order := "s.updated_at DESC"
	if filter.Order == repository.OrderLiveFirst {
		order = "s.is_live DESC, s.updated_at DESC"
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)

	query := `SELECT` + streamColumns + `
		 FROM streams s JOIN users u ON u.id = s.user_id
		 WHERE ` + strings.Join(where, " AND ") + `
		 ORDER BY ` + order + `
		 LIMIT ? OFFSET ?`

	rows, err := r.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing streams: %w", err)
	}
	defer rows.Close()

	streams := make([]model.Stream, 0, limit)
	for rows.Next() {
		stream, err := scanStream(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning stream row: %w", err)
		}
		streams = append(streams, *stream)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating streams: %w", err)
	}

	return streams, nil
}

// Update persists the mutable fields of a stream. ID, user_id, and
// created_at never change. updated_at is set here on every call, so
// repeating an identical update still advances it. A slug collision
// returns apperror.ErrConflict; an unknown ID returns ErrNotFound.
func (r *StreamRepo) Update(ctx context.Context, stream *model.Stream) error {
	stream.UpdatedAt = time.Now()

	result, err := r.db.conn.ExecContext(ctx,
		`UPDATE streams
		 SET slug = ?, title = ?, description = ?, visibility = ?, is_live = ?, hls_url = ?, updated_at = ?
		 WHERE id = ?`,
		stream.Slug,
		stream.Title,
		stream.Description,
		string(stream.Visibility),
		stream.IsLive,
		stream.HlsURL,
		stream.UpdatedAt,
		stream.ID,
	)
	if err != nil {
		if isUniqueViolation(err, "streams.slug") {
			return apperror.Conflict("slug already in use")
		}
		return fmt.Errorf("sqlite: updating stream %s: %w", stream.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("stream", stream.ID)
	}

	return nil
}

// Delete removes a stream by its ID. Deleting the row is the only effect;
// there is nothing to cascade.
func (r *StreamRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.conn.ExecContext(ctx,
		`DELETE FROM streams WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting stream %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("stream", id)
	}

	return nil
}
