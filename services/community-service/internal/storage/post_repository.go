package storage

import (
	"context"
	"errors"
	"time"

	"github.com/amiko-app/amiko/libs/db"
	"github.com/jackc/pgx/v5"
)

// Boards the community UI knows about.
var Boards = map[string]bool{
	"qna":    true,
	"fanart": true,
	"news":   true,
	"free":   true,
}

type Post struct {
	ID           string
	Board        string
	Title        string
	Body         string
	Language     string // ko or es
	AuthorID     string
	AuthorName   string
	CommentCount int
	CreatedAt    time.Time
}

type Comment struct {
	ID         string
	PostID     string
	Body       string
	AuthorID   string
	AuthorName string
	CreatedAt  time.Time
}

type PostRepository struct {
	pool *db.Pool
}

func NewPostRepository(pool *db.Pool) *PostRepository {
	return &PostRepository{pool: pool}
}

func (r *PostRepository) Create(ctx context.Context, p *Post) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO posts (board, title, body, language, author_id, author_name)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, p.Board, p.Title, p.Body, p.Language, p.AuthorID, p.AuthorName).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *PostRepository) Get(ctx context.Context, id string) (Post, error) {
	var p Post
	err := r.pool.QueryRow(ctx, `
		SELECT id, board, title, body, language, COALESCE(author_id::text, ''), COALESCE(author_name, ''), comment_count, created_at
		FROM posts
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Board, &p.Title, &p.Body, &p.Language, &p.AuthorID, &p.AuthorName, &p.CommentCount, &p.CreatedAt)
	if err != nil {
		return Post{}, err
	}
	return p, nil
}

func (r *PostRepository) ListByBoard(ctx context.Context, board string, limit, offset int) ([]Post, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, board, title, body, language, COALESCE(author_id::text, ''), COALESCE(author_name, ''), comment_count, created_at
		FROM posts
		WHERE board = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, board, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.Board, &p.Title, &p.Body, &p.Language, &p.AuthorID, &p.AuthorName, &p.CommentCount, &p.CreatedAt); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return posts, nil
}

func (r *PostRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// CreateComment inserts the comment and bumps the post's counter in
// one transaction.
func (r *PostRepository) CreateComment(ctx context.Context, c *Comment) (string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id string
	err = tx.QueryRow(ctx, `
		INSERT INTO comments (post_id, body, author_id, author_name)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, c.PostID, c.Body, c.AuthorID, c.AuthorName).Scan(&id)
	if err != nil {
		return "", err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE posts SET comment_count = comment_count + 1 WHERE id = $1
	`, c.PostID); err != nil {
		return "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return id, nil
}

func (r *PostRepository) ListComments(ctx context.Context, postID string, limit int) ([]Comment, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, post_id, body, COALESCE(author_id::text, ''), COALESCE(author_name, ''), created_at
		FROM comments
		WHERE post_id = $1
		ORDER BY created_at ASC
		LIMIT $2
	`, postID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.Body, &c.AuthorID, &c.AuthorName, &c.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return comments, nil
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
