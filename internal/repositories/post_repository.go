package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anonto42/silex-blog/backend/internal/models"
	"gorm.io/gorm"
)

var (
	// ErrPostNotFound is returned when a lookup matches no rows.
	ErrPostNotFound = errors.New("post not found")
	// ErrUpdateNotImplemented is returned by Save for posts that already have an ID.
	ErrUpdateNotImplemented = errors.New("updating an existing post is not implemented")
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Find(ctx context.Context, id int64) (*models.Post, error)
	FindAll(ctx context.Context) ([]*models.Post, error)
	FindByAuthor(ctx context.Context, author string) ([]*models.Post, error)
	Save(ctx context.Context, post *models.Post) error
}

// PostRecord is a row of the posts table
type PostRecord struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Author       string    `gorm:"column:author;type:varchar(255)"`
	Title        string    `gorm:"column:title;type:varchar(255)"`
	Body         string    `gorm:"column:body;type:text"`
	CreatedDate  time.Time `gorm:"column:created_date"`
	ModifiedDate time.Time `gorm:"column:modified_date"`
}

func (PostRecord) TableName() string {
	return "posts"
}

func (r PostRecord) toPost() *models.Post {
	post := models.RestorePost(r.ID, r.Author, r.Title, r.CreatedDate, r.ModifiedDate, r.Body)
	post.SetPersisted(true)
	return post
}

// PostgresPostRepository implements PostRepository with raw SQL over gorm
type PostgresPostRepository struct {
	db *gorm.DB
}

// NewPostgresPostRepository creates a new PostgresPostRepository
func NewPostgresPostRepository(db *gorm.DB) *PostgresPostRepository {
	return &PostgresPostRepository{db: db}
}

// Find looks up a post by its id.
func (r *PostgresPostRepository) Find(ctx context.Context, id int64) (*models.Post, error) {
	var rows []PostRecord
	if err := r.db.WithContext(ctx).Raw("SELECT * FROM posts WHERE id = ?", id).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: a post with id=%d was not found", ErrPostNotFound, id)
	}
	return rows[0].toPost(), nil
}

// FindAll returns every post. An empty table is reported as ErrPostNotFound.
func (r *PostgresPostRepository) FindAll(ctx context.Context) ([]*models.Post, error) {
	var rows []PostRecord
	if err := r.db.WithContext(ctx).Raw("SELECT * FROM posts").Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no posts were found in the database", ErrPostNotFound)
	}
	return toPosts(rows), nil
}

// FindByAuthor returns the posts whose author matches the LIKE pattern.
func (r *PostgresPostRepository) FindByAuthor(ctx context.Context, author string) ([]*models.Post, error) {
	var rows []PostRecord
	if err := r.db.WithContext(ctx).Raw("SELECT * FROM posts WHERE author LIKE ?", author).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no posts by %q were found", ErrPostNotFound, author)
	}
	return toPosts(rows), nil
}

// Save inserts a new post and assigns the generated id back onto it.
func (r *PostgresPostRepository) Save(ctx context.Context, post *models.Post) error {
	if post.HasID() {
		return fmt.Errorf("post %d: %w", *post.ID(), ErrUpdateNotImplemented)
	}

	record := PostRecord{
		Author:       post.Author(),
		Title:        post.Title(),
		Body:         post.Body(),
		CreatedDate:  post.CreatedDate(),
		ModifiedDate: post.ModifiedDate(),
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return err
	}

	id := record.ID
	post.SetID(&id)
	post.SetPersisted(true)
	return nil
}

func toPosts(rows []PostRecord) []*models.Post {
	posts := make([]*models.Post, 0, len(rows))
	for _, row := range rows {
		posts = append(posts, row.toPost())
	}
	return posts
}
