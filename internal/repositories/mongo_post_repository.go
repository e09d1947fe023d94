package repositories

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/anonto42/silex-blog/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const postCounterID = "posts"

type mongoPost struct {
	ID           int64     `bson:"_id"`
	Author       string    `bson:"author"`
	Title        string    `bson:"title"`
	Body         string    `bson:"body"`
	CreatedDate  time.Time `bson:"created_date"`
	ModifiedDate time.Time `bson:"modified_date"`
}

func (d mongoPost) toPost() *models.Post {
	post := models.RestorePost(d.ID, d.Author, d.Title, d.CreatedDate, d.ModifiedDate, d.Body)
	post.SetPersisted(true)
	return post
}

type sequence struct {
	ID  string `bson:"_id"`
	Seq int64  `bson:"seq"`
}

// MongoPostRepository implements PostRepository for MongoDB. Integer ids
// come from a counters collection so they look the same as the SQL ones.
type MongoPostRepository struct {
	collection *mongo.Collection
	counters   *mongo.Collection
}

// NewMongoPostRepository creates a new MongoPostRepository
func NewMongoPostRepository(db *mongo.Database) *MongoPostRepository {
	return &MongoPostRepository{
		collection: db.Collection("posts"),
		counters:   db.Collection("counters"),
	}
}

// Find retrieves a post by ID from MongoDB
func (r *MongoPostRepository) Find(ctx context.Context, id int64) (*models.Post, error) {
	var doc mongoPost
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: a post with id=%d was not found", ErrPostNotFound, id)
		}
		return nil, err
	}
	return doc.toPost(), nil
}

// FindAll retrieves every post ordered by id
func (r *MongoPostRepository) FindAll(ctx context.Context) ([]*models.Post, error) {
	posts, err := r.find(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, fmt.Errorf("%w: no posts were found in the database", ErrPostNotFound)
	}
	return posts, nil
}

// FindByAuthor matches authors with SQL LIKE semantics
func (r *MongoPostRepository) FindByAuthor(ctx context.Context, author string) ([]*models.Post, error) {
	filter := bson.M{"author": primitive.Regex{Pattern: likeToRegex(author)}}
	posts, err := r.find(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, fmt.Errorf("%w: no posts by %q were found", ErrPostNotFound, author)
	}
	return posts, nil
}

// Save inserts a new post under the next sequence value
func (r *MongoPostRepository) Save(ctx context.Context, post *models.Post) error {
	if post.HasID() {
		return fmt.Errorf("post %d: %w", *post.ID(), ErrUpdateNotImplemented)
	}

	id, err := r.nextID(ctx)
	if err != nil {
		return fmt.Errorf("allocate post id: %w", err)
	}

	doc := mongoPost{
		ID:           id,
		Author:       post.Author(),
		Title:        post.Title(),
		Body:         post.Body(),
		CreatedDate:  post.CreatedDate(),
		ModifiedDate: post.ModifiedDate(),
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return err
	}

	post.SetID(&id)
	post.SetPersisted(true)
	return nil
}

func (r *MongoPostRepository) find(ctx context.Context, filter interface{}) ([]*models.Post, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []mongoPost
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	posts := make([]*models.Post, 0, len(docs))
	for _, doc := range docs {
		posts = append(posts, doc.toPost())
	}
	return posts, nil
}

func (r *MongoPostRepository) nextID(ctx context.Context) (int64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var seq sequence
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": postCounterID},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&seq)
	if err != nil {
		return 0, err
	}
	return seq.Seq, nil
}

// likeToRegex turns a SQL LIKE pattern into an anchored regular expression.
func likeToRegex(pattern string) string {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return b.String()
}
