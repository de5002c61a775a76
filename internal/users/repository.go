package users

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/akm-xdd/igap-club/internal/database"
	"github.com/akm-xdd/igap-club/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserRepository defines persistence operations for users
type UserRepository interface {
	UpsertBySub(ctx context.Context, u *models.User) (*models.User, error)
	// GetBySub returns (nil, nil) when the user is unknown.
	GetBySub(ctx context.Context, sub string) (*models.User, error)
}

// MongoUserRepository implements UserRepository using MongoDB
type MongoUserRepository struct {
	col *mongo.Collection
}

// NewMongoUserRepository creates a new repository for the given collection
func NewMongoUserRepository(col *mongo.Collection) *MongoUserRepository {
	return &MongoUserRepository{col: col}
}

func (r *MongoUserRepository) UpsertBySub(ctx context.Context, u *models.User) (*models.User, error) {
	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"username":  u.Username,
			"email":     u.Email,
			"name":      u.Name,
			"updatedAt": now,
		},
		"$setOnInsert": bson.M{"createdAt": now},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var updated models.User
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": u.ID}, update, opts).Decode(&updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *MongoUserRepository) GetBySub(ctx context.Context, sub string) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, bson.M{"_id": sub}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// SQLUserRepository keeps users in the same database as the posts table so
// that posts.author_id always has a row to reference.
type SQLUserRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

func NewSQLUserRepository(db *sql.DB, d database.Dialect) *SQLUserRepository {
	return &SQLUserRepository{db: db, dialect: d}
}

func (r *SQLUserRepository) UpsertBySub(ctx context.Context, u *models.User) (*models.User, error) {
	now := database.FormatTime(time.Now())
	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(`
		INSERT INTO users (id, username, name, email, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			username = excluded.username,
			name = excluded.name,
			email = excluded.email,
			updated_at = excluded.updated_at`),
		u.ID, u.Username, u.Name, u.Email, now, now,
	)
	if err != nil {
		return nil, err
	}
	return r.GetBySub(ctx, u.ID)
}

func (r *SQLUserRepository) GetBySub(ctx context.Context, sub string) (*models.User, error) {
	var (
		u                models.User
		created, updated string
	)
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(`SELECT id, username, name, email, created_at, updated_at FROM users WHERE id = ?`), sub).
		Scan(&u.ID, &u.Username, &u.Name, &u.Email, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if u.CreatedAt, err = database.ParseTime(created); err != nil {
		return nil, err
	}
	if u.UpdatedAt, err = database.ParseTime(updated); err != nil {
		return nil, err
	}
	return &u, nil
}
