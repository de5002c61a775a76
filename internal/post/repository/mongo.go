package repository

import (
	"context"
	"errors"

	"github.com/akm-xdd/igap-club/internal/post"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepo keeps each post as one document keyed by the string "id" field,
// so ids stay interchangeable with the file and SQL stores.
type MongoRepo struct {
	col *mongo.Collection
}

func NewMongoRepo(ctx context.Context, col *mongo.Collection) (*MongoRepo, error) {
	idx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}
	if _, err := col.Indexes().CreateMany(ctx, idx); err != nil {
		return nil, post.StorageFault("create indexes", err)
	}
	return &MongoRepo{col: col}, nil
}

func (m *MongoRepo) Create(ctx context.Context, p *post.Post) (*post.Post, error) {
	if p.ID == "" {
		p.ID = newID()
	}
	p.Filename = ""
	if _, err := m.col.InsertOne(ctx, p); err != nil {
		return nil, post.StorageFault("insert post", err)
	}
	return clone(p), nil
}

func (m *MongoRepo) Get(ctx context.Context, id string) (*post.Post, error) {
	var p post.Post
	err := m.col.FindOne(ctx, bson.M{"id": id}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, post.ErrNotFound
		}
		return nil, post.StorageFault("find post", err)
	}
	return &p, nil
}

func (m *MongoRepo) List(ctx context.Context) ([]*post.Post, error) {
	opts := options.Find().
		SetProjection(bson.M{"content": 0, "_id": 0}).
		SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := m.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, post.StorageFault("find posts", err)
	}
	defer cur.Close(ctx)
	out := []*post.Post{}
	for cur.Next(ctx) {
		var p post.Post
		if err := cur.Decode(&p); err != nil {
			return nil, post.StorageFault("decode post", err)
		}
		out = append(out, &p)
	}
	if err := cur.Err(); err != nil {
		return nil, post.StorageFault("iterate posts", err)
	}
	return out, nil
}

func (m *MongoRepo) Update(ctx context.Context, id string, patch post.Patch) (*post.Post, error) {
	set := bson.M{}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Tags != nil {
		set["tags"] = patch.Tags
	}
	if patch.ContentChanged() {
		set["content"] = *patch.Content
		set["wordCount"] = patch.WordCount
	}
	if !patch.UpdatedAt.IsZero() {
		set["updatedAt"] = patch.UpdatedAt
	}
	if len(set) == 0 {
		return m.Get(ctx, id)
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p post.Post
	err := m.col.FindOneAndUpdate(ctx, bson.M{"id": id}, bson.M{"$set": set}, opts).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, post.ErrNotFound
		}
		return nil, post.StorageFault("update post", err)
	}
	return &p, nil
}

func (m *MongoRepo) Delete(ctx context.Context, id string) error {
	res, err := m.col.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return post.StorageFault("delete post", err)
	}
	if res.DeletedCount == 0 {
		return post.ErrNotFound
	}
	return nil
}
