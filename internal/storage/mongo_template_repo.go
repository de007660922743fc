package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/annel0/mmo-worldgen/internal/worldgen"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConfig contains connection settings for MongoDB template repository.
type MongoConfig struct {
	URI        string // e.g. mongodb://localhost:27017
	Database   string // e.g. worldgen
	Collection string // e.g. templates
}

// MongoTemplateRepo implements TemplateRepo on MongoDB backend.
type MongoTemplateRepo struct {
	client     *mongo.Client
	collection *mongo.Collection
	codec      *Codec
}

type templateDoc struct {
	Seed      int64     `bson:"_id"`
	Payload   []byte    `bson:"payload"`
	Size      int       `bson:"size"`
	CreatedAt time.Time `bson:"created_at"`
}

// NewMongoTemplateRepo establishes connection and returns repository.
func NewMongoTemplateRepo(ctx context.Context, cfg MongoConfig, codec *Codec) (*MongoTemplateRepo, error) {
	if cfg.URI == "" {
		cfg.URI = "mongodb://localhost:27017"
	}
	if cfg.Database == "" {
		cfg.Database = "worldgen"
	}
	if cfg.Collection == "" {
		cfg.Collection = "templates"
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	return &MongoTemplateRepo{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		codec:      codec,
	}, nil
}

func (m *MongoTemplateRepo) Save(ctx context.Context, tpl *worldgen.WorldTemplate) error {
	if tpl == nil {
		return fmt.Errorf("пустой шаблон")
	}
	data, err := m.codec.Encode(tpl)
	if err != nil {
		return err
	}

	doc := templateDoc{Seed: tpl.Seed, Payload: data, Size: len(data), CreatedAt: time.Now().UTC()}
	_, err = m.collection.ReplaceOne(ctx, bson.M{"_id": tpl.Seed}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo save seed %d: %w", tpl.Seed, err)
	}
	return nil
}

func (m *MongoTemplateRepo) Load(ctx context.Context, seed int64) (*worldgen.WorldTemplate, error) {
	var doc templateDoc
	err := m.collection.FindOne(ctx, bson.M{"_id": seed}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("seed %d: %w", seed, ErrTemplateNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("mongo load seed %d: %w", seed, err)
	}
	return m.codec.Decode(doc.Payload)
}

func (m *MongoTemplateRepo) Delete(ctx context.Context, seed int64) error {
	res, err := m.collection.DeleteOne(ctx, bson.M{"_id": seed})
	if err != nil {
		return fmt.Errorf("mongo delete seed %d: %w", seed, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("seed %d: %w", seed, ErrTemplateNotFound)
	}
	return nil
}

func (m *MongoTemplateRepo) List(ctx context.Context) ([]TemplateSummary, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetProjection(bson.M{"payload": 0})

	cur, err := m.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo list: %w", err)
	}
	defer cur.Close(ctx)

	out := []TemplateSummary{}
	for cur.Next(ctx) {
		var doc templateDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("mongo decode: %w", err)
		}
		out = append(out, TemplateSummary{Seed: doc.Seed, CreatedAt: doc.CreatedAt, Size: doc.Size})
	}
	return out, cur.Err()
}

func (m *MongoTemplateRepo) Close() error {
	return m.client.Disconnect(context.Background())
}
