// Package docstore holds the document collections (todo lists, events,
// assignments, exams) as Redis hashes of JSON documents, one hash per
// collection keyed by document id.
package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "docs:"

// Collection names served by the CRUD routes.
const (
	CollectionTodos       = "todolist"
	CollectionEvents      = "events"
	CollectionAssignments = "assignments"
	CollectionExams       = "exams"
)

// Document is one schemaless record. List injects the hash field as "id".
type Document = map[string]any

// Store is a Redis-backed document store.
type Store struct {
	client *redis.Client
}

// Open connects to Redis at url (redis:// form) and verifies the connection.
func Open(ctx context.Context, url string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Store{client: client}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}

// Ping checks connectivity for readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func key(collection string) string {
	return keyPrefix + collection
}

// List returns every document in a collection, id-sorted, with the document
// id injected as the "id" field. An unreadable document is skipped rather
// than failing the listing.
func (s *Store) List(ctx context.Context, collection string) ([]Document, error) {
	raw, err := s.client.HGetAll(ctx, key(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}

	ids := make([]string, 0, len(raw))
	for id := range raw {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	docs := make([]Document, 0, len(raw))
	for _, id := range ids {
		var doc Document
		if err := json.Unmarshal([]byte(raw[id]), &doc); err != nil {
			continue
		}
		doc["id"] = id
		docs = append(docs, doc)
	}
	return docs, nil
}

// Put stores a document under id, overwriting any previous value.
func (s *Store) Put(ctx context.Context, collection, id string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	if err := s.client.HSet(ctx, key(collection), id, data).Err(); err != nil {
		return fmt.Errorf("put %s/%s: %w", collection, id, err)
	}
	return nil
}
