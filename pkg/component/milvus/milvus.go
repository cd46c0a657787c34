// Package milvus wraps the Milvus SDK client for string-keyed documents.
package milvus

import (
	"context"
	"fmt"
	"sort"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	milvusopts "github.com/kart-io/knowledge-clone/pkg/options/milvus"
)

// Field names shared by every collection created through this package.
const (
	FieldID     = "doc_id"
	FieldVector = "embedding"
)

const maxIDLen = 512

// Client wraps the Milvus SDK client.
type Client struct {
	client *milvusclient.Client
	opts   *milvusopts.Options
}

// New creates a new Milvus client.
func New(ctx context.Context, opts *milvusopts.Options) (*Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("milvus options is nil")
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	c, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
		Address:  opts.Address,
		Username: opts.Username,
		Password: opts.Password,
		DBName:   opts.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to milvus: %w", err)
	}

	return &Client{client: c, opts: opts}, nil
}

// Close closes the Milvus client connection.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Close(ctx)
}

// CollectionSchema defines a collection keyed by a VarChar document id.
type CollectionSchema struct {
	Name        string
	Description string
	Dimension   int
	// MetaFields are VarChar columns, name to max length.
	MetaFields map[string]int
}

// EnsureCollection creates, indexes and loads the collection if missing.
func (c *Client) EnsureCollection(ctx context.Context, schema *CollectionSchema) error {
	exists, err := c.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(schema.Name))
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if !exists {
		collSchema := entity.NewSchema().
			WithName(schema.Name).
			WithDescription(schema.Description).
			WithAutoID(false).
			WithField(entity.NewField().
				WithName(FieldID).
				WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(maxIDLen).
				WithIsPrimaryKey(true)).
			WithField(entity.NewField().
				WithName(FieldVector).
				WithDataType(entity.FieldTypeFloatVector).
				WithDim(int64(schema.Dimension)))

		for _, name := range sortedKeys(schema.MetaFields) {
			collSchema.WithField(entity.NewField().
				WithName(name).
				WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(int64(schema.MetaFields[name])))
		}

		if err := c.client.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(schema.Name, collSchema)); err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}

		idxTask, err := c.client.CreateIndex(ctx, milvusclient.NewCreateIndexOption(schema.Name, FieldVector, index.NewAutoIndex(entity.COSINE)))
		if err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
		if err := idxTask.Await(ctx); err != nil {
			return fmt.Errorf("failed to wait for index creation: %w", err)
		}
	}

	loadTask, err := c.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(schema.Name))
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}
	if err := loadTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for collection loading: %w", err)
	}
	return nil
}

// Row is one document to upsert.
type Row struct {
	ID     string
	Vector []float32
	Fields map[string]string
}

// Upsert writes rows by primary key; an existing id is replaced.
func (c *Client) Upsert(ctx context.Context, collectionName string, rows []Row) error {
	columns, err := BuildColumns(rows)
	if err != nil {
		return err
	}

	if _, err := c.client.Upsert(ctx, milvusclient.NewColumnBasedInsertOption(collectionName, columns...)); err != nil {
		return fmt.Errorf("failed to upsert data: %w", err)
	}

	flushTask, err := c.client.Flush(ctx, milvusclient.NewFlushOption(collectionName))
	if err != nil {
		return fmt.Errorf("failed to flush collection: %w", err)
	}
	if err := flushTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for flush: %w", err)
	}
	return nil
}

// BuildColumns converts rows into column data. Every row must carry the
// same field names and vector dimension as the first.
func BuildColumns(rows []Row) ([]column.Column, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("no rows to write")
	}
	dim := len(rows[0].Vector)
	if dim == 0 {
		return nil, fmt.Errorf("row %q has an empty vector", rows[0].ID)
	}
	names := sortedKeys(rows[0].Fields)

	ids := make([]string, len(rows))
	vectors := make([][]float32, len(rows))
	fields := make(map[string][]string, len(names))
	for i, r := range rows {
		if len(r.Vector) != dim {
			return nil, fmt.Errorf("row %q has dimension %d, want %d", r.ID, len(r.Vector), dim)
		}
		if len(r.Fields) != len(names) {
			return nil, fmt.Errorf("row %q has %d fields, want %d", r.ID, len(r.Fields), len(names))
		}
		ids[i] = r.ID
		vectors[i] = r.Vector
		for _, name := range names {
			v, ok := r.Fields[name]
			if !ok {
				return nil, fmt.Errorf("row %q is missing field %q", r.ID, name)
			}
			fields[name] = append(fields[name], v)
		}
	}

	columns := make([]column.Column, 0, len(names)+2)
	columns = append(columns,
		column.NewColumnVarChar(FieldID, ids),
		column.NewColumnFloatVector(FieldVector, dim, vectors),
	)
	for _, name := range names {
		columns = append(columns, column.NewColumnVarChar(name, fields[name]))
	}
	return columns, nil
}

// SearchResult represents a single search hit.
type SearchResult struct {
	ID       string
	Score    float32
	Metadata map[string]string
}

// Search performs a cosine similarity search, best match first.
func (c *Client) Search(ctx context.Context, collectionName string, vector []float32, topK int, outputFields []string) ([]SearchResult, error) {
	results, err := c.client.Search(ctx, milvusclient.NewSearchOption(
		collectionName,
		topK,
		[]entity.Vector{entity.FloatVector(vector)},
	).WithANNSField(FieldVector).
		WithOutputFields(outputFields...))
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	if len(results) == 0 {
		return []SearchResult{}, nil
	}

	rs := results[0]
	out := make([]SearchResult, 0, rs.ResultCount)
	for i := 0; i < rs.ResultCount; i++ {
		hit := SearchResult{Score: rs.Scores[i], Metadata: make(map[string]string)}
		if idCol, ok := rs.IDs.(*column.ColumnVarChar); ok {
			hit.ID = idCol.Data()[i]
		}
		for _, field := range rs.Fields {
			if col, ok := field.(*column.ColumnVarChar); ok {
				hit.Metadata[col.Name()] = col.Data()[i]
			}
		}
		out = append(out, hit)
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
