package store

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/couchbase/gocb/v2"
)

// CouchbaseStore is an implementation of the Store interface on top of
// Couchbase distributed ACID transactions. Dirty reads are plain KV gets.
type CouchbaseStore struct {
	cluster    *gocb.Cluster
	collection *gocb.Collection
	mu         sync.RWMutex
	closed     bool
	txnOpts    gocb.TransactionOptions
}

// CouchbaseStoreConfig configures the Couchbase store
type CouchbaseStoreConfig struct {
	ConnectionString string
	Username         string
	Password         string
	Bucket           string
	Scope            string // Defaults to "_default"
	Collection       string // Defaults to "_default"
	Timeout          time.Duration
	Durability       gocb.DurabilityLevel
}

// couchbaseDoc is the stored document; values are opaque bytes
type couchbaseDoc struct {
	Value []byte `json:"value"`
}

// NewCouchbaseStore connects to the cluster and waits for the bucket
func NewCouchbaseStore(config CouchbaseStoreConfig) (*CouchbaseStore, error) {
	if config.Bucket == "" {
		return nil, errors.New("couchbase bucket name is required")
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.Scope == "" {
		config.Scope = "_default"
	}
	if config.Collection == "" {
		config.Collection = "_default"
	}

	cluster, err := gocb.Connect(config.ConnectionString, gocb.ClusterOptions{
		Authenticator: gocb.PasswordAuthenticator{
			Username: config.Username,
			Password: config.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Couchbase: %w", err)
	}

	bucket := cluster.Bucket(config.Bucket)
	if err := bucket.WaitUntilReady(config.Timeout, nil); err != nil {
		_ = cluster.Close(nil)
		return nil, fmt.Errorf("failed to open bucket %s: %w", config.Bucket, err)
	}

	return &CouchbaseStore{
		cluster:    cluster,
		collection: bucket.Scope(config.Scope).Collection(config.Collection),
		txnOpts: gocb.TransactionOptions{
			DurabilityLevel: config.Durability,
			Timeout:         config.Timeout,
		},
	}, nil
}

// documentID maps a table entry to a valid document key
func documentID(table string, key []byte) string {
	return table + "::" + base64.RawURLEncoding.EncodeToString(key)
}

// Transaction runs fn inside a Couchbase transaction. The SDK may run fn
// several times before it commits.
func (c *CouchbaseStore) Transaction(ctx context.Context, fn TxnFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrStoreClosed
	}

	opts := c.txnOpts
	_, err := c.cluster.Transactions().Run(func(actx *gocb.TransactionAttemptContext) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fn(ctx, &couchbaseTxn{
			actx:       actx,
			collection: c.collection,
			docs:       make(map[string]*gocb.TransactionGetResult),
			removed:    make(map[string]bool),
		})
	}, &opts)
	if err != nil {
		return fmt.Errorf("couchbase transaction failed: %w", err)
	}
	return nil
}

// DirtyRead reads key with a non-transactional get
func (c *CouchbaseStore) DirtyRead(ctx context.Context, table string, key []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, ErrStoreClosed
	}

	res, err := c.collection.Get(documentID(table, key), &gocb.GetOptions{Context: ctx})
	if err != nil {
		if errors.Is(err, gocb.ErrDocumentNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	var doc couchbaseDoc
	if err := res.Content(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse document content: %w", err)
	}
	return doc.Value, nil
}

// Close closes the cluster connection
func (c *CouchbaseStore) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrStoreClosed
	}

	c.closed = true
	return c.cluster.Close(nil)
}

type couchbaseTxn struct {
	actx       *gocb.TransactionAttemptContext
	collection *gocb.Collection
	docs       map[string]*gocb.TransactionGetResult
	removed    map[string]bool
}

// get returns the transactional handle for id, or nil when absent
func (t *couchbaseTxn) get(id string) (*gocb.TransactionGetResult, error) {
	if t.removed[id] {
		return nil, nil
	}
	if doc, ok := t.docs[id]; ok {
		return doc, nil
	}

	doc, err := t.actx.Get(t.collection, id)
	if err != nil {
		if errors.Is(err, gocb.ErrDocumentNotFound) {
			return nil, nil
		}
		return nil, err
	}
	t.docs[id] = doc
	return doc, nil
}

func (t *couchbaseTxn) Read(table string, key []byte, _ LockMode) ([]byte, error) {
	if table == "" {
		return nil, ErrEmptyTable
	}

	doc, err := t.get(documentID(table, key))
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrNotFound
	}

	var content couchbaseDoc
	if err := doc.Content(&content); err != nil {
		return nil, fmt.Errorf("failed to parse document content: %w", err)
	}
	return content.Value, nil
}

func (t *couchbaseTxn) Write(table string, key, value []byte) error {
	if table == "" {
		return ErrEmptyTable
	}

	id := documentID(table, key)
	content := couchbaseDoc{Value: value}

	doc, err := t.get(id)
	if err != nil {
		return err
	}

	if doc == nil {
		res, err := t.actx.Insert(t.collection, id, content)
		if err != nil {
			return fmt.Errorf("failed to insert document: %w", err)
		}
		t.docs[id] = res
		delete(t.removed, id)
		return nil
	}

	res, err := t.actx.Replace(doc, content)
	if err != nil {
		return fmt.Errorf("failed to replace document: %w", err)
	}
	t.docs[id] = res
	return nil
}

func (t *couchbaseTxn) Delete(table string, key []byte) error {
	if table == "" {
		return ErrEmptyTable
	}

	id := documentID(table, key)
	doc, err := t.get(id)
	if err != nil {
		return err
	}
	if doc == nil {
		return nil
	}

	if err := t.actx.Remove(doc); err != nil {
		return fmt.Errorf("failed to remove document: %w", err)
	}
	delete(t.docs, id)
	t.removed[id] = true
	return nil
}
