package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v9"
)

type ESConfig struct {
	URL      string
	User     string
	Password string
	// IndexPrefix is prepended to the topic name to form the index, e.g. "snapbuy-auth-".
	IndexPrefix string
}

// Indexer stores every event as a document so sign-in activity can be searched later.
type Indexer struct {
	client *elasticsearch.Client
	prefix string
}

func NewIndexer(cfg ESConfig) (*Indexer, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.User,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: create client: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("elasticsearch: info returned %s: %s", res.Status(), body)
	}

	return &Indexer{client: client, prefix: cfg.IndexPrefix}, nil
}

func (i *Indexer) PublishEvent(ctx context.Context, topic, key string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("elasticsearch: json.Marshal failed: %w", err)
	}

	index := i.prefix + topic
	res, err := i.client.Index(index, bytes.NewReader(body), i.client.Index.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch: index %s: %w", index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch: index %s returned %s", index, res.Status())
	}
	return nil
}
