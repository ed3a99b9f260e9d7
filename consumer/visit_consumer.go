package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/bryanlje/clinic/utils"
)

const visitIndex = "visits"

// VisitEvent is the envelope published on the visit_events topic. Data holds
// the visit response body for created/updated events and a small id-only
// object for deletes, so it stays raw until the event type is known.
type VisitEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type visitRef struct {
	VisitID   int    `json:"visit_id"`
	PatientID string `json:"patient_id"`
}

// VisitConsumer keeps the Redis cache and the Elasticsearch visit index in
// step with the registry by tailing the visit_events topic.
type VisitConsumer struct {
	cache    utils.RedisClient
	es       utils.ElasticsearchClient
	reader   *kafka.Reader
	shutdown chan struct{}
}

func NewVisitConsumer(cache utils.RedisClient, es utils.ElasticsearchClient) *VisitConsumer {
	return &VisitConsumer{
		cache: cache,
		es:    es,
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: []string{os.Getenv("KAFKA_BROKER")},
			Topic:   utils.VisitEventsTopic,
			GroupID: "clinic-group",
			MaxWait: 10 * time.Second,
		}),
		shutdown: make(chan struct{}),
	}
}

func (c *VisitConsumer) Start(ctx context.Context) {
	log.Println("Starting Kafka consumer...")

	go func() {
		for {
			select {
			case <-c.shutdown:
				return
			default:
				c.processMessages(ctx)
			}
		}
	}()
}

func (c *VisitConsumer) Stop() {
	close(c.shutdown)
	if err := c.reader.Close(); err != nil {
		log.Printf("Error closing Kafka reader: %v", err)
	}
}

func (c *VisitConsumer) processMessages(ctx context.Context) {
	msg, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if err == context.Canceled {
			return
		}
		log.Printf("Kafka read error: %v (will retry)", err)
		time.Sleep(5 * time.Second)
		return
	}

	var event VisitEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		log.Printf("Failed to unmarshal Kafka message: %v", err)
		return
	}

	var ref visitRef
	if err := json.Unmarshal(event.Data, &ref); err != nil {
		log.Printf("Failed to read visit id from event: %v", err)
		return
	}

	switch event.Event {
	case "visit_created", "visit_updated":
		c.handleVisitUpserted(ctx, event.Event, ref, event.Data)
	case "visit_deleted":
		c.handleVisitDeleted(ctx, ref)
	default:
		log.Printf("Unknown event type: %s", event.Event)
	}
}

func (c *VisitConsumer) handleVisitUpserted(ctx context.Context, eventType string, ref visitRef, body json.RawMessage) {
	cacheKey := fmt.Sprintf("visit:%d", ref.VisitID)
	if err := c.cache.SetToCache(ctx, cacheKey, string(body), 24*time.Hour); err != nil {
		log.Printf("Failed to cache visit: %v", err)
	}

	if c.es != nil {
		var doc map[string]interface{}
		if err := json.Unmarshal(body, &doc); err != nil {
			log.Printf("Failed to decode visit body for indexing: %v", err)
			return
		}
		if err := c.es.IndexDocument(ctx, visitIndex, fmt.Sprintf("%d", ref.VisitID), doc); err != nil {
			log.Printf("Failed to index visit in Elasticsearch: %v", err)
		}
	}

	log.Printf("Processed %s event for visit ID %d", eventType, ref.VisitID)
}

func (c *VisitConsumer) handleVisitDeleted(ctx context.Context, ref visitRef) {
	cacheKey := fmt.Sprintf("visit:%d", ref.VisitID)
	if err := c.cache.DeleteFromCache(ctx, cacheKey); err != nil {
		log.Printf("Failed to drop visit from cache: %v", err)
	}

	if c.es != nil {
		if err := c.es.DeleteDocument(ctx, visitIndex, fmt.Sprintf("%d", ref.VisitID)); err != nil {
			log.Printf("Failed to delete visit from Elasticsearch: %v", err)
		}
	}

	log.Printf("Processed visit_deleted event for visit ID %d", ref.VisitID)
}
