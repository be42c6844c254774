package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/parcelwatch/tracking/pkg/carrier"
)

// deliveriesKey is the fixed key the delivery list lives under.
const deliveriesKey = "deliveries"

// DeliveryStore persists the user's tracked deliveries as a JSON list under
// a fixed key. The tracking core only reads the list; mutation happens
// through the API surface.
type DeliveryStore struct {
	kv KV
}

// NewDeliveryStore creates a delivery store over the given KV.
func NewDeliveryStore(kv KV) *DeliveryStore {
	return &DeliveryStore{kv: kv}
}

// List returns all tracked deliveries in stored order. A missing key is an
// empty list, not an error.
func (s *DeliveryStore) List(ctx context.Context) ([]carrier.Delivery, error) {
	raw, err := s.kv.Get(ctx, deliveriesKey)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var deliveries []carrier.Delivery
	if err := json.Unmarshal(raw, &deliveries); err != nil {
		return nil, fmt.Errorf("decoding delivery list: %w", err)
	}
	return deliveries, nil
}

// Add appends a delivery, minting an id when absent, and returns the stored
// entry.
func (s *DeliveryStore) Add(ctx context.Context, d carrier.Delivery) (carrier.Delivery, error) {
	deliveries, err := s.List(ctx)
	if err != nil {
		return carrier.Delivery{}, err
	}
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return d, s.save(ctx, append(deliveries, d))
}

// Remove deletes the delivery with the given id. Unknown ids are a no-op.
func (s *DeliveryStore) Remove(ctx context.Context, id string) error {
	deliveries, err := s.List(ctx)
	if err != nil {
		return err
	}
	kept := make([]carrier.Delivery, 0, len(deliveries))
	for _, d := range deliveries {
		if d.ID != id {
			kept = append(kept, d)
		}
	}
	return s.save(ctx, kept)
}

func (s *DeliveryStore) save(ctx context.Context, deliveries []carrier.Delivery) error {
	raw, err := json.Marshal(deliveries)
	if err != nil {
		return fmt.Errorf("encoding delivery list: %w", err)
	}
	return s.kv.Set(ctx, deliveriesKey, raw, 0)
}
