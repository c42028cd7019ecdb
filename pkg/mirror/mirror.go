// Package mirror publishes a best-effort copy of device descriptors and
// poll_all measurements to Redis, for external dashboards that want a cheap
// read path without speaking the websocket RPC protocol themselves. It is
// never part of the RPC dispatch path: publish failures are logged and
// swallowed, and a Mirror with no configured address is a silent no-op.
package mirror

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"

	"github.com/stonegate-lab/stonegate/pkg/device"
	"github.com/stonegate-lab/stonegate/pkg/registry"
	"github.com/stonegate-lab/stonegate/pkg/util"
)

const (
	// KeyDescriptors holds the most recent devices.list-shaped descriptor graph.
	KeyDescriptors = "stonegate:descriptors"
	// KeyMeasurements holds the most recent devices.poll-shaped snapshot.
	KeyMeasurements = "stonegate:measurements"
)

// Mirror publishes descriptor and measurement snapshots to Redis. The zero
// value (or one built with an empty addr) is a no-op: every method returns
// immediately without error.
type Mirror struct {
	client *redis.Client
	ctx    context.Context
}

// New returns a Mirror connected to addr. An empty addr disables the mirror;
// its methods become no-ops. The connection itself is lazy — New never
// fails, matching the "optional, best-effort" nature of this feature.
func New(addr string) *Mirror {
	if addr == "" {
		return &Mirror{}
	}
	return &Mirror{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ctx:    context.Background(),
	}
}

// enabled reports whether this Mirror has a configured Redis client.
func (m *Mirror) enabled() bool {
	return m != nil && m.client != nil
}

// Ping verifies connectivity, for startup logging only; callers should not
// treat a failure here as fatal.
func (m *Mirror) Ping() error {
	if !m.enabled() {
		return nil
	}
	return m.client.Ping(m.ctx).Err()
}

// Close releases the underlying Redis connection, if any.
func (m *Mirror) Close() error {
	if !m.enabled() {
		return nil
	}
	return m.client.Close()
}

// PublishDescriptors writes the current descriptor graph. Errors are logged
// and swallowed: a mirror outage must never affect devices.list callers.
func (m *Mirror) PublishDescriptors(descriptors []device.Descriptor) {
	if !m.enabled() {
		return
	}
	m.publish(KeyDescriptors, descriptors)
}

// PublishMeasurements writes the current poll_all snapshot. Errors are
// logged and swallowed for the same reason as PublishDescriptors.
func (m *Mirror) PublishMeasurements(entries []registry.Entry) {
	if !m.enabled() {
		return
	}
	m.publish(KeyMeasurements, entries)
}

func (m *Mirror) publish(key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		util.WithField("key", key).Warnf("mirror: marshal failed: %v", err)
		return
	}
	if err := m.client.Set(m.ctx, key, data, 0).Err(); err != nil {
		util.WithField("key", key).Warnf("mirror: redis set failed: %v", err)
	}
}
