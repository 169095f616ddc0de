package server

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/playperu/beachclub/internal/beachclub"
)

func TestBrokerDeliversByTable(t *testing.T) {
	b := NewBroker(quietLogger(), nil)

	zones := b.Subscribe(beachclub.TableZones)
	orders := b.Subscribe(beachclub.TableOrders)
	defer b.Unsubscribe(beachclub.TableOrders, orders)

	publishRow(b, beachclub.EventInsert, beachclub.TableZones, beachclub.Zone{ID: "z1", Version: 1}, nil)

	select {
	case data := <-zones:
		var ev beachclub.Event
		json.Unmarshal(data, &ev)
		if ev.Table != beachclub.TableZones || ev.EventType != beachclub.EventInsert || ev.Old != nil {
			t.Errorf("event = %+v", ev)
		}
	default:
		t.Fatal("zones subscriber got nothing")
	}
	select {
	case data := <-orders:
		t.Fatalf("orders subscriber got %s", data)
	default:
	}

	b.Unsubscribe(beachclub.TableZones, zones)
	publishRow(b, beachclub.EventDelete, beachclub.TableZones, nil, beachclub.Zone{ID: "z1"})
	select {
	case data := <-zones:
		t.Fatalf("unsubscribed channel got %s", data)
	default:
	}
}

func TestBrokerDropsForFullSubscriber(t *testing.T) {
	b := NewBroker(quietLogger(), nil)
	ch := b.Subscribe(beachclub.TableOrders)

	for i := 0; i < cap(ch)+10; i++ {
		publishRow(b, beachclub.EventUpdate, beachclub.TableOrders, beachclub.Order{ID: "o1", Version: int64(i + 1)}, nil)
	}
	if len(ch) != cap(ch) {
		t.Errorf("buffered %d events, want %d", len(ch), cap(ch))
	}
}

func deadRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         "localhost:1",
		DialTimeout:  10 * time.Millisecond,
		ReadTimeout:  10 * time.Millisecond,
		WriteTimeout: 10 * time.Millisecond,
		MaxRetries:   -1,
	})
}

func TestRelaySkipsOwnMessages(t *testing.T) {
	rdb := deadRedis()
	defer rdb.Close()

	local := NewRelay(rdb, quietLogger())
	remote := NewRelay(rdb, quietLogger())
	b := NewBroker(quietLogger(), local)
	ch := b.Subscribe(beachclub.TableZones)

	event := json.RawMessage(`{"eventType":"insert","table":"zones","new":{"id":"z9"}}`)
	own, _ := json.Marshal(relayMessage{Origin: local.origin, Table: beachclub.TableZones, Event: event})
	foreign, _ := json.Marshal(relayMessage{Origin: remote.origin, Table: beachclub.TableZones, Event: event})

	local.handle(string(own), b)
	if len(ch) != 0 {
		t.Fatal("relay delivered its own message")
	}

	local.handle(string(foreign), b)
	select {
	case data := <-ch:
		if string(data) != string(event) {
			t.Errorf("delivered %s, want %s", data, event)
		}
	default:
		t.Fatal("relay did not deliver a message from another instance")
	}

	local.handle("not json", b)
	if len(ch) != 0 {
		t.Error("relay delivered an undecodable message")
	}
}

func TestRelayPublishFailureKeepsLocalDelivery(t *testing.T) {
	rdb := deadRedis()
	defer rdb.Close()

	b := NewBroker(quietLogger(), NewRelay(rdb, quietLogger()))
	ch := b.Subscribe(beachclub.TableOrders)

	publishRow(b, beachclub.EventInsert, beachclub.TableOrders, beachclub.Order{ID: "o1", Version: 1}, nil)
	if len(ch) != 1 {
		t.Errorf("local subscribers got %d events, want 1", len(ch))
	}
}

func TestRelayRunFailsWithoutRedis(t *testing.T) {
	rdb := deadRedis()
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := NewRelay(rdb, quietLogger()).Run(ctx, NewBroker(quietLogger(), nil)); err == nil {
		t.Error("Run against an unreachable redis returned nil")
	}
}
