package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/playperu/beachclub/internal/beachclub"
)

type demoZone struct {
	prefix   string
	typ      beachclub.ZoneType
	count    int
	capacity int
}

var demoFloor = []demoZone{
	{"VIP", beachclub.ZoneVIPCabin, 2, 8},
	{"Cabin", beachclub.ZoneStandardCabin, 4, 6},
	{"Umbrella", beachclub.ZoneSunshade, 8, 4},
	{"Hut", beachclub.ZoneSeaHut, 3, 2},
}

// SeedDemo creates the demo floor when no zones exist. Idempotent.
func SeedDemo(ctx context.Context, logger *slog.Logger, store *DocStore) error {
	n, err := countDocs(ctx, store, zoneTable)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	created := 0
	for _, d := range demoFloor {
		for i := 1; i <= d.count; i++ {
			body, _ := json.Marshal(map[string]any{
				"name":     fmt.Sprintf("%s %d", d.prefix, i),
				"type":     d.typ,
				"capacity": d.capacity,
			})
			if _, err := createDoc(ctx, store, zoneTable, body); err != nil {
				return fmt.Errorf("seeding zone: %w", err)
			}
			created++
		}
	}

	logger.Info("demo floor seeded", "zones", created)
	return nil
}
