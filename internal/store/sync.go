package store

import (
	"context"
	"log"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// syncConcurrency bounds the parallel uploads during backup sync.
const syncConcurrency = 4

// SyncBackup uploads apps that exist only in the local backup into the
// database. It runs at startup so saves made during a database outage are
// recovered. Returns the number of apps uploaded.
func SyncBackup(ctx context.Context, db *DB, backup *LocalBackup) (int, error) {
	ids, err := backup.ListAppIDs()
	if err != nil {
		return 0, err
	}

	var synced atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(syncConcurrency)

	for _, id := range ids {
		g.Go(func() error {
			existing, err := db.GetApp(ctx, id)
			if err != nil {
				return err
			}
			if existing != nil {
				return nil
			}

			app, err := backup.LoadApp(id)
			if err != nil || app == nil {
				return err
			}
			if err := db.SaveApp(ctx, app); err != nil {
				return err
			}
			log.Printf("[sync] restored app %s from local backup", id)
			synced.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return int(synced.Load()), err
	}
	return int(synced.Load()), nil
}
