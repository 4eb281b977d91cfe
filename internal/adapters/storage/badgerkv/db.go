// Package badgerkv guarda la bandeja de notificaciones en un Badger embebido,
// para despliegues de un solo nodo sin Postgres.
package badgerkv

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger"
)

type DB struct {
	db       *badger.DB
	cancelGC func()
	wg       sync.WaitGroup
}

// Open abre (o crea) la base en path y arranca el GC del value log.
func Open(path string) (*DB, error) {
	db, err := badger.Open(badger.DefaultOptions(path).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", path, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &DB{db: db, cancelGC: cancel}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				for b.db.RunValueLogGC(0.5) == nil && ctx.Err() == nil {
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return b, nil
}

func (b *DB) Close() error {
	b.cancelGC()
	b.wg.Wait()
	return b.db.Close()
}
