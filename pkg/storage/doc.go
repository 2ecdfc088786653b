/*
Package storage provides BoltDB-backed persistence for console state that
outlives a session.

The storage package implements the Store interface using BoltDB (bbolt) as
an embedded, transactional key/value store. Two buckets are kept in
<dataDir>/console.db:

	blobs   resource cache: archive path → raw bytes
	panels  saved panel layouts: panel ID → JSON panel.Layout

The blob bucket backs archive.CachedArchive, so artifacts fetched from the
vehicle's blob store stay available when the vehicle is out of reach. The
panel bucket lets the console restore the operator's views at startup.

# Transaction Model

Reads use db.View and may run concurrently; writes use db.Update and are
serialized. Values returned by Get are copied out of the transaction,
since BoltDB memory is only valid while it is open.

# Usage

	store, err := storage.NewBoltStore(cfg.DataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.SavePanel(p.Layout()); err != nil {
		return err
	}
	layouts, err := store.ListPanels()

Missing keys are reported with an error wrapping ErrNotFound. Deletes are
idempotent. Save is an upsert.
*/
package storage
