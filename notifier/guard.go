package notifier

// GuardState tracks whether a run's speculative Event/Version is still
// in flight.
type GuardState int

const (
	GuardIdle GuardState = iota
	GuardSpeculative
	GuardFinalized
)

// Guard keeps the store free of half-created Event/Version rows. A
// version created by this run is committed speculatively before any
// notification work; on failure Rollback deletes it again (and the
// event, if now orphaned) and commits that deletion. Sent mail cannot
// be unsent, so the guard only restores stored state, it does not
// promise exactly-once delivery.
type Guard struct {
	store *Store
	res   *Resolution
	state GuardState
}

func NewGuard(store *Store, res *Resolution) *Guard {
	return &Guard{store: store, res: res, state: GuardIdle}
}

func (g *Guard) State() GuardState {
	return g.state
}

func (g *Guard) CommitSpeculative() error {
	if g.res.Created {
		if err := g.store.SaveEventVersion(g.res.Event, g.res.Version); err != nil {
			return err
		}
	}
	g.state = GuardSpeculative
	return nil
}

func (g *Guard) Finalize() {
	g.state = GuardFinalized
}

// Rollback deletes the speculative version. Release and renotify runs
// reuse a stored version; that one is not ours to delete.
func (g *Guard) Rollback() error {
	if g.state != GuardSpeculative {
		return nil
	}
	g.state = GuardFinalized
	if !g.res.Created {
		return nil
	}
	return g.store.DeleteVersion(g.res.Version)
}
