package app

import (
	"context"
	"fmt"
	"io"

	"github.com/nhle/tripkeeper/internal/model"
	"github.com/nhle/tripkeeper/internal/relocate"
)

// JourneyStatus is one journey with its row counts.
type JourneyStatus struct {
	Journey model.Journey
	Counts  model.JourneyCounts
}

// Status summarizes the storage state of the running process.
type Status struct {
	DatabasePath  string
	SchemaVersion int
	Relocated     bool
	Journeys      []JourneyStatus
}

// Status reads the current storage state.
func (a *App) Status(ctx context.Context) (Status, error) {
	st := Status{DatabasePath: a.Store.Path()}

	v, err := a.Store.SchemaVersion(ctx)
	if err != nil {
		return st, err
	}
	st.SchemaVersion = v

	if st.Relocated, err = a.Flags.Bool(relocate.FlagKey); err != nil {
		return st, fmt.Errorf("reading relocation flag: %w", err)
	}

	journeys, err := a.Store.ListJourneys(ctx)
	if err != nil {
		return st, err
	}
	for _, j := range journeys {
		counts, err := a.Store.JourneyCounts(ctx, j.ID)
		if err != nil {
			return st, err
		}
		st.Journeys = append(st.Journeys, JourneyStatus{Journey: j, Counts: counts})
	}
	return st, nil
}

// Write prints the status in a human-readable form.
func (st Status) Write(w io.Writer) {
	fmt.Fprintf(w, "database:       %s\n", st.DatabasePath)
	fmt.Fprintf(w, "schema version: %d\n", st.SchemaVersion)
	fmt.Fprintf(w, "relocated:      %t\n", st.Relocated)
	fmt.Fprintf(w, "journeys:       %d\n", len(st.Journeys))
	for _, js := range st.Journeys {
		c := js.Counts
		fmt.Fprintf(w, "  %s  %-24s %s  transports=%d hotels=%d documents=%d notes=%d expenses=%d\n",
			js.Journey.ID, js.Journey.Name, js.Journey.StartDate.Format("2006-01-02"),
			c.Transports, c.Hotels, c.Documents, c.Notes, c.Expenses)
	}
}
