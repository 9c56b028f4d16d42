package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"
)

// ShowState prints the persisted notification flags.
func (a *App) ShowState(ctx context.Context, w io.Writer) error {
	states, release := a.newStateStore()
	defer release()

	st, err := states.Load(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "netuid: %s\nlow: %d\nsuper_low: %d\n", a.Config.Subnet.NetUID, flag(st.Low), flag(st.SuperLow))
	return nil
}

// Show prints recent readings.
func (a *App) Show(ctx context.Context, opts ShowOptions, w io.Writer) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show readings")
	}
	if closeStore != nil {
		defer closeStore()
	}

	readings, err := store.ListRecentReadings(ctx, a.Config.Subnet.NetUID, opts.Limit)
	if err != nil {
		return err
	}
	if len(readings) == 0 {
		fmt.Fprintln(w, "no readings found")
		return nil
	}

	writer := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tNetUID\tCost (TAO)\tBand\tLow\tSuperLow\tNotified")

	for _, r := range readings {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			r.ObservedAt.UTC().Format(time.RFC3339),
			r.NetUID,
			r.Cost.StringFixed(9),
			r.Band,
			flag(r.Low),
			flag(r.SuperLow),
			strings.Join(r.Notifications, ","),
		)
	}

	if err := writer.Flush(); err != nil {
		return err
	}

	total, err := store.CountReadings(ctx, a.Config.Subnet.NetUID)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%d of %d readings\n", len(readings), total)
	return nil
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}
