package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reactivity-apps/Ummrah-App-sub001/internal/feed"
	"github.com/reactivity-apps/Ummrah-App-sub001/internal/push"
	"github.com/reactivity-apps/Ummrah-App-sub001/internal/scheduler"
	"github.com/reactivity-apps/Ummrah-App-sub001/internal/store"
)

var promoteCmd = &cobra.Command{
	Use:          "promote",
	Short:        "Run one promotion sweep over due broadcasts and exit",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.Open(dataDir)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		st := store.NewStore(db, feed.NewHub())
		defer st.Close()

		var fanout *push.Fanout
		if strings.TrimSpace(pushEndpoint) != "" {
			fanout = push.NewFanout(st, push.NewHTTPTransport(pushEndpoint), slog.Default())
		}

		res := scheduler.New(st, fanout, scheduler.Config{}).RunOnce(cmd.Context())

		errs := make([]string, 0, len(res.Errors))
		for _, err := range res.Errors {
			errs = append(errs, err.Error())
		}
		out, _ := json.MarshalIndent(map[string]any{
			"promoted": res.Promoted,
			"errors":   errs,
		}, "", "  ")
		fmt.Fprintln(os.Stdout, string(out))

		if len(res.Errors) > 0 {
			return fmt.Errorf("sweep finished with %d errors", len(res.Errors))
		}
		return nil
	},
}

func init() {
	promoteCmd.Flags().StringVar(&dataDir, "data-dir", "data", "Directory for the SQLite database")
	promoteCmd.Flags().StringVar(&pushEndpoint, "push-endpoint", "https://exp.host/--/api/v2/push/send", "Push gateway URL; empty disables delivery")
	rootCmd.AddCommand(promoteCmd)
}
