package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/reactivity-apps/Ummrah-App-sub001/internal/auth"
	"github.com/reactivity-apps/Ummrah-App-sub001/internal/feed"
	"github.com/reactivity-apps/Ummrah-App-sub001/internal/store"
)

var seedCmd = &cobra.Command{
	Use:          "seed",
	Short:        "Seed a demo trip with members, schedule items and a scheduled broadcast",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		secret, err := resolveJWTSecret()
		if err != nil {
			return err
		}

		db, err := store.Open(dataDir)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		st := store.NewStore(db, feed.NewHub())
		defer st.Close()

		trip, err := st.CreateTrip("Umrah Group March")
		if err != nil {
			return fmt.Errorf("create trip: %w", err)
		}
		if err := st.AddMember(trip.ID, "demo-admin", store.RoleAdmin); err != nil {
			return fmt.Errorf("add admin: %w", err)
		}
		if err := st.AddMember(trip.ID, "demo-viewer", store.RoleMember); err != nil {
			return fmt.Errorf("add viewer: %w", err)
		}

		day := time.Now().UTC().AddDate(0, 0, 1).Format("2006-01-02")
		fajr := time.Date(2000, 1, 1, 5, 0, 0, 0, time.UTC)
		breakfast := fajr.Add(2 * time.Hour)
		lunch := fajr.Add(8 * time.Hour)
		for i, seedItem := range []struct {
			title string
			start time.Time
		}{
			{"Fajr Prayer", fajr},
			{"Breakfast", breakfast},
			{"Lunch", lunch},
		} {
			start := seedItem.start
			if _, err := st.CreateScheduleItem(store.ScheduleItemInput{
				TripID:    trip.ID,
				Title:     seedItem.title,
				Day:       &day,
				Start:     &start,
				SortOrder: i,
			}); err != nil {
				return fmt.Errorf("create schedule item %q: %w", seedItem.title, err)
			}
		}

		sendAt := time.Now().UTC().Add(time.Hour)
		if _, err := st.CreateBroadcast(store.BroadcastInput{
			TripID:       trip.ID,
			Title:        "Departure reminder",
			Body:         "Buses leave from the hotel lobby in one hour.",
			ScheduledFor: &sendAt,
			CreatedBy:    "demo-admin",
		}); err != nil {
			return fmt.Errorf("create broadcast: %w", err)
		}

		adminToken, err := auth.NewToken(secret, "demo-admin", 24*time.Hour)
		if err != nil {
			return fmt.Errorf("issue admin token: %w", err)
		}
		viewerToken, err := auth.NewToken(secret, "demo-viewer", 24*time.Hour)
		if err != nil {
			return fmt.Errorf("issue viewer token: %w", err)
		}

		fmt.Fprintf(os.Stdout, "trip_id:      %s\n", trip.ID)
		fmt.Fprintf(os.Stdout, "admin_token:  %s\n", adminToken)
		fmt.Fprintf(os.Stdout, "viewer_token: %s\n", viewerToken)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&dataDir, "data-dir", "data", "Directory for the SQLite database")
	seedCmd.Flags().StringVar(&jwtSecret, "jwt-secret", "", "HS256 secret for bearer tokens (or set UMRAHSYNC_JWT_SECRET)")
	rootCmd.AddCommand(seedCmd)
}
