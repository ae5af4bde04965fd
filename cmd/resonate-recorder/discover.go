// ABOUTME: discover command
// ABOUTME: Browses the local network for recorder control servers
package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Resonate-Protocol/resonate-recorder/internal/discovery"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find recorder control servers on the local network",
	RunE: func(cmd *cobra.Command, args []string) error {
		timeout, _ := cmd.Flags().GetDuration("timeout")

		ctx, cancel := context.WithTimeout(context.Background(), timeout+time.Second)
		defer cancel()

		recorders, err := discovery.NewManager(discovery.Config{}, nil).Browse(ctx, timeout)
		if err != nil {
			return fmt.Errorf("discovery failed: %w", err)
		}
		if len(recorders) == 0 {
			fmt.Println("No recorders found")
			return nil
		}
		for _, r := range recorders {
			fmt.Printf("%s\thttp://%s\t%s\n", r.Name, r.Address(), strings.Join(r.Info, " "))
		}
		return nil
	},
}

func init() {
	discoverCmd.Flags().Duration("timeout", 3*time.Second, "How long to listen for answers")
}
