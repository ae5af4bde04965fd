// ABOUTME: devices command
// ABOUTME: Lists capture devices known to the default backend
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Resonate-Protocol/resonate-recorder/pkg/capture"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List input devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		devices, err := capture.ListMalgoDevices()
		if err != nil {
			return fmt.Errorf("failed to list devices: %w", err)
		}
		if len(devices) == 0 {
			fmt.Println("No input devices found")
			return nil
		}
		for _, d := range devices {
			marker := " "
			if d.IsDefault {
				marker = "*"
			}
			fmt.Printf("%s %s\n", marker, d.Name)
		}
		return nil
	},
}
