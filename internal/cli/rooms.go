package cli

import (
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"
)

func newRoomsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rooms",
		Short: "Inspect rooms on a running server",
	}

	cmd.AddCommand(newRoomsListCmd())
	cmd.AddCommand(newRoomsGetCmd())
	cmd.AddCommand(newRoomsDrawingCmd())
	cmd.AddCommand(newRoomsInviteCmd())

	return cmd
}

func newRoomsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active rooms",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result RoomList

			if err := client.Get("/api/v1/rooms", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newRoomsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get room details as a spectator sees them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Room

			if err := client.Get("/api/v1/rooms/"+url.PathEscape(args[0]), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newRoomsDrawingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drawing <id>",
		Short: "Show the strokes drawn so far this turn",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Drawing

			if err := client.Get("/api/v1/rooms/"+url.PathEscape(args[0])+"/drawing", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newRoomsInviteCmd() *cobra.Command {
	var (
		outFile string
		size    int
	)

	cmd := &cobra.Command{
		Use:   "invite <id>",
		Short: "Save a QR code that links to the room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fmt.Sprintf("/api/v1/rooms/%s/invite.png?size=%d", url.PathEscape(args[0]), size)
			png, err := client.GetRaw(path)
			if err != nil {
				return err
			}

			if outFile == "" {
				outFile = args[0] + ".png"
			}
			if err := os.WriteFile(outFile, png, 0o644); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("Invite written to " + outFile)
			return nil
		},
	}

	cmd.Flags().StringVar(&outFile, "out", "", "Output file (default: <id>.png)")
	cmd.Flags().IntVar(&size, "size", 256, "Image size in pixels")

	return cmd
}
