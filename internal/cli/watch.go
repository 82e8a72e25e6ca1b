package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	var (
		name       string
		color      string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "watch <room-id>",
		Short: "Join a room and stream its events",
		Long: `Join a room over the websocket endpoint and print every event it receives.

The watcher takes a player slot, so it can only join rooms still in the lobby.
Events include:
  - joinedRoom: Reply to the join with the full room
  - playerJoined / playerLeft: Membership changed
  - settingsChanged: Host changed the room settings
  - gameStarted / wordSelected / roundStarted: Turn progress
  - updatedDrawingData / guessMade: Activity during a turn
  - gameEnded: The game is over and the room is closed

Press Ctrl+C to leave the room.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return watchRoom(ctx, args[0], name, color, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&name, "name", "watcher", "Display name to join with")
	cmd.Flags().StringVar(&color, "color", "#888888", "Player color")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output events as JSON lines")

	return cmd
}

// WatchEvent is one received frame
type WatchEvent struct {
	Time  time.Time       `json:"time"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func websocketURL(serverURL string) (string, error) {
	u, err := url.Parse(strings.TrimSuffix(serverURL, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path += "/ws"
	return u.String(), nil
}

func watchRoom(ctx context.Context, roomID, name, color string, jsonOutput bool) error {
	wsURL, err := websocketURL(cfg.ServerURL)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	join := map[string]any{
		"event": "joinRoom",
		"data": map[string]any{
			"roomId":     roomID,
			"playerData": map[string]string{"name": name, "color": color},
		},
	}
	if err := conn.WriteJSON(join); err != nil {
		return fmt.Errorf("failed to join: %w", err)
	}

	// Closing the connection unblocks the read loop and leaves the room
	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	if !jsonOutput {
		fmt.Printf("Connected to room %s\n", roomID)
	}

	joined := false
	for {
		var evt WatchEvent
		if err := conn.ReadJSON(&evt); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				if !jsonOutput {
					fmt.Println("Disconnected")
				}
				return nil
			}
			return fmt.Errorf("stream error: %w", err)
		}
		evt.Time = time.Now()
		printEvent(evt, jsonOutput)

		switch evt.Event {
		case "joinedRoom":
			joined = true
		case "error":
			// The join is the only request a watcher sends
			if !joined {
				return joinError(evt.Data)
			}
		case "gameEnded":
			if !jsonOutput {
				fmt.Println("Room closed")
			}
			return nil
		}
	}
}

func joinError(data json.RawMessage) error {
	var body APIError
	if err := json.Unmarshal(data, &body); err != nil || body.Code == "" {
		return errors.New("could not join room")
	}
	return fmt.Errorf("could not join room: %s", body.String())
}

func printEvent(evt WatchEvent, jsonOutput bool) {
	if jsonOutput {
		jsonData, _ := json.Marshal(evt)
		fmt.Println(string(jsonData))
		return
	}

	timestamp := evt.Time.Format("2006-01-02 15:04:05")
	// Truncate data if it's too long for display
	displayData := string(evt.Data)
	if len(displayData) > 100 {
		displayData = displayData[:100] + "..."
	}
	fmt.Printf("[%s] %s: %s\n", timestamp, evt.Event, displayData)
}
