// Package main provides the dice game command line client.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/dicebox/internal/api/connect"
)

var (
	app    = kingpin.New("dicecli", "dicebox musical dice game client")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	token  = app.Flag("token", "Control token for commands that change the game").Envar("DICEBOX_CONTROL_TOKEN").String()

	statusCmd    = app.Command("status", "Show the grid, selection and play state").Default()
	randomiseCmd = app.Command("randomise", "Draw a new selection")
	toggleCmd    = app.Command("toggle", "Play or stop the selected minuet")

	cellCmd = app.Command("cell", "Play or stop one grid cell")
	cellID  = cellCmd.Arg("id", "Cell ID, e.g. a01").Required().String()

	pieceCmd   = app.Command("piece", "Play or stop a full minuet")
	pieceLabel = pieceCmd.Arg("label", "Piece label, e.g. a").Required().String()

	groupsCmd    = app.Command("groups", "Set the enabled groups (none disables play)")
	groupsLabels = groupsCmd.Arg("labels", "Group labels, space or comma separated").Strings()

	subscribeCmd = app.Command("subscribe", "Follow game notifications")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	client := apiconnect.NewClient(http.DefaultClient, *server, *token)
	ctx := context.Background()
	colorize := shouldColorize(os.Stdout)

	var err error
	switch command {
	case statusCmd.FullCommand():
		err = status(ctx, client, colorize)
	case randomiseCmd.FullCommand():
		err = randomise(ctx, client)
	case toggleCmd.FullCommand():
		err = toggle(ctx, client)
	case cellCmd.FullCommand():
		err = playCell(ctx, client, *cellID)
	case pieceCmd.FullCommand():
		err = playPiece(ctx, client, *pieceLabel)
	case groupsCmd.FullCommand():
		err = setGroups(ctx, client, splitLabels(*groupsLabels))
	case subscribeCmd.FullCommand():
		err = subscribe(ctx, client)
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func status(ctx context.Context, client *apiconnect.Client, colorize bool) error {
	resp, err := client.GetStatus(ctx)
	if err != nil {
		return err
	}
	fmt.Println(renderStatus(resp.Status, colorize))
	return nil
}

func randomise(ctx context.Context, client *apiconnect.Client) error {
	resp, err := client.Randomise(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Selection: %s\n", strings.Join(resp.Selection, " "))
	fmt.Printf("Control: %s\n", resp.PlayLabel)
	return nil
}

func toggle(ctx context.Context, client *apiconnect.Client) error {
	resp, err := client.TogglePlay(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("State: %s\n", resp.State)
	fmt.Printf("Control: %s\n", resp.PlayLabel)
	return nil
}

func playCell(ctx context.Context, client *apiconnect.Client, id string) error {
	resp, err := client.PlayCell(ctx, id)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %s\n", strings.ToLower(id), playingText(resp.Playing))
	return nil
}

func playPiece(ctx context.Context, client *apiconnect.Client, label string) error {
	resp, err := client.PlayPiece(ctx, label)
	if err != nil {
		return err
	}
	fmt.Printf("Minuetto %s: %s\n", strings.ToUpper(label), playingText(resp.Playing))
	return nil
}

func setGroups(ctx context.Context, client *apiconnect.Client, labels []string) error {
	resp, err := client.SetGroups(ctx, labels)
	if err != nil {
		return err
	}
	if len(resp.Enabled) == 0 {
		fmt.Println("Enabled groups: none (play disabled)")
		return nil
	}
	fmt.Printf("Enabled groups: %s\n", strings.Join(resp.Enabled, ","))
	fmt.Printf("Selection: %s\n", strings.Join(resp.Selection, " "))
	return nil
}

func subscribe(ctx context.Context, client *apiconnect.Client) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stream, err := client.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer stream.Close()

	fmt.Println("Subscribed to notifications. Press Ctrl+C to exit.")

	for stream.Receive() {
		fmt.Println(formatEvent(stream.Msg()))
	}

	if ctx.Err() != nil {
		fmt.Println("\nUnsubscribing...")
		return nil
	}
	return stream.Err()
}

// splitLabels accepts "a b", "a,b" and mixtures of both.
func splitLabels(args []string) []string {
	var out []string
	for _, arg := range args {
		for _, l := range strings.Split(arg, ",") {
			if l = strings.TrimSpace(l); l != "" {
				out = append(out, l)
			}
		}
	}
	return out
}

func playingText(playing bool) string {
	if playing {
		return "playing"
	}
	return "stopped"
}
