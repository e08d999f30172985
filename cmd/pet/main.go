package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"deskpet-sync/internal/config"
	"deskpet-sync/internal/petsync"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// staticScreen stands in for the UI/movement layer: a fixed desktop
// area with the local pet parked near the bottom center.
type staticScreen struct{}

func (staticScreen) Bounds() petsync.Screen {
	return petsync.Screen{Width: 1920, Height: 1080}
}

func (staticScreen) PetPosition() petsync.Point {
	return petsync.Point{X: 960, Y: 900}
}

func main() {
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	engine := petsync.New(petsync.Config{
		ServerURL:         cfg.Client.ServerURL,
		StateFile:         cfg.Client.StateFile,
		RequestTimeout:    cfg.Client.RequestTimeout.Std(0),
		HeartbeatInterval: cfg.Client.HeartbeatInterval.Std(0),
		PollInterval:      cfg.Client.PollInterval.Std(0),
		StaleWindow:       cfg.Client.StaleWindow.Std(0),
		FriendsRefresh:    cfg.Client.FriendsRefresh.Std(0),
		VisitMinDelay:     cfg.Client.VisitMinDelay.Std(0),
		VisitMaxDelay:     cfg.Client.VisitMaxDelay.Std(0),
		VisitProbability:  cfg.Client.VisitProbability,
	}, staticScreen{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine.Start(ctx)

	if pet, ok := engine.Identity(); ok {
		fmt.Printf("Welcome back, %s! Your code is %s\n", pet.Name, pet.Code)
	} else {
		fmt.Println("No pet yet. Use: register <name> <breed> <color>")
	}

	go printNotices(engine)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	lines := make(chan string)
	go readLines(lines)

	for {
		select {
		case <-quit:
			fmt.Println("Bye!")
			engine.Stop()
			return
		case line, ok := <-lines:
			if !ok {
				engine.Stop()
				return
			}
			runCommand(ctx, engine, line)
		}
	}
}

func readLines(out chan<- string) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		out <- scanner.Text()
	}
	close(out)
}

func printNotices(engine *petsync.Engine) {
	for notice := range engine.Notices() {
		switch notice.Kind {
		case petsync.NoticeVisitorArrived:
			fmt.Printf("* %s came to visit!\n", notice.Visit.Name)
		case petsync.NoticeVisitorMessage:
			fmt.Printf("* %s says: %s\n", notice.Visit.Name, notice.Visit.Message)
		case petsync.NoticeVisitorDeparted:
			fmt.Printf("* %s went home.\n", notice.Visit.Name)
		}
	}
}

func runCommand(ctx context.Context, engine *petsync.Engine, line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}

	switch fields[0] {
	case "register":
		if len(fields) < 4 {
			fmt.Println("usage: register <name> <breed> <color>")
			return
		}
		pet, err := engine.Register(ctx, fields[1], fields[2], fields[3])
		if err != nil {
			fmt.Println("error:", err)
			return
		}
		fmt.Printf("Registered %s. Share your code: %s\n", pet.Name, pet.Code)
	case "rename":
		if len(fields) < 2 {
			fmt.Println("usage: rename <name>")
			return
		}
		if err := engine.Rename(ctx, fields[1]); err != nil {
			fmt.Println("error:", err)
		}
	case "add":
		if len(fields) < 2 {
			fmt.Println("usage: add <code>")
			return
		}
		peer, err := engine.AddFriend(ctx, fields[1])
		if err != nil {
			fmt.Println("error:", err)
			return
		}
		fmt.Printf("Added %s (%s)\n", peer.Name, peer.ID)
	case "accept":
		if len(fields) < 2 {
			fmt.Println("usage: accept <peer-id>")
			return
		}
		if err := engine.AcceptFriend(ctx, fields[1]); err != nil {
			fmt.Println("error:", err)
		}
	case "remove":
		if len(fields) < 2 {
			fmt.Println("usage: remove <peer-id>")
			return
		}
		if err := engine.RemoveFriend(ctx, fields[1]); err != nil {
			fmt.Println("error:", err)
		}
	case "friends":
		for _, f := range engine.ListFriends() {
			online := "offline"
			if f.EffectiveOnline {
				online = "online"
			}
			fmt.Printf("%s  %s  %s  %s\n", f.Pet.ID, f.Pet.Name, f.Status, online)
		}
	case "hangout":
		if len(fields) < 2 {
			fmt.Println("usage: hangout <peer-id>")
			return
		}
		if err := engine.StartHangout(ctx, fields[1]); err != nil {
			fmt.Println("error:", err)
		}
	case "chat":
		if len(fields) < 2 {
			fmt.Println("usage: chat <text>")
			return
		}
		if err := engine.ChatWithVisitor(ctx, strings.Join(fields[1:], " ")); err != nil {
			fmt.Println("error:", err)
		}
	case "sendhome":
		if err := engine.SendVisitorHome(); err != nil {
			fmt.Println("error:", err)
		}
	case "visitor":
		if snap, ok := engine.CurrentVisitor(); ok {
			fmt.Printf("%s is %s at (%.0f, %.0f)\n", snap.Visit.Name, snap.State, snap.Position.X, snap.Position.Y)
		} else {
			fmt.Println("nobody here right now")
		}
	case "status":
		if engine.Connected() {
			fmt.Println("connected")
		} else {
			fmt.Println("not connected")
		}
	default:
		fmt.Println("commands: register rename add accept remove friends hangout chat sendhome visitor status")
	}
}
