package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"

	"stumart/internal/api"
	"stumart/internal/auth"
	"stumart/internal/chat"
	"stumart/internal/config"
	"stumart/internal/domain"
	"stumart/internal/items"
	"stumart/internal/obs"
	"stumart/internal/unread"
)

func main() {
	cfg := config.Load()
	logger := obs.NewLogger(cfg.Env)

	tokens := auth.NewProvider(logger)
	tokens.SetTokens(os.Getenv("STUMART_TOKEN"), os.Getenv("STUMART_REFRESH_TOKEN"))

	client, err := api.NewClient(cfg.APIBaseURL, tokens, cfg.HTTPTimeout, logger)
	if err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	aggregator := unread.New(client, tokens, logger)
	roomList := chat.NewRoomList(client, aggregator, tokens, logger)
	store := items.NewStore(client, logger)

	ctx := context.Background()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "rooms":
		runRooms(ctx, roomList, tokens)
	case "chat":
		if len(os.Args) < 3 {
			usage()
			os.Exit(2)
		}
		runChat(ctx, cfg, client, roomList, aggregator, tokens, os.Args[2], logger)
	case "start-chat":
		if len(os.Args) < 3 {
			usage()
			os.Exit(2)
		}
		runStartChat(ctx, cfg, client, roomList, aggregator, tokens, os.Args[2:], logger)
	case "items":
		screen := "home"
		if len(os.Args) > 2 {
			screen = os.Args[2]
		}
		runItems(ctx, store, screen)
	case "unread":
		aggregator.Refresh(ctx)
		fmt.Printf("chat: %d  notifications: %d  total: %d\n",
			aggregator.ChatCount(), aggregator.NotificationCount(), aggregator.Total())
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: stumart <command>

  rooms                          list your chat rooms
  chat <room-id>                 open a chat room (stdin sends, /quit leaves)
  start-chat <user-id> [item-id] open (or create) a chat with a user about an item
  items [screen]                 list items for a screen (home|favorites|myItems|reported)
  unread                         show unread counts`)
}

func runRooms(ctx context.Context, roomList *chat.RoomList, tokens *auth.Provider) {
	userID, err := tokens.UserID()
	if err != nil {
		fmt.Fprintln(os.Stderr, "not logged in: set STUMART_TOKEN")
		os.Exit(1)
	}

	roomList.Fetch(ctx)
	rooms := roomList.Rooms()
	if len(rooms) == 0 {
		fmt.Println("No chat rooms available")
		return
	}
	for _, room := range rooms {
		other := room.Other(userID)
		line := fmt.Sprintf("%s  %s  %d messages", room.ID, other.Username, room.MessageCount)
		if room.ItemTitle != "" {
			line += "  (" + room.ItemTitle + ")"
		}
		if room.UnreadCount > 0 {
			line += fmt.Sprintf("  [%d unread]", room.UnreadCount)
		}
		fmt.Println(line)
	}
}

func runChat(ctx context.Context, cfg *config.Config, client *api.Client, roomList *chat.RoomList, aggregator *unread.Aggregator, tokens *auth.Provider, roomID string, logger *slog.Logger) {
	roomList.Fetch(ctx)

	var params chat.SessionParams
	found := false
	for _, room := range roomList.Rooms() {
		if room.ID == roomID {
			p, err := roomList.Enter(ctx, room)
			if err != nil {
				fmt.Fprintln(os.Stderr, "not logged in: set STUMART_TOKEN")
				os.Exit(1)
			}
			params = p
			found = true
			break
		}
	}
	if !found {
		fmt.Fprintf(os.Stderr, "no such room: %s\n", roomID)
		os.Exit(1)
	}

	var dialer chat.Dialer
	if cfg.ChatEnabled {
		dialer = chat.NewDialer()
	}

	session := chat.NewSession(client, dialer, params, logger)
	if !session.Available() {
		fmt.Println("Chat is not available on this platform.")
		return
	}

	// Print whatever the session has beyond what we already printed. History
	// install replaces the whole list, so start over when it shrinks.
	var mu sync.Mutex
	printed := 0
	session.SetOnChange(func() {
		mu.Lock()
		defer mu.Unlock()
		msgs := session.Messages()
		if len(msgs) < printed {
			printed = 0
		}
		for _, m := range msgs[printed:] {
			fmt.Printf("[%s] %s: %s\n", m.Timestamp, m.SenderUsername, m.Content)
		}
		printed = len(msgs)
	})

	go func() {
		aggregator.Run(ctx, cfg.UnreadPollEvery, tokens.Changed())
	}()

	if err := session.Open(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "could not open chat: %v\n", err)
		os.Exit(1)
	}
	defer session.Close()

	fmt.Printf("Chatting with %s. Type to send, /quit to leave.\n", params.OtherUsername)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := scanner.Text()
		if text == "/quit" {
			return
		}
		if err := session.Send(ctx, text); err != nil {
			fmt.Fprintf(os.Stderr, "not sent: %v\n", err)
		}
	}
}

// runStartChat resolves (or creates) the room for a seller/buyer pair before
// handing off to the normal chat flow.
func runStartChat(ctx context.Context, cfg *config.Config, client *api.Client, roomList *chat.RoomList, aggregator *unread.Aggregator, tokens *auth.Provider, args []string, logger *slog.Logger) {
	otherUserID, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad user id %q\n", args[0])
		os.Exit(2)
	}
	var itemID *int
	if len(args) > 1 {
		id, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "bad item id %q\n", args[1])
			os.Exit(2)
		}
		itemID = &id
	}

	roomID, err := client.GetOrCreateRoom(ctx, otherUserID, itemID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not start chat: %v\n", err)
		os.Exit(1)
	}
	runChat(ctx, cfg, client, roomList, aggregator, tokens, roomID, logger)
}

func parseScreen(s string) (domain.ScreenID, error) {
	switch domain.ScreenID(s) {
	case domain.ScreenHome, domain.ScreenFavorites, domain.ScreenMyItems, domain.ScreenReported:
		return domain.ScreenID(s), nil
	default:
		return "", fmt.Errorf("unknown screen %q (want home|favorites|myItems|reported)", s)
	}
}

func runItems(ctx context.Context, store *items.Store, screen string) {
	id, err := parseScreen(screen)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	store.Load(ctx, id)
	listed := store.Items(id)
	if len(listed) == 0 {
		fmt.Println("No items found")
		return
	}
	for _, item := range listed {
		flags := ""
		if item.IsFavorited {
			flags += " ♥"
		}
		if item.IsReported {
			flags += " !"
		}
		if item.IsSold {
			flags += " sold"
		}
		fmt.Printf("%d  %s  $%.2f%s\n", item.ID, item.Title, item.Price, flags)
	}
	if store.HasMore(id) {
		fmt.Println("...")
	}
}
