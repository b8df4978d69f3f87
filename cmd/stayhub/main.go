// StayHub CLI - command line client for the StayHub marketplace.
package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/StayHubLab/stayhub-go/api"
	"github.com/StayHubLab/stayhub-go/chat"
	"github.com/StayHubLab/stayhub-go/internal/config"
	"github.com/StayHubLab/stayhub-go/internal/creds"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg := config.Load()

	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stderr).
			With().
			Timestamp().
			Logger()
	}

	store, err := creds.Open(cfg.DataDir)
	exitOnError(err)
	defer store.Close()

	client := api.NewClient(cfg.APIURL)
	token, user, err := store.LoadSession()
	exitOnError(err)
	if token != "" {
		client.SetToken(token)
	}

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, logger)
	}

	ctx := context.Background()
	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "health":
		resp, err := client.Health(ctx)
		exitOnError(err)
		fmt.Printf("%s (version %s)\n", resp.Status, resp.Version)

	case "register":
		requireArgs(args, 3, "register <name> <email> <password> [role]")
		role := "tenant"
		if len(args) > 3 {
			role = args[3]
		}
		resp, err := client.Register(ctx, api.RegisterRequest{
			Name:     args[0],
			Email:    args[1],
			Password: args[2],
			Role:     role,
		})
		exitOnError(err)
		exitOnError(store.SaveSession(resp.Token, resp.User))
		fmt.Printf("Registered as %s (%s)\n", resp.User.Name, resp.User.Role)

	case "login":
		requireArgs(args, 2, "login <email> <password>")
		resp, err := client.Login(ctx, args[0], args[1])
		exitOnError(err)
		exitOnError(store.SaveSession(resp.Token, resp.User))
		fmt.Printf("Signed in as %s\n", resp.User.Name)

	case "logout":
		if err := client.Logout(ctx); err != nil {
			logger.Warn().Err(err).Msg("server-side logout failed")
		}
		exitOnError(store.ClearSession())
		fmt.Println("Signed out")

	case "me":
		requireSession(token)
		resp, err := client.Me(ctx)
		exitOnError(err)
		fmt.Printf("%s <%s> role=%s id=%s\n", resp.Name, resp.Email, resp.Role, resp.ID)

	case "rooms":
		filter := api.RoomFilter{AvailableOnly: true}
		if len(args) > 0 {
			filter.City = args[0]
		}
		resp, err := client.ListRooms(ctx, filter)
		exitOnError(err)
		for _, r := range resp.Rooms {
			fmt.Printf("  %s  %-30s %s  %d/mo\n", r.ID, r.Title, r.City, r.Price)
		}
		fmt.Printf("%d rooms\n", resp.Total)

	case "room":
		requireArgs(args, 1, "room <room_id>")
		r, err := client.GetRoom(ctx, args[0])
		exitOnError(err)
		fmt.Printf("%s\n%s, %s\n%d/mo, %.0f m2, landlord %s\n", r.Title, r.Address, r.City, r.Price, r.Area, r.LandlordID)

	case "book":
		requireSession(token)
		requireArgs(args, 3, "book <room_id> <start YYYY-MM-DD> <end YYYY-MM-DD>")
		start, err := time.Parse(time.DateOnly, args[1])
		exitOnError(err)
		end, err := time.Parse(time.DateOnly, args[2])
		exitOnError(err)
		b, err := client.BookRoom(ctx, args[0], start, end)
		exitOnError(err)
		fmt.Printf("Booking %s: %s\n", b.ID, b.Status)

	case "bookings":
		requireSession(token)
		bookings, err := client.ListBookings(ctx)
		exitOnError(err)
		for _, b := range bookings {
			fmt.Printf("  %s  room=%s  %s to %s  %s\n", b.ID, b.RoomID,
				b.StartDate.Format(time.DateOnly), b.EndDate.Format(time.DateOnly), b.Status)
		}

	case "contracts":
		requireSession(token)
		contracts, err := client.ListContracts(ctx)
		exitOnError(err)
		for _, c := range contracts {
			fmt.Printf("  %s  room=%s  %d/mo  %s\n", c.ID, c.RoomID, c.MonthlyRent, c.Status)
		}

	case "sign":
		requireSession(token)
		requireArgs(args, 1, "sign <contract_id>")
		c, err := client.SignContract(ctx, args[0])
		exitOnError(err)
		fmt.Printf("Contract %s: %s\n", c.ID, c.Status)

	case "bills":
		requireSession(token)
		bills, err := client.ListBills(ctx)
		exitOnError(err)
		for _, b := range bills {
			fmt.Printf("  %s  %d  due %s  %s\n", b.ID, b.Amount, b.DueDate.Format(time.DateOnly), b.Status)
		}

	case "pay":
		requireSession(token)
		requireArgs(args, 1, "pay <bill_id>")
		b, err := client.PayBill(ctx, args[0])
		exitOnError(err)
		fmt.Printf("Bill %s: %s\n", b.ID, b.Status)

	case "conversations":
		requireSession(token)
		conversations, err := client.ListConversations(ctx)
		exitOnError(err)
		for _, c := range conversations {
			other := c.Other(user.ID)
			preview := ""
			if c.LastMessage != nil {
				preview = c.LastMessage.Content
			}
			fmt.Printf("  %s  %-20s %s\n", c.ID, other.Name, preview)
		}

	case "chat":
		requireSession(token)
		requireArgs(args, 1, "chat <recipient_user_id>")
		runChat(ctx, cfg, client, token, user, args[0], logger)

	case "help", "--help", "-h":
		usage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

// runChat runs the interactive chat loop with one recipient. A failed
// realtime connect degrades to REST-only sending; the loop keeps
// working either way.
func runChat(ctx context.Context, cfg *config.Config, client *api.Client, token string, self api.User, recipientID string, logger zerolog.Logger) {
	transport := chat.NewWSTransport(cfg.WSURL, logger)
	if err := transport.Connect(token); err != nil {
		logger.Warn().Err(err).Msg("realtime channel unavailable, sending over REST only")
	}

	sess := chat.NewSession(client, transport, self, logger)
	defer sess.Close()

	exitOnError(sess.Start(ctx))

	conv, err := sess.Store.EnsureWith(ctx, recipientID)
	exitOnError(err)
	exitOnError(sess.SelectConversation(ctx, conv.ID))

	other := conv.Other(self.ID)
	fmt.Printf("Chatting with %s. /quit to leave.\n", other.Name)
	for _, m := range sess.Timeline.Messages() {
		printMessage(m)
	}

	unsubMsg := transport.OnNewMessage(func(m api.Message) {
		if m.ConversationID == conv.ID && m.Sender.ID != self.ID {
			printMessage(m)
		}
	})
	defer unsubMsg()

	unsubTyping := transport.OnTyping(func(ev chat.TypingEvent) {
		if ev.ConversationID == conv.ID && ev.Typing {
			fmt.Printf("-- %s is typing --\n", ev.User.Name)
		}
	})
	defer unsubTyping()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "/quit" {
			return
		}
		if line == "" {
			continue
		}
		if err := sess.Send(ctx, line); err != nil {
			// Draft stays with the user; nothing was sent.
			fmt.Printf("!! not sent (%v), your draft: %s\n", err, line)
		}
	}
}

func printMessage(m api.Message) {
	fmt.Printf("[%s] %s: %s\n", m.CreatedAt.Format("15:04:05"), m.Sender.Name, m.Content)
}

// serveMetrics exposes Prometheus metrics for debugging. Loopback use
// only; not started unless METRICS_ADDR is set.
func serveMetrics(addr string, logger zerolog.Logger) {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	logger.Info().Str("addr", addr).Msg("metrics listener started")
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Warn().Err(err).Msg("metrics listener stopped")
	}
}

func usage() {
	fmt.Println(`StayHub CLI - room rental marketplace client

Usage: stayhub <command> [options]

Account:
  register <name> <email> <password> [role]   Create an account (role: tenant|landlord)
  login <email> <password>                    Sign in
  logout                                      Sign out
  me                                          Show profile

Rooms:
  rooms [city]                                List available rooms
  room <id>                                   Show room details
  book <room_id> <start> <end>                Request a booking (YYYY-MM-DD)
  bookings                                    List your bookings

Contracts & billing:
  contracts                                   List contracts
  sign <contract_id>                          Sign a contract
  bills                                       List bills
  pay <bill_id>                               Pay a bill

Chat:
  conversations                               List conversations
  chat <recipient_user_id>                    Open an interactive chat

Environment:
  STAYHUB_API_URL    Backend URL (default: https://api.stayhub.app)
  STAYHUB_WS_URL     Realtime URL (default: wss://api.stayhub.app/ws)
  STAYHUB_DATA_DIR   Local data directory (default: ~/.stayhub)
  METRICS_ADDR       Expose Prometheus metrics on this address`)
}

func requireArgs(args []string, n int, usage string) {
	if len(args) < n {
		fmt.Fprintln(os.Stderr, "Usage: stayhub "+usage)
		os.Exit(1)
	}
}

func requireSession(token string) {
	if token == "" {
		fmt.Fprintln(os.Stderr, "Not signed in. Run: stayhub login <email> <password>")
		os.Exit(1)
	}
	if api.TokenExpired(token) {
		fmt.Fprintln(os.Stderr, "Session expired. Run: stayhub login <email> <password>")
		os.Exit(1)
	}
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
