// Command seed creates development identities, their tokens and the
// conversations between every pair of them.
package main

import (
	"chat-hub/auth"
	"chat-hub/domain"
	"chat-hub/repositories"
	"chat-hub/services"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	names := flag.String("names", "Alice Liddell,Bob Morane", "Comma separated list of \"First Last\" names")
	inactive := flag.String("inactive", "", "Comma separated list of names created inactive")
	flag.Parse()

	_ = godotenv.Load()
	config, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromLevel(slog.LevelWarn)

	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).WithLoggingLevel(badger.ERROR))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	identities := repositories.NewIdentityRepository(db)
	tokens := repositories.NewTokenRepository(db)
	conversations := repositories.NewConversationRepository(db, log, nil)
	signer := auth.NewSigner(config.JWTSecret, config.AuthTokenDuration)
	authService := services.NewAuthService(log, signer, tokens, auth.NewTokenLookup(log, signer, tokens, identities))

	disabled := make(map[string]struct{})
	for _, name := range splitList(*inactive) {
		disabled[name] = struct{}{}
	}

	header := fmt.Sprintf("  ====== Seeding %s ======", config.BadgerFilepath)
	if config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	fmt.Println(header)

	users := tablewriter.NewWriter(os.Stdout)
	users.SetHeader([]string{"User ID", "Name", "Active", "Token"})
	users.SetAutoWrapText(false)
	users.SetBorder(false)

	var created []domain.Identity
	for _, name := range splitList(*names) {
		first, last, _ := strings.Cut(name, " ")
		_, isDisabled := disabled[name]
		identity := domain.Identity{
			ID:        uuid.New(),
			FirstName: first,
			LastName:  last,
			Active:    !isDisabled,
			CreatedAt: time.Now().UTC(),
		}
		if err := identities.Create(ctx, identity); err != nil {
			return fmt.Errorf("identity %q: %w", name, err)
		}
		token, err := authService.Issue(ctx, identity)
		if err != nil {
			return fmt.Errorf("token of %q: %w", name, err)
		}
		created = append(created, identity)
		users.Append([]string{identity.ID.String(), identity.DisplayName(), fmt.Sprint(identity.Active), token})
	}
	users.Render()

	chats := tablewriter.NewWriter(os.Stdout)
	chats.SetHeader([]string{"Conversation ID", "Between", "And"})
	chats.SetBorder(false)
	for i := 0; i < len(created); i++ {
		for j := i + 1; j < len(created); j++ {
			conversation, _, err := conversations.GetOrCreate(ctx, []uuid.UUID{created[i].ID, created[j].ID})
			if err != nil {
				return fmt.Errorf("conversation: %w", err)
			}
			chats.Append([]string{conversation.ID.String(), created[i].DisplayName(), created[j].DisplayName()})
		}
	}
	chats.Render()
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
