// Command portalsession runs the portal session core headless: it restores
// or establishes a session, keeps it alive through the expiry polls, and
// tears it down on SIGINT/SIGTERM. It doubles as the reference wiring for
// embedding the library.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/cpope-co/portal-session/credstore"
	"github.com/cpope-co/portal-session/guard"
	"github.com/cpope-co/portal-session/httpapi"
	"github.com/cpope-co/portal-session/internal/config"
	"github.com/cpope-co/portal-session/session"
	"github.com/cpope-co/portal-session/storage"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error running portal session: %s\n", err)
	}
	log.Printf("Portal session stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	_ = godotenv.Load()
	c := config.New()
	displayAppname(c.GetAppName())
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	ctx := context.Background()

	store := newStore(c)
	creds := credstore.New(store, credstore.WithLogger(logger))

	transportGuard := guard.New(http.DefaultTransport, creds, guard.WithLogger(logger))
	httpClient := &http.Client{Transport: transportGuard, Timeout: 30 * time.Second}
	api := httpapi.New(c.GetBaseURL(), httpapi.WithHTTPClient(httpClient))

	manager, err := session.NewManager(api, creds, store,
		headlessPrompter{log: logger},
		logNavigator{log: logger},
		session.WithLogger(logger),
		session.WithPollInterval(c.GetPollInterval()),
	)
	if err != nil {
		return fmt.Errorf("session.NewManager: %w", err)
	}
	transportGuard.Bind(manager)

	manager.Restore(ctx)
	if creds.Identity() == nil {
		if c.GetLoginIdentifier() == "" {
			return errors.New("no stored session and PORTAL_USER/PORTAL_PASSWORD not set")
		}
		id, err := manager.Login(ctx, c.GetLoginIdentifier(), c.GetLoginSecret())
		if err != nil {
			return fmt.Errorf("manager.Login: %w", err)
		}
		logger.Info().Str("name", id.Name).Time("expires", id.ExpiresAt()).Msg("logged in")
	}

	manager.StartSessionCheck(ctx)
	waitForStopSignal()
	manager.Logout(ctx, session.ReasonManual)
	return nil
}

func newStore(c config.Config) storage.Store {
	if c.GetStorageBackend() != "redis" {
		return storage.NewMemStore()
	}

	sessionID := c.GetRedisSessionID()
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	client := redis.NewClient(&redis.Options{Addr: c.GetRedisAddr()})
	return storage.NewRedisStore(client, sessionID)
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}

// headlessPrompter stands in for the portal's warning dialog: with nobody to
// ask, it always chooses to extend the session.
type headlessPrompter struct {
	log zerolog.Logger
}

func (p headlessPrompter) Prompt(_ context.Context, mode session.PromptMode, message string) (session.PromptAction, error) {
	p.log.Info().Str("mode", string(mode)).Msg(message)
	if mode == session.ModeRefresh {
		return session.ActionRefresh, nil
	}
	return session.ActionNone, nil
}

func (p headlessPrompter) Dismiss() {}

type logNavigator struct {
	log zerolog.Logger
}

func (n logNavigator) ToLogin(message session.Message) {
	n.log.Info().Str("severity", string(message.Severity)).Msg(message.Text)
}
