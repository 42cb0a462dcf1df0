package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/YaroslavWork/letter-game-cli/internal/realtime"
	"github.com/YaroslavWork/letter-game-cli/internal/session"
	"github.com/YaroslavWork/letter-game-cli/internal/tui"
	"github.com/YaroslavWork/letter-game-cli/pkg/client"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

const defaultAPIURL = "http://localhost:8000"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// envOr returns the environment value for key, or fallback when unset.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// openLogger writes structured logs to ~/.letters/letters.log; the terminal
// belongs to the TUI.
func openLogger() (zerolog.Logger, func(), error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return zerolog.Nop(), func() {}, fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".letters")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return zerolog.Nop(), func() {}, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "letters.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return zerolog.Nop(), func() {}, fmt.Errorf("open log file: %w", err)
	}

	level, err := zerolog.ParseLevel(envOr("LETTERS_LOG_LEVEL", "info"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(f).Level(level).With().Timestamp().Logger()
	closer := func() {
		f.Close() //nolint:errcheck // best-effort close
	}
	return log, closer, nil
}

func run() error {
	godotenv.Load() //nolint:errcheck // a missing .env is fine

	apiURL := envOr("LETTERS_API_URL", defaultAPIURL)

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "version", "-v":
			fmt.Println("letters " + version)
			return nil
		case "help", "--help", "-h":
			printHelp()
			return nil
		case "login":
			return runLogin(apiURL)
		case "register":
			return runRegister(apiURL)
		case "logout":
			return runLogout()
		case "lang":
			return runLang(os.Args[2:])
		default:
			fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
			printHelp()
			os.Exit(2)
		}
	}

	log, closeLog, err := openLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	store, err := openStore()
	if err != nil {
		return err
	}

	// The auth-expired callback is bound after the app exists; the client
	// only ever fires it once both are wired.
	var notifyExpired func()
	c := client.New(apiURL, store, log, func() {
		if notifyExpired != nil {
			notifyExpired()
		}
	})
	conn := realtime.New(log)

	app := tui.NewApp(c, conn, store, log)
	notifyExpired = app.NotifyAuthExpired

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui error: %w", err)
	}
	conn.Disconnect()
	return nil
}

func openStore() (*session.Store, error) {
	path, err := session.DefaultPath()
	if err != nil {
		return nil, fmt.Errorf("resolve session path: %w", err)
	}
	store, err := session.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	return store, nil
}

// runLogin signs in from the shell and stores the credential pair, so the
// next plain `letters` run starts signed in.
func runLogin(apiURL string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	reader := bufio.NewReader(os.Stdin)
	fmt.Print("username: ")
	username, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("read username: %w", err)
	}
	fmt.Print("password: ")
	password, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	c := client.New(apiURL, store, zerolog.Nop(), nil)
	if _, err := c.Login(context.Background(), strings.TrimSpace(username), strings.TrimSpace(password)); err != nil {
		return fmt.Errorf("login: %s", client.UserMessage(err, "could not sign in"))
	}
	fmt.Println("signed in")
	return nil
}

// runRegister creates an account and signs straight into it.
func runRegister(apiURL string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	reader := bufio.NewReader(os.Stdin)
	fmt.Print("username: ")
	username, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("read username: %w", err)
	}
	fmt.Print("password: ")
	password, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)

	c := client.New(apiURL, store, zerolog.Nop(), nil)
	if err := c.Register(context.Background(), username, password); err != nil {
		return fmt.Errorf("register: %s", client.UserMessage(err, "could not create the account"))
	}
	if _, err := c.Login(context.Background(), username, password); err != nil {
		return fmt.Errorf("login: %s", client.UserMessage(err, "account created, but sign-in failed"))
	}
	fmt.Println("account created, signed in")
	return nil
}

func runLogout() error {
	store, err := openStore()
	if err != nil {
		return err
	}
	if err := store.ClearTokens(); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	if err := store.ClearRoom(); err != nil {
		return fmt.Errorf("clear room slot: %w", err)
	}
	fmt.Println("signed out")
	return nil
}

// runLang shows or sets the preferred display language.
func runLang(args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	if len(args) == 0 {
		lang := store.Language()
		if lang == "" {
			lang = "en"
		}
		fmt.Println(lang)
		return nil
	}
	lang := strings.ToLower(strings.TrimSpace(args[0]))
	if len(lang) != 2 {
		return fmt.Errorf("language must be a two-letter code, got %q", args[0])
	}
	if err := store.SetLanguage(lang); err != nil {
		return fmt.Errorf("store language: %w", err)
	}
	fmt.Println(lang)
	return nil
}

func printHelp() {
	fmt.Println(`letters — a fast-thinking word game for the terminal

Usage:
  letters            Play (interactive TUI)
  letters login      Sign in from the shell
  letters register   Create an account and sign in
  letters logout     Clear the stored session
  letters lang [cc]  Show or set the preferred display language
  letters version    Show version

Environment:
  LETTERS_API_URL    Backend base URL (default ` + defaultAPIURL + `)
  LETTERS_LOG_LEVEL  Log level for ~/.letters/letters.log (default info)`)
}
