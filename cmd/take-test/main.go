// Command take-test lets a candidate list, take and review assigned tests
// from a terminal. It runs the session engine in-process against the HR
// backend; no server is needed.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/stemsi/testcenter/internal/apiclient"
	"github.com/stemsi/testcenter/internal/logger"
	"github.com/stemsi/testcenter/internal/service"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "take-test",
		Short:        "Take assigned recruitment tests from the terminal",
		SilenceUsage: true,
	}

	f := root.PersistentFlags()
	f.String("api-url", "http://localhost:8000/api", "HR backend base URL")
	f.String("token-file", defaultTokenFile(), "File holding the candidate bearer token")
	f.Int("timeout", 15, "Backend request timeout in seconds")
	f.String("log-level", "warn", "Log level (debug, info, warn, error)")
	f.String("log-format", "pretty", "Log format (pretty, json)")

	root.AddCommand(testsCmd(), resultsCmd(), takeCmd(), loginCmd())
	return root
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".testcenter-token"
	}
	return filepath.Join(dir, "testcenter", "token")
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())
	_ = v.BindPFlags(cmd.InheritedFlags())

	v.SetEnvPrefix("TESTCENTER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// app is everything a subcommand needs.
type app struct {
	v         *viper.Viper
	log       zerolog.Logger
	svc       *service.TestCenterService
	candidate service.Candidate
}

func newApp(cmd *cobra.Command) (*app, error) {
	v := viperForCmd(cmd)
	log := logger.SetupTo(os.Stderr, v.GetString("log-level"), v.GetString("log-format"))

	tokenFile := v.GetString("token-file")
	raw, err := readToken(tokenFile)
	if errors.Is(err, apiclient.ErrNoCredential) {
		raw, err = promptToken(tokenFile)
	}
	if err != nil {
		return nil, err
	}

	timeout := v.GetInt("timeout")
	if timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive, got %d", timeout)
	}

	client := apiclient.New(apiclient.Config{
		BaseURL: v.GetString("api-url"),
		Timeout: secondsDuration(timeout),
	}, apiclient.FileToken(tokenFile), log)

	return &app{
		v:         v,
		log:       log,
		svc:       service.NewTestCenterService(nil, nil, nil, service.Options{}, log),
		candidate: service.Candidate{Key: apiclient.CandidateKey(raw), API: client},
	}, nil
}

// readToken loads and checks the persisted token.
func readToken(path string) (string, error) {
	if _, err := apiclient.FileToken(path).Token(); err != nil {
		if errors.Is(err, apiclient.ErrCredentialExpired) {
			return "", fmt.Errorf("%w: run `take-test login` again", err)
		}
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// promptToken reads a token without echo and persists it for later runs.
func promptToken(path string) (string, error) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", fmt.Errorf("%w: no token at %s", apiclient.ErrNoCredential, path)
	}

	fmt.Print("Access token: ")
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}

	raw := strings.TrimSpace(string(b))
	if _, err := apiclient.StaticToken(raw).Token(); err != nil {
		return "", err
	}
	if err := saveToken(path, raw); err != nil {
		return "", err
	}
	return raw, nil
}

func saveToken(path, raw string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(raw+"\n"), 0o600); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Store a new access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v := viperForCmd(cmd)
			path := v.GetString("token-file")
			if _, err := promptToken(path); err != nil {
				return err
			}
			fmt.Println("Token saved to", path)
			return nil
		},
	}
}
