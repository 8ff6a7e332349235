package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	gsheet "paypulse/internal/sheets/google"
)

var (
	flagRedirectPort string
	flagTokenOut     string
	flagLoginTimeout time.Duration
)

var sheetsLoginCmd = &cobra.Command{
	Use:   "sheets-login",
	Short: "Authorize Google Sheets export and save the OAuth token",
	Long: "Runs the OAuth consent flow for the configured Google OAuth client and writes the\n" +
		"resulting token where pulse-worker reads it (GOOGLE_OAUTH_TOKEN_FILE).",
	RunE: runSheetsLogin,
}

func init() {
	sheetsLoginCmd.Flags().StringVar(&flagRedirectPort, "port", "8085", "Local port for the OAuth redirect")
	sheetsLoginCmd.Flags().StringVar(&flagTokenOut, "out", "", "Token file, default GOOGLE_OAUTH_TOKEN_FILE or token.json")
	sheetsLoginCmd.Flags().DurationVar(&flagLoginTimeout, "timeout", 5*time.Minute, "How long to wait for consent")
	rootCmd.AddCommand(sheetsLoginCmd)
}

func runSheetsLogin(cmd *cobra.Command, _ []string) error {
	creds := gsheet.Credentials{
		ClientJSON: os.Getenv("GOOGLE_OAUTH_CLIENT_JSON"),
		ClientFile: os.Getenv("GOOGLE_OAUTH_CLIENT_FILE"),
	}
	cfg, err := creds.OAuthConfig()
	if err != nil {
		return fmt.Errorf("set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE: %w", err)
	}
	// The OAuth client must list this URI among its authorized redirects.
	cfg.RedirectURL = "http://localhost:" + flagRedirectPort + "/callback"

	out := flagTokenOut
	if out == "" {
		out = os.Getenv("GOOGLE_OAUTH_TOKEN_FILE")
	}
	if out == "" {
		out = "token.json"
	}

	state, err := randomState()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), flagLoginTimeout)
	defer cancel()

	code, err := awaitCode(ctx, flagRedirectPort, state, func() {
		fmt.Fprintf(cmd.OutOrStdout(), "Open this URL to authorize:\n%s\n", cfg.AuthCodeURL(state, oauth2.AccessTypeOffline))
	})
	if err != nil {
		return err
	}

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("token exchange: %w", err)
	}
	if err := saveToken(out, tok); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved token to %s\n", out)
	return nil
}

// awaitCode serves the redirect endpoint until it receives an authorization
// code carrying state, or ctx ends.
func awaitCode(ctx context.Context, port, state string, ready func()) (string, error) {
	ln, err := net.Listen("tcp", "localhost:"+port)
	if err != nil {
		return "", fmt.Errorf("listen for oauth redirect: %w", err)
	}

	type result struct {
		code string
		err  error
	}
	results := make(chan result, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var res result
		switch {
		case q.Get("error") != "":
			res.err = fmt.Errorf("oauth error: %s", q.Get("error"))
		case q.Get("state") != state:
			res.err = errors.New("oauth state mismatch")
		case q.Get("code") == "":
			res.err = errors.New("oauth redirect without code")
		default:
			res.code = q.Get("code")
		}
		if res.err != nil {
			http.Error(w, res.err.Error(), http.StatusBadRequest)
		} else {
			fmt.Fprintln(w, "You may close this window and return to the terminal.")
		}
		select {
		case results <- res:
		default:
		}
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	ready()
	select {
	case res := <-results:
		return res.code, res.err
	case <-ctx.Done():
		return "", fmt.Errorf("waiting for authorization: %w", ctx.Err())
	}
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate oauth state: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func saveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		f.Close()
		return fmt.Errorf("write token: %w", err)
	}
	return f.Close()
}
