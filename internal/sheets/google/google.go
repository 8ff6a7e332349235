package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"paypulse/internal/core"
	"paypulse/internal/log"
	"paypulse/internal/sheets"
)

var _ sheets.Exporter = (*Client)(nil)

// Credentials locates the OAuth client and the user token. Inline JSON wins
// over files.
type Credentials struct {
	ClientJSON string
	ClientFile string
	TokenJSON  string
	TokenFile  string
}

// OAuthConfig parses the OAuth client for the Sheets scope.
func (c Credentials) OAuthConfig() (*oauth2.Config, error) {
	b, err := readInlineOrFile(c.ClientJSON, c.ClientFile)
	if err != nil {
		return nil, fmt.Errorf("oauth client: %w", err)
	}
	cfg, err := goauth.ConfigFromJSON(b, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse oauth client: %w", err)
	}
	return cfg, nil
}

func (c Credentials) token() (*oauth2.Token, error) {
	b, err := readInlineOrFile(c.TokenJSON, c.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("oauth token: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(b, &tok); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}
	return &tok, nil
}

func readInlineOrFile(inline, path string) ([]byte, error) {
	switch {
	case strings.TrimSpace(inline) != "":
		return []byte(inline), nil
	case path != "":
		return os.ReadFile(path)
	default:
		return nil, errors.New("neither inline JSON nor file configured")
	}
}

// Client writes monthly reports into one tab per user and month.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	logger        *log.Logger

	mu    sync.Mutex
	known map[string]bool // tabs that exist
}

// New builds a Sheets client authorized with the stored user token.
func New(ctx context.Context, spreadsheetID string, creds Credentials, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if logger == nil {
		logger = log.Discard()
	}
	cfg, err := creds.OAuthConfig()
	if err != nil {
		return nil, err
	}
	tok, err := creds.token()
	if err != nil {
		return nil, err
	}

	// The oauth2 transport wraps the pooled client for token refreshes too.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, newHTTPClientWithPooling())
	svc, err := gsheet.NewService(ctx, goption.WithHTTPClient(cfg.Client(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	logger = logger.WithComponent(log.ComponentSheets)
	logger.Info("Google Sheets exporter ready", "spreadsheet_id", spreadsheetID)
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		logger:        logger,
		known:         make(map[string]bool),
	}, nil
}

// newHTTPClientWithPooling creates an HTTP client tuned for the Sheets API.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

// ExportMonthlyReport replaces the contents of the report's tab.
func (c *Client) ExportMonthlyReport(ctx context.Context, userID string, r core.MonthlyReport) (string, error) {
	tab := TabName(userID, r.Month)
	if err := c.ensureTab(ctx, tab); err != nil {
		return "", err
	}

	rows := ReportRows(r)
	target := quoteTab(tab)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, target, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear %s: %w", tab, err)
	}
	// RAW keeps merchant and note text from being read as formulas.
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, target+"!A1", &gsheet.ValueRange{Values: rows}).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("write %s: %w", tab, err)
	}

	ref := fmt.Sprintf("%s!A1:%s%d", target, lastColumn, len(rows))
	c.logger.InfoContext(ctx, "Monthly report exported",
		log.FieldUserID, userID,
		log.FieldMonth, r.Month,
		"range", ref,
		"rows", len(rows))
	return ref, nil
}

func (c *Client) ensureTab(ctx context.Context, tab string) error {
	c.mu.Lock()
	ok := c.known[tab]
	c.mu.Unlock()
	if ok {
		return nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}
	exists := false
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == tab {
			exists = true
			break
		}
	}
	if !exists {
		req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: tab}},
		}}}
		if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
			return fmt.Errorf("add tab %s: %w", tab, err)
		}
		c.logger.InfoContext(ctx, "Created report tab", "tab", tab)
	}

	c.mu.Lock()
	c.known[tab] = true
	c.mu.Unlock()
	return nil
}
