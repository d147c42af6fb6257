package gmail

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/mikey/mailbox-auditor/internal/core"
)

// newHTTPClient builds an authorized HTTP client from the credentials
// file and the cached token. With no cached token it runs the
// out-of-band OAuth flow once and stores the result for later runs.
// Only the read-only Gmail scope is ever requested.
func newHTTPClient(ctx context.Context, credentialsPath, tokenPath string, logger *zap.Logger) (*http.Client, error) {
	b, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}
	oauthConfig, err := google.ConfigFromJSON(b, gmailapi.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}

	token, err := tokenFromFile(tokenPath)
	if err != nil {
		token, err = tokenFromPrompt(ctx, oauthConfig)
		if err != nil {
			return nil, err
		}
		if err := saveToken(tokenPath, token); err != nil {
			logger.Warn("Failed to save OAuth token", zap.Error(err))
		} else {
			logger.Info("Saved OAuth token", zap.String("path", tokenPath))
		}
	}

	return oauthConfig.Client(ctx, token), nil
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, fmt.Errorf("failed to decode token file: %w", err)
	}
	return token, nil
}

// tokenFromPrompt walks the user through the copy-paste OAuth flow on
// the terminal
func tokenFromPrompt(ctx context.Context, oauthConfig *oauth2.Config) (*oauth2.Token, error) {
	authURL := oauthConfig.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Open the following link in your browser, then paste the authorization code:\n%v\n", authURL)

	var code string
	if _, err := fmt.Scan(&code); err != nil {
		return nil, fmt.Errorf("failed to read authorization code: %w", err)
	}

	token, err := oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, core.NewAuthError(fmt.Errorf("failed to exchange authorization code: %w", err))
	}
	return token, nil
}

func saveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}
