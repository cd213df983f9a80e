package googlesheets

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/sheets/v4"
)

// NewSheetsService builds an authenticated Sheets client. Credentials
// come from the GOOGLE_SHEETS_CREDENTIALS_JSON environment variable,
// falling back to a local file path for development setups.
func NewSheetsService(credentialsFile string) (*sheets.Service, error) {
	ctx := context.Background()

	var raw []byte
	if credentialsJSON := os.Getenv("GOOGLE_SHEETS_CREDENTIALS_JSON"); credentialsJSON != "" {
		raw = []byte(credentialsJSON)
	} else {
		b, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("unable to read credentials file: %v", err)
		}
		raw = b
	}

	credentials, err := google.CredentialsFromJSON(ctx, raw, sheets.SpreadsheetsReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to load Google credentials: %v", err)
	}

	client := oauth2.NewClient(ctx, credentials.TokenSource)
	sheetsService, err := sheets.New(client)
	if err != nil {
		return nil, fmt.Errorf("unable to create Google Sheets client: %v", err)
	}

	return sheetsService, nil
}
