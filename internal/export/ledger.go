// Package export writes approved expenses to an external Google Sheets ledger.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"expensio/internal/core"
	"expensio/internal/log"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Ledger appends approved expenses as rows to a configured spreadsheet.
type Ledger struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *log.Logger
}

// NewLedger creates a ledger client against the given spreadsheet. Credentials
// come from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewLedger(ctx context.Context, spreadsheetID, sheetName string, logger *log.Logger) (*Ledger, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing ledger spreadsheet id")
	}
	if strings.TrimSpace(sheetName) == "" {
		sheetName = "Approved Expenses"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Ledger{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		logger:        logger.WithComponent(log.ComponentLedger),
	}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// Append adds one row for the expense: id, date, owner email, category,
// description, decimal amount. Rows are inserted below the last data row.
func (l *Ledger) Append(ctx context.Context, e core.Expense) error {
	if l.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if e.Status != core.StatusApproved {
		return fmt.Errorf("expense %d is not approved", e.ID)
	}

	ownerEmail := ""
	if e.Owner != nil {
		ownerEmail = e.Owner.Email
	}

	row := []any{
		e.ID,
		e.Date.Format("2006-01-02"),
		ownerEmail,
		string(e.Category),
		e.Description,
		e.Amount.Decimal(),
	}

	rng := fmt.Sprintf("%s!A:F", l.sheetName)
	vr := &gsheet.ValueRange{Values: [][]any{row}}
	_, err := l.svc.Spreadsheets.Values.Append(l.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to sheet %s: %w", l.sheetName, err)
	}

	l.logger.InfoContext(ctx, "Appended expense to ledger",
		log.FieldExpenseID, e.ID,
		log.FieldAmountCents, e.Amount.Cents)
	return nil
}
