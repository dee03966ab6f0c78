// Package loader reads account registry and touchpoint snapshots from CSV or Parquet files.
package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/huangsam/radar/internal/contract"
	"github.com/huangsam/radar/internal/parquet"
	"github.com/huangsam/radar/schema"
)

// ErrMissingColumns is returned when a snapshot lacks required columns.
var ErrMissingColumns = errors.New("missing required columns")

var (
	accountColumns    = []string{schema.ColAccountID, schema.ColCompany}
	touchpointColumns = []string{schema.ColAccountID, schema.ColTouchpointDate, schema.ColInteractionValue}
)

// DetectFormat infers the snapshot format from a file extension.
func DetectFormat(path string) schema.InputFormat {
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		return schema.ParquetInput
	}
	return schema.CSVInput
}

// LoadAccounts reads the account registry. Duplicate account ids keep the first row.
func LoadAccounts(path string) ([]schema.Account, error) {
	var rows []schema.Account
	var err error
	switch DetectFormat(path) {
	case schema.ParquetInput:
		rows, err = loadAccountsParquet(path)
	default:
		rows, err = withFile(path, readAccountsCSV)
	}
	if err != nil {
		return nil, err
	}
	return dedupeAccounts(rows), nil
}

// LoadTouchpoints reads touchpoints. Rows with an unparseable date or value are dropped
// and reported as a warning.
func LoadTouchpoints(path string) ([]schema.Touchpoint, error) {
	switch DetectFormat(path) {
	case schema.ParquetInput:
		return loadTouchpointsParquet(path)
	default:
		return withFile(path, readTouchpointsCSV)
	}
}

func withFile[T any](path string, read func(io.Reader) ([]T, error)) ([]T, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	rows, err := read(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return rows, nil
}

// readAccountsCSV parses a registry CSV with account_id and company columns.
func readAccountsCSV(r io.Reader) ([]schema.Account, error) {
	header, records, err := readCSV(r, accountColumns)
	if err != nil {
		return nil, err
	}

	accounts := make([]schema.Account, 0, len(records))
	dropped := 0
	for _, rec := range records {
		acc := schema.Account{
			AccountID: strings.TrimSpace(field(rec, header, schema.ColAccountID)),
			Company:   strings.TrimSpace(field(rec, header, schema.ColCompany)),
			Tier:      strings.TrimSpace(field(rec, header, schema.ColTier)),
		}
		if acc.AccountID == "" {
			dropped++
			continue
		}
		if raw := strings.TrimSpace(field(rec, header, schema.ColARR)); raw != "" {
			if arr, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(arr) {
				acc.ARR = arr
			}
		}
		if raw := strings.TrimSpace(field(rec, header, schema.ColRenewalDate)); raw != "" {
			if d, err := schema.ParseDate(raw); err == nil {
				acc.RenewalDate = d
			}
		}
		accounts = append(accounts, acc)
	}
	warnDropped("accounts", dropped, len(records))
	return accounts, nil
}

// readTouchpointsCSV parses a touchpoints CSV.
func readTouchpointsCSV(r io.Reader) ([]schema.Touchpoint, error) {
	header, records, err := readCSV(r, touchpointColumns)
	if err != nil {
		return nil, err
	}

	touchpoints := make([]schema.Touchpoint, 0, len(records))
	dropped := 0
	for _, rec := range records {
		tp, ok := parseTouchpoint(
			field(rec, header, schema.ColAccountID),
			field(rec, header, schema.ColTouchpointDate),
			field(rec, header, schema.ColInteractionValue),
		)
		if !ok {
			dropped++
			continue
		}
		touchpoints = append(touchpoints, tp)
	}
	warnDropped("touchpoints", dropped, len(records))
	return touchpoints, nil
}

func parseTouchpoint(accountID, date, value string) (schema.Touchpoint, bool) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return schema.Touchpoint{}, false
	}
	d, err := schema.ParseDate(date)
	if err != nil {
		return schema.Touchpoint{}, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return schema.Touchpoint{}, false
	}
	return schema.Touchpoint{AccountID: accountID, TouchpointDate: d, InteractionValue: v}, true
}

// readCSV reads every record and maps header names to column positions.
func readCSV(r io.Reader, required []string) (map[string]int, [][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headerRow, err := reader.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("%w: empty file, want %s", ErrMissingColumns, strings.Join(required, ", "))
	}
	if err != nil {
		return nil, nil, err
	}

	header := make(map[string]int, len(headerRow))
	for i, name := range headerRow {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, ok := header[name]; !ok {
			header[name] = i
		}
	}
	if err := checkColumns(header, required); err != nil {
		return nil, nil, err
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	return header, records, nil
}

func checkColumns(header map[string]int, required []string) error {
	var missing []string
	for _, col := range required {
		if _, ok := header[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return nil
}

func field(rec []string, header map[string]int, name string) string {
	i, ok := header[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return rec[i]
}

func loadAccountsParquet(path string) ([]schema.Account, error) {
	rows, err := parquet.ReadSnapshotAccounts(path)
	if err != nil {
		return nil, err
	}
	accounts := make([]schema.Account, 0, len(rows))
	for _, row := range rows {
		id := strings.TrimSpace(row.AccountID)
		if id == "" {
			continue
		}
		acc := schema.Account{AccountID: id, Company: row.Company, Tier: row.Tier, ARR: row.ARR}
		if d, err := schema.ParseDate(row.RenewalDate); err == nil {
			acc.RenewalDate = d
		}
		accounts = append(accounts, acc)
	}
	return accounts, nil
}

func loadTouchpointsParquet(path string) ([]schema.Touchpoint, error) {
	rows, err := parquet.ReadSnapshotTouchpoints(path)
	if err != nil {
		return nil, err
	}
	touchpoints := make([]schema.Touchpoint, 0, len(rows))
	dropped := 0
	for _, row := range rows {
		tp, ok := parseTouchpoint(row.AccountID, row.TouchpointDate, strconv.FormatFloat(row.InteractionValue, 'g', -1, 64))
		if !ok {
			dropped++
			continue
		}
		touchpoints = append(touchpoints, tp)
	}
	warnDropped("touchpoints", dropped, len(rows))
	return touchpoints, nil
}

func dedupeAccounts(rows []schema.Account) []schema.Account {
	seen := make(map[string]struct{}, len(rows))
	return slices.DeleteFunc(rows, func(acc schema.Account) bool {
		if _, ok := seen[acc.AccountID]; ok {
			return true
		}
		seen[acc.AccountID] = struct{}{}
		return false
	})
}

func warnDropped(kind string, dropped, total int) {
	if dropped == 0 {
		return
	}
	contract.LogWarn(fmt.Sprintf("Dropped %d of %d %s rows", dropped, total, kind),
		fmt.Errorf("invalid account id, date or value"))
}
