// Package bulkimport parses an uploaded spreadsheet blob into customer and
// order upserts for the async job orchestrator's BulkImport job kind.
package bulkimport

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"dispatch/internal/domain"
	"dispatch/pkg/apperror"
)

const (
	customersSheet = "Customers"
	ordersSheet    = "Orders"
	dateLayout     = "2006-01-02"
)

// RowError records one rejected row without aborting the rest of the
// import.
type RowError struct {
	Sheet string
	Row   int
	Err   string
}

// Result tallies what an import did.
type Result struct {
	CustomersUpserted int
	OrdersCreated     int
	Errors            []RowError
}

// Importer parses the two-sheet workbook format and upserts each valid row.
type Importer struct {
	store Store
}

// New builds an importer over store.
func New(store Store) *Importer {
	return &Importer{store: store}
}

// Import reads blob as an xlsx workbook with "Customers" and "Orders"
// sheets (either may be absent) and upserts every well-formed row,
// collecting the rest as per-row errors rather than failing the whole
// import on one bad row.
func (im *Importer) Import(ctx context.Context, blob []byte) (*Result, error) {
	f, err := excelize.OpenReader(bytes.NewReader(blob))
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeValidation, "opening import workbook")
	}
	defer f.Close()

	result := &Result{}

	if rows, err := f.GetRows(customersSheet); err == nil {
		for i, row := range rows[headerOffset(rows):] {
			rowNum := i + 2
			c, perr := parseCustomerRow(row)
			if perr != nil {
				result.Errors = append(result.Errors, RowError{Sheet: customersSheet, Row: rowNum, Err: perr.Error()})
				continue
			}
			if err := im.store.UpsertCustomer(ctx, c); err != nil {
				result.Errors = append(result.Errors, RowError{Sheet: customersSheet, Row: rowNum, Err: err.Error()})
				continue
			}
			result.CustomersUpserted++
		}
	}

	if rows, err := f.GetRows(ordersSheet); err == nil {
		for i, row := range rows[headerOffset(rows):] {
			rowNum := i + 2
			o, perr := parseOrderRow(row)
			if perr != nil {
				result.Errors = append(result.Errors, RowError{Sheet: ordersSheet, Row: rowNum, Err: perr.Error()})
				continue
			}
			if err := im.store.CreateOrder(ctx, o); err != nil {
				result.Errors = append(result.Errors, RowError{Sheet: ordersSheet, Row: rowNum, Err: err.Error()})
				continue
			}
			result.OrdersCreated++
		}
	}

	return result, nil
}

// headerOffset skips the first row of any non-empty sheet, which is always
// treated as the header row.
func headerOffset(rows [][]string) int {
	if len(rows) == 0 {
		return 0
	}
	return 1
}

// parseCustomerRow expects: id, name, lat, lng, window_open, window_close, service_minutes
func parseCustomerRow(row []string) (*domain.Customer, error) {
	if len(row) < 7 {
		return nil, fmt.Errorf("expected 7 columns, got %d", len(row))
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
	if err != nil {
		return nil, fmt.Errorf("lat: %w", err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(row[3]), 64)
	if err != nil {
		return nil, fmt.Errorf("lng: %w", err)
	}
	open, err := strconv.Atoi(strings.TrimSpace(row[4]))
	if err != nil {
		return nil, fmt.Errorf("window_open: %w", err)
	}
	closeM, err := strconv.Atoi(strings.TrimSpace(row[5]))
	if err != nil {
		return nil, fmt.Errorf("window_close: %w", err)
	}
	service, err := strconv.Atoi(strings.TrimSpace(row[6]))
	if err != nil {
		return nil, fmt.Errorf("service_minutes: %w", err)
	}
	return &domain.Customer{
		ID:             strings.TrimSpace(row[0]),
		Name:           strings.TrimSpace(row[1]),
		Location:       domain.Location{Lat: lat, Lng: lng},
		Window:         domain.Window{OpenMinute: open, CloseMinute: closeM},
		ServiceMinutes: service,
	}, nil
}

// parseOrderRow expects: id, customer_id, delivery_date, priority,
// qty_4kg, qty_10kg, qty_16kg, qty_20kg, qty_50kg. Window and
// ServiceMinutes are left at their zero value; the optimize-day planner
// fills both in from the order's customer record at solve time.
func parseOrderRow(row []string) (*domain.Order, error) {
	if len(row) < 9 {
		return nil, fmt.Errorf("expected 9 columns, got %d", len(row))
	}
	deliveryDate, err := time.Parse(dateLayout, strings.TrimSpace(row[2]))
	if err != nil {
		return nil, fmt.Errorf("delivery_date: %w", err)
	}
	priority := domain.OrderPriority(strings.TrimSpace(row[3]))
	if priority != domain.PriorityNormal && priority != domain.PriorityUrgent {
		return nil, fmt.Errorf("priority: unknown value %q", row[3])
	}

	var lineItems domain.Quantities
	for i := 0; i < domain.NumProductSizes; i++ {
		qty, err := strconv.Atoi(strings.TrimSpace(row[4+i]))
		if err != nil {
			return nil, fmt.Errorf("%s quantity: %w", domain.AllProductSizes[i], err)
		}
		lineItems[i] = qty
	}
	if lineItems.IsZero() {
		return nil, fmt.Errorf("order carries no cylinders")
	}

	now := time.Now()
	return &domain.Order{
		ID:           strings.TrimSpace(row[0]),
		CustomerID:   strings.TrimSpace(row[1]),
		DeliveryDate: deliveryDate,
		LineItems:    lineItems,
		Priority:     priority,
		Status:       domain.OrderDraft,
		Source:       domain.OrderSourceManual,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
