package bulkimport

import (
	"context"
	"fmt"
	"testing"

	"github.com/xuri/excelize/v2"

	"dispatch/internal/domain"
)

type memStore struct {
	customers []*domain.Customer
	orders    []*domain.Order
	failOrder string
}

func (m *memStore) UpsertCustomer(ctx context.Context, c *domain.Customer) error {
	m.customers = append(m.customers, c)
	return nil
}

func (m *memStore) CreateOrder(ctx context.Context, o *domain.Order) error {
	if o.ID == m.failOrder {
		return fmt.Errorf("duplicate order id")
	}
	m.orders = append(m.orders, o)
	return nil
}

func buildWorkbook(t *testing.T, customerRows, orderRows [][]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	f.DeleteSheet("Sheet1")

	if len(customerRows) > 0 {
		f.NewSheet(customersSheet)
		header := []string{"id", "name", "lat", "lng", "window_open", "window_close", "service_minutes"}
		writeRows(t, f, customersSheet, append([][]string{header}, customerRows...))
	}
	if len(orderRows) > 0 {
		f.NewSheet(ordersSheet)
		header := []string{"id", "customer_id", "delivery_date", "priority", "qty_4kg", "qty_10kg", "qty_16kg", "qty_20kg", "qty_50kg"}
		writeRows(t, f, ordersSheet, append([][]string{header}, orderRows...))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf.Bytes()
}

func writeRows(t *testing.T, f *excelize.File, sheet string, rows [][]string) {
	t.Helper()
	for r, row := range rows {
		for c, val := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				t.Fatalf("CoordinatesToCellName: %v", err)
			}
			if err := f.SetCellValue(sheet, cell, val); err != nil {
				t.Fatalf("SetCellValue: %v", err)
			}
		}
	}
}

func TestImporter_Import_UpsertsCustomersAndOrders(t *testing.T) {
	blob := buildWorkbook(t,
		[][]string{{"cust-1", "Alice", "1.0", "2.0", "480", "1020", "10"}},
		[][]string{{"order-1", "cust-1", "2026-08-01", "normal", "1", "0", "0", "0", "0"}},
	)

	store := &memStore{}
	result, err := New(store).Import(context.Background(), blob)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if result.CustomersUpserted != 1 || result.OrdersCreated != 1 {
		t.Fatalf("got %+v", result)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %+v", result.Errors)
	}
	if store.orders[0].LineItems[domain.Size4kg] != 1 {
		t.Fatalf("expected 1 4kg cylinder, got %+v", store.orders[0].LineItems)
	}
}

func TestImporter_Import_CollectsRowErrorsWithoutAbortingImport(t *testing.T) {
	blob := buildWorkbook(t,
		[][]string{
			{"cust-1", "Alice", "1.0", "2.0", "480", "1020", "10"},
			{"cust-2", "Bob", "not-a-float", "2.0", "480", "1020", "10"},
		},
		nil,
	)

	store := &memStore{}
	result, err := New(store).Import(context.Background(), blob)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if result.CustomersUpserted != 1 {
		t.Fatalf("expected 1 customer upserted, got %d", result.CustomersUpserted)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 row error, got %+v", result.Errors)
	}
}

func TestImporter_Import_RejectsZeroQuantityOrder(t *testing.T) {
	blob := buildWorkbook(t, nil,
		[][]string{{"order-1", "cust-1", "2026-08-01", "normal", "0", "0", "0", "0", "0"}},
	)

	store := &memStore{}
	result, err := New(store).Import(context.Background(), blob)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if result.OrdersCreated != 0 || len(result.Errors) != 1 {
		t.Fatalf("got %+v", result)
	}
}

func TestImporter_Import_MissingSheetsIsNotAnError(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}

	store := &memStore{}
	result, err := New(store).Import(context.Background(), buf.Bytes())
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if result.CustomersUpserted != 0 || result.OrdersCreated != 0 {
		t.Fatalf("got %+v", result)
	}
}
