package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/alanwallace9/agencytoolkit/application/ports"
	"github.com/alanwallace9/agencytoolkit/domain/core/entities"
	"github.com/alanwallace9/agencytoolkit/pkg/ratelimit"
)

// MaxExportRows caps the customer export.
const MaxExportRows = 10000

var customerCSVHeader = []string{"id", "name", "email", "company", "location_id", "tags", "active", "created_at"}

// ExportService produces the customer CSV export.
type ExportService struct {
	customers ports.Repository[*entities.Customer]
	gate      *cooldown
	logger    *zap.Logger
}

// NewExportService creates the export use case gated by window per agency.
func NewExportService(customers ports.Repository[*entities.Customer], gate ratelimit.Gate, window time.Duration, logger *zap.Logger) *ExportService {
	logger = logger.Named("export")
	if window <= 0 {
		window = DefaultExportWindow
	}
	return &ExportService{
		customers: customers,
		gate:      newCooldown("export", gate, window, logger),
		logger:    logger,
	}
}

// SetWindow changes the export cooldown.
func (s *ExportService) SetWindow(d time.Duration) { s.gate.setWindow(d) }

// ExportCustomers returns the tenant's customers as CSV.
func (s *ExportService) ExportCustomers(ctx context.Context, tenant Tenant) ([]byte, error) {
	key := ratelimit.Key("export", tenant.AgencyID)
	if err := s.gate.check(ctx, key); err != nil {
		return nil, err
	}

	customers, err := s.customers.List(ctx, tenant.AgencyID, nil, MaxExportRows)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := WriteCustomersCSV(&buf, customers); err != nil {
		return nil, err
	}
	s.gate.mark(ctx, key)

	s.logger.Info("Customers exported", zap.String("agency_id", tenant.AgencyID), zap.Int("rows", len(customers)))
	return buf.Bytes(), nil
}

// WriteCustomersCSV writes the header and one row per customer. Cells that
// a spreadsheet would evaluate as a formula are prefixed with a quote.
func WriteCustomersCSV(w io.Writer, customers []*entities.Customer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(customerCSVHeader); err != nil {
		return err
	}
	for _, c := range customers {
		record := []string{
			c.ID,
			c.Name,
			c.Email,
			c.Company,
			c.LocationID,
			strings.Join(c.Tags, ";"),
			strconv.FormatBool(c.Active),
			c.CreatedAt.UTC().Format(time.RFC3339),
		}
		for i := range record {
			record[i] = defuseFormula(record[i])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func defuseFormula(cell string) string {
	if cell != "" && strings.ContainsRune("=+-@", rune(cell[0])) {
		return "'" + cell
	}
	return cell
}
