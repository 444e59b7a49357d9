package services

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanwallace9/agencytoolkit/domain/core/entities"
	apperrors "github.com/alanwallace9/agencytoolkit/pkg/errors"
)

func TestWriteCustomersCSV(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	customers := []*entities.Customer{
		{
			Base:    entities.Base{ID: "c1", CreatedAt: created},
			Name:    `Smith, "Bob"`,
			Email:   "bob@example.test",
			Company: "=HYPERLINK(\"http://evil\")",
			Tags:    []string{"vip", "west"},
			Active:  true,
		},
		{
			Base:       entities.Base{ID: "c2", CreatedAt: created},
			Name:       "Line\nBreak",
			Company:    "+1 Corp",
			LocationID: "@loc",
			Tags:       []string{"-neg"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCustomersCSV(&buf, customers))

	want := strings.Join([]string{
		"id,name,email,company,location_id,tags,active,created_at",
		`c1,"Smith, ""Bob""",bob@example.test,"'=HYPERLINK(""http://evil"")",,vip;west,true,2026-01-02T03:04:05Z`,
		"c2,\"Line\nBreak\",,'+1 Corp,'@loc,'-neg,false,2026-01-02T03:04:05Z",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestExportCustomers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.customers.Create(ctx, f.paidT, &entities.Customer{Name: "Acme"})
	require.NoError(t, err)
	_, err = f.customers.Create(ctx, f.freeT, &entities.Customer{Name: "Not mine"})
	require.NoError(t, err)

	out, err := f.export.ExportCustomers(ctx, f.paidT)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "Acme")

	_, err = f.export.ExportCustomers(ctx, f.paidT)
	require.Error(t, err)
	assert.True(t, apperrors.IsRateLimit(err))
	assert.Equal(t, 30, apperrors.GetAppError(err).RetryAfterSeconds())

	_, err = f.export.ExportCustomers(ctx, f.freeT)
	assert.NoError(t, err, "gated per agency")

	f.export.SetWindow(10 * time.Second)
	f.clock.Advance(10 * time.Second)
	_, err = f.export.ExportCustomers(ctx, f.paidT)
	assert.NoError(t, err)
}
