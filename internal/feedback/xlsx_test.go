package feedback

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportXLSX(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "feedback.db"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save(ctx, &Feedback{
		Symptoms:         []string{"Fever", "cough"},
		SuggestedDisease: "Flu",
		ConfirmedDisease: "Flu",
		Reviewer:         "dr.grey",
	}))

	var buf bytes.Buffer
	require.NoError(t, ExportXLSX(ctx, store, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(xlsxSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, xlsxHeaders, rows[0])
	assert.Equal(t, "cough, fever", rows[1][1])
	assert.Equal(t, "Flu", rows[1][3])
	assert.Equal(t, "TRUE", rows[1][4])
	assert.Equal(t, "dr.grey", rows[1][5])
}

func TestExportXLSX_Empty(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "feedback.db"))
	require.NoError(t, err)
	defer store.Close()

	var buf bytes.Buffer
	require.NoError(t, ExportXLSX(context.Background(), store, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(xlsxSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
