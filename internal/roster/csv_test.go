package roster

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportCSV(t *testing.T) {
	ctx := context.Background()

	t.Run("valid rows inserted with defaults", func(t *testing.T) {
		svc, store := seededService()
		in := strings.Join([]string{
			"D1,Devi,Hosteller,Female,I,ECE,A",
			"D2,Dinesh,Day Scholar,Male,I,ECE,",
		}, "\n")
		res, err := svc.ImportCSV(ctx, strings.NewReader(in))
		require.NoError(t, err)
		assert.Equal(t, 2, res.Inserted)
		assert.Empty(t, res.Skipped)

		d2, err := store.Get(ctx, "D2")
		require.NoError(t, err)
		assert.Equal(t, NoSection, d2.Section)
		assert.Equal(t, "NO", d2.SuperPacc)
	})

	t.Run("existing and in-file duplicates skipped", func(t *testing.T) {
		svc, _ := seededService()
		in := strings.Join([]string{
			"A1,Anil,Hosteller,Male,I,AIDS,A",
			"D1,Devi,Hosteller,Female,I,ECE,A",
			"D1,Devi,Hosteller,Female,I,ECE,A",
		}, "\n")
		res, err := svc.ImportCSV(ctx, strings.NewReader(in))
		require.NoError(t, err)
		assert.Equal(t, 1, res.Inserted)
		require.Len(t, res.Skipped, 2)
		assert.Equal(t, SkippedRow{RollNo: "A1", Reason: "roll number already exists"}, res.Skipped[0])
		assert.Equal(t, SkippedRow{RollNo: "D1", Reason: "duplicate row in file"}, res.Skipped[1])
	})

	t.Run("short and invalid rows skipped without failing the batch", func(t *testing.T) {
		svc, _ := seededService()
		in := strings.Join([]string{
			"D1,Devi",
			"D2,,Hosteller,Male,I,ECE,A",
			"D3,Dinesh,Day Scholar,Male,I,ECE,B",
		}, "\n")
		res, err := svc.ImportCSV(ctx, strings.NewReader(in))
		require.NoError(t, err)
		assert.Equal(t, 1, res.Inserted)
		assert.Len(t, res.Skipped, 2)
	})

	t.Run("empty file", func(t *testing.T) {
		svc, _ := seededService()
		res, err := svc.ImportCSV(ctx, strings.NewReader(""))
		require.NoError(t, err)
		assert.Equal(t, 0, res.Inserted)
		assert.Empty(t, res.Skipped)
	})
}
