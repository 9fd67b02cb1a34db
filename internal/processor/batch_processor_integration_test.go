package processor

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"landsphere/server/internal/catalog"
	"landsphere/server/internal/database"
	"landsphere/server/internal/models"
	"landsphere/server/internal/queue"
)

const sampleCSV = `Property_ID,Region,State,City,Property_Type,Area_SqFt,Price_Per_SqFt,Current_Price,Year_Built,Growth_Rate,Risk_Score
1,West,Maharashtra,Mumbai,Residential,1200,15000,18000000,2019,0.0812,4
2,South,Tamil Nadu,Chennai,Commercial,800,22000.5,17600400,2021,0.1203,7
3,North,Delhi,New Delhi,Residential,1500,18000,27000000,2015,0.0655,3
`

func setupTestDB(t testing.TB) *gorm.DB {
	db, err := database.NewTestDB()
	require.NoError(t, err)

	err = database.MigrateSchema(db)
	require.NoError(t, err)

	return db
}

func generateCSV(count int) string {
	var b strings.Builder
	b.WriteString("Property_ID,Region,State,City,Property_Type,Area_SqFt,Price_Per_SqFt,Current_Price,Year_Built,Growth_Rate,Risk_Score\n")
	for i := 1; i <= count; i++ {
		fmt.Fprintf(&b, "%d,West,Gujarat,Surat,Residential,1000,%d,%d,2018,0.09,5\n", i, 4000+i, (4000+i)*1000)
	}
	return b.String()
}

func TestImportIntegration(t *testing.T) {
	db := setupTestDB(t)
	cfg := testConfig()
	logger := logrus.New()

	processor := NewBatchProcessor(db, queue.NewCatalogQueue(cfg.BatchProcessing.QueueSize+1, logger), cfg, logger)

	reader, err := catalog.NewCSVReader(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	read, err := processor.Import(context.Background(), reader)
	require.NoError(t, err)
	assert.Equal(t, 3, read)

	records, failed := processor.Stats()
	assert.Equal(t, int64(3), records)
	assert.Zero(t, failed)

	var stored models.PropertyRecord
	require.NoError(t, db.Where("city = ?", "Chennai").First(&stored).Error)
	assert.Equal(t, int64(2), stored.PropertyID)
	assert.Equal(t, "Tamil Nadu", stored.State)
	assert.True(t, stored.BasePrice.Equal(decimal.NewFromInt(17600400)))
	assert.Equal(t, 7, stored.RiskScore)
}

func TestImportReplacesExistingRecords(t *testing.T) {
	db := setupTestDB(t)
	cfg := testConfig()

	first := NewBatchProcessor(db, queue.NewCatalogQueue(4, nil), cfg, logrus.New())
	reader, err := catalog.NewCSVReader(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	_, err = first.Import(context.Background(), reader)
	require.NoError(t, err)

	updated := strings.Replace(sampleCSV, "18000000", "19500000", 1)
	second := NewBatchProcessor(db, queue.NewCatalogQueue(4, nil), cfg, logrus.New())
	reader, err = catalog.NewCSVReader(strings.NewReader(updated))
	require.NoError(t, err)
	_, err = second.Import(context.Background(), reader)
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.PropertyRecord{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)

	var mumbai models.PropertyRecord
	require.NoError(t, db.First(&mumbai, "property_id = ?", 1).Error)
	assert.True(t, mumbai.BasePrice.Equal(decimal.NewFromInt(19500000)))
}

func TestImportWithConcurrency(t *testing.T) {
	db := setupTestDB(t)
	cfg := testConfig()
	cfg.BatchProcessing.ProcessorCount = 4
	cfg.BatchProcessing.MaxBatchSize = 25

	processor := NewBatchProcessor(db, queue.NewCatalogQueue(2, nil), cfg, logrus.New())

	reader, err := catalog.NewCSVReader(strings.NewReader(generateCSV(500)))
	require.NoError(t, err)

	read, err := processor.Import(context.Background(), reader)
	require.NoError(t, err)
	assert.Equal(t, 500, read)

	var count int64
	require.NoError(t, db.Model(&models.PropertyRecord{}).Count(&count).Error)
	assert.Equal(t, int64(500), count)

	c, err := catalog.Load(context.Background(), database.New(db, nil))
	require.NoError(t, err)
	assert.Equal(t, 500, c.Len())
}

func TestImportHonoursCancellation(t *testing.T) {
	db := setupTestDB(t)
	processor := NewBatchProcessor(db, queue.NewCatalogQueue(1, nil), testConfig(), logrus.New())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reader, err := catalog.NewCSVReader(strings.NewReader(generateCSV(50)))
	require.NoError(t, err)

	_, err = processor.Import(ctx, reader)
	assert.ErrorIs(t, err, context.Canceled)
}
