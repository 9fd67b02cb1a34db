package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"landsphere/server/internal/models"
)

var csvColumns = []string{
	"Property_ID", "Region", "State", "City", "Property_Type", "Area_SqFt",
	"Price_Per_SqFt", "Current_Price", "Year_Built", "Growth_Rate", "Risk_Score",
}

// CSVReader streams catalog records out of the dataset export.
type CSVReader struct {
	r       *csv.Reader
	columns map[string]int
	line    int
}

func NewCSVReader(r io.Reader) (*CSVReader, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}
	for _, name := range csvColumns {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("catalog header is missing column %q", name)
		}
	}

	return &CSVReader{r: cr, columns: columns, line: 1}, nil
}

// Read returns the next record, or io.EOF when the input is exhausted.
func (c *CSVReader) Read() (*models.PropertyRecord, error) {
	row, err := c.r.Read()
	if err != nil {
		return nil, err
	}
	c.line++

	p := &parser{row: row, columns: c.columns}
	record := &models.PropertyRecord{
		PropertyID:   p.integer("Property_ID"),
		Region:       p.str("Region"),
		State:        p.str("State"),
		City:         p.str("City"),
		PropertyType: p.str("Property_Type"),
		AreaSqFt:     int(p.integer("Area_SqFt")),
		PricePerSqFt: p.amount("Price_Per_SqFt"),
		BasePrice:    p.amount("Current_Price"),
		YearBuilt:    int(p.integer("Year_Built")),
		GrowthRate:   p.number("Growth_Rate"),
		RiskScore:    int(p.integer("Risk_Score")),
	}
	if p.err != nil {
		return nil, fmt.Errorf("catalog line %d: %w", c.line, p.err)
	}
	return record, nil
}

// ReadCSV reads a whole catalog export.
func ReadCSV(r io.Reader) ([]models.PropertyRecord, error) {
	reader, err := NewCSVReader(r)
	if err != nil {
		return nil, err
	}

	var records []models.PropertyRecord
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
}

// parser keeps the first conversion error so a row can be decoded field by field.
type parser struct {
	row     []string
	columns map[string]int
	err     error
}

func (p *parser) str(column string) string {
	return strings.TrimSpace(p.row[p.columns[column]])
}

func (p *parser) integer(column string) int64 {
	v, err := strconv.ParseInt(p.str(column), 10, 64)
	if err != nil {
		// Exports written through a dataframe sometimes carry "1200.0".
		f, ferr := strconv.ParseFloat(p.str(column), 64)
		if ferr != nil {
			p.fail(column, err)
			return 0
		}
		return int64(f)
	}
	return v
}

func (p *parser) number(column string) float64 {
	v, err := strconv.ParseFloat(p.str(column), 64)
	if err != nil {
		p.fail(column, err)
	}
	return v
}

func (p *parser) amount(column string) decimal.Decimal {
	v, err := decimal.NewFromString(p.str(column))
	if err != nil {
		p.fail(column, err)
	}
	return v
}

func (p *parser) fail(column string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s: %w", column, err)
	}
}
