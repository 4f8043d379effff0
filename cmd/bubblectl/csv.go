package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"BubbleScope/internal/domain/models"
	"BubbleScope/pkg/util"
)

var (
	timeColumns  = []string{"date", "time", "timestamp", "datetime"}
	priceColumns = []string{"close", "adj close", "adj_close", "price"}
)

// loadCSV reads a date,close series. A header row is optional; when present
// the date and close columns are found by name. Rows without a price
// ("", "null", "NaN") are skipped. The symbol defaults to the file name.
func loadCSV(path, symbol string) (models.PriceSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.PriceSeries{}, err
	}
	defer f.Close()

	if symbol == "" {
		symbol = strings.ToUpper(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	}
	s, err := readCSV(f)
	if err != nil {
		return models.PriceSeries{}, fmt.Errorf("%s: %w", path, err)
	}
	s.Symbol = symbol
	return s, nil
}

func readCSV(r io.Reader) (models.PriceSeries, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	var (
		out          models.PriceSeries
		ti, pi       = 0, 1
		line, header = 0, false
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return out, err
		}
		line++

		if line == 1 && !looksNumeric(rec, pi) {
			ti, pi = columnIndex(rec, timeColumns, 0), columnIndex(rec, priceColumns, 1)
			header = true
			continue
		}
		if len(rec) <= ti || len(rec) <= pi {
			return out, fmt.Errorf("line %d: expected at least %d columns", line, max(ti, pi)+1)
		}
		raw := strings.TrimSpace(rec[pi])
		if raw == "" || strings.EqualFold(raw, "null") || strings.EqualFold(raw, "nan") {
			continue
		}
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return out, fmt.Errorf("line %d: bad price %q", line, raw)
		}
		at, ok := util.ParseTime(strings.TrimSpace(rec[ti]))
		if !ok {
			return out, fmt.Errorf("line %d: bad date %q", line, rec[ti])
		}
		out.Points = append(out.Points, models.PricePoint{Time: at, Price: price})
	}
	if len(out.Points) == 0 {
		if header {
			return out, errors.New("no rows after header")
		}
		return out, errors.New("empty file")
	}
	return out, nil
}

func looksNumeric(rec []string, i int) bool {
	if len(rec) <= i {
		return false
	}
	_, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
	return err == nil
}

func columnIndex(header []string, names []string, def int) int {
	for _, name := range names {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				return i
			}
		}
	}
	return def
}
