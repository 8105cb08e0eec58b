package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"agrinova-api/pkg/models"

	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat は取り込めないファイル形式のエラー
var ErrUnsupportedFormat = errors.New("unsupported file format: use .xlsx or .csv")

const (
	productSheet = "Products"
	sensorSheet  = "History"
)

// productColumns は商品シートの列順（取り込み時のヘッダーと共通）
var productColumns = []string{"name", "description", "price", "stock", "category", "image", "farmer"}

// ImportRowError は取り込めなかった行とその理由
type ImportRowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// ImportRow は取り込み対象の1行
type ImportRow struct {
	Row   int
	Input models.ProductInput
}

// ImportResult は一括取り込みの結果
type ImportResult struct {
	Created []models.Product `json:"created"`
	Failed  []ImportRowError `json:"failed"`
}

// WriteProductsXLSX は商品一覧をExcelファイルとして書き出します。
func WriteProductsXLSX(w io.Writer, products []models.Product) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", productSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	header := []interface{}{"id", "name", "description", "price", "stock", "category", "image", "farmer", "rating", "reviews"}
	if err := f.SetSheetRow(productSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, p := range products {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{p.ID, p.Name, p.Description, p.Price, p.Stock, p.Category, p.Image, p.Farmer, p.Rating, p.Reviews}
		if err := f.SetSheetRow(productSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	return f.Write(w)
}

// WriteSensorHistoryXLSX はセンサー履歴をExcelファイルとして書き出します。
func WriteSensorHistoryXLSX(w io.Writer, readings []models.SensorReading) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sensorSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	header := []interface{}{"timestamp", "id", "name", "location", "temperature", "humidity", "soilMoisture", "waterUsage", "status"}
	if err := f.SetSheetRow(sensorSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range readings {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{
			r.LastUpdate.UTC().Format(time.RFC3339), r.ID, r.Name, r.Location,
			r.Temperature, r.Humidity, r.SoilMoisture, r.WaterUsage, r.Status,
		}
		if err := f.SetSheetRow(sensorSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	return f.Write(w)
}

// ReadProductRows はアップロードされたファイルから行を読み込みます。
// .xlsx は最初のシート、.csv はそのまま読み込みます。
func ReadProductRows(r io.Reader, filename string) ([][]string, error) {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".xlsx"):
		f, err := excelize.OpenReader(r)
		if err != nil {
			return nil, fmt.Errorf("open xlsx: %w", err)
		}
		defer f.Close()
		rows, err := f.GetRows(f.GetSheetName(0))
		if err != nil {
			return nil, fmt.Errorf("read rows: %w", err)
		}
		return rows, nil
	case strings.HasSuffix(lower, ".csv"):
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		rows, err := cr.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		return rows, nil
	default:
		return nil, ErrUnsupportedFormat
	}
}

// ParseProductRows はヘッダー行を列名で解決し、各行をProductInputに変換します。
// 変換できない行は行番号（1始まり、ヘッダー含む）付きで返します。
func ParseProductRows(rows [][]string) ([]ImportRow, []ImportRowError, error) {
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("%w: file is empty", ErrInvalidProduct)
	}
	index := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range productColumns[:4] {
		if _, ok := index[required]; !ok {
			return nil, nil, fmt.Errorf("%w: missing column %q", ErrInvalidProduct, required)
		}
	}

	cell := func(row []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var inputs []ImportRow
	var failed []ImportRowError
	for n, row := range rows[1:] {
		rowNum := n + 2
		if isBlankRow(row) {
			continue
		}
		price, err := strconv.ParseFloat(cell(row, "price"), 64)
		if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
			failed = append(failed, ImportRowError{Row: rowNum, Error: "invalid price"})
			continue
		}
		stock, err := strconv.Atoi(cell(row, "stock"))
		if err != nil {
			failed = append(failed, ImportRowError{Row: rowNum, Error: "invalid stock"})
			continue
		}
		inputs = append(inputs, ImportRow{Row: rowNum, Input: models.ProductInput{
			Name:        cell(row, "name"),
			Description: cell(row, "description"),
			Price:       price,
			Stock:       stock,
			Category:    cell(row, "category"),
			Image:       cell(row, "image"),
			Farmer:      cell(row, "farmer"),
		}})
	}
	return inputs, failed, nil
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ImportProducts はファイルの各行を検証してカタログに追加します。
// 不正な行はスキップして結果に記録し、正しい行は作成を続けます。
func (s *MarketplaceService) ImportProducts(ctx context.Context, r io.Reader, filename string) (ImportResult, error) {
	rows, err := ReadProductRows(r, filename)
	if err != nil {
		return ImportResult{}, err
	}
	inputs, failed, err := ParseProductRows(rows)
	if err != nil {
		return ImportResult{}, err
	}

	result := ImportResult{Created: []models.Product{}, Failed: failed}
	for _, row := range inputs {
		p, err := s.Create(ctx, row.Input)
		if err != nil {
			if errors.Is(err, ErrInvalidProduct) {
				result.Failed = append(result.Failed, ImportRowError{Row: row.Row, Error: err.Error()})
				continue
			}
			return result, err
		}
		result.Created = append(result.Created, p)
	}
	if result.Failed == nil {
		result.Failed = []ImportRowError{}
	}
	return result, nil
}
