// internal/export/export.go

// Package export writes trade journal extracts to CSV or JSON files for
// offline analysis.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/jugheadddd/launchpad-contracts/internal/storage/models"
)

// Format represents the export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// Options configures the export behavior.
type Options struct {
	Format    Format
	StartTime time.Time
	EndTime   time.Time
	Token     string // filter by token address
	Side      string // filter by side (buy/sell)
	OutputDir string
}

// TradeExporter writes journal extracts.
type TradeExporter struct {
	logger *zap.Logger
}

// NewTradeExporter creates a new trade exporter.
func NewTradeExporter(logger *zap.Logger) *TradeExporter {
	return &TradeExporter{
		logger: logger.Named("export"),
	}
}

// ExportTrades exports trades based on the provided options and returns the
// path of the written file.
func (te *TradeExporter) ExportTrades(trades []models.TradeRecord, options Options) (string, error) {
	filtered := te.filterTrades(trades, options)
	if len(filtered) == 0 {
		return "", fmt.Errorf("no trades match the export criteria")
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].ExecutedAt.Before(filtered[j].ExecutedAt)
	})

	outputPath := filepath.Join(options.OutputDir, te.generateFilename(options))
	if err := os.MkdirAll(options.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	switch options.Format {
	case FormatCSV:
		err = te.exportToCSV(filtered, outputPath)
	case FormatJSON:
		err = te.exportToJSON(filtered, outputPath)
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}
	if err != nil {
		return "", err
	}

	te.logger.Info("Trades exported",
		zap.String("file", outputPath),
		zap.Int("count", len(filtered)),
		zap.String("format", string(options.Format)))

	return outputPath, nil
}

func (te *TradeExporter) filterTrades(trades []models.TradeRecord, options Options) []models.TradeRecord {
	var filtered []models.TradeRecord
	for _, trade := range trades {
		if !options.StartTime.IsZero() && trade.ExecutedAt.Before(options.StartTime) {
			continue
		}
		if !options.EndTime.IsZero() && trade.ExecutedAt.After(options.EndTime) {
			continue
		}
		if options.Token != "" && trade.Token != options.Token {
			continue
		}
		if options.Side != "" && trade.Side != options.Side {
			continue
		}
		filtered = append(filtered, trade)
	}
	return filtered
}

func (te *TradeExporter) generateFilename(options Options) string {
	timestamp := time.Now().Format("20060102_150405")

	prefix := "trades_all"
	if options.Side != "" {
		prefix = fmt.Sprintf("trades_%s", options.Side)
	}
	if options.Token != "" {
		token := options.Token
		if len(token) > 8 {
			token = token[:8]
		}
		prefix += "_" + token
	}

	return fmt.Sprintf("%s_%s.%s", prefix, timestamp, options.Format)
}

func csvHeaders() []string {
	return []string{"executed_at", "token", "trader", "side", "amount_in", "amount_out", "price"}
}

func csvRow(t models.TradeRecord) []string {
	return []string{
		t.ExecutedAt.Format(time.RFC3339),
		t.Token,
		t.Trader,
		t.Side,
		t.AmountIn,
		t.AmountOut,
		t.Price,
	}
}

func (te *TradeExporter) exportToCSV(trades []models.TradeRecord, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(csvHeaders()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, trade := range trades {
		if err := writer.Write(csvRow(trade)); err != nil {
			return fmt.Errorf("failed to write trade: %w", err)
		}
	}
	return nil
}

func (te *TradeExporter) exportToJSON(trades []models.TradeRecord, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	exportData := struct {
		ExportTime time.Time            `json:"export_time"`
		TradeCount int                  `json:"trade_count"`
		Trades     []models.TradeRecord `json:"trades"`
		Summary    Summary              `json:"summary"`
	}{
		ExportTime: time.Now(),
		TradeCount: len(trades),
		Trades:     trades,
		Summary:    te.calculateSummary(trades),
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// Summary contains aggregate statistics for an extract. Volumes are
// base-asset amounts: a buy spends its amount_in in the base asset, a sell
// receives its amount_out in it.
type Summary struct {
	TotalTrades     int       `json:"total_trades"`
	BuyCount        int       `json:"buy_count"`
	SellCount       int       `json:"sell_count"`
	UniqueTokens    int       `json:"unique_tokens"`
	TotalVolume     string    `json:"total_volume"`
	TotalBuyVolume  string    `json:"total_buy_volume"`
	TotalSellVolume string    `json:"total_sell_volume"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
}

func (te *TradeExporter) calculateSummary(trades []models.TradeRecord) Summary {
	summary := Summary{
		TotalTrades:     len(trades),
		TotalVolume:     "0",
		TotalBuyVolume:  "0",
		TotalSellVolume: "0",
	}
	if len(trades) == 0 {
		return summary
	}

	summary.StartDate = trades[0].ExecutedAt
	summary.EndDate = trades[len(trades)-1].ExecutedAt

	tokenSet := make(map[string]bool)
	buyVolume := new(uint256.Int)
	sellVolume := new(uint256.Int)

	for _, trade := range trades {
		tokenSet[trade.Token] = true

		switch trade.Side {
		case "buy":
			summary.BuyCount++
			addAmount(buyVolume, trade.AmountIn)
		case "sell":
			summary.SellCount++
			addAmount(sellVolume, trade.AmountOut)
		}
	}

	summary.UniqueTokens = len(tokenSet)
	summary.TotalBuyVolume = buyVolume.Dec()
	summary.TotalSellVolume = sellVolume.Dec()
	summary.TotalVolume = new(uint256.Int).Add(buyVolume, sellVolume).Dec()
	return summary
}

// addAmount accumulates a decimal-string amount into sum, skipping rows whose
// amounts do not parse rather than failing the whole export.
func addAmount(sum *uint256.Int, s string) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return
	}
	sum.Add(sum, v)
}

// DailyReport is a per-day extract with an hourly activity breakdown.
type DailyReport struct {
	Date            time.Time            `json:"date"`
	TradeCount      int                  `json:"trade_count"`
	Summary         Summary              `json:"summary"`
	HourlyBreakdown []HourlyStats        `json:"hourly_breakdown"`
	Trades          []models.TradeRecord `json:"trades"`
}

// HourlyStats represents trading activity during one hour of the day.
type HourlyStats struct {
	Hour       int    `json:"hour"`
	TradeCount int    `json:"trade_count"`
	BuyCount   int    `json:"buy_count"`
	SellCount  int    `json:"sell_count"`
	Volume     string `json:"volume"`
}

// ExportDailyReport writes a JSON report covering one calendar day. It
// returns an empty path when the day has no trades.
func (te *TradeExporter) ExportDailyReport(trades []models.TradeRecord, date time.Time, outputDir string) (string, error) {
	startOfDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	endOfDay := startOfDay.Add(24 * time.Hour)

	filtered := te.filterTrades(trades, Options{StartTime: startOfDay, EndTime: endOfDay})
	if len(filtered) == 0 {
		te.logger.Info("No trades for daily report", zap.Time("date", startOfDay))
		return "", nil
	}
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].ExecutedAt.Before(filtered[j].ExecutedAt)
	})

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(outputDir, fmt.Sprintf("daily_report_%s.json", startOfDay.Format("20060102")))

	report := DailyReport{
		Date:            startOfDay,
		TradeCount:      len(filtered),
		Trades:          filtered,
		Summary:         te.calculateSummary(filtered),
		HourlyBreakdown: te.calculateHourlyBreakdown(filtered),
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	te.logger.Info("Daily report exported",
		zap.String("file", outputPath),
		zap.Time("date", startOfDay),
		zap.Int("trades", len(filtered)))

	return outputPath, nil
}

func (te *TradeExporter) calculateHourlyBreakdown(trades []models.TradeRecord) []HourlyStats {
	type bucket struct {
		stats  HourlyStats
		volume *uint256.Int
	}
	hourlyMap := make(map[int]*bucket)

	for _, trade := range trades {
		hour := trade.ExecutedAt.Hour()
		b, exists := hourlyMap[hour]
		if !exists {
			b = &bucket{stats: HourlyStats{Hour: hour}, volume: new(uint256.Int)}
			hourlyMap[hour] = b
		}

		b.stats.TradeCount++
		switch trade.Side {
		case "buy":
			b.stats.BuyCount++
			addAmount(b.volume, trade.AmountIn)
		case "sell":
			b.stats.SellCount++
			addAmount(b.volume, trade.AmountOut)
		}
	}

	var breakdown []HourlyStats
	for hour := 0; hour < 24; hour++ {
		if b, exists := hourlyMap[hour]; exists {
			b.stats.Volume = b.volume.Dec()
			breakdown = append(breakdown, b.stats)
		}
	}
	return breakdown
}
