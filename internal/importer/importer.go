package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"commerce-backoffice/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpsertAttribute(ctx context.Context, attr domain.ProductAttribute) (*domain.ProductAttribute, error)
}

type PriceWriter interface {
	Save(ctx context.Context, p *domain.Price) error
}

// CSVImporter reads catalog CSV files with one row per variant. A row with a
// sku starts a product; following rows without a sku add variants or
// images to it.
type CSVImporter struct {
	reader   *csv.Reader
	products ProductWriter
	prices   PriceWriter
	store    string
	logger   zerolog.Logger
}

// Stats counts what a run wrote.
type Stats struct {
	Products   int
	Attributes int
	Prices     int
}

func NewCSVImporter(r io.Reader, products ProductWriter, prices PriceWriter, defaultStore string, logger zerolog.Logger) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	return &CSVImporter{
		reader:   csvr,
		products: products,
		prices:   prices,
		store:    defaultStore,
		logger:   logger,
	}
}

type variantRow struct {
	Name        string
	Description string
	MaxQuantity int
	StockLevel  int
	AlwaysStock bool
	Shippable   bool
	Sizes       []string
	BasePrice   decimal.Decimal
	Discount    decimal.Decimal
	Currency    string
	HasPrice    bool
	line        int
}

type productRow struct {
	StoreID     string
	SKU         string
	Title       string
	Description string
	Category    string
	Active      bool
	Images      []string
	Variants    []variantRow
	line        int
}

// Run parses the file and upserts every product with its variants and
// prices. It stops at the first invalid product.
func (i *CSVImporter) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	headers, err := i.reader.Read()
	if err != nil {
		return stats, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	if _, ok := index["sku"]; !ok {
		return stats, errors.New("read headers: sku column required")
	}

	var current *productRow
	line := 1
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return stats, fmt.Errorf("read row %d: %w", line, err)
		}

		row, variant, err := parseRow(record, index, line)
		if err != nil {
			return stats, err
		}
		if row != nil {
			if current != nil {
				if err := i.save(ctx, current, &stats); err != nil {
					return stats, err
				}
			}
			current = row
		} else if current == nil {
			if variant != nil {
				return stats, fmt.Errorf("row %d: variant without a product", line)
			}
			continue
		} else {
			current.Images = append(current.Images, splitList(pick(record, index, "images"))...)
		}
		if variant != nil {
			current.Variants = append(current.Variants, *variant)
		}
	}

	if current != nil {
		if err := i.save(ctx, current, &stats); err != nil {
			return stats, err
		}
	}
	i.logger.Info().Int("products", stats.Products).Int("attributes", stats.Attributes).Int("prices", stats.Prices).Msg("importer: done")
	return stats, nil
}

func (i *CSVImporter) save(ctx context.Context, row *productRow, stats *Stats) error {
	if row.Title == "" {
		return fmt.Errorf("row %d: title required for sku %q", row.line, row.SKU)
	}
	storeID := row.StoreID
	if storeID == "" {
		storeID = i.store
	}
	p, err := i.products.Upsert(ctx, domain.Product{
		StoreID:     storeID,
		Title:       row.Title,
		SKU:         row.SKU,
		Category:    row.Category,
		Images:      row.Images,
		Description: row.Description,
		Active:      row.Active,
	})
	if err != nil {
		return fmt.Errorf("upsert product %q: %w", row.SKU, err)
	}
	stats.Products++

	for pos, v := range row.Variants {
		attr, err := i.products.UpsertAttribute(ctx, domain.ProductAttribute{
			ProductID:           p.ID,
			Name:                v.Name,
			Position:            pos,
			AlwaysInStock:       v.AlwaysStock,
			StockLevel:          v.StockLevel,
			Description:         v.Description,
			DefaultCartQuantity: 1,
			MaxCartQuantity:     v.MaxQuantity,
			Shippable:           v.Shippable,
			Sizes:               v.Sizes,
		})
		if err != nil {
			return fmt.Errorf("upsert variant %q of %q: %w", v.Name, row.SKU, err)
		}
		stats.Attributes++
		if !v.HasPrice {
			continue
		}
		price := domain.NewPrice(attr.ID, v.BasePrice, v.Currency, v.Discount, nil)
		price.StoreID = storeID
		if err := i.prices.Save(ctx, price); err != nil {
			return fmt.Errorf("row %d: save price of %q: %w", v.line, v.Name, err)
		}
		stats.Prices++
	}
	return nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

// parseRow returns the product started by the row, if any, and the variant
// it describes, if any.
func parseRow(record []string, index map[string]int, line int) (*productRow, *variantRow, error) {
	var product *productRow
	if sku := pick(record, index, "sku"); sku != "" {
		product = &productRow{
			StoreID:     pick(record, index, "store"),
			SKU:         sku,
			Title:       pick(record, index, "title"),
			Description: pick(record, index, "description"),
			Category:    pick(record, index, "category"),
			Active:      parseBool(pick(record, index, "active"), true),
			Images:      splitList(pick(record, index, "images")),
			line:        line,
		}
	}

	name := pick(record, index, "variant")
	if name == "" {
		return product, nil, nil
	}
	v := &variantRow{
		Name:        name,
		Description: pick(record, index, "variant_description"),
		AlwaysStock: parseBool(pick(record, index, "always_in_stock"), false),
		Shippable:   parseBool(pick(record, index, "shippable"), true),
		Sizes:       splitList(pick(record, index, "sizes")),
		Currency:    strings.ToUpper(pick(record, index, "currency")),
		line:        line,
	}
	var err error
	if v.MaxQuantity, err = parseInt(pick(record, index, "max_cart_quantity")); err != nil {
		return nil, nil, fmt.Errorf("row %d: max_cart_quantity: %w", line, err)
	}
	if v.StockLevel, err = parseInt(pick(record, index, "stock_level")); err != nil {
		return nil, nil, fmt.Errorf("row %d: stock_level: %w", line, err)
	}
	if raw := pick(record, index, "base_price"); raw != "" {
		if v.BasePrice, err = domain.ParseMoney(raw); err != nil {
			return nil, nil, fmt.Errorf("row %d: base_price: %w", line, err)
		}
		if raw := pick(record, index, "discount"); raw != "" {
			if v.Discount, err = domain.ParseMoney(raw); err != nil {
				return nil, nil, fmt.Errorf("row %d: discount: %w", line, err)
			}
		}
		if !domain.ValidCurrencyCode(v.Currency) {
			return nil, nil, fmt.Errorf("row %d: %w %q", line, domain.ErrInvalidCurrencyCode, v.Currency)
		}
		v.HasPrice = true
	}
	return product, v, nil
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ";") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func parseBool(raw string, def bool) bool {
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return b
}
