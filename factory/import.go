/*
Package factory loads warehouse contents from the line-oriented import format.

PURPOSE:
  Seeds a warehouse from a text file, one record per line. Batches are
  deposited as stock on hand: no transaction is created and no balance
  moves.

RECORD FORMAT (fields separated by '|'):
  PARTNER|key|name|address
  BATCH_S|product|partner|price|stock
  BATCH_M|product|partner|price|stock|aggravation|component:quantity#component:quantity

  A BATCH_S line for an unknown product registers it as simple. A BATCH_M
  line for an unknown product registers it as aggregate with the given
  recipe; for a known product the recipe fields are ignored. Blank lines
  are skipped.

ERRORS:
  A malformed line fails with *generic.BadEntryError carrying the line
  number. Registry errors (unknown partner, duplicate partner) are wrapped
  with the line number. The import is all-or-nothing.

EXAMPLE:
  imp := factory.NewImporter(w, logger)
  summary, err := imp.Import(strings.NewReader(
      "PARTNER|M1|Maria|Lisbon\nBATCH_S|IRON|M1|10|50\n"))

SEE ALSO:
  - warehouse/warehouse.go: RegisterPartner, ImportBatch
  - api/handlers.go: POST /api/import
*/
package factory

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/wholesale-engine/generic"
	"github.com/warp/wholesale-engine/warehouse"
)

// =============================================================================
// RECORD TYPES
// =============================================================================

const (
	RecordPartner         = "PARTNER"
	RecordSimpleBatch     = "BATCH_S"
	RecordAggregateBatch  = "BATCH_M"
	partnerFields         = 4
	simpleBatchFields     = 5
	aggregateBatchFields  = 7
	componentSeparator    = "#"
	componentQtySeparator = ":"
)

// Summary counts what an import added.
type Summary struct {
	Partners int `json:"partners"`
	Products int `json:"products"`
	Batches  int `json:"batches"`
}

type batchRecord struct {
	product generic.ProductKey
	partner generic.PartnerKey
	price   decimal.Decimal
	stock   int
	recipe  *warehouse.Recipe // BATCH_M only
}

type partnerRecord struct {
	key     generic.PartnerKey
	name    string
	address string
}

// =============================================================================
// IMPORTER
// =============================================================================

type Importer struct {
	w      *warehouse.Warehouse
	logger *zap.Logger
}

func NewImporter(w *warehouse.Warehouse, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{w: w, logger: logger}
}

// ImportFile imports the records of the file at path.
func (imp *Importer) ImportFile(path string) (Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return Summary{}, fmt.Errorf("%w: %s: %v", generic.ErrUnavailableFile, path, err)
	}
	defer f.Close()
	return imp.Import(f)
}

// Import reads every record from r and applies them in order.
func (imp *Importer) Import(r io.Reader) (Summary, error) {
	var summary Summary
	err := imp.w.Atomically(func() error {
		scanner := bufio.NewScanner(r)
		line := 0
		for scanner.Scan() {
			line++
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				continue
			}
			if err := imp.apply(line, text, &summary); err != nil {
				return err
			}
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("%w: %v", generic.ErrUnavailableFile, err)
		}
		return nil
	})
	if err != nil {
		imp.logger.Warn("import failed", zap.Error(err))
		return Summary{}, err
	}
	imp.logger.Info("import complete",
		zap.Int("partners", summary.Partners),
		zap.Int("products", summary.Products),
		zap.Int("batches", summary.Batches))
	return summary, nil
}

func (imp *Importer) apply(line int, text string, summary *Summary) error {
	fields := strings.Split(text, "|")
	switch fields[0] {
	case RecordPartner:
		rec, err := parsePartner(line, text, fields)
		if err != nil {
			return err
		}
		if err := imp.w.RegisterPartner(rec.key, rec.name, rec.address); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		summary.Partners++
	case RecordSimpleBatch, RecordAggregateBatch:
		rec, err := parseBatch(line, text, fields)
		if err != nil {
			return err
		}
		created, err := imp.ensureProduct(rec)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if created {
			summary.Products++
		}
		if err := imp.w.ImportBatch(rec.product, rec.partner, rec.price, rec.stock); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		summary.Batches++
	default:
		return &generic.BadEntryError{Line: line, Entry: text, Reason: fmt.Sprintf("unknown record type %q", fields[0])}
	}
	return nil
}

func (imp *Importer) ensureProduct(rec batchRecord) (bool, error) {
	if _, err := imp.w.Product(rec.product); err == nil {
		return false, nil
	}
	if rec.recipe == nil {
		return true, imp.w.RegisterSimpleProduct(rec.product)
	}
	return true, imp.w.RegisterAggregateProduct(rec.product, *rec.recipe)
}

// =============================================================================
// PARSING
// =============================================================================

func parsePartner(line int, text string, fields []string) (partnerRecord, error) {
	if len(fields) != partnerFields {
		return partnerRecord{}, &generic.BadEntryError{Line: line, Entry: text,
			Reason: fmt.Sprintf("partner needs %d fields, got %d", partnerFields, len(fields))}
	}
	if fields[1] == "" {
		return partnerRecord{}, &generic.BadEntryError{Line: line, Entry: text, Reason: "empty partner key"}
	}
	return partnerRecord{key: generic.PartnerKey(fields[1]), name: fields[2], address: fields[3]}, nil
}

func parseBatch(line int, text string, fields []string) (batchRecord, error) {
	bad := func(reason string, args ...any) (batchRecord, error) {
		return batchRecord{}, &generic.BadEntryError{Line: line, Entry: text, Reason: fmt.Sprintf(reason, args...)}
	}

	want := simpleBatchFields
	if fields[0] == RecordAggregateBatch {
		want = aggregateBatchFields
	}
	if len(fields) != want {
		return bad("%s needs %d fields, got %d", fields[0], want, len(fields))
	}
	if fields[1] == "" || fields[2] == "" {
		return bad("empty product or partner key")
	}

	price, err := decimal.NewFromString(fields[3])
	if err != nil {
		return bad("price %q is not a number", fields[3])
	}
	stock, err := strconv.Atoi(fields[4])
	if err != nil {
		return bad("stock %q is not an integer", fields[4])
	}
	rec := batchRecord{
		product: generic.ProductKey(fields[1]),
		partner: generic.PartnerKey(fields[2]),
		price:   price,
		stock:   stock,
	}
	if fields[0] == RecordSimpleBatch {
		return rec, nil
	}

	aggravation, err := decimal.NewFromString(fields[5])
	if err != nil {
		return bad("aggravation %q is not a number", fields[5])
	}
	recipe := warehouse.Recipe{Aggravation: aggravation}
	for _, part := range strings.Split(fields[6], componentSeparator) {
		kv := strings.Split(part, componentQtySeparator)
		if len(kv) != 2 || kv[0] == "" {
			return bad("component %q is not key:quantity", part)
		}
		qty, err := strconv.Atoi(kv[1])
		if err != nil {
			return bad("component quantity %q is not an integer", kv[1])
		}
		recipe.Components = append(recipe.Components, warehouse.Component{Product: generic.ProductKey(kv[0]), Quantity: qty})
	}
	rec.recipe = &recipe
	return rec, nil
}
