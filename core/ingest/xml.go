package ingest

import (
	"fmt"
	"io"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/FocuswithJustin/BriarSQL/core/engine"
	"github.com/FocuswithJustin/BriarSQL/core/status"
	"github.com/FocuswithJustin/BriarSQL/core/value"
	"github.com/FocuswithJustin/BriarSQL/internal/logging"
)

// LoadXML loads XML rows into the table. Row nodes are selected by the
// XPath expression; each row's child elements become columns, named by
// their element tag. The first row fixes the column set.
func LoadXML(eng engine.Engine, table string, r io.Reader, xpathExpr string) (int64, error) {
	if _, err := xpath.Compile(xpathExpr); err != nil {
		return 0, status.Opf(status.InvalidOperand, "ingest.LoadXML", "bad xpath %q: %v", xpathExpr, err)
	}
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return 0, status.Wrap(status.InvalidOperand, "ingest.LoadXML", err)
	}
	rows, err := xmlquery.QueryAll(doc, xpathExpr)
	if err != nil {
		return 0, status.Wrap(status.InvalidOperand, "ingest.LoadXML", err)
	}

	var loaded int64
	err = runLoad(eng, func(exec execFunc) error {
		var b batcher
		defer b.destroy()

		var columns []string
		sql := ""
		for i, node := range rows {
			fields := childElements(node)
			if columns == nil {
				columns = make([]string, 0, len(fields))
				for _, f := range fields {
					columns = append(columns, f.name)
				}
				sql = insertSQL(table, columns, len(columns))
			}
			byName := make(map[string]string, len(fields))
			for _, f := range fields {
				byName[f.name] = f.text
			}
			a := b.arena()
			binds := make([]*value.Value, len(columns))
			for j, col := range columns {
				text, ok := byName[col]
				if !ok {
					binds[j] = value.Null()
					continue
				}
				v, err := inferValue(a, text)
				if err != nil {
					return err
				}
				binds[j] = v
			}
			if _, err := exec(sql, binds); err != nil {
				return fmt.Errorf("row %d: %w", i+1, err)
			}
			loaded++
		}
		return nil
	})
	if err != nil {
		return loaded, err
	}
	logging.IngestProgress("xml", table, loaded, "xpath", xpathExpr)
	return loaded, nil
}

type xmlField struct {
	name string
	text string
}

// childElements collects the element children of a row node in document
// order, flattening each to its inner text.
func childElements(node *xmlquery.Node) []xmlField {
	var fields []xmlField
	for c := node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xmlquery.ElementNode {
			continue
		}
		fields = append(fields, xmlField{name: c.Data, text: strings.TrimSpace(c.InnerText())})
	}
	return fields
}
