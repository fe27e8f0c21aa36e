// Package mapping transcribes the provider's raw analysis tree into the
// internal annotation model. It is a faithful schema transcription: no
// normalization, no deduplication, no geometry math.
package mapping

import (
	"github.com/labelworks/doclabel/internal/docintel"
	"github.com/labelworks/doclabel/internal/entity"
)

// Map converts a raw analysis result into a snapshot. It is pure and total:
// absent optional substructures become empty sequences and partial
// structures are copied field by field, so no provider payload can make it
// fail. Polygon coordinates are copied into fresh slices so the snapshot
// never aliases the decoded provider buffers.
func Map(res *docintel.AnalyzeResult) entity.Snapshot {
	snap := entity.EmptySnapshot()
	if res == nil {
		return snap
	}

	for _, p := range res.Pages {
		snap.Pages = append(snap.Pages, mapPage(p))
	}
	for _, kv := range res.KeyValuePairs {
		snap.KeyValuePairs = append(snap.KeyValuePairs, mapKeyValuePair(kv))
	}
	for _, t := range res.Tables {
		snap.Tables = append(snap.Tables, mapTable(t))
	}
	return snap
}

func mapPage(p docintel.RawPage) entity.Page {
	page := entity.Page{
		PageNumber: p.PageNumber,
		Angle:      p.Angle,
		Width:      p.Width,
		Height:     p.Height,
		Unit:       mapUnit(p.Unit),
		Words:      make([]entity.Word, 0, len(p.Words)),
	}
	for _, w := range p.Words {
		page.Words = append(page.Words, mapWord(w))
	}
	return page
}

// mapUnit converts by exact string match. Unrecognized units pass through
// as the raw string rather than failing.
func mapUnit(raw string) entity.Unit {
	switch raw {
	case string(entity.UnitInch):
		return entity.UnitInch
	case string(entity.UnitPoint):
		return entity.UnitPoint
	case string(entity.UnitPixel):
		return entity.UnitPixel
	default:
		return entity.Unit(raw)
	}
}

func mapWord(w docintel.RawWord) entity.Word {
	word := entity.Word{
		Content:    w.Content,
		Polygon:    copyPolygon(w.Polygon),
		Confidence: w.Confidence,
	}
	if w.Span != nil {
		word.Span = &entity.Span{Offset: w.Span.Offset, Length: w.Span.Length}
	}
	return word
}

func mapKeyValuePair(kv docintel.RawKeyValuePair) entity.KeyValuePair {
	pair := entity.KeyValuePair{Confidence: kv.Confidence}
	// The provider guarantees the key side; a missing key still maps to a
	// zero key rather than a fault.
	if kv.Key != nil {
		pair.Key = entity.KeyEntity{
			Content:         kv.Key.Content,
			BoundingRegions: mapRegions(kv.Key.BoundingRegions),
			Spans:           mapSpans(kv.Key.Spans),
		}
	} else {
		pair.Key = entity.KeyEntity{
			BoundingRegions: []entity.BoundingRegion{},
			Spans:           []entity.Span{},
		}
	}
	if kv.Value != nil {
		pair.Value = &entity.ValueEntity{
			Content:         kv.Value.Content,
			BoundingRegions: mapRegions(kv.Value.BoundingRegions),
			Spans:           mapSpans(kv.Value.Spans),
		}
	}
	return pair
}

func mapTable(t docintel.RawTable) entity.Table {
	table := entity.Table{
		RowCount:    t.RowCount,
		ColumnCount: t.ColumnCount,
		Cells:       make([]entity.TableCell, 0, len(t.Cells)),
	}
	for _, c := range t.Cells {
		table.Cells = append(table.Cells, mapCell(c))
	}
	return table
}

// mapCell copies the cell verbatim. Row/column indices are not checked
// against the table's declared counts here; the provider does not guarantee
// them and the mapper must stay total.
func mapCell(c docintel.RawCell) entity.TableCell {
	elements := make([]string, len(c.Elements))
	copy(elements, c.Elements)
	return entity.TableCell{
		Kind:            c.Kind,
		RowIndex:        c.RowIndex,
		ColumnIndex:     c.ColumnIndex,
		Content:         c.Content,
		BoundingRegions: mapRegions(c.BoundingRegions),
		Spans:           mapSpans(c.Spans),
		Elements:        elements,
	}
}

func mapRegions(src []docintel.RawRegion) []entity.BoundingRegion {
	out := make([]entity.BoundingRegion, 0, len(src))
	for _, r := range src {
		out = append(out, entity.BoundingRegion{
			PageNumber: r.PageNumber,
			Polygon:    copyPolygon(r.Polygon),
		})
	}
	return out
}

func mapSpans(src []docintel.RawSpan) []entity.Span {
	out := make([]entity.Span, 0, len(src))
	for _, s := range src {
		out = append(out, entity.Span{Offset: s.Offset, Length: s.Length})
	}
	return out
}

func copyPolygon(src []float64) []float64 {
	out := make([]float64, len(src))
	copy(out, src)
	return out
}
