// Package entity defines the internal annotation model produced by result
// mapping and edited by the review workflow. Field names on the wire match
// the provider-era format so existing review frontends keep working.
package entity

// Unit is the measurement unit page geometry is expressed in. Units the
// provider introduces later travel through as their raw string.
type Unit string

const (
	UnitInch  Unit = "inch"
	UnitPoint Unit = "point"
	UnitPixel Unit = "pixel"
)

// Known table cell kinds. Kind stays an open string so provider additions
// do not break decoding.
const (
	CellKindColumnHeader = "columnHeader"
	CellKindRowHeader    = "rowHeader"
	CellKindBody         = "body"
	CellKindFooter       = "footer"
	CellKindStub         = "stub"
)

// Span is an (offset, length) back-reference into the document's extracted
// text buffer. It never owns text.
type Span struct {
	Offset int `json:"offset"`
	Length int `json:"length"`
}

// Word is a single recognized word on a page. The polygon is owned
// exclusively by the word.
type Word struct {
	Content    string    `json:"content"`
	Polygon    []float64 `json:"polygon"`
	Confidence float64   `json:"confidence"`
	Span       *Span     `json:"span,omitempty"`
}

// Page is the page geometry plus its words in reading order.
type Page struct {
	PageNumber int     `json:"pageNumber"`
	Angle      float64 `json:"angle"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Unit       Unit    `json:"unit"`
	Words      []Word  `json:"words"`
}

// BoundingRegion locates content on a page: a 1-indexed page number plus a
// closed polygon as a flat, even-length coordinate list.
type BoundingRegion struct {
	PageNumber int       `json:"pageNumber"`
	Polygon    []float64 `json:"polygon"`
}

// KeyEntity is the key side of a detected key-value pair.
type KeyEntity struct {
	Content         string           `json:"content"`
	BoundingRegions []BoundingRegion `json:"boundingRegions"`
	Spans           []Span           `json:"spans"`
}

// ValueEntity is the value side of a detected key-value pair. A key may
// exist with no detected value.
type ValueEntity struct {
	Content         string           `json:"content"`
	BoundingRegions []BoundingRegion `json:"boundingRegions"`
	Spans           []Span           `json:"spans"`
}

// KeyValuePair couples a key with its (optional) value.
type KeyValuePair struct {
	Key        KeyEntity    `json:"key"`
	Value      *ValueEntity `json:"value,omitempty"`
	Confidence float64      `json:"confidence"`
}

// TableCell is one cell of a detected table. Elements are opaque references
// into the provider's element tree.
type TableCell struct {
	Kind            string           `json:"kind"`
	RowIndex        int              `json:"rowIndex"`
	ColumnIndex     int              `json:"columnIndex"`
	Content         string           `json:"content"`
	BoundingRegions []BoundingRegion `json:"boundingRegions"`
	Spans           []Span           `json:"spans"`
	Elements        []string         `json:"elements"`
}

// Table is a detected table. The provider does not guarantee that cell
// indices stay below the declared counts.
type Table struct {
	RowCount    int         `json:"rowCount"`
	ColumnCount int         `json:"columnCount"`
	Cells       []TableCell `json:"cells"`
}

// Snapshot is the full set of extracted annotations for one document at a
// point in time.
type Snapshot struct {
	Pages         []Page         `json:"pages"`
	KeyValuePairs []KeyValuePair `json:"keyValuePairs"`
	Tables        []Table        `json:"tables"`
}

// EmptySnapshot returns a snapshot whose sequences are empty but non-nil,
// so they serialize as [] rather than null.
func EmptySnapshot() Snapshot {
	return Snapshot{
		Pages:         []Page{},
		KeyValuePairs: []KeyValuePair{},
		Tables:        []Table{},
	}
}
