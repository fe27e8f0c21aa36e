// Package docintel is the analysis-provider collaborator: the raw result
// tree as the provider returns it, and a client that submits a stored blob
// for analysis and polls the operation to completion.
package docintel

// AnalyzeResult is the provider's raw analysis tree. Every substructure is
// optional on the wire; consumers must tolerate nil at any level. Only the
// result mapper walks this tree.
type AnalyzeResult struct {
	Content       string            `json:"content"`
	Pages         []RawPage         `json:"pages"`
	KeyValuePairs []RawKeyValuePair `json:"keyValuePairs"`
	Tables        []RawTable        `json:"tables"`
}

type RawPage struct {
	PageNumber int       `json:"pageNumber"`
	Angle      float64   `json:"angle"`
	Width      float64   `json:"width"`
	Height     float64   `json:"height"`
	Unit       string    `json:"unit"`
	Words      []RawWord `json:"words"`
}

type RawWord struct {
	Content    string    `json:"content"`
	Polygon    []float64 `json:"polygon"`
	Confidence float64   `json:"confidence"`
	Span       *RawSpan  `json:"span"`
}

type RawSpan struct {
	Offset int `json:"offset"`
	Length int `json:"length"`
}

type RawRegion struct {
	PageNumber int       `json:"pageNumber"`
	Polygon    []float64 `json:"polygon"`
}

// RawElement is the shared shape of a pair's key and value sides.
type RawElement struct {
	Content         string      `json:"content"`
	BoundingRegions []RawRegion `json:"boundingRegions"`
	Spans           []RawSpan   `json:"spans"`
}

type RawKeyValuePair struct {
	Key        *RawElement `json:"key"`
	Value      *RawElement `json:"value"`
	Confidence float64     `json:"confidence"`
}

type RawTable struct {
	RowCount    int       `json:"rowCount"`
	ColumnCount int       `json:"columnCount"`
	Cells       []RawCell `json:"cells"`
}

type RawCell struct {
	Kind            string      `json:"kind"`
	RowIndex        int         `json:"rowIndex"`
	ColumnIndex     int         `json:"columnIndex"`
	Content         string      `json:"content"`
	BoundingRegions []RawRegion `json:"boundingRegions"`
	Spans           []RawSpan   `json:"spans"`
	Elements        []string    `json:"elements"`
}
