package dxf

import (
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geo-loader/internal/diag"
)

// Parse turns raw ASCII DXF text into a Document. Structural failures (empty
// content, no valid pairs, no sections) are returned as errors; everything
// entity-level is reported to rep and skipped.
func Parse(content string, rep *diag.Reporter) (*Document, error) {
	tags, err := ScanTags(content, rep)
	if err != nil {
		return nil, err
	}

	sections, err := Sections(tags)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Layers: make(map[string]*Layer),
		Blocks: make(map[string]*Block),
	}

	if header, ok := sections["HEADER"]; ok {
		doc.Header = parseHeader(header)
	}
	if tables, ok := sections["TABLES"]; ok {
		parseLayerTable(tables, doc)
	}
	if blocks, ok := sections["BLOCKS"]; ok {
		parseBlocks(blocks, doc, rep)
	}
	if entities, ok := sections["ENTITIES"]; ok {
		doc.Entities = decodeAll(entities, rep)
	}

	// Layer 0 always exists.
	if _, ok := doc.Layers["0"]; !ok {
		doc.Layers["0"] = &Layer{Name: "0", Color: 7}
	}

	return doc, nil
}

// parseHeader extracts the recognized $-variables. Header variables are
// (9,$NAME) markers followed by their value tags.
func parseHeader(tags []Tag) Header {
	var h Header
	for i := 0; i < len(tags); i++ {
		if tags[i].Code != 9 {
			continue
		}
		switch tags[i].Value {
		case "$EXTMIN":
			if p, ok := headerPoint(tags, i+1); ok {
				h.ExtMin = &p
			}
		case "$EXTMAX":
			if p, ok := headerPoint(tags, i+1); ok {
				h.ExtMax = &p
			}
		case "$INSUNITS":
			if i+1 < len(tags) && tags[i+1].Code == 70 {
				h.InsUnits, _ = strconv.Atoi(tags[i+1].Value)
			}
		case "$DWGCODEPAGE":
			if i+1 < len(tags) && tags[i+1].Code == 3 {
				h.CodePage = tags[i+1].Value
			}
		}
	}
	return h
}

// headerPoint reads the 10/20/30 tags following a header variable marker.
func headerPoint(tags []Tag, start int) (Point, bool) {
	var p Point
	var haveX, haveY bool
	for i := start; i < len(tags) && tags[i].Code != 9; i++ {
		v, err := strconv.ParseFloat(tags[i].Value, 64)
		if err != nil {
			continue
		}
		switch tags[i].Code {
		case 10:
			p.X, haveX = v, true
		case 20:
			p.Y, haveY = v, true
		case 30:
			p.Z = v
		}
	}
	return p, haveX && haveY
}

// parseLayerTable reads LAYER records from the TABLES section. A negative
// color means the layer is switched off; flag bit 1 is frozen, bit 4 locked.
func parseLayerTable(tags []Tag, doc *Document) {
	inLayerTable := false
	var cur *Layer

	flush := func() {
		if cur != nil && cur.Name != "" {
			doc.Layers[cur.Name] = cur
		}
		cur = nil
	}

	for i := 0; i < len(tags); i++ {
		t := tags[i]
		if t.Code == 0 {
			flush()
			switch t.Value {
			case "TABLE":
				if i+1 < len(tags) && tags[i+1].Code == 2 {
					inLayerTable = tags[i+1].Value == "LAYER"
				}
			case "ENDTAB":
				inLayerTable = false
			case "LAYER":
				if inLayerTable {
					cur = &Layer{Color: 7, LineType: "CONTINUOUS"}
				}
			}
			continue
		}
		if cur == nil {
			continue
		}
		switch t.Code {
		case 2:
			cur.Name = t.Value
		case 62:
			if c, err := strconv.Atoi(t.Value); err == nil {
				if c < 0 {
					cur.Off = true
					cur.Color = -c
				} else {
					cur.Color = c
				}
			}
		case 6:
			cur.LineType = t.Value
		case 370:
			cur.LineWeight, _ = strconv.Atoi(t.Value)
		case 70:
			if f, err := strconv.Atoi(t.Value); err == nil {
				cur.Frozen = f&1 != 0
				cur.Locked = f&4 != 0
			}
		}
	}
	flush()
}

// parseBlocks reads BLOCK..ENDBLK groups and decodes each block's entities.
// A block missing its name is skipped with a warning; duplicate names keep
// the first definition.
func parseBlocks(tags []Tag, doc *Document, rep *diag.Reporter) {
	for i := 0; i < len(tags); i++ {
		if tags[i].Code != 0 || tags[i].Value != "BLOCK" {
			continue
		}

		end := i + 1
		for end < len(tags) && !(tags[end].Code == 0 && tags[end].Value == "ENDBLK") {
			end++
		}

		block := &Block{Layer: "0", BasePoint: Point{}}
		body := i + 1
		// Block header tags up to the first entity marker.
		for body < end && tags[body].Code != 0 {
			switch tags[body].Code {
			case 2:
				block.Name = tags[body].Value
			case 8:
				block.Layer = tags[body].Value
			case 10:
				block.BasePoint.X, _ = strconv.ParseFloat(tags[body].Value, 64)
			case 20:
				block.BasePoint.Y, _ = strconv.ParseFloat(tags[body].Value, 64)
			case 30:
				block.BasePoint.Z, _ = strconv.ParseFloat(tags[body].Value, 64)
			}
			body++
		}

		if block.Name == "" {
			rep.Warn(diag.CodeParseWarning, "block without a name skipped")
		} else {
			block.Entities = decodeAll(tags[body:end], rep)
			if _, exists := doc.Blocks[block.Name]; !exists {
				doc.Blocks[block.Name] = block
			}
		}

		i = end
	}
}

// Bounds is the min/max envelope of a coordinate set.
type Bounds struct {
	MinX float64 `json:"minX"`
	MinY float64 `json:"minY"`
	MaxX float64 `json:"maxX"`
	MaxY float64 `json:"maxY"`
}

// Extents returns the header-declared drawing extents, when present and finite.
func (d *Document) Extents() (Bounds, error) {
	if d.Header.ExtMin == nil || d.Header.ExtMax == nil {
		return Bounds{}, eris.New("dxf: header extents not declared")
	}
	if !d.Header.ExtMin.Finite() || !d.Header.ExtMax.Finite() {
		return Bounds{}, eris.New("dxf: header extents are not finite")
	}
	return Bounds{
		MinX: d.Header.ExtMin.X,
		MinY: d.Header.ExtMin.Y,
		MaxX: d.Header.ExtMax.X,
		MaxY: d.Header.ExtMax.Y,
	}, nil
}
