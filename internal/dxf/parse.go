// Package dxf parses ASCII DXF drawings into a typed entity/block/layer
// model and flattens block references into world-space entities.
//
// The parser is tolerant by design: unknown entity types and malformed
// entities become warnings in the document's issue list, and only a missing
// ENTITIES section or an unreadable tag stream is fatal. CAD exports in the
// wild are full of vendor quirks, so skip-and-continue recovers far more
// data than strict rejection.
package dxf

import (
	"fmt"
	"math"
	"strings"

	"github.com/benj01/geoloader/internal/crs"
	"github.com/benj01/geoloader/internal/geom"
)

// Severity classifies an issue.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
)

// Issue is a non-fatal problem found while parsing or expanding.
type Issue struct {
	Severity Severity
	Code     string
	Message  string
	Handle   string // entity handle when the issue is entity-specific
}

// Issue codes.
const (
	IssueInvalidEntity     = "invalid_entity"
	IssueUnknownEntity     = "unknown_entity_type"
	IssueUnknownBlock      = "unknown_block_reference"
	IssueCircularReference = "circular_reference"
	IssueNoCRS             = "no_coordinate_system_detected"
)

// Header holds the handful of HEADER section variables the loader uses.
type Header struct {
	ExtMin   geom.Coord // $EXTMIN, nil when absent
	ExtMax   geom.Coord // $EXTMAX, nil when absent
	InsUnits int        // $INSUNITS drawing unit code, 0 = unspecified
}

// Extents returns the header drawing extents, false when not declared.
func (h Header) Extents() (geom.Bounds, bool) {
	if h.ExtMin == nil || h.ExtMax == nil {
		return geom.Bounds{}, false
	}
	b := geom.NewBounds()
	b = b.Extend(h.ExtMin[0], h.ExtMin[1])
	b = b.Extend(h.ExtMax[0], h.ExtMax[1])
	return b, true
}

// Document is a parsed DXF drawing before block expansion.
type Document struct {
	Header   Header
	Layers   map[string]Layer
	Blocks   map[string]*Block
	Entities []Entity
	Issues   []Issue
}

// Options configures parsing behavior.
type Options struct {
	// MaxEntities caps the entity count per document (inserts included).
	// Zero means the default ceiling; negative disables the check.
	MaxEntities int
}

// DefaultOptions returns parse options with defaults.
func DefaultOptions() Options {
	return Options{MaxEntities: 1_000_000}
}

func (o Options) maxEntities() int {
	if o.MaxEntities == 0 {
		return DefaultOptions().MaxEntities
	}
	return o.MaxEntities
}

// Parse decodes an ASCII DXF document.
//
// A document without an ENTITIES section is rejected with
// ErrMissingSection; everything else degrades to issues on the returned
// document.
func Parse(buf []byte, opts Options) (*Document, error) {
	doc := &Document{
		Layers: make(map[string]Layer),
		Blocks: make(map[string]*Block),
	}
	p := &parser{reader: newTagReader(buf), doc: doc, opts: opts}

	sawEntities := false
	for {
		tag, ok, err := p.reader.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if tag.Code != 0 {
			continue
		}
		switch tag.Value {
		case "SECTION":
			name, err := p.sectionName()
			if err != nil {
				return nil, err
			}
			switch name {
			case "HEADER":
				err = p.parseHeader()
			case "TABLES":
				err = p.parseTables()
			case "BLOCKS":
				err = p.parseBlocks()
			case "ENTITIES":
				sawEntities = true
				doc.Entities, err = p.parseEntities("ENDSEC")
			default:
				err = p.skipSection()
			}
			if err != nil {
				return nil, err
			}
		case "EOF":
			if !sawEntities {
				return nil, &ErrMissingSection{Section: "ENTITIES"}
			}
			return doc, nil
		}
	}
	if !sawEntities {
		return nil, &ErrMissingSection{Section: "ENTITIES"}
	}
	return doc, nil
}

// InferCRS determines the coordinate system of a drawing. Point-pattern
// analysis over representative entity coordinates is preferred; header
// extents are the fallback when too few points are available or the
// pattern is inconclusive.
func InferCRS(doc *Document, entities []Entity) crs.DetectionResult {
	var coords []geom.Coord
	for _, e := range entities {
		coords = append(coords, e.points()...)
	}

	if len(coords) >= minPatternPoints {
		result := crs.DetectPoints(coords, crs.MethodPointPattern)
		if result.System != crs.None && result.Confidence >= patternConfidence {
			return result
		}
	}

	if extents, ok := doc.Header.Extents(); ok {
		result := crs.DetectBounds(extents, crs.MethodHeaderExtents)
		if result.System != crs.None {
			return result
		}
	}

	return crs.DetectPoints(coords, crs.MethodPointPattern)
}

const (
	// minPatternPoints is the smallest sample worth pattern-matching;
	// below it a single stray point dominates the envelope.
	minPatternPoints = 4
	// patternConfidence is the floor under which the pattern result is
	// distrusted in favor of the declared header extents.
	patternConfidence = 0.7
)

type parser struct {
	reader *tagReader
	doc    *Document
	opts   Options
}

func (p *parser) addIssue(severity Severity, code, handle, format string, args ...any) {
	p.doc.Issues = append(p.doc.Issues, Issue{
		Severity: severity,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Handle:   handle,
	})
}

// sectionName reads the "2 <name>" tag that follows "0 SECTION".
func (p *parser) sectionName() (string, error) {
	tag, ok, err := p.reader.next()
	if err != nil {
		return "", err
	}
	if !ok || tag.Code != 2 {
		return "", &ErrDocument{Line: tag.Line, Reason: "SECTION without a name tag"}
	}
	return strings.ToUpper(strings.TrimSpace(tag.Value)), nil
}

func (p *parser) skipSection() error {
	for {
		tag, ok, err := p.reader.next()
		if err != nil {
			return err
		}
		if !ok {
			return &ErrDocument{Reason: "unterminated section"}
		}
		if tag.Code == 0 && tag.Value == "ENDSEC" {
			return nil
		}
	}
}

// parseHeader picks $EXTMIN, $EXTMAX, and $INSUNITS out of the HEADER
// section, ignoring the rest of the (typically huge) variable list.
func (p *parser) parseHeader() error {
	current := ""
	for {
		tag, ok, err := p.reader.next()
		if err != nil {
			return err
		}
		if !ok {
			return &ErrDocument{Reason: "unterminated HEADER section"}
		}
		switch {
		case tag.Code == 0 && tag.Value == "ENDSEC":
			return nil
		case tag.Code == 9:
			current = tag.Value
		case current == "$EXTMIN":
			p.doc.Header.ExtMin = setOrdinate(p.doc.Header.ExtMin, tag)
		case current == "$EXTMAX":
			p.doc.Header.ExtMax = setOrdinate(p.doc.Header.ExtMax, tag)
		case current == "$INSUNITS" && tag.Code == 70:
			p.doc.Header.InsUnits = tag.Int()
		}
	}
}

// setOrdinate folds 10/20/30 tags into a coordinate.
func setOrdinate(c geom.Coord, tag Tag) geom.Coord {
	if c == nil {
		c = geom.Coord{0, 0, 0}
	}
	switch tag.Code {
	case 10:
		c[0] = tag.Float()
	case 20:
		c[1] = tag.Float()
	case 30:
		c[2] = tag.Float()
	}
	return c
}

// parseTables extracts the LAYER table; other tables are skipped.
func (p *parser) parseTables() error {
	for {
		tag, ok, err := p.reader.next()
		if err != nil {
			return err
		}
		if !ok {
			return &ErrDocument{Reason: "unterminated TABLES section"}
		}
		if tag.Code != 0 {
			continue
		}
		switch tag.Value {
		case "ENDSEC":
			return nil
		case "LAYER":
			layer := p.parseLayer()
			if layer.Name != "" {
				p.doc.Layers[layer.Name] = layer
			}
		}
	}
}

const (
	layerFlagFrozen = 1
	layerFlagLocked = 4
)

func (p *parser) parseLayer() Layer {
	layer := Layer{Visible: true}
	for {
		tag, ok, err := p.reader.next()
		if err != nil || !ok {
			return layer
		}
		if tag.Code == 0 {
			p.reader.unread(tag)
			return layer
		}
		switch tag.Code {
		case 2:
			layer.Name = tag.Value
		case 6:
			layer.LineType = tag.Value
		case 62:
			// A negative color code means the layer is switched off.
			color := tag.Int()
			layer.Color = color
			if color < 0 {
				layer.Color = -color
				layer.Visible = false
			}
		case 70:
			flags := tag.Int()
			layer.Frozen = flags&layerFlagFrozen != 0
			layer.Locked = flags&layerFlagLocked != 0
		}
	}
}

func (p *parser) parseBlocks() error {
	for {
		tag, ok, err := p.reader.next()
		if err != nil {
			return err
		}
		if !ok {
			return &ErrDocument{Reason: "unterminated BLOCKS section"}
		}
		if tag.Code != 0 {
			continue
		}
		switch tag.Value {
		case "ENDSEC":
			return nil
		case "BLOCK":
			block, err := p.parseBlock()
			if err != nil {
				return err
			}
			if block.Name != "" {
				p.doc.Blocks[block.Name] = block
			}
		}
	}
}

func (p *parser) parseBlock() (*Block, error) {
	block := &Block{Position: geom.Coord{0, 0, 0}}
	for {
		tag, ok, err := p.reader.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &ErrDocument{Reason: "unterminated BLOCK"}
		}
		if tag.Code == 0 {
			p.reader.unread(tag)
			break
		}
		switch tag.Code {
		case 2:
			block.Name = tag.Value
		case 8:
			block.Layer = tag.Value
		case 10, 20, 30:
			block.Position = setOrdinate(block.Position, tag)
		}
	}

	entities, err := p.parseEntities("ENDBLK")
	if err != nil {
		return nil, err
	}
	block.Entities = entities

	// Consume any trailing ENDBLK attribute tags.
	for {
		tag, ok, err := p.reader.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return block, nil
		}
		if tag.Code == 0 {
			p.reader.unread(tag)
			return block, nil
		}
	}
}

// parseEntities reads entities until the given terminator record. It is
// shared between the ENTITIES section (ENDSEC) and block bodies (ENDBLK).
func (p *parser) parseEntities(terminator string) ([]Entity, error) {
	var entities []Entity
	limit := p.opts.maxEntities()
	for {
		tag, ok, err := p.reader.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &ErrDocument{Reason: "unterminated entity list"}
		}
		if tag.Code != 0 {
			continue
		}
		if tag.Value == terminator {
			return entities, nil
		}

		entity, known, err := p.parseEntity(tag.Value)
		if err != nil {
			return nil, err
		}
		if !known {
			p.addIssue(SeverityInfo, IssueUnknownEntity, "", "skipping unsupported entity type %q", tag.Value)
			continue
		}

		if reason := entity.validate(); reason != "" {
			p.addIssue(SeverityWarning, IssueInvalidEntity, entity.EntityCommon().Handle,
				"%s %s", strings.ToLower(entity.DXFType()), reason)
		}
		entities = append(entities, entity)

		if limit > 0 && len(entities) > limit {
			return nil, &ErrDocument{Reason: fmt.Sprintf("entity count exceeds limit %d", limit)}
		}
	}
}

// rawEntity accumulates the tags of one entity record.
type rawEntity struct {
	common Common
	tags   []Tag
}

// collect reads tags until the next record boundary, splitting off the
// common fields every entity shares.
func (p *parser) collect() (rawEntity, error) {
	var raw rawEntity
	for {
		tag, ok, err := p.reader.next()
		if err != nil {
			return raw, err
		}
		if !ok {
			return raw, nil
		}
		if tag.Code == 0 {
			p.reader.unread(tag)
			return raw, nil
		}
		switch tag.Code {
		case 5:
			raw.common.Handle = tag.Value
		case 8:
			raw.common.Layer = tag.Value
		case 6:
			raw.common.LineType = tag.Value
		default:
			raw.tags = append(raw.tags, tag)
		}
	}
}

func (raw rawEntity) float(code int) float64 {
	for _, tag := range raw.tags {
		if tag.Code == code {
			return tag.Float()
		}
	}
	return 0
}

func (raw rawEntity) floatDefault(code int, def float64) float64 {
	for _, tag := range raw.tags {
		if tag.Code == code {
			return tag.Float()
		}
	}
	return def
}

func (raw rawEntity) int(code int) int {
	for _, tag := range raw.tags {
		if tag.Code == code {
			return tag.Int()
		}
	}
	return 0
}

func (raw rawEntity) str(code int) string {
	for _, tag := range raw.tags {
		if tag.Code == code {
			return tag.Value
		}
	}
	return ""
}

// coord assembles a coordinate from an x group code and its y/z partners
// (x+10, x+20 per the group-code numbering scheme).
func (raw rawEntity) coord(xCode int) geom.Coord {
	c := geom.Coord{0, 0, 0}
	for _, tag := range raw.tags {
		switch tag.Code {
		case xCode:
			c[0] = tag.Float()
		case xCode + 10:
			c[1] = tag.Float()
		case xCode + 20:
			c[2] = tag.Float()
		}
	}
	return c
}

func (p *parser) parseEntity(recordType string) (Entity, bool, error) {
	switch recordType {
	case "LINE":
		raw, err := p.collect()
		if err != nil {
			return nil, false, err
		}
		return Line{Common: raw.common, Start: raw.coord(10), End: raw.coord(11)}, true, nil

	case "POINT":
		raw, err := p.collect()
		if err != nil {
			return nil, false, err
		}
		return Point{Common: raw.common, Position: raw.coord(10)}, true, nil

	case "CIRCLE":
		raw, err := p.collect()
		if err != nil {
			return nil, false, err
		}
		return Circle{Common: raw.common, Center: raw.coord(10), Radius: raw.float(40)}, true, nil

	case "ARC":
		raw, err := p.collect()
		if err != nil {
			return nil, false, err
		}
		return Arc{
			Common:     raw.common,
			Center:     raw.coord(10),
			Radius:     raw.float(40),
			StartAngle: raw.float(50),
			EndAngle:   raw.float(51),
		}, true, nil

	case "ELLIPSE":
		raw, err := p.collect()
		if err != nil {
			return nil, false, err
		}
		return Ellipse{
			Common:         raw.common,
			Center:         raw.coord(10),
			MajorAxis:      raw.coord(11),
			MinorAxisRatio: raw.float(40),
			StartParam:     raw.float(41),
			EndParam:       raw.floatDefault(42, 2*math.Pi),
		}, true, nil

	case "TEXT", "MTEXT":
		raw, err := p.collect()
		if err != nil {
			return nil, false, err
		}
		value := raw.str(1)
		if recordType == "MTEXT" {
			// Long MTEXT bodies are split over repeated code 3 chunks with
			// the tail in code 1.
			var parts []string
			for _, tag := range raw.tags {
				if tag.Code == 3 {
					parts = append(parts, tag.Value)
				}
			}
			value = strings.Join(parts, "") + value
		}
		return Text{Common: raw.common, Position: raw.coord(10), Value: value}, true, nil

	case "LWPOLYLINE":
		return p.parseLWPolyline()

	case "POLYLINE":
		return p.parseLegacyPolyline()

	case "INSERT":
		raw, err := p.collect()
		if err != nil {
			return nil, false, err
		}
		return Insert{
			Common:     raw.common,
			Block:      raw.str(2),
			Position:   raw.coord(10),
			ScaleX:     raw.floatDefault(41, 1),
			ScaleY:     raw.floatDefault(42, 1),
			Rotation:   raw.float(50),
			Columns:    raw.int(70),
			Rows:       raw.int(71),
			ColSpacing: raw.float(44),
			RowSpacing: raw.float(45),
		}, true, nil

	case "SPLINE":
		return p.parseSpline()

	default:
		if _, err := p.collect(); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}
}

const polylineFlagClosed = 1

// parseLWPolyline decodes the lightweight polyline, whose vertices are
// repeated 10/20 pairs inside a single record.
func (p *parser) parseLWPolyline() (Entity, bool, error) {
	e := Polyline{}
	var current geom.Coord
	for {
		tag, ok, err := p.reader.next()
		if err != nil {
			return nil, false, err
		}
		if !ok {
			break
		}
		if tag.Code == 0 {
			p.reader.unread(tag)
			break
		}
		switch tag.Code {
		case 5:
			e.Handle = tag.Value
		case 8:
			e.Layer = tag.Value
		case 6:
			e.LineType = tag.Value
		case 70:
			e.Closed = tag.Int()&polylineFlagClosed != 0
		case 10:
			current = geom.Coord{tag.Float(), 0}
			e.Vertices = append(e.Vertices, current)
		case 20:
			if current != nil {
				current[1] = tag.Float()
			}
		}
	}
	return e, true, nil
}

// parseLegacyPolyline decodes the old POLYLINE form, whose vertices follow
// as separate VERTEX records terminated by SEQEND.
func (p *parser) parseLegacyPolyline() (Entity, bool, error) {
	e := Polyline{}
	for {
		tag, ok, err := p.reader.next()
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return e, true, nil
		}
		if tag.Code == 0 {
			switch tag.Value {
			case "VERTEX":
				raw, err := p.collect()
				if err != nil {
					return nil, false, err
				}
				e.Vertices = append(e.Vertices, raw.coord(10))
				continue
			case "SEQEND":
				// Drain the SEQEND record's own tags.
				if _, err := p.collect(); err != nil {
					return nil, false, err
				}
				return e, true, nil
			default:
				// Vertex list ended without SEQEND; tolerate it.
				p.reader.unread(tag)
				return e, true, nil
			}
		}
		switch tag.Code {
		case 5:
			e.Handle = tag.Value
		case 8:
			e.Layer = tag.Value
		case 6:
			e.LineType = tag.Value
		case 70:
			e.Closed = tag.Int()&polylineFlagClosed != 0
		}
	}
}

func (p *parser) parseSpline() (Entity, bool, error) {
	e := Spline{}
	var current geom.Coord
	for {
		tag, ok, err := p.reader.next()
		if err != nil {
			return nil, false, err
		}
		if !ok {
			break
		}
		if tag.Code == 0 {
			p.reader.unread(tag)
			break
		}
		switch tag.Code {
		case 5:
			e.Handle = tag.Value
		case 8:
			e.Layer = tag.Value
		case 6:
			e.LineType = tag.Value
		case 71:
			e.Degree = tag.Int()
		case 40:
			e.Knots = append(e.Knots, tag.Float())
		case 41:
			e.Weights = append(e.Weights, tag.Float())
		case 10:
			current = geom.Coord{tag.Float(), 0, 0}
			e.ControlPoints = append(e.ControlPoints, current)
		case 20:
			if current != nil {
				current[1] = tag.Float()
			}
		case 30:
			if current != nil {
				current[2] = tag.Float()
			}
		}
	}
	return e, true, nil
}
