// Package pdfrender draws a contract onto a single fixed-layout A4 page.
//
// Coordinates in FieldPlacement and SignaturePlacement use the PDF convention
// (origin bottom-left, points). Output is byte-stable for identical input.
package pdfrender

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"sort"
	"time"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// ErrUnsupportedText is returned when document text contains characters the
// built-in fonts cannot draw (anything outside Windows-1252).
var ErrUnsupportedText = errors.New("text not representable in built-in font encoding")

const (
	PageWidth  = 595.28
	PageHeight = 841.89

	fontFamily    = "Helvetica"
	titleSize     = 18
	bodySize      = 11
	typedNameSize = 12
	lineHeight    = 14
	marginLeft    = 50
	titleOffset   = 60
	bodyOffset    = 90
	labelGap      = 10
	imageInset    = 4
	typedInsetX   = 6
	typedDropY    = 6
)

// FieldPlacement pins a single field value to an explicit point.
type FieldPlacement struct {
	Key  string
	X    float64
	Y    float64
	Size float64 // 0 means body size
}

// SignaturePlacement is a bordered box reserved for the signer with Role.
type SignaturePlacement struct {
	Role   string
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Signature is the render-time view of one party's signature.
type Signature struct {
	Role      string
	TypedName string
	Image     []byte // PNG, optional
}

// Document is the full render input.
type Document struct {
	Title       string
	BodyLines   []string
	FieldValues map[string]string
	// FieldPlacements nil selects the "key: value" block below the body.
	FieldPlacements []FieldPlacement
	Signatures      []Signature
	// SignaturePlacements nil selects DefaultSignaturePlacements.
	SignaturePlacements []SignaturePlacement
	// CreatedAt is written as the document creation date.
	CreatedAt time.Time
}

// DefaultSignaturePlacements are the Company/Counterparty slots used when a
// document carries no explicit placements.
var DefaultSignaturePlacements = []SignaturePlacement{
	{Role: "Company", X: 50, Y: 120, Width: 200, Height: 50},
	{Role: "Counterparty", X: 320, Y: 120, Width: 200, Height: 50},
}

// Render produces the serialized single-page PDF for doc.
func Render(doc Document) ([]byte, error) {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: PageWidth, Ht: PageHeight},
	})
	created := doc.CreatedAt
	if created.IsZero() {
		created = time.Unix(0, 0)
	}
	pdf.SetCreationDate(created.UTC())
	pdf.SetModificationDate(created.UTC())
	pdf.SetCatalogSort(true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.AddPage()

	tr := newCP1252Text()
	for _, sig := range doc.Signatures {
		tr.encode(sig.TypedName)
	}
	pdf.SetTextColor(0, 0, 0)

	pdf.SetFont(fontFamily, "", titleSize)
	pdf.Text(marginLeft, titleOffset, tr.encode(doc.Title))

	pdf.SetFont(fontFamily, "", bodySize)
	cursor := float64(bodyOffset)
	for _, line := range doc.BodyLines {
		pdf.Text(marginLeft, cursor, tr.encode(line))
		cursor += lineHeight
	}

	if doc.FieldPlacements == nil {
		cursor += lineHeight
		keys := make([]string, 0, len(doc.FieldValues))
		for k := range doc.FieldValues {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			pdf.Text(marginLeft, cursor, tr.encode(k+": "+doc.FieldValues[k]))
			cursor += lineHeight
		}
	} else {
		for _, f := range doc.FieldPlacements {
			size := f.Size
			if size == 0 {
				size = bodySize
			}
			pdf.SetFont(fontFamily, "", size)
			pdf.Text(f.X, flip(f.Y), tr.encode(doc.FieldValues[f.Key]))
		}
		pdf.SetFont(fontFamily, "", bodySize)
	}

	placements := doc.SignaturePlacements
	if placements == nil {
		placements = DefaultSignaturePlacements
	}
	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(1)
	for i, p := range placements {
		pdf.SetFont(fontFamily, "", bodySize)
		pdf.Text(p.X, flip(p.Y+p.Height+labelGap), tr.encode(p.Role+" Signature"))
		pdf.Rect(p.X, flip(p.Y+p.Height), p.Width, p.Height, "D")

		signer, ok := findSigner(doc.Signatures, p.Role)
		if !ok {
			continue
		}
		switch {
		case len(signer.Image) > 0:
			if err := drawImage(pdf, fmt.Sprintf("signature-%d", i), signer.Image, p); err != nil {
				return nil, fmt.Errorf("signature image for %s: %w", p.Role, err)
			}
		case signer.TypedName != "":
			pdf.SetFont(fontFamily, "", typedNameSize)
			pdf.Text(p.X+typedInsetX, flip(p.Y+p.Height/2-typedDropY), tr.encode(signer.TypedName))
		}
	}

	if tr.err != nil {
		return nil, tr.err
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func drawImage(pdf *fpdf.Fpdf, name string, img []byte, p SignaturePlacement) error {
	cfg, err := png.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return fmt.Errorf("decode png: %w", err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return fmt.Errorf("empty png %dx%d", cfg.Width, cfg.Height)
	}
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img))
	if err := pdf.Error(); err != nil {
		return err
	}
	w, h := float64(cfg.Width), float64(cfg.Height)
	scale := min(p.Width/w, p.Height/h)
	dw, dh := w*scale, h*scale
	pdf.ImageOptions(name, p.X+imageInset, flip(p.Y+imageInset+dh), dw, dh, false, opts, 0, "")
	return pdf.Error()
}

// cp1252Text encodes strings for the core fonts and keeps the first
// failure, the same way fpdf carries its own error.
type cp1252Text struct {
	enc *encoding.Encoder
	err error
}

func newCP1252Text() *cp1252Text {
	return &cp1252Text{enc: charmap.Windows1252.NewEncoder()}
}

func (t *cp1252Text) encode(s string) string {
	if t.err != nil {
		return ""
	}
	out, err := t.enc.String(s)
	if err != nil {
		t.err = fmt.Errorf("%w: %q", ErrUnsupportedText, s)
		return ""
	}
	return out
}

func findSigner(sigs []Signature, role string) (Signature, bool) {
	for _, s := range sigs {
		if s.Role == role {
			return s, true
		}
	}
	return Signature{}, false
}

// flip converts a bottom-left y coordinate to fpdf's top-left space.
func flip(y float64) float64 {
	return PageHeight - y
}
