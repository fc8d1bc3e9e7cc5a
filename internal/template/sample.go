package template

import (
	"encoding/json"

	"github.com/reportforge/designer/internal/element"
	"github.com/reportforge/designer/internal/geometry"
	"github.com/reportforge/designer/internal/typeid"
)

// Receipt page size in canvas units (80mm roll at 4 units per mm).
const (
	ReceiptWidth  = 320
	ReceiptHeight = 640
)

// NewSampleReceipt returns the elements of a small point-of-sale receipt.
// Element ids are freshly generated on every call.
func NewSampleReceipt() []element.Ref {
	el := func(kind element.Kind, name string, x, y, w, h float64, data string) element.Ref {
		return element.Ref{
			ID:       typeid.NewElementID(),
			Kind:     kind,
			Name:     name,
			Position: geometry.Point{X: x, Y: y},
			Size:     geometry.Size{Width: w, Height: h},
			Visible:  true,
			Data:     json.RawMessage(data),
		}
	}

	border := el(element.KindRect, "Page border", 0, 0, ReceiptWidth, ReceiptHeight,
		`{"stroke":"#cccccc","strokeWidth":1,"fill":""}`)
	border.Locked = true

	watermark := el(element.KindText, "Watermark", 60, 300, 200, 40,
		`{"text":"COPY","fontSize":32,"opacity":0.2}`)
	watermark.Visible = false

	return []element.Ref{
		border,
		watermark,
		el(element.KindImage, "Logo", 120, 16, 80, 80, `{"src":"logo.png","fit":"contain"}`),
		el(element.KindText, "Store name", 40, 104, 240, 28,
			`{"text":"ACME Market","fontSize":20,"align":"center","bold":true}`),
		el(element.KindText, "Address", 40, 132, 240, 36,
			`{"text":"12 Harbour Road\nPort Town","fontSize":11,"align":"center"}`),
		el(element.KindLine, "Header rule", 16, 180, 288, 2, `{"stroke":"#000000","dash":[4,2]}`),
		el(element.KindField, "Line items", 16, 192, 288, 240,
			`{"binding":"order.items","repeat":true,"columns":["qty","name","price"]}`),
		el(element.KindLine, "Totals rule", 16, 440, 288, 2, `{"stroke":"#000000"}`),
		el(element.KindField, "Total", 160, 452, 144, 28,
			`{"binding":"order.total","format":"currency","fontSize":16,"align":"right","bold":true}`),
		el(element.KindField, "Date", 16, 452, 136, 20, `{"binding":"order.createdAt","format":"datetime"}`),
		el(element.KindImage, "Barcode", 60, 500, 200, 60, `{"binding":"order.number","symbology":"code128"}`),
		el(element.KindText, "Footer", 16, 580, 288, 32,
			`{"text":"Thank you for shopping with us","fontSize":11,"align":"center"}`),
	}
}
