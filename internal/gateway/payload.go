package gateway

import (
	"github.com/go-faster/jx"

	"github.com/xenking/storefront-cart/internal/domain/checkout"
)

// encodeOrder writes the order document shared by every gateway. extra, if
// set, appends gateway-specific fields to the top-level object.
func encodeOrder(o *checkout.Order, extra func(e *jx.Encoder)) []byte {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ObjStart()
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range o.Items {
		encodeItem(e, it)
	}
	e.ArrEnd()

	e.FieldStart("payer")
	encodePayer(e, o.Payer)

	e.FieldStart("metadata")
	e.ObjStart()
	if o.Notes != "" {
		e.FieldStart("notes")
		e.Str(o.Notes)
	}
	e.ObjEnd()

	e.FieldStart("external_reference")
	e.Str(o.Reference)
	e.FieldStart("total")
	e.Num(jx.Num(o.Total.StringFixed(2)))

	if extra != nil {
		extra(e)
	}
	e.ObjEnd()

	return append([]byte(nil), e.Bytes()...)
}

func encodeItem(e *jx.Encoder, it checkout.OrderItem) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(it.ID)
	e.FieldStart("title")
	e.Str(it.Title)
	e.FieldStart("quantity")
	e.Int(it.Quantity)
	e.FieldStart("unit_price")
	e.Num(jx.Num(it.UnitPrice.String()))
	if it.Description != "" {
		e.FieldStart("description")
		e.Str(it.Description)
	}
	if it.PictureURL != "" {
		e.FieldStart("picture_url")
		e.Str(it.PictureURL)
	}
	e.FieldStart("currency_id")
	e.Str(it.CurrencyID)
	e.ObjEnd()
}

func encodePayer(e *jx.Encoder, p checkout.Payer) {
	e.ObjStart()
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("email")
	e.Str(p.Email)
	e.FieldStart("phone")
	e.ObjStart()
	e.FieldStart("area_code")
	e.Str(p.Phone.AreaCode)
	e.FieldStart("number")
	e.Str(p.Phone.Number)
	e.ObjEnd()
	if p.Document != "" {
		e.FieldStart("identification")
		e.ObjStart()
		e.FieldStart("type")
		e.Str("CPF")
		e.FieldStart("number")
		e.Str(p.Document)
		e.ObjEnd()
	}
	e.ObjEnd()
}
