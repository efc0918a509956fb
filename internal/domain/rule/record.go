package rule

import (
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// Record is the loose stored form of a rule: flat columns plus
// JSON-encoded sub-fields for conditions, filters, and bulk ranges.
// Authoring tools and old exports are inconsistent about types inside
// those payloads (numbers as strings, ids as bare values or objects), so
// decoding is deliberately tolerant: anything unparsable collapses to
// "no special condition" instead of an error.
type Record struct {
	ID              int64
	Title           string
	Description     string
	DiscountType    string
	DiscountValue   decimal.Decimal
	Conditions      []byte
	Filters         []byte
	BulkRanges      []byte
	BulkOperator    string
	ApplyAsCartRule bool
	CartLabel       string
	UsageLimit      int
	UsageCount      int
	Priority        int
	Status          string
}

// dateLayouts are the formats seen in stored rules, newest first.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

const storedDateLayout = "2006-01-02 15:04:05"

// Rule decodes the record into a typed rule with its discount shape
// resolved. Decoding never fails: malformed sub-fields degrade to empty
// conditions, an all-products filter, or no bulk tiers.
func (rec Record) Rule() *Rule {
	r := &Rule{
		ID:          rec.ID,
		Title:       rec.Title,
		Description: rec.Description,
		Conditions:  decodeConditions(rec.Conditions),
		Filter:      decodeFilter(rec.Filters),
		UsageLimit:  rec.UsageLimit,
		UsageCount:  rec.UsageCount,
		Priority:    rec.Priority,
		Status:      Status(rec.Status),
	}
	if r.Status != StatusInactive {
		r.Status = StatusActive
	}

	ranges := decodeBulkRanges(rec.BulkRanges)
	r.Shape = decodeShape(
		DiscountType(rec.DiscountType),
		rec.DiscountValue,
		ranges,
		BulkOperator(rec.BulkOperator),
		rec.ApplyAsCartRule,
		rec.CartLabel,
	)

	return r
}

// MakeRecord converts a typed rule back into its stored form, encoding
// the JSON sub-fields with jx.
func MakeRecord(r *Rule) Record {
	rec := Record{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Conditions:  encodeConditions(r.Conditions),
		Filters:     encodeFilter(r.Filter),
		BulkRanges:  []byte("[]"),
		UsageLimit:  r.UsageLimit,
		UsageCount:  r.UsageCount,
		Priority:    r.Priority,
		Status:      string(r.Status),
	}

	switch s := r.Shape.(type) {
	case FlatPercentage:
		rec.DiscountType = string(DiscountPercentage)
		rec.DiscountValue = s.Value
	case FlatFixed:
		rec.DiscountType = string(DiscountFixed)
		rec.DiscountValue = s.Value
	case BulkTiered:
		rec.DiscountType = string(DiscountPercentage)
		rec.BulkOperator = string(s.Operator)
		rec.BulkRanges = encodeBulkRanges(s.Ranges)
	case CartAdjustment:
		rec.DiscountType = string(s.Type)
		rec.DiscountValue = s.Value
		rec.ApplyAsCartRule = true
		rec.CartLabel = s.Label
	}

	return rec
}

func decodeConditions(data []byte) Conditions {
	var c Conditions
	if len(data) == 0 {
		return c
	}

	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "date_from":
			t, err := decodeDate(d)
			if err != nil {
				return err
			}
			c.DateFrom = t
		case "date_to":
			t, err := decodeDate(d)
			if err != nil {
				return err
			}
			c.DateTo = t
		case "min_subtotal":
			v, err := decodeDecimal(d)
			if err != nil {
				return err
			}
			c.MinSubtotal = v
		case "min_quantity":
			v, err := decodeInt(d)
			if err != nil {
				return err
			}
			c.MinQuantity = v
		default:
			return d.Skip()
		}
		return nil
	})
	if err != nil {
		return Conditions{}
	}
	return c
}

func encodeConditions(c Conditions) []byte {
	var e jx.Encoder
	e.ObjStart()
	if c.DateFrom != nil {
		e.FieldStart("date_from")
		e.Str(c.DateFrom.Format(storedDateLayout))
	}
	if c.DateTo != nil {
		e.FieldStart("date_to")
		e.Str(c.DateTo.Format(storedDateLayout))
	}
	if c.MinSubtotal.IsPositive() {
		e.FieldStart("min_subtotal")
		e.Num(jx.Num(c.MinSubtotal.String()))
	}
	if c.MinQuantity > 0 {
		e.FieldStart("min_quantity")
		e.Int(c.MinQuantity)
	}
	e.ObjEnd()
	return e.Bytes()
}

func decodeFilter(data []byte) Filter {
	f := Filter{ApplyTo: ApplyAllProducts, Method: MethodInclude}
	if len(data) == 0 {
		return f
	}

	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "apply_to":
			s, err := d.Str()
			if err != nil {
				return err
			}
			if ApplyTo(s) == ApplySpecificProducts {
				f.ApplyTo = ApplySpecificProducts
			}
		case "filter_method":
			s, err := d.Str()
			if err != nil {
				return err
			}
			if FilterMethod(s) == MethodExclude {
				f.Method = MethodExclude
			}
		case "selected_products":
			return d.Arr(func(d *jx.Decoder) error {
				id, err := decodeProductRef(d)
				if err != nil {
					return err
				}
				if id != 0 {
					f.ProductIDs = append(f.ProductIDs, id)
				}
				return nil
			})
		default:
			return d.Skip()
		}
		return nil
	})
	if err != nil {
		return Filter{ApplyTo: ApplyAllProducts, Method: MethodInclude}
	}
	return f
}

func encodeFilter(f Filter) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("apply_to")
	if f.ApplyTo == ApplySpecificProducts {
		e.Str(string(ApplySpecificProducts))
	} else {
		e.Str(string(ApplyAllProducts))
	}
	e.FieldStart("filter_method")
	if f.Method == MethodExclude {
		e.Str(string(MethodExclude))
	} else {
		e.Str(string(MethodInclude))
	}
	e.FieldStart("selected_products")
	e.ArrStart()
	for _, id := range f.ProductIDs {
		e.ObjStart()
		e.FieldStart("id")
		e.Int64(id)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
	return e.Bytes()
}

func decodeBulkRanges(data []byte) []BulkRange {
	if len(data) == 0 {
		return nil
	}

	var ranges []BulkRange
	d := jx.DecodeBytes(data)
	err := d.Arr(func(d *jx.Decoder) error {
		var br BulkRange
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "min":
				v, err := decodeInt(d)
				if err != nil {
					return err
				}
				br.Min = v
			case "max":
				v, err := decodeInt(d)
				if err != nil {
					return err
				}
				br.Max = v
			case "discount_type":
				s, err := d.Str()
				if err != nil {
					return err
				}
				br.DiscountType = DiscountType(s)
			case "discount_value", "discount":
				v, err := decodeDecimal(d)
				if err != nil {
					return err
				}
				br.DiscountValue = v
			case "label":
				s, err := d.Str()
				if err != nil {
					return err
				}
				br.Label = s
			default:
				return d.Skip()
			}
			return nil
		}); err != nil {
			return err
		}
		if br.DiscountType == "" {
			br.DiscountType = DiscountPercentage
		}
		ranges = append(ranges, br)
		return nil
	})
	if err != nil {
		return nil
	}
	return ranges
}

func encodeBulkRanges(ranges []BulkRange) []byte {
	var e jx.Encoder
	e.ArrStart()
	for _, br := range ranges {
		e.ObjStart()
		e.FieldStart("min")
		e.Int(br.Min)
		e.FieldStart("max")
		if br.Max == 0 {
			e.Null()
		} else {
			e.Int(br.Max)
		}
		e.FieldStart("discount_type")
		e.Str(string(br.DiscountType))
		e.FieldStart("discount_value")
		e.Num(jx.Num(br.DiscountValue.String()))
		e.FieldStart("label")
		e.Str(br.Label)
		e.ObjEnd()
	}
	e.ArrEnd()
	return e.Bytes()
}

// decodeProductRef accepts either a bare id or an object with an "id" key.
func decodeProductRef(d *jx.Decoder) (int64, error) {
	switch d.Next() {
	case jx.Object:
		var id int64
		err := d.Obj(func(d *jx.Decoder, key string) error {
			if key != "id" {
				return d.Skip()
			}
			v, err := decodeInt(d)
			if err != nil {
				return err
			}
			id = int64(v)
			return nil
		})
		return id, err
	case jx.Number, jx.String:
		v, err := decodeInt(d)
		return int64(v), err
	default:
		return 0, d.Skip()
	}
}

// decodeInt accepts a JSON number, a numeric string, or null.
func decodeInt(d *jx.Decoder) (int, error) {
	switch d.Next() {
	case jx.Number:
		return d.Int()
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return 0, err
		}
		v, err := decimal.NewFromString(s)
		if err != nil {
			return 0, nil
		}
		return int(v.IntPart()), nil
	case jx.Null:
		return 0, d.Null()
	default:
		return 0, d.Skip()
	}
}

// decodeDecimal accepts a JSON number, a numeric string, or null.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		v, err := decimal.NewFromString(string(n))
		if err != nil {
			return decimal.Zero, nil
		}
		return v, nil
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		v, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, nil
		}
		return v, nil
	case jx.Null:
		return decimal.Zero, d.Null()
	default:
		return decimal.Zero, d.Skip()
	}
}

// decodeDate accepts any known stored date layout; unknown formats and
// empty strings decode to nil.
func decodeDate(d *jx.Decoder) (*time.Time, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	s, err := d.Str()
	if err != nil {
		return nil, err
	}
	if s == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, nil
}
