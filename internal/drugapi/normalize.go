package drugapi

import (
	"bytes"
	"encoding/json"
	"log/slog"

	"github.com/shopspring/decimal"

	"healthhub/internal/domain"
)

// successCode is the sentinel the upstream embeds in every payload.
const successCode = 200

// fieldMap names the payload key carrying each canonical drug attribute. The
// two upstream generations disagree on naming, so each endpoint family keeps
// its own table; supporting a third shape means adding a table, not code.
type fieldMap struct {
	Name              string
	Barcode           string
	ApprovalNumber    string
	Manufacturer      string
	Specification     string
	DosageForm        string
	MainIngredient    string
	Indications       string
	Contraindications string
	AdverseReactions  string
	DosageUsage       string
	Precautions       string
	Interactions      string
	StorageConditions string
	ValidityPeriod    string
	ImageURL          string
	Price             string
}

// detailFields covers the detail and barcode endpoints (generation 2).
var detailFields = fieldMap{
	Name:              "name",
	Barcode:           "code",
	ApprovalNumber:    "approvalNo",
	Manufacturer:      "manuName",
	Specification:     "spec",
	DosageForm:        "form",
	MainIngredient:    "ingredients",
	Indications:       "indications",
	Contraindications: "contraindications",
	AdverseReactions:  "adverseReactions",
	DosageUsage:       "usage",
	Precautions:       "precautions",
	Interactions:      "interactions",
	StorageConditions: "storage",
	ValidityPeriod:    "validity",
	ImageURL:          "img",
	Price:             "price",
}

// searchFields covers the search/list endpoint (generation 1).
var searchFields = fieldMap{
	Name:              "drugName",
	Barcode:           "barcode",
	ApprovalNumber:    "approvalNumber",
	Manufacturer:      "manufacturer",
	Specification:     "specification",
	DosageForm:        "dosageForm",
	MainIngredient:    "basis",
	Indications:       "indication",
	Contraindications: "taboo",
	AdverseReactions:  "sideEffects",
	DosageUsage:       "dosage",
	Precautions:       "attentions",
	Interactions:      "interaction",
	StorageConditions: "storageMethod",
	ValidityPeriod:    "period",
	ImageURL:          "imageUrl",
	Price:             "price",
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// normalizeOne maps a single-object payload into the canonical drug shape.
// Any payload that is not a success envelope with an object body yields
// ok=false; missing fields stay empty.
func normalizeOne(raw []byte, fm fieldMap, log *slog.Logger) (domain.Drug, bool, error) {
	data, ok := unwrap(raw, log)
	if !ok || len(data) == 0 {
		return domain.Drug{}, false, nil
	}
	obj, err := decodeObject(data)
	if err != nil {
		log.Warn("drug directory: malformed data object", "payload", string(raw))
		return domain.Drug{}, false, nil
	}
	d := mapFields(obj, fm, log)
	if d.Name == "" && d.Barcode == "" {
		return domain.Drug{}, false, nil
	}
	return d, true, nil
}

// normalizeList maps an array payload; malformed entries are skipped.
func normalizeList(raw []byte, fm fieldMap, log *slog.Logger) ([]domain.Drug, error) {
	data, ok := unwrap(raw, log)
	if !ok || len(data) == 0 {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		log.Warn("drug directory: malformed data array", "payload", string(raw))
		return nil, nil
	}
	drugs := make([]domain.Drug, 0, len(items))
	for _, item := range items {
		obj, err := decodeObject(item)
		if err != nil {
			continue
		}
		d := mapFields(obj, fm, log)
		if d.Name == "" && d.Barcode == "" {
			continue
		}
		drugs = append(drugs, d)
	}
	return drugs, nil
}

// unwrap validates the success sentinel and returns the data member.
func unwrap(raw []byte, log *slog.Logger) (json.RawMessage, bool) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Warn("drug directory: malformed envelope", "payload", string(raw))
		return nil, false
	}
	if env.Code != successCode {
		log.Warn("drug directory: non-success response",
			"code", env.Code, "msg", env.Msg, "payload", string(raw))
		return nil, false
	}
	return env.Data, true
}

// decodeObject parses one payload object keeping numbers as json.Number so
// prices survive without a float round-trip.
func decodeObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	return obj, nil
}

func mapFields(obj map[string]any, fm fieldMap, log *slog.Logger) domain.Drug {
	d := domain.Drug{
		Name:              stringField(obj, fm.Name),
		Barcode:           stringField(obj, fm.Barcode),
		ApprovalNumber:    stringField(obj, fm.ApprovalNumber),
		Manufacturer:      stringField(obj, fm.Manufacturer),
		Specification:     stringField(obj, fm.Specification),
		DosageForm:        stringField(obj, fm.DosageForm),
		MainIngredient:    stringField(obj, fm.MainIngredient),
		Indications:       stringField(obj, fm.Indications),
		Contraindications: stringField(obj, fm.Contraindications),
		AdverseReactions:  stringField(obj, fm.AdverseReactions),
		DosageUsage:       stringField(obj, fm.DosageUsage),
		Precautions:       stringField(obj, fm.Precautions),
		Interactions:      stringField(obj, fm.Interactions),
		StorageConditions: stringField(obj, fm.StorageConditions),
		ValidityPeriod:    stringField(obj, fm.ValidityPeriod),
		ImageURL:          stringField(obj, fm.ImageURL),
		Status:            domain.DrugActive,
	}
	if price, ok := priceField(obj, fm.Price); ok {
		d.Price = &price
	} else if _, present := obj[fm.Price]; present {
		log.Warn("drug directory: unparsable price", "value", obj[fm.Price])
	}
	return d
}

func stringField(obj map[string]any, key string) string {
	if key == "" {
		return ""
	}
	switch v := obj[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

// priceField parses the price as an exact decimal, never through float64.
func priceField(obj map[string]any, key string) (decimal.Decimal, bool) {
	var text string
	switch v := obj[key].(type) {
	case string:
		text = v
	case json.Number:
		text = v.String()
	default:
		return decimal.Decimal{}, false
	}
	if text == "" {
		return decimal.Decimal{}, false
	}
	price, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return price, true
}
