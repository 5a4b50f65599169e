package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cast"
)

// Field keys as written by the report forms.
const (
	FieldMosqueCode       = "mosque_code"
	FieldCodeDay          = "code_day"
	FieldMosqueName       = "المسجد"
	FieldSiteType         = "نوع الموقع"
	FieldEvaluator        = "الاسم_الكريم"
	FieldNotes            = "ملاحظات_عامة"
	FieldDate             = "التاريخ"
	FieldDayLabel         = "label_day"
	FieldMaintenanceCount = "أعمال_الصيانة_عدد"
	FieldCleaningCount    = "أعمال_النظافة_عدد"
	FieldMenCount         = "عدد_المصلين_رجال"
	FieldWomenCount       = "عدد_المصلين_نساء"
)

// Criterion is one rated dimension of a meal evaluation.
type Criterion struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// MealCriteria is the ordered rating set of the fast evaluation form.
var MealCriteria = []Criterion{
	{Key: "حرارة_الوجبة", Label: "حرارة الوجبة"},
	{Key: "الرز", Label: "جودة الأرز"},
	{Key: "الدجاج", Label: "جودة الدجاج"},
	{Key: "السمبوسة", Label: "جودة السمبوسة"},
	{Key: "الشوربة", Label: "جودة الشوربة"},
	{Key: "تنوع_أصناف_الوجبة", Label: "تنوع الأصناف"},
	{Key: "التغليف", Label: "جودة التغليف"},
	{Key: "النقل_والتعبئة", Label: "النقل والتعبئة"},
	{Key: "الالتزام_في_الوقت", Label: "الالتزام بالوقت"},
	{Key: "التوصية_بتكرار_التعامل_في_الأعوام_القادمة", Label: "التوصية بالتعامل مستقبلاً"},
}

// Fields is the kind-specific payload of a record, stored as JSONB.
type Fields map[string]interface{}

// Value implements driver.Valuer.
func (f Fields) Value() (driver.Value, error) {
	if f == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(f)
}

// Scan implements sql.Scanner.
func (f *Fields) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*f = Fields{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("fields: unsupported scan type %T", src)
	}
	out := Fields{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("fields: %w", err)
		}
	}
	*f = out
	return nil
}

// Clone returns a shallow copy.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// String reads a field as trimmed text; absent fields read as "".
func (f Fields) String(key string) string {
	raw, ok := f[key]
	if !ok || raw == nil {
		return ""
	}
	return strings.TrimSpace(cast.ToString(raw))
}

// Float reads a numeric field. ok is false when absent or not a number.
func (f Fields) Float(key string) (float64, bool) {
	raw, present := f[key]
	if !present || raw == nil {
		return 0, false
	}
	if s, isString := raw.(string); isString {
		raw = strings.TrimSpace(s)
		if raw == "" {
			return 0, false
		}
	}
	n, err := cast.ToFloat64E(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Int reads a count field; absent or malformed values read as 0.
func (f Fields) Int(key string) int {
	n, ok := f.Float(key)
	if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return int(n)
}

// Rating reads a 1..5 rating. Zero, absent and out-of-range values are not ratings.
func (f Fields) Rating(key string) (int, bool) {
	n, ok := f.Float(key)
	if !ok || n != math.Trunc(n) || n < 1 || n > 5 {
		return 0, false
	}
	return int(n), true
}
