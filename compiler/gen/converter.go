package gen

import (
	"fmt"

	"github.com/syssam/schemagen/compiler/load"
	"github.com/syssam/schemagen/dialect/sqlschema"
)

// Names of the built-in converters. They match the converters registered by
// adapter.Builtins at runtime.
const (
	ConverterTime    = "time"
	ConverterUUID    = "uuid"
	ConverterDecimal = "decimal"
	ConverterBigInt  = "bigint"
)

// ConverterBinding is the resolved (stored type, model type) pair of a converter.
type ConverterBinding struct {
	Name      string
	ModelType string
	Type      sqlschema.ColumnType
	NonNull   bool
	Builtin   bool
	Pos       string
}

// builtinConverters are registered ahead of the declared converters.
var builtinConverters = []*ConverterBinding{
	{Name: ConverterTime, ModelType: "time.Time", Type: sqlschema.Integer, Builtin: true},
	{Name: ConverterUUID, ModelType: "uuid.UUID", Type: sqlschema.Text, Builtin: true},
	{Name: ConverterDecimal, ModelType: "decimal.Decimal", Type: sqlschema.Text, Builtin: true},
	{Name: ConverterBigInt, ModelType: "*big.Int", Type: sqlschema.Text, Builtin: true},
}

// nativeTypes maps model type names to their stored type.
var nativeTypes = map[string]sqlschema.ColumnType{
	"bool":    sqlschema.Integer,
	"int":     sqlschema.Integer,
	"int8":    sqlschema.Integer,
	"int16":   sqlschema.Integer,
	"int32":   sqlschema.Integer,
	"int64":   sqlschema.Integer,
	"uint":    sqlschema.Integer,
	"uint8":   sqlschema.Integer,
	"uint16":  sqlschema.Integer,
	"uint32":  sqlschema.Integer,
	"uint64":  sqlschema.Integer,
	"rune":    sqlschema.Integer,
	"byte":    sqlschema.Integer,
	"float32": sqlschema.Real,
	"float64": sqlschema.Real,
	"string":  sqlschema.Text,
	"char":    sqlschema.Text,
	"enum":    sqlschema.Text,
	"bytes":   sqlschema.Blob,
	"[]byte":  sqlschema.Blob,
}

// integralTypes are the model types allowed on auto-increment and rowid keys.
var integralTypes = map[string]bool{
	"int": true, "int8": true, "int16": true, "int32": true, "int64": true,
	"uint": true, "uint8": true, "uint16": true, "uint32": true, "uint64": true,
}

// converters is the converter registry of one compilation run.
type converters struct {
	byName map[string]*ConverterBinding
	byType map[string]*ConverterBinding
}

func newConverters(builtin bool) *converters {
	c := &converters{
		byName: make(map[string]*ConverterBinding),
		byType: make(map[string]*ConverterBinding),
	}
	if builtin {
		for _, b := range builtinConverters {
			cp := *b
			c.byName[cp.Name] = &cp
			c.byType[cp.ModelType] = &cp
		}
	}
	return c
}

// add registers a declared converter. A declared converter replaces a
// built-in one; a second declared converter for the same model type is
// rejected and the first one is kept.
func (c *converters) add(tc *load.TypeConverter) error {
	if tc.Name == "" {
		return NewValidationError("", "", tc.Pos, "converter name cannot be empty")
	}
	if tc.ModelType == "" {
		return NewValidationError("", "", tc.Name, "converter model type cannot be empty")
	}
	typ, err := sqlschema.ParseColumnType(tc.StoredType)
	if err != nil {
		return &ValidationError{Value: tc.Name, Message: "converter " + tc.Name, Cause: err}
	}
	if prev, ok := c.byName[tc.Name]; ok && !prev.Builtin {
		return NewValidationError("", "", tc.Name, fmt.Sprintf("converter %q redeclared", tc.Name))
	}
	if prev, ok := c.byType[tc.ModelType]; ok && !prev.Builtin {
		return NewValidationError("", "", tc.Name,
			fmt.Sprintf("converters %q and %q both convert %s", prev.Name, tc.Name, tc.ModelType))
	}
	b := &ConverterBinding{
		Name:      tc.Name,
		ModelType: tc.ModelType,
		Type:      typ,
		NonNull:   tc.NonNull,
		Pos:       tc.Pos,
	}
	if prev, ok := c.byType[tc.ModelType]; ok && prev.Builtin {
		delete(c.byName, prev.Name)
	}
	c.byName[b.Name] = b
	c.byType[b.ModelType] = b
	return nil
}

// resolve determines the stored type and converter of a scalar field.
// The explicit converter wins over a converter registered for the model type,
// which wins over the native mapping.
func (c *converters) resolve(entity string, f *load.Field) (sqlschema.ColumnType, *ConverterBinding, error) {
	if f.Converter != "" {
		b, ok := c.byName[f.Converter]
		if !ok {
			return "", nil, NewResolutionError(entity, f.Name, f.Converter, "unknown converter", nil)
		}
		if f.Type != "" && f.Type != b.ModelType {
			return "", nil, NewValidationError(entity, f.Name, f.Type,
				fmt.Sprintf("converter %q converts %s", b.Name, b.ModelType))
		}
		return b.Type, b, nil
	}
	if f.IsEnum() {
		return sqlschema.Text, nil, nil
	}
	if b, ok := c.byType[f.Type]; ok {
		return b.Type, b, nil
	}
	if t, ok := nativeTypes[f.Type]; ok {
		return t, nil, nil
	}
	return "", nil, NewResolutionError(entity, f.Name, "", fmt.Sprintf("unmapped model type %q", f.Type), nil)
}

// modelType returns the model type a field holds.
func modelType(f *load.Field, b *ConverterBinding) string {
	switch {
	case f.Type != "":
		return f.Type
	case b != nil:
		return b.ModelType
	case f.IsEnum():
		return "enum"
	default:
		return ""
	}
}

// nullable propagates nullability through a converter. A stored value is
// nullable when the field is and the converter does not forbid it.
func nullable(notNull bool, b *ConverterBinding) bool {
	return !notNull && (b == nil || !b.NonNull)
}
