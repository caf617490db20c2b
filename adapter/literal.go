package adapter

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/syssam/schemagen/dialect/sqlschema"
)

// ParseLiteral converts a declared SQL default literal into the value a
// cursor would return for a column of the given type.
func ParseLiteral(typ sqlschema.ColumnType, lit string) (any, error) {
	lit = strings.TrimSpace(lit)
	if strings.EqualFold(lit, "NULL") {
		return nil, nil
	}
	switch typ {
	case sqlschema.Integer:
		switch strings.ToUpper(lit) {
		case "TRUE":
			return int64(1), nil
		case "FALSE":
			return int64(0), nil
		}
		n, err := strconv.ParseInt(lit, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("adapter: invalid INTEGER default %q", lit)
		}
		return n, nil
	case sqlschema.Real:
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return nil, fmt.Errorf("adapter: invalid REAL default %q", lit)
		}
		return f, nil
	case sqlschema.Text:
		return unquote(lit), nil
	case sqlschema.Blob:
		if len(lit) > 3 && (lit[0] == 'x' || lit[0] == 'X') && lit[1] == '\'' {
			b, err := hex.DecodeString(strings.TrimSuffix(lit[2:], "'"))
			if err != nil {
				return nil, fmt.Errorf("adapter: invalid BLOB default %q", lit)
			}
			return b, nil
		}
		return []byte(unquote(lit)), nil
	default:
		return nil, fmt.Errorf("adapter: unknown column type %q", typ)
	}
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		q := string(s[0])
		return strings.ReplaceAll(s[1:len(s)-1], q+q, q)
	}
	return s
}
