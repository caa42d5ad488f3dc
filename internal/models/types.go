package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// SymbolGrid 以JSON存储的符号矩阵
type SymbolGrid [][]string

// Value 实现 driver.Valuer
func (g SymbolGrid) Value() (driver.Value, error) {
	if g == nil {
		return "[]", nil
	}
	data, err := json.Marshal(g)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan 实现 sql.Scanner
func (g *SymbolGrid) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*g = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("SymbolGrid: 不支持的类型 %T", value)
	}
	return json.Unmarshal(data, g)
}
