package handlers

import (
	"bytes"
	"encoding/json"

	"market/internal/common"
	"market/internal/money"
)

// amountField accepts either a JSON number or a string such as "1,000".
type amountField string

func (a *amountField) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = amountField(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*a = amountField(n.String())
	return nil
}

func (a amountField) units() (int64, error) {
	if a == "" {
		return 0, common.ErrInvalidAmount
	}
	return money.ParseUnits(string(a))
}
