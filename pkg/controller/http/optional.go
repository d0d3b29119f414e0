package http

import (
	"encoding/json"
)

// optional tells an absent JSON field apart from an explicit null
type optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

func (o *optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Null = true
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

// required returns the value for a field that may be omitted but never nulled
func (o optional[T]) required(field string) (*T, error) {
	if !o.Set {
		return nil, nil
	}
	if o.Null {
		return nil, badRequest(field, field+" cannot be null")
	}
	v := o.Value
	return &v, nil
}

// nullable returns the value for a field where null clears it to the zero value
func (o optional[T]) nullable() *T {
	if !o.Set {
		return nil
	}
	if o.Null {
		var zero T
		return &zero
	}
	v := o.Value
	return &v
}
