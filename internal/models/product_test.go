package models_test

import (
	"encoding/json"
	"testing"

	"petalpaint/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmountsEncodeAsNumbers(t *testing.T) {
	cart := models.Cart{
		UserID: "u1",
		Items: []models.CartItem{
			{ProductID: "p1", Quantity: 3, Price: decimal.RequireFromString("12.50")},
		},
	}
	cart.Recalculate()

	raw, err := json.Marshal(cart)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, 37.5, out["totalPrice"])
	assert.Equal(t, 12.5, out["items"].([]interface{})[0].(map[string]interface{})["price"])
}

func TestAmountsDecodeFromNumbersAndStrings(t *testing.T) {
	var p models.Product
	require.NoError(t, json.Unmarshal([]byte(`{"price": 9.99}`), &p))
	assert.True(t, p.Price.Equal(decimal.RequireFromString("9.99")))

	require.NoError(t, json.Unmarshal([]byte(`{"price": "4.50"}`), &p))
	assert.True(t, p.Price.Equal(decimal.RequireFromString("4.5")))
}
