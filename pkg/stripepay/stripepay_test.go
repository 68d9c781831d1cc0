package stripepay_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"petalpaint/pkg/stripepay"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test_secret"

func sign(payload []byte, secret string, at time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.%s", at.Unix(), payload)))
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestParseEvent_PaymentIntentSucceeded(t *testing.T) {
	payload := []byte(`{"id":"evt_123","object":"event","type":"payment_intent.succeeded",` +
		`"data":{"object":{"id":"pi_456","object":"payment_intent","status":"succeeded"}}}`)

	event, err := stripepay.ParseEvent(payload, sign(payload, testSecret, time.Now()), testSecret)

	require.NoError(t, err)
	assert.Equal(t, "evt_123", event.ID)
	assert.Equal(t, stripepay.EventPaymentSucceeded, event.Type)
	assert.Equal(t, "pi_456", event.PaymentIntentID)
}

func TestParseEvent_RejectsBadSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_123","object":"event","type":"payment_intent.succeeded","data":{"object":{}}}`)

	_, err := stripepay.ParseEvent(payload, sign(payload, "whsec_other", time.Now()), testSecret)

	assert.Error(t, err)
}

func TestParseEvent_IgnoresNonIntentPayloads(t *testing.T) {
	payload := []byte(`{"id":"evt_9","object":"event","type":"customer.created","data":{"object":{"id":"cus_1"}}}`)

	event, err := stripepay.ParseEvent(payload, sign(payload, testSecret, time.Now()), testSecret)

	require.NoError(t, err)
	assert.Equal(t, "customer.created", event.Type)
	assert.Empty(t, event.PaymentIntentID)
}
