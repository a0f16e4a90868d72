package gateway

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// Request parameter names of the hosted-payment-page protocol.
const (
	ParamVersion    = "pay_Version"
	ParamCommand    = "pay_Command"
	ParamMerchant   = "pay_TmnCode"
	ParamAmount     = "pay_Amount"
	ParamCurrency   = "pay_CurrCode"
	ParamTxnRef     = "pay_TxnRef"
	ParamOrderInfo  = "pay_OrderInfo"
	ParamLocale     = "pay_Locale"
	ParamIPAddr     = "pay_IpAddr"
	ParamCreateDate = "pay_CreateDate"
	ParamExpireDate = "pay_ExpireDate"
	ParamReturnURL  = "pay_ReturnUrl"

	// Callback-only parameters.
	ParamResponseCode  = "pay_ResponseCode"
	ParamTransactionNo = "pay_TransactionNo"
	ParamBankCode      = "pay_BankCode"
	ParamPayDate       = "pay_PayDate"

	// Signature parameters, never part of the signed payload.
	ParamSecureHash     = "pay_SecureHash"
	ParamSecureHashType = "pay_SecureHashType"
)

const (
	protocolVersion = "2.1.0"
	commandPay      = "pay"
	timeLayout      = "20060102150405"
)

// hashData builds the canonical signing payload: both signature fields
// removed, remaining keys sorted lexicographically, each value
// query-escaped (space encodes as '+'), joined as k=v pairs with '&'.
func hashData(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == ParamSecureHash || k == ParamSecureHashType {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params.Get(k)))
	}
	return b.String()
}

// Sign computes the hex HMAC-SHA512 of the canonical payload.
func Sign(params url.Values, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(hashData(params)))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature recomputes the signature over the inbound params and
// compares it with the pay_SecureHash they carry. The comparison is
// exact and constant time; the gateway always emits lowercase hex.
func VerifySignature(params url.Values, secret string) bool {
	provided := params.Get(ParamSecureHash)
	if provided == "" {
		return false
	}
	expected := Sign(params, secret)
	return hmac.Equal([]byte(provided), []byte(expected))
}
