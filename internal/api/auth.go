package api

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// maxSignedBody caps how much of a signed request is buffered.
const maxSignedBody = 64 << 10

// Sign returns the X-Signature value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// SignatureMiddleware requires X-Signature to be the HMAC-SHA256 of the raw
// body, as "sha256=<hex>" or bare hex.
func SignatureMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("X-Signature"))
		if header == "" {
			respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing X-Signature header")
			c.Abort()
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSignedBody+1))
		if err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "cannot read body")
			c.Abort()
			return
		}
		if len(body) > maxSignedBody {
			respondError(c, http.StatusRequestEntityTooLarge, "INVALID_REQUEST", "body too large")
			c.Abort()
			return
		}

		got, err := hex.DecodeString(strings.TrimPrefix(header, "sha256="))
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(body)
		if err != nil || !hmac.Equal(got, mac.Sum(nil)) {
			respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid signature")
			c.Abort()
			return
		}

		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Next()
	}
}
